package bridge

import (
	"testing"

	"watchparty-svc/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOrigins = []string{
	"https://www.youtube.com",
	"https://www.youtube-nocookie.com",
}

func TestDecoder(t *testing.T) {
	d := NewDecoder(testOrigins)

	t.Run("accepts allow-listed origin", func(t *testing.T) {
		ev, ok := d.Decode("https://www.youtube.com", []byte(`{"event":"onStateChange","info":0}`))
		require.True(t, ok)
		assert.Equal(t, "onStateChange", ev.Event)
		assert.Equal(t, 0, ev.Info)
	})

	t.Run("drops unknown origin silently", func(t *testing.T) {
		_, ok := d.Decode("https://evil.example", []byte(`{"event":"onStateChange","info":0}`))
		assert.False(t, ok)
	})

	t.Run("origin match is exact", func(t *testing.T) {
		// 子域、scheme或端口不同都不算同一来源
		_, ok := d.Decode("http://www.youtube.com", []byte(`{"event":"onStateChange"}`))
		assert.False(t, ok)

		_, ok = d.Decode("https://www.youtube.com.evil.example", []byte(`{"event":"onStateChange"}`))
		assert.False(t, ok)
	})

	t.Run("drops malformed payload", func(t *testing.T) {
		_, ok := d.Decode("https://www.youtube.com", []byte(`{not json`))
		assert.False(t, ok)
	})

	t.Run("drops payload without event", func(t *testing.T) {
		_, ok := d.Decode("https://www.youtube.com", []byte(`{"info":1}`))
		assert.False(t, ok)
	})
}

func TestEnded(t *testing.T) {
	assert.True(t, Ended(domain.PlayerEvent{Event: "onStateChange", Info: 0}))
	assert.False(t, Ended(domain.PlayerEvent{Event: "onStateChange", Info: 1}))
	assert.False(t, Ended(domain.PlayerEvent{Event: "onReady", Info: 0}))
}

func TestVolume(t *testing.T) {
	t.Run("converts to integer percent", func(t *testing.T) {
		cmd := Volume(0.5)
		assert.Equal(t, domain.PlayerFuncSetVolume, cmd.Func)
		require.Len(t, cmd.Args, 1)
		assert.Equal(t, 50, cmd.Args[0])
	})

	t.Run("rounds", func(t *testing.T) {
		assert.Equal(t, 67, Volume(0.666).Args[0])
	})

	t.Run("clamps out of range", func(t *testing.T) {
		assert.Equal(t, 100, Volume(1.5).Args[0])
		assert.Equal(t, 0, Volume(-0.2).Args[0])
	})
}

func TestDiff(t *testing.T) {
	t.Run("no change no commands", func(t *testing.T) {
		s := domain.PlayerState{Locator: "https://v/1", IsPlaying: true, Volume: 1}
		assert.Empty(t, Diff(s, s))
	})

	t.Run("new locator playing", func(t *testing.T) {
		prev := domain.PlayerState{Volume: 1}
		next := domain.PlayerState{Locator: "https://v/1", IsPlaying: true, Volume: 1}

		cmds := Diff(prev, next)
		require.Len(t, cmds, 1)
		assert.Equal(t, domain.PlayerFuncPlay, cmds[0].Func)
		assert.Equal(t, "https://v/1", cmds[0].Args[0])
	})

	t.Run("pause same locator", func(t *testing.T) {
		prev := domain.PlayerState{Locator: "https://v/1", IsPlaying: true, Volume: 1}
		next := domain.PlayerState{Locator: "https://v/1", IsPlaying: false, Volume: 1}

		cmds := Diff(prev, next)
		require.Len(t, cmds, 1)
		assert.Equal(t, domain.PlayerFuncPause, cmds[0].Func)
	})

	t.Run("cleared locator stops", func(t *testing.T) {
		prev := domain.PlayerState{Locator: "https://v/1", IsPlaying: true, Volume: 1}
		next := domain.PlayerState{Volume: 1}

		cmds := Diff(prev, next)
		require.Len(t, cmds, 1)
		assert.Equal(t, domain.PlayerFuncStop, cmds[0].Func)
	})

	t.Run("volume change alone", func(t *testing.T) {
		prev := domain.PlayerState{Locator: "https://v/1", IsPlaying: true, Volume: 1}
		next := domain.PlayerState{Locator: "https://v/1", IsPlaying: true, Volume: 0.3}

		cmds := Diff(prev, next)
		require.Len(t, cmds, 1)
		assert.Equal(t, domain.PlayerFuncSetVolume, cmds[0].Func)
		assert.Equal(t, 30, cmds[0].Args[0])
	})

	t.Run("locator and volume change together", func(t *testing.T) {
		prev := domain.PlayerState{Volume: 1}
		next := domain.PlayerState{Locator: "https://v/2", IsPlaying: true, Volume: 0.8}

		cmds := Diff(prev, next)
		require.Len(t, cmds, 2)
		assert.Equal(t, domain.PlayerFuncPlay, cmds[0].Func)
		assert.Equal(t, domain.PlayerFuncSetVolume, cmds[1].Func)
	})
}
