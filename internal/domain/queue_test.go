package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueueStateValid(t *testing.T) {
	assert.True(t, QueueState{CurrentIndex: -1}.Valid())
	assert.True(t, QueueState{Items: []string{"a"}, CurrentIndex: 0}.Valid())
	assert.False(t, QueueState{Items: []string{"a"}, CurrentIndex: 1}.Valid())
	assert.False(t, QueueState{CurrentIndex: -2}.Valid())
	assert.False(t, QueueState{CurrentIndex: 0}.Valid())
}

func TestQueueStateClamp(t *testing.T) {
	t.Run("empty queue resets selection", func(t *testing.T) {
		q := QueueState{CurrentIndex: 3, IsPlaying: true}
		q.Clamp()
		assert.Equal(t, -1, q.CurrentIndex)
		assert.False(t, q.IsPlaying)
	})

	t.Run("index past end clamps to last", func(t *testing.T) {
		q := QueueState{Items: []string{"a", "b"}, CurrentIndex: 5, IsPlaying: true}
		q.Clamp()
		assert.Equal(t, 1, q.CurrentIndex)
		assert.True(t, q.IsPlaying)
	})

	t.Run("no selection clears playing", func(t *testing.T) {
		q := QueueState{Items: []string{"a"}, CurrentIndex: -1, IsPlaying: true}
		q.Clamp()
		assert.False(t, q.IsPlaying)
	})
}

func TestQueueStateCurrent(t *testing.T) {
	q := QueueState{Items: []string{"a", "b"}, CurrentIndex: 1}
	assert.Equal(t, "b", q.Current())

	q.CurrentIndex = -1
	assert.Equal(t, "", q.Current())
}

func TestStatsObserveQueueSize(t *testing.T) {
	var s Stats
	s.ObserveQueueSize(3)
	assert.Equal(t, int64(3), s.MaxQueueSize)

	// 高水位只增不减
	s.ObserveQueueSize(1)
	assert.Equal(t, int64(3), s.MaxQueueSize)

	s.ObserveQueueSize(7)
	assert.Equal(t, int64(7), s.MaxQueueSize)
}

func TestStatsValid(t *testing.T) {
	assert.True(t, Stats{}.Valid())
	assert.True(t, Stats{WatchTime: 100}.Valid())
	assert.False(t, Stats{WatchTime: -1}.Valid())
	assert.False(t, Stats{VideosAdded: -5}.Valid())
}
