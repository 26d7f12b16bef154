package bridge

import (
	"math"

	"watchparty-svc/internal/domain"
	"watchparty-svc/internal/validate"
)

// 出站命令编码器：控制器意图 → 嵌入播放器的命令消息

// Play 播放指定视频
func Play(locator string) domain.PlayerCommand {
	return domain.PlayerCommand{
		Event: "command",
		Func:  domain.PlayerFuncPlay,
		Args:  []interface{}{locator},
	}
}

// Pause 暂停播放
func Pause() domain.PlayerCommand {
	return domain.PlayerCommand{
		Event: "command",
		Func:  domain.PlayerFuncPause,
		Args:  []interface{}{},
	}
}

// Stop 停止播放
func Stop() domain.PlayerCommand {
	return domain.PlayerCommand{
		Event: "command",
		Func:  domain.PlayerFuncStop,
		Args:  []interface{}{},
	}
}

// Volume 设置音量，参数固定为0-100的整数百分比
func Volume(v float64) domain.PlayerCommand {
	percent := int(math.Round(validate.Clamp(v, 0, 1) * 100))
	return domain.PlayerCommand{
		Event: "command",
		Func:  domain.PlayerFuncSetVolume,
		Args:  []interface{}{percent},
	}
}

// Diff 比较前后两个信念状态，生成需要发送的命令序列
// (locator, isPlaying, volume)任一变化才发命令，播放器状态从不直接读取
func Diff(prev, next domain.PlayerState) []domain.PlayerCommand {
	var cmds []domain.PlayerCommand

	switch {
	case next.Locator == "" && prev.Locator != "":
		cmds = append(cmds, Stop())
	case next.Locator != "" && (next.Locator != prev.Locator || next.IsPlaying != prev.IsPlaying):
		if next.IsPlaying {
			cmds = append(cmds, Play(next.Locator))
		} else {
			cmds = append(cmds, Pause())
		}
	}

	if next.Volume != prev.Volume {
		cmds = append(cmds, Volume(next.Volume))
	}

	return cmds
}
