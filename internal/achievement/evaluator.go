package achievement

import (
	"watchparty-svc/internal/domain"
	"watchparty-svc/internal/validate"
)

// Evaluate 返回本次新达成的成就（纯函数，幂等）
// 已解锁的成就不会重复返回；同一输入跑两次，第二次不产生新解锁
func Evaluate(stats domain.Stats, unlocked domain.UnlockedSet) []domain.Achievement {
	var fresh []domain.Achievement
	for _, a := range Catalog {
		if unlocked.Contains(a.ID) {
			continue
		}
		if a.Met(stats) {
			fresh = append(fresh, a)
		}
	}
	return fresh
}

// Progress 返回展示用的完成百分比，超出目标时钳制为100
func Progress(a domain.Achievement, stats domain.Stats) float64 {
	if a.Target <= 0 {
		return 100
	}
	ratio := float64(stats.Value(a.Type)) / float64(a.Target)
	return validate.Clamp(ratio, 0, 1) * 100
}
