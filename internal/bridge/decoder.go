package bridge

import (
	"encoding/json"

	"watchparty-svc/internal/domain"
)

// Decoder 入站播放器消息校验器
// 来源白名单是安全边界：不可信来源的消息永远不能控制播放，也不能被当作
// 可信状态解析。白名单来自配置而不是硬编码
type Decoder struct {
	allowed map[string]struct{}
}

// NewDecoder 创建校验器
func NewDecoder(origins []string) *Decoder {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return &Decoder{allowed: allowed}
}

// Decode 校验来源并解析载荷
// 不符合的消息一律静默丢弃（ok=false）：嵌入源本来就很吵，不记日志
func (d *Decoder) Decode(origin string, payload []byte) (domain.PlayerEvent, bool) {
	if _, ok := d.allowed[origin]; !ok {
		return domain.PlayerEvent{}, false
	}

	var ev domain.PlayerEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return domain.PlayerEvent{}, false
	}
	if ev.Event == "" {
		return domain.PlayerEvent{}, false
	}
	return ev, true
}

// Ended 判断事件是否为"播放结束"信号
func Ended(ev domain.PlayerEvent) bool {
	return ev.Event == domain.PlayerEventStateChange && ev.Info == domain.PlayerInfoEnded
}
