package golf

import (
	"sync/atomic"
)

// Metrics 记录客户端运行期的关键指标（用于监控与调试），跨洞累计
type Metrics struct {
	TickCount           int64 // 统计的帧数
	TotalTickNs         int64 // 帧累计耗时（纳秒）
	ShotsTaken          int64 // 有效击球数
	ShotsRejected       int64 // 因状态/未停稳/次数上限被拒绝的击球
	MovesSent           int64 // 已发送的位置广播
	MovesThrottled      int64 // 因节流被跳过的位置广播
	InboundMessages     int64 // 已分发的入站消息
	InboundDropped      int64 // 格式错误、未知类型或队列满而丢弃的入站消息
	OutboundDropped     int64 // 连接未打开或发送队列满而丢弃的出站消息
	Disconnects         int64 // 洞内断线次数
	AvatarFetches       int64 // 头像请求次数
	AvatarFallbacks     int64 // 回退到默认头像的次数
	AchievementsSent    int64 // 已提交的成就解锁
	AchievementFailures int64 // 成就提交失败
}

func (m *Metrics) IncShots()               { atomic.AddInt64(&m.ShotsTaken, 1) }
func (m *Metrics) IncShotsRejected()       { atomic.AddInt64(&m.ShotsRejected, 1) }
func (m *Metrics) IncMovesSent()           { atomic.AddInt64(&m.MovesSent, 1) }
func (m *Metrics) IncMovesThrottled()      { atomic.AddInt64(&m.MovesThrottled, 1) }
func (m *Metrics) IncInbound()             { atomic.AddInt64(&m.InboundMessages, 1) }
func (m *Metrics) IncInboundDropped()      { atomic.AddInt64(&m.InboundDropped, 1) }
func (m *Metrics) IncOutboundDropped()     { atomic.AddInt64(&m.OutboundDropped, 1) }
func (m *Metrics) IncDisconnects()         { atomic.AddInt64(&m.Disconnects, 1) }
func (m *Metrics) IncAvatarFetches()       { atomic.AddInt64(&m.AvatarFetches, 1) }
func (m *Metrics) IncAvatarFallbacks()     { atomic.AddInt64(&m.AvatarFallbacks, 1) }
func (m *Metrics) IncAchievementsSent()    { atomic.AddInt64(&m.AchievementsSent, 1) }
func (m *Metrics) IncAchievementFailures() { atomic.AddInt64(&m.AchievementFailures, 1) }
func (m *Metrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *Metrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":           tick,
		"avg_tick_ms":          avgMs,
		"shots_taken":          atomic.LoadInt64(&m.ShotsTaken),
		"shots_rejected":       atomic.LoadInt64(&m.ShotsRejected),
		"moves_sent":           atomic.LoadInt64(&m.MovesSent),
		"moves_throttled":      atomic.LoadInt64(&m.MovesThrottled),
		"inbound_messages":     atomic.LoadInt64(&m.InboundMessages),
		"inbound_dropped":      atomic.LoadInt64(&m.InboundDropped),
		"outbound_dropped":     atomic.LoadInt64(&m.OutboundDropped),
		"disconnects":          atomic.LoadInt64(&m.Disconnects),
		"avatar_fetches":       atomic.LoadInt64(&m.AvatarFetches),
		"avatar_fallbacks":     atomic.LoadInt64(&m.AvatarFallbacks),
		"achievements_sent":    atomic.LoadInt64(&m.AchievementsSent),
		"achievement_failures": atomic.LoadInt64(&m.AchievementFailures),
	}
}
