package golf

import (
	"context"
	"time"
)

const (
	// DefaultFrameRate 物理与输入的推进频率（60 FPS）
	DefaultFrameRate = 60
)

// FrameFunc 每帧 Tick 之后调用，用于读取输入（击球）
type FrameFunc func(s *Session)

// Run 以固定帧率驱动会话（单线程推进），直到本洞结束、会话被销毁或 ctx 取消
func (s *Session) Run(ctx context.Context, onFrame FrameFunc) error {
	ticker := time.NewTicker(s.frameDuration())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.ctx.Done():
			return ErrSessionClosed
		case now := <-ticker.C:
			// 核心循环：回送任务 → 入站消息 → 物理 → 节流广播
			s.Tick(now)
			if onFrame != nil && s.Alive() {
				onFrame(s)
			}
			if s.Done() {
				return nil
			}
		}
	}
}
