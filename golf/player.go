package golf

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Player 输入来源：每帧可以击球，覆盖层上决定是否继续
type Player interface {
	Frame(s *Session)
	// Continue 返回 false 表示停止游戏
	Continue(ctx context.Context, snap ProgressSnapshot) bool
}

// AutoPlayer 无界面运行的自动玩家：球停稳后朝球洞方向（带随机偏差）击球
type AutoPlayer struct {
	Jitter        float64       // 最大瞄准偏差（弧度）
	ContinueDelay time.Duration // 覆盖层停留时间
	MaxRetries    int           // 连续失败（加载/提交）后放弃

	rng     *rand.Rand
	retries int
}

func NewAutoPlayer(seed int64) *AutoPlayer {
	return &AutoPlayer{
		Jitter:        0.15,
		ContinueDelay: time.Second,
		MaxRetries:    3,
		rng:           rand.New(rand.NewSource(seed)),
	}
}

func (p *AutoPlayer) Frame(s *Session) {
	if !s.InputEnabled() {
		return
	}
	ball := s.Ball().Position()
	hole := s.Level().HolePosition
	angle := math.Atan2(hole.Y-ball.Y, hole.X-ball.X)
	if p.Jitter > 0 {
		angle += (p.rng.Float64()*2 - 1) * p.Jitter
	}
	s.Shoot(Point{X: ball.X + math.Cos(angle)*100, Y: ball.Y + math.Sin(angle)*100})
}

func (p *AutoPlayer) Continue(ctx context.Context, snap ProgressSnapshot) bool {
	if snap.Error != "" {
		p.retries++
		if p.retries > p.MaxRetries {
			return false
		}
	} else {
		p.retries = 0
	}
	t := time.NewTimer(p.ContinueDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
