package golf

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Dialer 为某一洞建立独占的网络通道
type Dialer func(ctx context.Context, holeID int) (Network, error)

// GameOptions 整局规则；Session 为每洞会话的模板（HoleID 等由 Game 填写）
type GameOptions struct {
	TotalHoles  int
	Username    string
	Session     SessionConfig
	WorldWidth  float64
	WorldHeight float64
}

// GameDeps 整局使用的外部协作者
type GameDeps struct {
	Levels   LevelStore
	Scores   ScoreSubmitter
	Unlocks  AchievementPoster
	Avatars  AvatarSource
	Scene    Scene
	Dial     Dialer
	NewWorld func() World
	Player   Player
	Metrics  *Metrics
}

// SessionView 当前洞会话的只读快照，每帧发布一次
type SessionView struct {
	SessionID string  `json:"sessionId"`
	Hole      int     `json:"hole"`
	Status    string  `json:"status"`
	Shots     int     `json:"shots"`
	ShotLimit int     `json:"shotLimit"`
	Input     bool    `json:"inputEnabled"`
	BallX     float64 `json:"ballX"`
	BallY     float64 `json:"ballY"`
	Ghosts    int     `json:"ghosts"`
}

// Game 多洞流程驱动：每洞新建会话（通道、头像缓存均不跨洞），
// 洞结束后由玩家决定继续，最后一洞结束后提交成绩
type Game struct {
	opts        GameOptions
	deps        GameDeps
	progression *Progression
	metrics     *Metrics

	mu   sync.RWMutex
	view *SessionView
}

func NewGame(opts GameOptions, deps GameDeps) *Game {
	if deps.Metrics == nil {
		deps.Metrics = &Metrics{}
	}
	if deps.Scene == nil {
		deps.Scene = NewMemScene()
	}
	if opts.WorldWidth <= 0 || opts.WorldHeight <= 0 {
		opts.WorldWidth, opts.WorldHeight = 800, 600
	}
	if deps.NewWorld == nil {
		w, h := opts.WorldWidth, opts.WorldHeight
		deps.NewWorld = func() World { return NewArcadeWorld(w, h) }
	}
	if deps.Dial == nil {
		m := deps.Metrics
		deps.Dial = func(context.Context, int) (Network, error) { return NewChannel(nil, m), nil }
	}
	if deps.Player == nil {
		deps.Player = NewAutoPlayer(1)
	}
	return &Game{
		opts:        opts,
		deps:        deps,
		progression: NewProgression(opts.TotalHoles, opts.Username, deps.Scores),
		metrics:     deps.Metrics,
	}
}

func (g *Game) Progression() *Progression { return g.progression }

func (g *Game) Metrics() *Metrics { return g.metrics }

// Play 依次进行各洞直到结果页、玩家放弃或 ctx 取消
func (g *Game) Play(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if g.progression.State() == StateActive {
			err := g.playHole(ctx, g.progression.Hole())
			switch {
			case errors.Is(err, ErrLevelLoad):
				g.progression.LoadFailed(err)
			case err != nil:
				return err
			}
			continue
		}

		snap := g.progression.Snapshot()
		if !g.deps.Player.Continue(ctx, snap) {
			if snap.Error != "" {
				return fmt.Errorf("stopped at %s: %s", snap.State, snap.Error)
			}
			return ctx.Err()
		}
		action, err := g.progression.Continue(ctx)
		switch {
		case errors.Is(err, ErrScoreSubmit), errors.Is(err, ErrSubmitInFlight):
			Log.Warnf("continue: %v", err)
			continue
		case err != nil:
			return err
		}
		Log.Infof("continue -> %s (hole %d/%d)", action, g.progression.Hole(), g.progression.TotalHoles())
		if action == ActionShowResults {
			snap = g.progression.Snapshot()
			Log.Infof("results: user=%s shots=%d holes=%d", snap.Username, snap.TotalShots, snap.TotalHoles)
			return nil
		}
	}
}

func (g *Game) playHole(ctx context.Context, hole int) error {
	cfg := g.opts.Session
	cfg.HoleID = hole
	cfg.FinalHole = hole == g.progression.TotalHoles()
	cfg.Username = g.progression.Snapshot().Username

	net, err := g.deps.Dial(ctx, hole)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		Log.Warnf("hole %d: playing offline: %v", hole, err)
		net = NewChannel(nil, g.metrics)
	}

	s := NewSession(cfg, SessionDeps{
		World:   g.deps.NewWorld(),
		Network: net,
		Scene:   g.deps.Scene,
		Avatars: g.deps.Avatars,
		Unlocks: g.deps.Unlocks,
		Metrics: g.metrics,
	})
	defer s.Destroy()

	lvl, err := s.LoadLevel(ctx, g.deps.Levels)
	if err != nil {
		return err
	}
	unsubscribe := s.Subscribe(func(ev Event) {
		switch e := ev.(type) {
		case HoleComplete:
			g.progression.HoleCompleted(e.Shots)
		case LimitReached:
			g.progression.LimitReached(e.Shots)
		case Connected:
			g.progression.SetUsername(e.Username)
		}
	})
	defer unsubscribe()
	if err := s.Start(lvl); err != nil {
		return err
	}
	defer g.publish(nil)

	return s.Run(ctx, func(s *Session) {
		g.deps.Player.Frame(s)
		g.publish(s)
	})
}

// publish 在会话循环中调用，供管理接口并发读取
func (g *Game) publish(s *Session) {
	var v *SessionView
	if s != nil {
		pos := s.Ball().Position()
		v = &SessionView{
			SessionID: s.ID.String(),
			Hole:      s.HoleID(),
			Status:    s.Status().String(),
			Shots:     s.ShotCount(),
			ShotLimit: s.ShotLimit(),
			Input:     s.InputEnabled(),
			BallX:     pos.X,
			BallY:     pos.Y,
			Ghosts:    s.Ghosts().Len(),
		}
	}
	g.mu.Lock()
	g.view = v
	g.mu.Unlock()
}

// View 当前洞快照；不在洞内时返回 nil
func (g *Game) View() *SessionView {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.view == nil {
		return nil
	}
	v := *g.view
	return &v
}
