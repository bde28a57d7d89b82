package golf

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrScoreSubmit 成绩提交失败：玩家可见，且不会进入结果页
	ErrScoreSubmit = errors.New("score submit failed")
	// ErrSubmitInFlight 成绩正在提交，重复的继续操作被拒绝
	ErrSubmitInFlight = errors.New("score submission in flight")
)

// State 多洞流程状态
type State int

const (
	StateActive State = iota
	StateHoleComplete
	StateLimitReached
	StateSessionFinished
	StateLoadFailed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateHoleComplete:
		return "hole_complete"
	case StateLimitReached:
		return "limit_reached"
	case StateSessionFinished:
		return "session_finished"
	case StateLoadFailed:
		return "load_failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Action 继续操作的结果，交给界面层导航
type Action int

const (
	ActionNone Action = iota
	ActionNextHole
	ActionRetryHole
	ActionShowResults
)

func (a Action) String() string {
	switch a {
	case ActionNextHole:
		return "next_hole"
	case ActionRetryHole:
		return "retry_hole"
	case ActionShowResults:
		return "show_results"
	default:
		return "none"
	}
}

// Score 排行榜提交内容
type Score struct {
	Username   string `json:"username"`
	TotalShots int    `json:"totalShots"`
	TotalHoles int    `json:"totalHoles"`
}

// ScoreSubmitter 外部计分服务
type ScoreSubmitter interface {
	SubmitScore(ctx context.Context, score Score) error
}

// Progression 当前洞号、累计杆数与结束覆盖层状态
type Progression struct {
	mu         sync.Mutex
	state      State
	hole       int // 从 1 开始
	totalHoles int
	totalShots int
	username   string
	submitter  ScoreSubmitter
	submitting bool
	submitted  bool
	lastErr    error
}

func NewProgression(totalHoles int, username string, submitter ScoreSubmitter) *Progression {
	if totalHoles < 1 {
		totalHoles = 1
	}
	return &Progression{
		state:      StateActive,
		hole:       1,
		totalHoles: totalHoles,
		username:   username,
		submitter:  submitter,
	}
}

// SetUsername 服务端确认身份后更新提交用的玩家名
func (p *Progression) SetUsername(name string) {
	p.mu.Lock()
	p.username = name
	p.mu.Unlock()
}

// HoleCompleted Active --holeComplete--> HoleComplete，累计本洞杆数
func (p *Progression) HoleCompleted(shots int) bool {
	return p.end(StateHoleComplete, shots)
}

// LimitReached Active --limitReached--> LimitReached，累计本洞杆数
func (p *Progression) LimitReached(shots int) bool {
	return p.end(StateLimitReached, shots)
}

func (p *Progression) end(to State, shots int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateActive {
		return false
	}
	p.state = to
	p.totalShots += shots
	return true
}

// LoadFailed 关卡加载失败时进入可重试的错误覆盖层
func (p *Progression) LoadFailed(err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateActive {
		return false
	}
	p.state = StateLoadFailed
	p.lastErr = err
	return true
}

// Continue 覆盖层上的“继续”：还有下一洞则开始新洞；最后一洞则提交一次成绩后进入结果页。
// 提交失败返回 ErrScoreSubmit 并停留在 SessionFinished，可再次继续重试；
// 提交中或已成功时不会再次提交。
func (p *Progression) Continue(ctx context.Context) (Action, error) {
	p.mu.Lock()
	switch p.state {
	case StateHoleComplete, StateLimitReached:
		if p.hole < p.totalHoles {
			p.hole++
			p.state = StateActive
			p.lastErr = nil
			p.mu.Unlock()
			return ActionNextHole, nil
		}
		p.state = StateSessionFinished
	case StateLoadFailed:
		p.state = StateActive
		p.lastErr = nil
		p.mu.Unlock()
		return ActionRetryHole, nil
	case StateSessionFinished:
	default:
		p.mu.Unlock()
		return ActionNone, nil
	}

	if p.submitted {
		p.mu.Unlock()
		return ActionShowResults, nil
	}
	if p.submitting {
		p.mu.Unlock()
		return ActionNone, ErrSubmitInFlight
	}
	p.submitting = true
	score := Score{Username: p.username, TotalShots: p.totalShots, TotalHoles: p.totalHoles}
	p.mu.Unlock()

	var err error
	switch {
	case score.Username == "":
		// 身份未知时不提交匿名成绩，确认身份后可再次继续
		err = errors.New("no player identity to submit under")
	case p.submitter == nil:
		err = errors.New("no score service configured")
	default:
		err = p.submitter.SubmitScore(ctx, score)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.submitting = false
	if err != nil {
		p.lastErr = err
		Log.Errorf("score submit failed: user=%s shots=%d: %v", score.Username, score.TotalShots, err)
		return ActionNone, fmt.Errorf("%w: %v", ErrScoreSubmit, err)
	}
	p.submitted = true
	p.lastErr = nil
	return ActionShowResults, nil
}

// ProgressSnapshot 流程的只读视图
type ProgressSnapshot struct {
	State      string `json:"state"`
	Hole       int    `json:"hole"`
	TotalHoles int    `json:"totalHoles"`
	TotalShots int    `json:"totalShots"`
	Username   string `json:"username"`
	Submitted  bool   `json:"submitted"`
	Error      string `json:"error,omitempty"`
}

func (p *Progression) Snapshot() ProgressSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	snap := ProgressSnapshot{
		State:      p.state.String(),
		Hole:       p.hole,
		TotalHoles: p.totalHoles,
		TotalShots: p.totalShots,
		Username:   p.username,
		Submitted:  p.submitted,
	}
	if p.lastErr != nil {
		snap.Error = p.lastErr.Error()
	}
	return snap
}

func (p *Progression) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Hole 当前洞号（从 1 开始）
func (p *Progression) Hole() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hole
}

func (p *Progression) TotalHoles() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalHoles
}

func (p *Progression) TotalShots() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalShots
}
