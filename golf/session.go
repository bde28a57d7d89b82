package golf

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionClosed 会话已销毁，异步结果被丢弃
var ErrSessionClosed = errors.New("session closed")

// Status 单洞会话状态，只能从 Active 单向转出
type Status int

const (
	StatusActive Status = iota
	StatusCompleted
	StatusLimitReached
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusCompleted:
		return "completed"
	case StatusLimitReached:
		return "limit_reached"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// SessionConfig 单洞规则与物理参数
type SessionConfig struct {
	HoleID       int
	FinalHole    bool
	Username     string // 已知的本地身份，可为空，等待 connection_success
	ShotLimit    int
	ShotPower    float64
	SettledSpeed float64
	MoveInterval time.Duration
	FrameRate    int
	Ball         BallParams
	HoleRadius   float64
	GhostFade    time.Duration
}

// DefaultSessionConfig 原版游戏的参数：8 杆上限、力度 300、100ms 位置节流
func DefaultSessionConfig(holeID int) SessionConfig {
	return SessionConfig{
		HoleID:       holeID,
		ShotLimit:    8,
		ShotPower:    300,
		SettledSpeed: 1,
		MoveInterval: 100 * time.Millisecond,
		FrameRate:    DefaultFrameRate,
		Ball:         BallParams{Radius: 16, Bounce: 0.8, Drag: 50},
		HoleRadius:   16,
		GhostFade:    DefaultGhostFade,
	}
}

// SessionDeps 会话的外部协作者
type SessionDeps struct {
	World   World
	Network Network
	Scene   Scene
	Avatars AvatarSource
	Unlocks AchievementPoster
	Metrics *Metrics
}

// Session 一个洞的完整生命周期：关卡、物理、击球、进洞判定、位置节流广播。
// 状态只在会话循环中修改；其它协程的结果通过 Post 回到循环。
type Session struct {
	ID  uuid.UUID
	cfg SessionConfig

	world        World
	net          Network
	scene        Scene
	ghosts       *Ghosts
	achievements *Achievements
	metrics      *Metrics
	events       emitter

	level        Level
	ball         Body
	started      bool
	shotCount    int
	status       Status
	holed        bool
	inputEnabled bool
	localName    string

	lastTick      time.Time
	lastBroadcast time.Time
	lastSent      Point
	haveSent      bool
	trailing      bool

	tasks   chan func()
	ctx     context.Context
	cancel  context.CancelFunc
	destroy sync.Once
}

func NewSession(cfg SessionConfig, deps SessionDeps) *Session {
	if deps.Metrics == nil {
		deps.Metrics = &Metrics{}
	}
	if deps.Network == nil {
		deps.Network = NewChannel(nil, deps.Metrics)
	}
	if deps.Scene == nil {
		deps.Scene = NewMemScene()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:           uuid.New(),
		cfg:          cfg,
		world:        deps.World,
		net:          deps.Network,
		scene:        deps.Scene,
		metrics:      deps.Metrics,
		achievements: NewAchievements(deps.Unlocks, deps.Metrics),
		tasks:        make(chan func(), 256),
		ctx:          ctx,
		cancel:       cancel,
		status:       StatusActive,
	}
	s.ghosts = NewGhosts(s, deps.Scene, deps.Avatars, cfg.GhostFade, deps.Metrics)
	if cfg.Username != "" {
		s.setIdentity(cfg.Username)
	}
	return s
}

// Context 会话存活期间有效，销毁时取消
func (s *Session) Context() context.Context { return s.ctx }

// Alive 会话尚未销毁
func (s *Session) Alive() bool { return s.ctx.Err() == nil }

// Post 把异步结果交回会话循环；会话已销毁则丢弃
func (s *Session) Post(fn func()) {
	select {
	case <-s.ctx.Done():
	case s.tasks <- fn:
	}
}

// Subscribe 注册事件回调，返回注销函数；销毁会话时全部注销
func (s *Session) Subscribe(l Listener) (unsubscribe func()) {
	return s.events.subscribe(l)
}

// LoadLevel 从 LevelStore 获取本洞关卡；返回时会话已销毁则丢弃结果
func (s *Session) LoadLevel(ctx context.Context, store LevelStore) (Level, error) {
	lvl, err := store.Level(ctx, s.cfg.HoleID)
	if !s.Alive() {
		return Level{}, ErrSessionClosed
	}
	if err != nil {
		Log.Errorf("hole %d: level load failed: %v", s.cfg.HoleID, err)
		return Level{}, fmt.Errorf("%w: hole %d: %v", ErrLevelLoad, s.cfg.HoleID, err)
	}
	return lvl, nil
}

// Start 按关卡建立球、障碍与球洞感应区，并接好入站消息处理
func (s *Session) Start(level Level) error {
	if !s.Alive() {
		return ErrSessionClosed
	}
	if s.started {
		return fmt.Errorf("hole %d already started", s.cfg.HoleID)
	}
	if err := level.Validate(); err != nil {
		return fmt.Errorf("%w: hole %d: %v", ErrLevelLoad, s.cfg.HoleID, err)
	}
	s.level = level.clone()
	s.started = true

	s.ball = s.world.AddBall(s.level.BallStart, s.cfg.Ball)
	for _, o := range s.level.Obstacles {
		s.world.AddObstacle(o)
	}
	s.world.AddSensor(s.level.HolePosition, s.cfg.HoleRadius, s.onHoleOverlap)

	s.net.On(MsgConnectionSuccess, s.handleConnected)
	s.net.On(MsgPlayerMoved, s.handlePlayerMoved)
	s.net.On(MsgPlayerLeft, s.handlePlayerLeft)
	s.net.On(MsgPlayerPutt, s.handlePlayerPutt)
	s.net.On(MsgChat, s.handleChat)
	s.net.On(MsgGameStart, s.handleGameStart)
	s.send(StartGameMessage{Type: MsgStartGame, Hole: s.cfg.HoleID})

	s.inputEnabled = true
	if s.localName != "" {
		s.ghosts.ShowLocalLabelOnly(s.localName, s.level.BallStart.X, s.level.BallStart.Y)
	}
	Log.Infof("hole %d started: session=%s obstacles=%d limit=%d",
		s.cfg.HoleID, s.ID, len(s.level.Obstacles), s.cfg.ShotLimit)
	return nil
}

// Shoot 指针位置方向施加固定力度；只在 Active、球已停稳且未达上限时有效
func (s *Session) Shoot(pointer Point) bool {
	if !s.Alive() || !s.started || s.status != StatusActive || s.shotCount >= s.cfg.ShotLimit || !s.settled() {
		s.metrics.IncShotsRejected()
		return false
	}
	s.shotCount++
	pos := s.ball.Position()
	angle := math.Atan2(pointer.Y-pos.Y, pointer.X-pos.X)
	power := s.cfg.ShotPower
	s.ball.SetVelocity(Vec{X: math.Cos(angle) * power, Y: math.Sin(angle) * power})
	s.inputEnabled = false
	s.metrics.IncShots()

	s.events.emit(ShotTaken{HoleID: s.cfg.HoleID, Shot: s.shotCount, Angle: angle, Power: power})
	s.send(PuttMessage{Type: MsgPutt, Angle: angle, Power: power})
	Log.Debugf("hole %d: shot %d/%d angle=%.3f", s.cfg.HoleID, s.shotCount, s.cfg.ShotLimit, angle)

	if s.shotCount == s.cfg.ShotLimit {
		s.status = StatusLimitReached
		s.events.emit(LimitReached{HoleID: s.cfg.HoleID, Shots: s.shotCount})
		s.achievements.Unlock(AchShotLimit)
		s.finishRun()
		Log.Infof("hole %d: shot limit reached", s.cfg.HoleID)
	}
	return true
}

// onHoleOverlap 物理世界每帧重叠都会回调，只有第一次生效
func (s *Session) onHoleOverlap() {
	if s.holed || s.status != StatusActive {
		return
	}
	s.holed = true
	s.ball.SetVelocity(Vec{})
	s.ball.SetVisible(false)
	s.status = StatusCompleted
	s.inputEnabled = false
	s.events.emit(HoleComplete{HoleID: s.cfg.HoleID, Shots: s.shotCount})
	s.achievements.Unlock(AchFirstPutt)
	s.finishRun()
	Log.Infof("hole %d complete in %d shots", s.cfg.HoleID, s.shotCount)
}

func (s *Session) finishRun() {
	if s.cfg.FinalHole {
		s.achievements.Unlock(AchFinishedAllHoles)
	}
}

// Tick 一帧：执行回送任务、分发入站消息、推进物理、刷新输入许可、节流广播位置
func (s *Session) Tick(now time.Time) {
	if !s.Alive() || !s.started {
		return
	}
	start := time.Now()
	dt := s.frameDuration()
	if !s.lastTick.IsZero() {
		dt = now.Sub(s.lastTick)
		if maxDt := 4 * s.frameDuration(); dt > maxDt {
			dt = maxDt
		}
	}
	s.lastTick = now

	s.runTasks()
	s.net.Dispatch()
	if !s.Alive() {
		return
	}
	s.world.Step(dt)
	s.ghosts.Advance(now)

	moving := s.moving()
	s.inputEnabled = s.status == StatusActive && !moving && s.shotCount < s.cfg.ShotLimit

	pos := s.ball.Position()
	switch {
	case moving:
		s.trailing = true
		if s.haveSent && now.Sub(s.lastBroadcast) < s.cfg.MoveInterval {
			s.metrics.IncMovesThrottled()
			break
		}
		s.broadcast(pos, now)
	case s.trailing:
		// 停稳后补发一次最终位置，仍遵守节流间隔
		if now.Sub(s.lastBroadcast) < s.cfg.MoveInterval {
			break
		}
		s.trailing = false
		if !s.haveSent || pos != s.lastSent {
			s.broadcast(pos, now)
		}
	}
	if moving && s.localName != "" {
		s.ghosts.ShowLocalLabelOnly(s.localName, pos.X, pos.Y)
	}
	s.metrics.AddTick(time.Since(start).Nanoseconds())
}

func (s *Session) broadcast(pos Point, now time.Time) {
	s.lastBroadcast = now
	s.lastSent = pos
	s.haveSent = true
	s.events.emit(PositionBroadcast{X: pos.X, Y: pos.Y})
	s.send(MoveMessage{Type: MsgMove, X: pos.X, Y: pos.Y})
	s.metrics.IncMovesSent()
}

func (s *Session) runTasks() {
	for {
		select {
		case fn := <-s.tasks:
			if !s.Alive() {
				return
			}
			fn()
		default:
			return
		}
	}
}

func (s *Session) send(msg any) {
	if err := s.net.Send(msg); err != nil && !errors.Is(err, ErrNotOpen) {
		Log.Warnf("hole %d: send failed: %v", s.cfg.HoleID, err)
	}
}

func (s *Session) settled() bool {
	return s.ball != nil && s.ball.Velocity().Len() < s.cfg.SettledSpeed
}

func (s *Session) moving() bool {
	return s.ball != nil && s.ball.Velocity().Len() >= s.cfg.SettledSpeed
}

func (s *Session) frameDuration() time.Duration {
	fps := s.cfg.FrameRate
	if fps <= 0 {
		fps = DefaultFrameRate
	}
	return time.Second / time.Duration(fps)
}

func (s *Session) setIdentity(name string) {
	s.localName = name
	s.achievements.SetIdentity(name)
	s.ghosts.SetLocal(name)
}

func (s *Session) handleConnected(env Envelope) {
	msg, err := DecodePayload[ConnectionSuccess](env)
	if err != nil || msg.Username == "" {
		s.metrics.IncInboundDropped()
		return
	}
	if msg.Username == s.localName {
		return
	}
	s.setIdentity(msg.Username)
	if s.ball != nil {
		pos := s.ball.Position()
		s.ghosts.ShowLocalLabelOnly(msg.Username, pos.X, pos.Y)
	}
	s.events.emit(Connected{Username: msg.Username})
	Log.Infof("hole %d: connected as %s", s.cfg.HoleID, msg.Username)
}

func (s *Session) handlePlayerMoved(env Envelope) {
	msg, err := DecodePayload[PlayerMoved](env)
	if err != nil || msg.X == nil || msg.Y == nil {
		s.metrics.IncInboundDropped()
		return
	}
	s.ghosts.AddOrUpdate(msg.Username, *msg.X, *msg.Y)
}

func (s *Session) handlePlayerLeft(env Envelope) {
	msg, err := DecodePayload[PlayerLeft](env)
	if err != nil {
		s.metrics.IncInboundDropped()
		return
	}
	s.ghosts.Remove(msg.Username)
}

func (s *Session) handlePlayerPutt(env Envelope) {
	msg, err := DecodePayload[PlayerPutt](env)
	if err != nil {
		return
	}
	Log.Debugf("hole %d: %s putted angle=%.3f power=%.0f", s.cfg.HoleID, msg.Username, msg.Angle, msg.Power)
}

func (s *Session) handleChat(env Envelope) {
	msg, err := DecodePayload[ChatMessage](env)
	if err != nil {
		return
	}
	Log.Infof("hole %d chat <%s> %s", s.cfg.HoleID, msg.Username, msg.Message)
}

func (s *Session) handleGameStart(env Envelope) {
	msg, err := DecodePayload[GameStart](env)
	if err != nil {
		return
	}
	if msg.Hole != s.cfg.HoleID {
		Log.Warnf("server placed us on hole %d, playing hole %d", msg.Hole, s.cfg.HoleID)
	}
}

// Destroy 同步拆除：物理世界、通道与处理器、事件订阅、幽灵元素；可重复调用
func (s *Session) Destroy() {
	s.destroy.Do(func() {
		s.cancel()
		if s.world != nil {
			s.world.Destroy()
		}
		if err := s.net.Close(); err != nil {
			Log.Debugf("hole %d: close channel: %v", s.cfg.HoleID, err)
		}
		s.events.reset()
		s.ghosts.Clear()
		Log.Infof("hole %d session %s destroyed", s.cfg.HoleID, s.ID)
	})
}

// HoleID 本会话的洞号
func (s *Session) HoleID() int { return s.cfg.HoleID }

func (s *Session) Status() Status { return s.status }

func (s *Session) ShotCount() int { return s.shotCount }

func (s *Session) ShotLimit() int { return s.cfg.ShotLimit }

// InputEnabled 最近一帧计算出的击球许可
func (s *Session) InputEnabled() bool { return s.inputEnabled }

func (s *Session) Level() Level { return s.level.clone() }

func (s *Session) Ball() Body { return s.ball }

func (s *Session) Ghosts() *Ghosts { return s.ghosts }

func (s *Session) Achievements() *Achievements { return s.achievements }

// Done 本洞已结束且最终位置已发出
func (s *Session) Done() bool {
	return s.status != StatusActive && !s.moving() && !s.trailing
}
