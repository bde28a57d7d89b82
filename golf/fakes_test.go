package golf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"
)

type fakeBody struct {
	pos     Point
	vel     Vec
	visible bool
}

func (b *fakeBody) Position() Point         { return b.pos }
func (b *fakeBody) Velocity() Vec           { return b.vel }
func (b *fakeBody) SetVelocity(v Vec)       { b.vel = v }
func (b *fakeBody) SetVisible(visible bool) { b.visible = visible }
func (b *fakeBody) Visible() bool           { return b.visible }

// fakeWorld 可控的物理世界：默认每步把球停下；coast 时匀速滑行；
// touching 时每步都回调重叠；holeOnShot 时球一动就进洞
type fakeWorld struct {
	ball       *fakeBody
	obstacles  []Obstacle
	overlap    func()
	coast      bool
	touching   bool
	holeOnShot bool
	steps      int
	destroyed  int
}

func (w *fakeWorld) AddBall(pos Point, _ BallParams) Body {
	w.ball = &fakeBody{pos: pos, visible: true}
	return w.ball
}

func (w *fakeWorld) AddObstacle(o Obstacle) { w.obstacles = append(w.obstacles, o) }

func (w *fakeWorld) AddSensor(_ Point, _ float64, onOverlap func()) { w.overlap = onOverlap }

func (w *fakeWorld) Step(dt time.Duration) {
	w.steps++
	if w.ball == nil {
		return
	}
	moving := w.ball.vel != (Vec{})
	if w.coast {
		w.ball.pos.X += w.ball.vel.X * dt.Seconds()
		w.ball.pos.Y += w.ball.vel.Y * dt.Seconds()
	} else {
		w.ball.vel = Vec{}
	}
	if w.touching || (w.holeOnShot && moving) {
		w.overlap()
	}
}

func (w *fakeWorld) Destroy() { w.destroyed++ }

// fakeNetwork 记录发送，入站消息由 deliver 注入，Dispatch 时分发
type fakeNetwork struct {
	sent     []any
	handlers map[string]Handler
	inbox    []Envelope
	closed   int
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{handlers: make(map[string]Handler)}
}

func (n *fakeNetwork) Send(msg any) error {
	if n.closed > 0 {
		return ErrNotOpen
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *fakeNetwork) On(msgType string, h Handler) {
	if n.handlers != nil {
		n.handlers[msgType] = h
	}
}

func (n *fakeNetwork) Dispatch() int {
	count := 0
	inbox := n.inbox
	n.inbox = nil
	for _, env := range inbox {
		if h, ok := n.handlers[env.Type]; ok {
			h(env)
			count++
		}
	}
	return count
}

func (n *fakeNetwork) Close() error {
	n.closed++
	n.handlers = nil
	return nil
}

func (n *fakeNetwork) deliver(t *testing.T, msg any) {
	t.Helper()
	b, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal inbound: %v", err)
	}
	env, err := DecodeEnvelope(b)
	if err != nil {
		t.Fatalf("decode inbound: %v", err)
	}
	n.inbox = append(n.inbox, env)
}

func (n *fakeNetwork) putts() []PuttMessage {
	var out []PuttMessage
	for _, m := range n.sent {
		if p, ok := m.(PuttMessage); ok {
			out = append(out, p)
		}
	}
	return out
}

func (n *fakeNetwork) moves() []MoveMessage {
	var out []MoveMessage
	for _, m := range n.sent {
		if p, ok := m.(MoveMessage); ok {
			out = append(out, p)
		}
	}
	return out
}

type recordingPoster struct {
	mu   sync.Mutex
	keys []string
	user []string
	err  error
}

func (p *recordingPoster) UnlockAchievement(_ context.Context, username, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	p.user = append(p.user, username)
	return p.err
}

func (p *recordingPoster) unlocked() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

// gatedAvatars 统计请求次数；gate 非 nil 时阻塞到 gate 关闭
type gatedAvatars struct {
	mu    sync.Mutex
	calls map[string]int
	gate  chan struct{}
	data  []byte
	err   error
}

func (a *gatedAvatars) FetchAvatar(ctx context.Context, username string) ([]byte, error) {
	a.mu.Lock()
	if a.calls == nil {
		a.calls = make(map[string]int)
	}
	a.calls[username]++
	a.mu.Unlock()
	if a.gate != nil {
		select {
		case <-a.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return a.data, a.err
}

func (a *gatedAvatars) count(username string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[username]
}

type recordingScores struct {
	mu      sync.Mutex
	scores  []Score
	errs    []error // 依次返回，用尽后返回 nil
	gate    chan struct{}
	entered chan struct{}
}

func (r *recordingScores) SubmitScore(ctx context.Context, score Score) error {
	r.mu.Lock()
	r.scores = append(r.scores, score)
	var err error
	if len(r.errs) > 0 {
		err, r.errs = r.errs[0], r.errs[1:]
	}
	gate, entered := r.gate, r.entered
	r.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return err
}

func (r *recordingScores) submitted() []Score {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Score(nil), r.scores...)
}

// fakeLoop 测试用的会话循环：任务进入队列，由测试显式执行
type fakeLoop struct {
	ctx    context.Context
	cancel context.CancelFunc
	tasks  chan func()
}

func newFakeLoop(t *testing.T) *fakeLoop {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return &fakeLoop{ctx: ctx, cancel: cancel, tasks: make(chan func(), 16)}
}

func (l *fakeLoop) Context() context.Context { return l.ctx }
func (l *fakeLoop) Alive() bool              { return l.ctx.Err() == nil }

func (l *fakeLoop) Post(fn func()) {
	select {
	case <-l.ctx.Done():
	case l.tasks <- fn:
	}
}

func (l *fakeLoop) runNext(t *testing.T) {
	t.Helper()
	select {
	case fn := <-l.tasks:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for posted task")
	}
}

func (l *fakeLoop) assertIdle(t *testing.T) {
	t.Helper()
	select {
	case <-l.tasks:
		t.Fatalf("unexpected extra task posted")
	case <-time.After(50 * time.Millisecond):
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// waitFor 反复执行 step 直到 cond 成立
func waitFor(t *testing.T, what string, cond func() bool, step func()) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		step()
		time.Sleep(5 * time.Millisecond)
	}
}

func testLevel() Level {
	return Level{
		BallStart:    Point{X: 400, Y: 500},
		HolePosition: Point{X: 400, Y: 100},
	}
}

var errLevelMissing = errors.New("level missing")

type mapLevels map[int]Level

func (m mapLevels) Level(_ context.Context, holeID int) (Level, error) {
	lvl, ok := m[holeID]
	if !ok {
		return Level{}, errLevelMissing
	}
	return lvl, nil
}
