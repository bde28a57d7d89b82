package golf

// Event 会话事件
type Event interface {
	isEvent()
}

// ShotTaken 一次有效击球
type ShotTaken struct {
	HoleID int
	Shot   int // 本洞第几杆
	Angle  float64
	Power  float64
}

// HoleComplete 球进洞，每洞至多一次
type HoleComplete struct {
	HoleID int
	Shots  int
}

// LimitReached 第 N 杆击出的瞬间触发，每洞至多一次
type LimitReached struct {
	HoleID int
	Shots  int
}

// PositionBroadcast 节流后的本地球位置广播
type PositionBroadcast struct {
	X, Y float64
}

// Connected 服务端确认了本地身份
type Connected struct {
	Username string
}

func (ShotTaken) isEvent()         {}
func (HoleComplete) isEvent()      {}
func (LimitReached) isEvent()      {}
func (PositionBroadcast) isEvent() {}
func (Connected) isEvent()         {}

// Listener 事件回调，在会话循环中同步调用
type Listener func(Event)

type subscription struct {
	id int
	fn Listener
}

// emitter 按注册顺序分发事件；reset 后所有订阅失效
type emitter struct {
	seq  int
	subs []subscription
}

func (e *emitter) subscribe(fn Listener) func() {
	e.seq++
	id := e.seq
	e.subs = append(e.subs, subscription{id: id, fn: fn})
	return func() {
		for i, s := range e.subs {
			if s.id == id {
				e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
				return
			}
		}
	}
}

func (e *emitter) emit(ev Event) {
	// 回调中可能取消订阅，遍历副本
	subs := append([]subscription(nil), e.subs...)
	for _, s := range subs {
		s.fn(ev)
	}
}

func (e *emitter) reset() {
	e.subs = nil
}
