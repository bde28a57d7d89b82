package golf

import (
	"math"
	"time"

	"github.com/solarlune/resolv"
)

// World 物理世界协作者：一个球体、静态障碍、球洞感应区与逐帧推进
type World interface {
	AddBall(pos Point, params BallParams) Body
	AddObstacle(o Obstacle)
	AddSensor(center Point, radius float64, onOverlap func())
	Step(dt time.Duration)
	Destroy()
}

// Body 球体状态（位置、速度、可见性）
type Body interface {
	Position() Point
	Velocity() Vec
	SetVelocity(v Vec)
	SetVisible(visible bool)
	Visible() bool
}

// BallParams 球的固定物理参数
type BallParams struct {
	Radius float64
	Bounce float64 // 恢复系数
	Drag   float64 // 每秒线性减速（单位/秒²）
}

// Vec 速度向量
type Vec struct {
	X, Y float64
}

func (v Vec) Len() float64 { return math.Hypot(v.X, v.Y) }

const (
	tagBall = "ball"
	tagWall = "wall"
	tagHole = "hole"

	cellSize = 16
)

// ArcadeWorld 无重力的街机式物理：线性阻尼、世界边界反弹、圆与矩形碰撞。
// 粗筛交给 resolv 的空间网格，精确判定在这里完成。
type ArcadeWorld struct {
	width, height float64
	space         *resolv.Space
	ball          *arcadeBall
	walls         []*resolv.Object
	sensors       []*sensor
	destroyed     bool
}

type arcadeBall struct {
	obj     *resolv.Object
	pos     Point
	vel     Vec
	params  BallParams
	visible bool
}

type sensor struct {
	obj       *resolv.Object
	center    Point
	radius    float64
	onOverlap func()
}

// NewArcadeWorld 创建 width×height 的世界
func NewArcadeWorld(width, height float64) *ArcadeWorld {
	return &ArcadeWorld{
		width:  width,
		height: height,
		space:  resolv.NewSpace(int(math.Ceil(width)), int(math.Ceil(height)), cellSize, cellSize),
	}
}

func (w *ArcadeWorld) AddBall(pos Point, params BallParams) Body {
	r := params.Radius
	obj := resolv.NewObject(pos.X-r, pos.Y-r, 2*r, 2*r, tagBall)
	w.space.Add(obj)
	w.ball = &arcadeBall{obj: obj, pos: pos, params: params, visible: true}
	return w.ball
}

func (w *ArcadeWorld) AddObstacle(o Obstacle) {
	obj := resolv.NewObject(o.X-o.Width/2, o.Y-o.Height/2, o.Width, o.Height, tagWall)
	w.space.Add(obj)
	w.walls = append(w.walls, obj)
}

func (w *ArcadeWorld) AddSensor(center Point, radius float64, onOverlap func()) {
	obj := resolv.NewObject(center.X-radius, center.Y-radius, 2*radius, 2*radius, tagHole)
	s := &sensor{obj: obj, center: center, radius: radius, onOverlap: onOverlap}
	obj.Data = s
	w.space.Add(obj)
	w.sensors = append(w.sensors, s)
}

// Step 推进 dt；位移按半径一半分段，避免高速穿透薄墙
func (w *ArcadeWorld) Step(dt time.Duration) {
	b := w.ball
	if w.destroyed || b == nil || dt <= 0 {
		return
	}
	sec := dt.Seconds()
	b.vel.X = applyDrag(b.vel.X, b.params.Drag*sec)
	b.vel.Y = applyDrag(b.vel.Y, b.params.Drag*sec)

	dist := b.vel.Len() * sec
	steps := 1
	if maxStep := b.params.Radius / 2; maxStep > 0 && dist > maxStep {
		steps = int(math.Ceil(dist / maxStep))
	}
	sub := sec / float64(steps)
	for i := 0; i < steps; i++ {
		b.pos.X += b.vel.X * sub
		b.pos.Y += b.vel.Y * sub
		b.sync()
		w.collideWalls(b)
		w.collideBounds(b)
		b.sync()
	}
	w.checkSensors(b)
}

func (w *ArcadeWorld) collideWalls(b *arcadeBall) {
	col := b.obj.Check(0, 0, tagWall)
	if col == nil {
		return
	}
	for _, o := range col.ObjectsByTags(tagWall) {
		b.resolveRect(o.X, o.Y, o.W, o.H)
	}
}

func (w *ArcadeWorld) collideBounds(b *arcadeBall) {
	r, k := b.params.Radius, b.params.Bounce
	if b.pos.X-r < 0 {
		b.pos.X = r
		if b.vel.X < 0 {
			b.vel.X = -b.vel.X * k
		}
	}
	if b.pos.X+r > w.width {
		b.pos.X = w.width - r
		if b.vel.X > 0 {
			b.vel.X = -b.vel.X * k
		}
	}
	if b.pos.Y-r < 0 {
		b.pos.Y = r
		if b.vel.Y < 0 {
			b.vel.Y = -b.vel.Y * k
		}
	}
	if b.pos.Y+r > w.height {
		b.pos.Y = w.height - r
		if b.vel.Y > 0 {
			b.vel.Y = -b.vel.Y * k
		}
	}
}

// checkSensors 每帧只要仍然重叠就回调，去重由调用方负责
func (w *ArcadeWorld) checkSensors(b *arcadeBall) {
	col := b.obj.Check(0, 0, tagHole)
	if col == nil {
		return
	}
	for _, o := range col.ObjectsByTags(tagHole) {
		s, ok := o.Data.(*sensor)
		if !ok || s.onOverlap == nil {
			continue
		}
		if math.Hypot(b.pos.X-s.center.X, b.pos.Y-s.center.Y) < b.params.Radius+s.radius {
			s.onOverlap()
		}
	}
}

// Destroy 移除全部物体；可重复调用
func (w *ArcadeWorld) Destroy() {
	if w.destroyed {
		return
	}
	w.destroyed = true
	if w.ball != nil {
		w.space.Remove(w.ball.obj)
	}
	w.space.Remove(w.walls...)
	for _, s := range w.sensors {
		w.space.Remove(s.obj)
	}
	w.ball = nil
	w.walls = nil
	w.sensors = nil
}

func (b *arcadeBall) Position() Point         { return b.pos }
func (b *arcadeBall) Velocity() Vec           { return b.vel }
func (b *arcadeBall) SetVelocity(v Vec)       { b.vel = v }
func (b *arcadeBall) SetVisible(visible bool) { b.visible = visible }
func (b *arcadeBall) Visible() bool           { return b.visible }

func (b *arcadeBall) sync() {
	r := b.params.Radius
	b.obj.X = b.pos.X - r
	b.obj.Y = b.pos.Y - r
	b.obj.Update()
}

// resolveRect 圆与轴对齐矩形：推出最小穿透距离并按恢复系数反射法向速度
func (b *arcadeBall) resolveRect(rx, ry, rw, rh float64) {
	r := b.params.Radius
	nx := clamp(b.pos.X, rx, rx+rw)
	ny := clamp(b.pos.Y, ry, ry+rh)
	dx, dy := b.pos.X-nx, b.pos.Y-ny
	d2 := dx*dx + dy*dy
	if d2 >= r*r {
		return
	}

	var n Vec
	var pen float64
	if d2 == 0 {
		// 圆心已进入矩形：沿最近的边推出
		left, right := b.pos.X-rx, rx+rw-b.pos.X
		top, bottom := b.pos.Y-ry, ry+rh-b.pos.Y
		pen = left
		n = Vec{-1, 0}
		if right < pen {
			pen, n = right, Vec{1, 0}
		}
		if top < pen {
			pen, n = top, Vec{0, -1}
		}
		if bottom < pen {
			pen, n = bottom, Vec{0, 1}
		}
		pen += r
	} else {
		d := math.Sqrt(d2)
		n = Vec{dx / d, dy / d}
		pen = r - d
	}

	b.pos.X += n.X * pen
	b.pos.Y += n.Y * pen
	if vn := b.vel.X*n.X + b.vel.Y*n.Y; vn < 0 {
		f := (1 + b.params.Bounce) * vn
		b.vel.X -= n.X * f
		b.vel.Y -= n.Y * f
	}
}

func applyDrag(v, amount float64) float64 {
	switch {
	case v > amount:
		return v - amount
	case v < -amount:
		return v + amount
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
