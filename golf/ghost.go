package golf

import (
	"context"
	"time"
)

// DefaultGhostFade 玩家离开后的淡出时长
const DefaultGhostFade = 500 * time.Millisecond

// 标签与徽章相对球心的偏移
const (
	labelOffsetY = -24
	badgeOffsetX = -20
	badgeOffsetY = -24
)

// loop 会话的单线程循环：异步结果必须经 Post 回到循环内执行，且先检查存活
type loop interface {
	Context() context.Context
	Post(fn func())
	Alive() bool
}

// ghost 一个玩家的可视代理；marker 为 nil 表示只显示标签（本地玩家）
type ghost struct {
	identity  string
	pos       Point
	avatar    string
	marker    Handle
	label     Handle
	badge     Handle
	fading    bool
	fadeStart time.Time
}

// pendingGhost 头像解析中的玩家，记录最新位置
type pendingGhost struct {
	pos       Point
	labelOnly bool
	cancelled bool
}

// Ghosts 远端玩家的可视代理注册表。所有方法只能在会话循环中调用。
type Ghosts struct {
	loop    loop
	scene   Scene
	avatars AvatarSource
	metrics *Metrics
	fade    time.Duration

	local    string
	localTag *ghost
	ghosts   map[string]*ghost
	pending  map[string]*pendingGhost
	cache    map[string]string // identity -> 头像纹理 key
}

func NewGhosts(l loop, scene Scene, avatars AvatarSource, fade time.Duration, m *Metrics) *Ghosts {
	if fade <= 0 {
		fade = DefaultGhostFade
	}
	if m == nil {
		m = &Metrics{}
	}
	if !scene.HasTexture(DefaultAvatarKey) {
		scene.AddTexture(DefaultAvatarKey, nil)
	}
	return &Ghosts{
		loop:    l,
		scene:   scene,
		avatars: avatars,
		metrics: m,
		fade:    fade,
		ghosts:  make(map[string]*ghost),
		pending: make(map[string]*pendingGhost),
		cache:   make(map[string]string),
	}
}

// SetLocal 设置本地玩家身份，之后该身份的位置报告被忽略
func (g *Ghosts) SetLocal(identity string) {
	g.local = identity
	if gh, ok := g.ghosts[identity]; ok {
		gh.dispose()
		delete(g.ghosts, identity)
	}
}

// AddOrUpdate 首次出现时解析头像（同一身份只发起一次），解析完成后创建代理；
// 已存在则直接移动
func (g *Ghosts) AddOrUpdate(identity string, x, y float64) {
	if identity == "" || identity == g.local {
		return
	}
	pos := Point{X: x, Y: y}
	if gh, ok := g.ghosts[identity]; ok {
		if gh.fading {
			gh.fading = false
			gh.setAlpha(1)
		}
		gh.moveTo(pos)
		return
	}
	if p, ok := g.pending[identity]; ok {
		p.pos = pos
		p.labelOnly = false
		p.cancelled = false
		return
	}
	if key, ok := g.cache[identity]; ok {
		g.ghosts[identity] = g.spawn(identity, key, pos, false)
		return
	}
	g.pending[identity] = &pendingGhost{pos: pos}
	g.resolve(identity)
}

// ShowLocalLabelOnly 本地玩家的名字标签与头像徽章，不画球标记
func (g *Ghosts) ShowLocalLabelOnly(identity string, x, y float64) {
	if identity == "" {
		return
	}
	if g.local != identity {
		g.SetLocal(identity)
	}
	pos := Point{X: x, Y: y}
	if g.localTag != nil {
		if g.localTag.identity == identity {
			g.localTag.moveTo(pos)
			return
		}
		g.localTag.dispose()
		g.localTag = nil
	}
	if p, ok := g.pending[identity]; ok {
		p.pos = pos
		p.labelOnly = true
		p.cancelled = false
		return
	}
	if key, ok := g.cache[identity]; ok {
		g.localTag = g.spawn(identity, key, pos, true)
		return
	}
	g.pending[identity] = &pendingGhost{pos: pos, labelOnly: true}
	g.resolve(identity)
}

// Remove 开始淡出；没有代理时为空操作。头像仍在解析时取消待创建的代理。
func (g *Ghosts) Remove(identity string) {
	if p, ok := g.pending[identity]; ok {
		p.cancelled = true
	}
	gh, ok := g.ghosts[identity]
	if !ok || gh.fading {
		return
	}
	gh.fading = true
	gh.fadeStart = time.Time{} // 下一帧开始计时
}

// Advance 推进淡出动画，到期后销毁代理并清除头像缓存
func (g *Ghosts) Advance(now time.Time) {
	for id, gh := range g.ghosts {
		if !gh.fading {
			continue
		}
		if gh.fadeStart.IsZero() {
			gh.fadeStart = now
		}
		elapsed := now.Sub(gh.fadeStart)
		if elapsed >= g.fade {
			gh.dispose()
			delete(g.ghosts, id)
			delete(g.cache, id)
			Log.Debugf("ghost removed: %s", id)
			continue
		}
		gh.setAlpha(1 - float64(elapsed)/float64(g.fade))
	}
}

// Clear 会话销毁时同步释放全部可视元素
func (g *Ghosts) Clear() {
	for id, gh := range g.ghosts {
		gh.dispose()
		delete(g.ghosts, id)
	}
	if g.localTag != nil {
		g.localTag.dispose()
		g.localTag = nil
	}
	g.pending = make(map[string]*pendingGhost)
	g.cache = make(map[string]string)
}

// Len 当前远端代理数（含淡出中的）
func (g *Ghosts) Len() int { return len(g.ghosts) }

// Position 远端代理的最后位置
func (g *Ghosts) Position(identity string) (Point, bool) {
	gh, ok := g.ghosts[identity]
	if !ok {
		return Point{}, false
	}
	return gh.pos, true
}

// AvatarKey 已缓存的头像 key
func (g *Ghosts) AvatarKey(identity string) (string, bool) {
	key, ok := g.cache[identity]
	return key, ok
}

func (g *Ghosts) resolve(identity string) {
	g.metrics.IncAvatarFetches()
	ctx := g.loop.Context()
	go func() {
		key, data := resolveAvatar(ctx, g.avatars, identity)
		g.loop.Post(func() {
			g.resolved(identity, key, data)
		})
	}()
}

// resolved 在循环内执行；会话已销毁则丢弃结果
func (g *Ghosts) resolved(identity, key string, data []byte) {
	if !g.loop.Alive() {
		return
	}
	p, ok := g.pending[identity]
	if !ok {
		return
	}
	delete(g.pending, identity)
	if p.cancelled {
		return
	}
	if key == DefaultAvatarKey {
		g.metrics.IncAvatarFallbacks()
	} else if !g.scene.HasTexture(key) {
		g.scene.AddTexture(key, data)
	}
	g.cache[identity] = key
	if p.labelOnly {
		// 解析期间本地身份已变（如服务端确认了另一个名字），旧结果只进缓存
		if identity != g.local {
			return
		}
		if g.localTag != nil {
			g.localTag.dispose()
		}
		g.localTag = g.spawn(identity, key, p.pos, true)
		return
	}
	g.ghosts[identity] = g.spawn(identity, key, p.pos, false)
	Log.Debugf("ghost created: %s avatar=%s at (%.1f, %.1f)", identity, key, p.pos.X, p.pos.Y)
}

func (g *Ghosts) spawn(identity, key string, pos Point, labelOnly bool) *ghost {
	gh := &ghost{identity: identity, pos: pos, avatar: key}
	if !labelOnly {
		gh.marker = g.scene.AddMarker(pos.X, pos.Y)
	}
	gh.label = g.scene.AddLabel(pos.X, pos.Y+labelOffsetY, identity)
	gh.badge = g.scene.AddBadge(pos.X+badgeOffsetX, pos.Y+badgeOffsetY, key)
	return gh
}

func (gh *ghost) moveTo(pos Point) {
	gh.pos = pos
	if gh.marker != nil {
		gh.marker.SetPosition(pos.X, pos.Y)
	}
	gh.label.SetPosition(pos.X, pos.Y+labelOffsetY)
	gh.badge.SetPosition(pos.X+badgeOffsetX, pos.Y+badgeOffsetY)
}

func (gh *ghost) setAlpha(a float64) {
	if gh.marker != nil {
		gh.marker.SetAlpha(a)
	}
	gh.label.SetAlpha(a)
	gh.badge.SetAlpha(a)
}

func (gh *ghost) dispose() {
	if gh.marker != nil {
		gh.marker.Destroy()
	}
	gh.label.Destroy()
	gh.badge.Destroy()
}
