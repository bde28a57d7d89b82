package golf

import "sync"

// Handle 场景中的一个可视元素
type Handle interface {
	SetPosition(x, y float64)
	SetAlpha(a float64)
	Destroy()
}

// Scene 渲染协作者：纹理注册与标记/文字/头像徽章
type Scene interface {
	AddTexture(key string, data []byte)
	HasTexture(key string) bool
	AddMarker(x, y float64) Handle
	AddLabel(x, y float64, text string) Handle
	AddBadge(x, y float64, textureKey string) Handle
}

// NodeKind 内存场景中的元素种类
type NodeKind string

const (
	NodeMarker NodeKind = "marker"
	NodeLabel  NodeKind = "label"
	NodeBadge  NodeKind = "badge"
)

// Node 内存场景元素快照
type Node struct {
	Kind    NodeKind `json:"kind"`
	X       float64  `json:"x"`
	Y       float64  `json:"y"`
	Alpha   float64  `json:"alpha"`
	Text    string   `json:"text,omitempty"`
	Texture string   `json:"texture,omitempty"`
}

// MemScene 无界面运行时使用的内存场景，可被管理接口并发读取
type MemScene struct {
	mu       sync.RWMutex
	textures map[string][]byte
	nodes    map[*memNode]struct{}
}

type memNode struct {
	scene *MemScene
	node  Node
}

func NewMemScene() *MemScene {
	return &MemScene{
		textures: make(map[string][]byte),
		nodes:    make(map[*memNode]struct{}),
	}
}

func (s *MemScene) AddTexture(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.textures[key] = data
}

func (s *MemScene) HasTexture(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.textures[key]
	return ok
}

func (s *MemScene) AddMarker(x, y float64) Handle {
	return s.add(Node{Kind: NodeMarker, X: x, Y: y, Alpha: 1})
}

func (s *MemScene) AddLabel(x, y float64, text string) Handle {
	return s.add(Node{Kind: NodeLabel, X: x, Y: y, Alpha: 1, Text: text})
}

func (s *MemScene) AddBadge(x, y float64, textureKey string) Handle {
	return s.add(Node{Kind: NodeBadge, X: x, Y: y, Alpha: 1, Texture: textureKey})
}

func (s *MemScene) add(n Node) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := &memNode{scene: s, node: n}
	s.nodes[h] = struct{}{}
	return h
}

// Nodes 返回当前存活元素的副本
func (s *MemScene) Nodes() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Node, 0, len(s.nodes))
	for h := range s.nodes {
		out = append(out, h.node)
	}
	return out
}

// Count 统计某类存活元素
func (s *MemScene) Count(kind NodeKind) int {
	n := 0
	for _, node := range s.Nodes() {
		if node.Kind == kind {
			n++
		}
	}
	return n
}

func (h *memNode) SetPosition(x, y float64) {
	h.scene.mu.Lock()
	h.node.X, h.node.Y = x, y
	h.scene.mu.Unlock()
}

func (h *memNode) SetAlpha(a float64) {
	h.scene.mu.Lock()
	h.node.Alpha = a
	h.scene.mu.Unlock()
}

func (h *memNode) Destroy() {
	h.scene.mu.Lock()
	delete(h.scene.nodes, h)
	h.scene.mu.Unlock()
}
