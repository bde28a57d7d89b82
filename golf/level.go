package golf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// ErrLevelLoad 关卡无法获取或解析；对当前洞是致命错误，需要展示可重试的错误状态
var ErrLevelLoad = errors.New("level load failed")

// Point 二维坐标
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Obstacle 静态矩形障碍，(X,Y) 为中心点
type Obstacle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Level 关卡描述，每洞获取一次，之后不再修改
type Level struct {
	BallStart       Point      `json:"ballStart"`
	HolePosition    Point      `json:"holePosition"`
	Obstacles       []Obstacle `json:"obstacles"`
	BackgroundColor string     `json:"backgroundColor,omitempty"`
}

// LevelStore 按洞号提供关卡
type LevelStore interface {
	Level(ctx context.Context, holeID int) (Level, error)
}

// Validate 检查关卡描述是否可用于建立物理世界
func (l Level) Validate() error {
	for i, o := range l.Obstacles {
		if o.Width <= 0 || o.Height <= 0 {
			return fmt.Errorf("obstacle %d has non-positive size %.1fx%.1f", i, o.Width, o.Height)
		}
	}
	return nil
}

// clone 返回独立副本，避免调用方修改共享切片
func (l Level) clone() Level {
	out := l
	out.Obstacles = append([]Obstacle(nil), l.Obstacles...)
	return out
}

// DecodeLevel 解析关卡 JSON；ballStart 与 holePosition 必须存在
func DecodeLevel(r io.Reader) (Level, error) {
	var raw struct {
		BallStart       *Point     `json:"ballStart"`
		HolePosition    *Point     `json:"holePosition"`
		Obstacles       []Obstacle `json:"obstacles"`
		BackgroundColor string     `json:"backgroundColor"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Level{}, fmt.Errorf("decode level: %w", err)
	}
	if raw.BallStart == nil {
		return Level{}, fmt.Errorf("level has no ballStart")
	}
	if raw.HolePosition == nil {
		return Level{}, fmt.Errorf("level has no holePosition")
	}
	lvl := Level{
		BallStart:       *raw.BallStart,
		HolePosition:    *raw.HolePosition,
		Obstacles:       raw.Obstacles,
		BackgroundColor: raw.BackgroundColor,
	}
	if err := lvl.Validate(); err != nil {
		return Level{}, err
	}
	return lvl, nil
}

func levelFile(holeID int) string {
	return fmt.Sprintf("hole%d.json", holeID)
}

// DirLevels 从本地目录读取 holeN.json（离线运行）
type DirLevels struct {
	FS fs.FS
}

func NewDirLevels(dir string) DirLevels {
	return DirLevels{FS: os.DirFS(dir)}
}

func (d DirLevels) Level(ctx context.Context, holeID int) (Level, error) {
	if err := ctx.Err(); err != nil {
		return Level{}, err
	}
	f, err := d.FS.Open(levelFile(holeID))
	if err != nil {
		return Level{}, fmt.Errorf("open level %d: %w", holeID, err)
	}
	defer f.Close()
	return DecodeLevel(f)
}
