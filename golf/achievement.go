package golf

import (
	"context"
	"sync"
	"time"
)

// 成就 key，与服务端 achievements.json 一致
const (
	AchFirstPutt        = "first_putt"
	AchShotLimit        = "shot_limit"
	AchFinishedAllHoles = "finished_all_holes"
)

const achievementTimeout = 10 * time.Second

// AchievementPoster 向成就服务提交解锁
type AchievementPoster interface {
	UnlockAchievement(ctx context.Context, username, key string) error
}

// Achievements 每个会话一份的解锁记录：标记先于网络请求同步写入，
// 保证同一 key 至多提交一次；失败只记日志，不重试也不阻塞游戏
type Achievements struct {
	mu       sync.Mutex
	username string
	unlocked map[string]bool
	poster   AchievementPoster
	metrics  *Metrics
	wg       sync.WaitGroup
}

func NewAchievements(poster AchievementPoster, m *Metrics) *Achievements {
	if m == nil {
		m = &Metrics{}
	}
	return &Achievements{unlocked: make(map[string]bool), poster: poster, metrics: m}
}

// SetIdentity 记录已认证的玩家名；之前触发的解锁不会补发
func (a *Achievements) SetIdentity(username string) {
	a.mu.Lock()
	a.username = username
	a.mu.Unlock()
}

// Unlock 返回是否发起了请求
func (a *Achievements) Unlock(key string) bool {
	a.mu.Lock()
	if a.unlocked[key] || a.username == "" || a.poster == nil {
		a.mu.Unlock()
		return false
	}
	a.unlocked[key] = true
	username := a.username
	a.mu.Unlock()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		// 请求独立于会话生命周期：洞结束后的销毁不应取消已触发的解锁
		ctx, cancel := context.WithTimeout(context.Background(), achievementTimeout)
		defer cancel()
		if err := a.poster.UnlockAchievement(ctx, username, key); err != nil {
			a.metrics.IncAchievementFailures()
			Log.Warnf("achievement %s for %s not recorded: %v", key, username, err)
			return
		}
		a.metrics.IncAchievementsSent()
		Log.Infof("achievement unlocked: %s user=%s", key, username)
	}()
	return true
}

// Unlocked 本会话是否已触发过该 key
func (a *Achievements) Unlocked(key string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.unlocked[key]
}

// Wait 等待在途请求结束
func (a *Achievements) Wait() {
	a.wg.Wait()
}
