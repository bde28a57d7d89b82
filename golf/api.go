package golf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// AuthCookie 服务端识别登录态的 cookie 名
const AuthCookie = "auth_token"

const maxAvatarBytes = 2 << 20 // 2MB

var ErrAvatarNotFound = errors.New("avatar not found")

// API 游戏后端的 HTTP 客户端：关卡、头像、成就与排行榜
type API struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewAPI baseURL 形如 http://localhost:8000；client 为 nil 时使用 10s 超时的默认客户端
func NewAPI(baseURL, token string, client *http.Client) *API {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &API{baseURL: strings.TrimRight(baseURL, "/"), token: token, client: client}
}

func (a *API) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.AddCookie(&http.Cookie{Name: AuthCookie, Value: a.token})
	}
	return req, nil
}

// Level 实现 LevelStore：GET /levels/hole{N}.json
func (a *API) Level(ctx context.Context, holeID int) (Level, error) {
	req, err := a.newRequest(ctx, http.MethodGet, "/levels/"+levelFile(holeID), nil)
	if err != nil {
		return Level{}, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return Level{}, fmt.Errorf("fetch level %d: %w", holeID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Level{}, fmt.Errorf("fetch level %d: unexpected status %d", holeID, resp.StatusCode)
	}
	return DecodeLevel(resp.Body)
}

// FetchAvatar GET /api/Avatar_ball?username=…；404 返回 ErrAvatarNotFound
func (a *API) FetchAvatar(ctx context.Context, username string) ([]byte, error) {
	req, err := a.newRequest(ctx, http.MethodGet, "/api/Avatar_ball?username="+url.QueryEscape(username), nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch avatar %s: %w", username, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrAvatarNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch avatar %s: unexpected status %d", username, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxAvatarBytes))
}

// UnlockAchievement POST /api/achievements/ {username, achievement_key}
func (a *API) UnlockAchievement(ctx context.Context, username, key string) error {
	body := map[string]string{"username": username, "achievement_key": key}
	req, err := a.newRequest(ctx, http.MethodPost, "/api/achievements/", body)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("unlock %s: %w", key, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unlock %s: unexpected status %d", key, resp.StatusCode)
	}
	return nil
}

// SubmitScore POST /api/leaderboard；响应体不是 JSON，200/201 均视为确认
func (a *API) SubmitScore(ctx context.Context, score Score) error {
	req, err := a.newRequest(ctx, http.MethodPost, "/api/leaderboard", score)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("submit score: %w", err)
	}
	defer resp.Body.Close()
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("submit score: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	Log.Infof("score submitted: user=%s shots=%d holes=%d reply=%q",
		score.Username, score.TotalShots, score.TotalHoles, strings.TrimSpace(string(msg)))
	return nil
}
