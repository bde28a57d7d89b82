package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"minigolf/config"
	"minigolf/golf"
)

// minigolf 无界面客户端：连接后端，自动打完所有洞并提交成绩
func main() {
	var configPath, adminAddr string
	flag.StringVar(&configPath, "config", "", "path to config file (default: ./minigolf.yaml if present)")
	flag.StringVar(&adminAddr, "admin", "", "admin listen address, e.g. :9090 (overrides admin.addr)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if adminAddr != "" {
		cfg.Admin.Addr = adminAddr
	}
	// 使用第三方 zap 日志库写入日志文件（带滚动）
	if err := golf.InitLogger(cfg.Log.File, cfg.Log.Debug); err != nil {
		panic(err)
	}
	defer golf.SyncLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	game := newGame(cfg)

	var admin *http.Server
	if cfg.Admin.Addr != "" {
		admin = &http.Server{Addr: cfg.Admin.Addr, Handler: game.AdminMux()}
		go func() {
			golf.Log.Infof("admin listening on %s", cfg.Admin.Addr)
			if err := admin.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				golf.Log.Errorf("admin listen: %v", err)
			}
		}()
	}

	err = game.Play(ctx)
	if admin != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = admin.Shutdown(shutdownCtx)
		cancel()
	}
	switch {
	case err == nil:
		snap := game.Progression().Snapshot()
		golf.Log.Infof("round finished: %d shots over %d holes", snap.TotalShots, snap.TotalHoles)
		fmt.Printf("%s finished %d holes in %d shots\n", snap.Username, snap.TotalHoles, snap.TotalShots)
	case errors.Is(err, context.Canceled):
		golf.Log.Info("Shutting down...")
	default:
		golf.Log.Errorf("round aborted: %v", err)
		fmt.Fprintln(os.Stderr, err)
		golf.SyncLogger()
		os.Exit(1)
	}
}

func newGame(cfg *config.Config) *golf.Game {
	api := golf.NewAPI(cfg.Server.BaseURL, cfg.Player.AuthToken, nil)

	var levels golf.LevelStore = api
	if cfg.Server.LevelsDir != "" {
		levels = golf.NewDirLevels(cfg.Server.LevelsDir)
	}

	metrics := &golf.Metrics{}
	var dial golf.Dialer
	if !cfg.Server.Offline {
		wsBase := strings.TrimRight(cfg.Server.WSURL, "/")
		dial = func(ctx context.Context, hole int) (golf.Network, error) {
			ch, err := golf.DialChannel(ctx, golf.DialOptions{
				URL:      fmt.Sprintf("%s/ws/game/hole/%d/", wsBase, hole),
				Token:    cfg.Player.AuthToken,
				Attempts: cfg.Game.DialAttempts,
				Backoff:  cfg.Game.DialBackoff,
			}, metrics)
			if err != nil {
				return nil, err
			}
			return ch, nil
		}
	}

	sc := golf.DefaultSessionConfig(0)
	sc.ShotLimit = cfg.Game.ShotLimit
	sc.ShotPower = cfg.Game.ShotPower
	sc.SettledSpeed = cfg.Game.SettledSpeed
	sc.FrameRate = cfg.Game.FrameRate
	sc.MoveInterval = cfg.Game.MoveInterval
	sc.GhostFade = cfg.Game.GhostFade

	player := golf.NewAutoPlayer(cfg.Player.Seed)
	player.ContinueDelay = cfg.Game.ContinueDelay

	return golf.NewGame(golf.GameOptions{
		TotalHoles:  cfg.Game.TotalHoles,
		Username:    cfg.Player.Username,
		Session:     sc,
		WorldWidth:  cfg.Game.WorldWidth,
		WorldHeight: cfg.Game.WorldHeight,
	}, golf.GameDeps{
		Levels:  levels,
		Scores:  api,
		Unlocks: api,
		Avatars: api,
		Dial:    dial,
		Player:  player,
		Metrics: metrics,
	})
}
