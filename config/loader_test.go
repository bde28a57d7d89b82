package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Game.TotalHoles != 6 || cfg.Game.ShotLimit != 8 || cfg.Game.ShotPower != 300 {
		t.Fatalf("rules = %+v", cfg.Game)
	}
	if cfg.Game.MoveInterval != 100*time.Millisecond || cfg.Game.GhostFade != 500*time.Millisecond {
		t.Fatalf("timings = %+v", cfg.Game)
	}
	if cfg.Server.BaseURL != "http://localhost:8000" || cfg.Log.File != "minigolf.log" {
		t.Fatalf("server/log = %+v %+v", cfg.Server, cfg.Log)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MINIGOLF_GAME_SHOTLIMIT", "5")
	t.Setenv("MINIGOLF_GAME_MOVEINTERVAL", "250ms")
	t.Setenv("MINIGOLF_PLAYER_AUTHTOKEN", "secret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Game.ShotLimit != 5 || cfg.Game.MoveInterval != 250*time.Millisecond {
		t.Fatalf("game = %+v", cfg.Game)
	}
	if cfg.Player.AuthToken != "secret" {
		t.Fatalf("token = %q", cfg.Player.AuthToken)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "golf.yaml")
	data := `
server:
  levelsDir: ./levels
  offline: true
player:
  username: alice
game:
  totalHoles: 3
  ghostFade: 1s
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.LevelsDir != "./levels" || !cfg.Server.Offline || cfg.Player.Username != "alice" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Game.TotalHoles != 3 || cfg.Game.GhostFade != time.Second || cfg.Game.ShotLimit != 8 {
		t.Fatalf("game = %+v", cfg.Game)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("missing explicit config accepted")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		env, value, wantErr string
	}{
		{"MINIGOLF_GAME_SHOTLIMIT", "0", "shotLimit"},
		{"MINIGOLF_GAME_TOTALHOLES", "-1", "totalHoles"},
		{"MINIGOLF_GAME_FRAMERATE", "1000", "frameRate"},
		{"MINIGOLF_SERVER_BASEURL", "ftp://example.com", "server.baseURL"},
		{"MINIGOLF_SERVER_WSURL", "http://example.com", "server.wsURL"},
		{"MINIGOLF_SERVER_OFFLINE", "true", "player.username"},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)
			_, err := Load("")
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}
