package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，如 MINIGOLF_PLAYER_AUTHTOKEN
const EnvPrefix = "MINIGOLF"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.baseURL", "http://localhost:8000")
	v.SetDefault("server.wsURL", "ws://localhost:8000")
	v.SetDefault("server.levelsDir", "")
	v.SetDefault("server.offline", false)

	v.SetDefault("player.username", "")
	v.SetDefault("player.authToken", "")
	v.SetDefault("player.seed", 1)

	v.SetDefault("game.totalHoles", 6)
	v.SetDefault("game.shotLimit", 8)
	v.SetDefault("game.shotPower", 300.0)
	v.SetDefault("game.settledSpeed", 1.0)
	v.SetDefault("game.frameRate", 60)
	v.SetDefault("game.moveInterval", 100*time.Millisecond)
	v.SetDefault("game.ghostFade", 500*time.Millisecond)
	v.SetDefault("game.worldWidth", 800.0)
	v.SetDefault("game.worldHeight", 600.0)
	v.SetDefault("game.dialAttempts", 3)
	v.SetDefault("game.dialBackoff", 250*time.Millisecond)
	v.SetDefault("game.continueDelay", time.Second)

	v.SetDefault("log.file", "minigolf.log")
	v.SetDefault("log.debug", false)

	v.SetDefault("admin.addr", "")
}

// Load 读取 .env（可选）、配置文件与 MINIGOLF_* 环境变量。
// configPath 为空时在 . 与 ./config 下查找 minigolf.yaml，找不到则只用默认值。
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		v.SetConfigName("minigolf")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	g := cfg.Game
	if g.TotalHoles < 1 {
		return fmt.Errorf("game.totalHoles must be at least 1, got %d", g.TotalHoles)
	}
	if g.ShotLimit < 1 {
		return fmt.Errorf("game.shotLimit must be at least 1, got %d", g.ShotLimit)
	}
	if g.ShotPower <= 0 {
		return fmt.Errorf("game.shotPower must be positive, got %v", g.ShotPower)
	}
	if g.FrameRate < 1 || g.FrameRate > 240 {
		return fmt.Errorf("game.frameRate out of range: %d", g.FrameRate)
	}
	if g.MoveInterval <= 0 {
		return fmt.Errorf("game.moveInterval must be positive, got %v", g.MoveInterval)
	}
	if g.WorldWidth <= 0 || g.WorldHeight <= 0 {
		return fmt.Errorf("world size must be positive, got %vx%v", g.WorldWidth, g.WorldHeight)
	}

	if cfg.Server.LevelsDir == "" {
		if err := checkURL("server.baseURL", cfg.Server.BaseURL, "http", "https"); err != nil {
			return err
		}
	}
	if cfg.Server.Offline {
		// 离线时没有 connection_success 提供身份
		if cfg.Player.Username == "" {
			return fmt.Errorf("player.username is required when server.offline is set")
		}
	} else if err := checkURL("server.wsURL", cfg.Server.WSURL, "ws", "wss"); err != nil {
		return err
	}
	return nil
}

func checkURL(key, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", key, err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%s must be a %s URL, got %q", key, strings.Join(schemes, "/"), raw)
}
