package config

import "time"

// Config 客户端全部配置
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Player PlayerConfig `mapstructure:"player"`
	Game   GameConfig   `mapstructure:"game"`
	Log    LogConfig    `mapstructure:"log"`
	Admin  AdminConfig  `mapstructure:"admin"`
}

// ServerConfig 后端地址；LevelsDir 非空时从本地目录读关卡（离线）
type ServerConfig struct {
	BaseURL   string `mapstructure:"baseURL"`
	WSURL     string `mapstructure:"wsURL"`
	LevelsDir string `mapstructure:"levelsDir"`
	Offline   bool   `mapstructure:"offline"` // 不建立 WebSocket 连接
}

// PlayerConfig 登录后得到的身份与 cookie token
type PlayerConfig struct {
	Username  string `mapstructure:"username"`
	AuthToken string `mapstructure:"authToken"`
	Seed      int64  `mapstructure:"seed"` // 自动玩家的随机种子
}

// GameConfig 规则、物理与网络参数
type GameConfig struct {
	TotalHoles    int           `mapstructure:"totalHoles"`
	ShotLimit     int           `mapstructure:"shotLimit"`
	ShotPower     float64       `mapstructure:"shotPower"`
	SettledSpeed  float64       `mapstructure:"settledSpeed"`
	FrameRate     int           `mapstructure:"frameRate"`
	MoveInterval  time.Duration `mapstructure:"moveInterval"`
	GhostFade     time.Duration `mapstructure:"ghostFade"`
	WorldWidth    float64       `mapstructure:"worldWidth"`
	WorldHeight   float64       `mapstructure:"worldHeight"`
	DialAttempts  int           `mapstructure:"dialAttempts"`
	DialBackoff   time.Duration `mapstructure:"dialBackoff"`
	ContinueDelay time.Duration `mapstructure:"continueDelay"`
}

type LogConfig struct {
	File  string `mapstructure:"file"`
	Debug bool   `mapstructure:"debug"`
}

type AdminConfig struct {
	Addr string `mapstructure:"addr"` // 为空则不启动管理接口
}
