package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

const (
	EnvAddr             = "LEVEL_BROWSER_ADDR"
	EnvLevelsDir        = "LEVEL_BROWSER_DIR"
	EnvEncoding         = "LEVEL_BROWSER_ENCODING"
	EnvContainerVersion = "LEVEL_BROWSER_CONTAINER_VERSION"
	EnvGameVersion      = "LEVEL_BROWSER_GAME_VERSION"
	EnvLogLevel         = "LOG_LEVEL"
	EnvLogFormat        = "LOG_FORMAT"
)

// Target version used by conversion when request does not specify one.
// Zero game version means "default for family".
type Target struct {
	ContainerVersion int32 `toml:"container_version"`
	GameVersion      int16 `toml:"game_version"`
}

type Config struct {
	Addr      string `toml:"addr"`
	LevelsDir string `toml:"levels_dir"`
	Encoding  string `toml:"encoding"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	Target    Target `toml:"target"`
}

func Default() *Config {
	return &Config{
		Addr:      ":8000",
		LevelsDir: "levels",
		Encoding:  GetEncoding().String(),
		LogLevel:  "info",
		LogFormat: "text",
		Target:    Target{ContainerVersion: 8},
	}
}

// Load reads optional toml file, then optional .env file, then environment.
// Later sources override earlier ones.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to read config %q", path)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "Failed to parse config %q", path)
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(errors.Cause(err)) {
		return nil, errors.Wrapf(err, "Failed to load .env")
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := SetEncoding(cfg.Encoding); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) applyEnv() error {
	if v, ok := os.LookupEnv(EnvAddr); ok {
		cfg.Addr = v
	}
	if v, ok := os.LookupEnv(EnvLevelsDir); ok {
		cfg.LevelsDir = v
	}
	if v, ok := os.LookupEnv(EnvEncoding); ok {
		cfg.Encoding = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		cfg.LogLevel = v
	}
	if v, ok := os.LookupEnv(EnvLogFormat); ok {
		cfg.LogFormat = v
	}
	if v, ok := os.LookupEnv(EnvContainerVersion); ok {
		i, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return errors.Wrapf(err, "Invalid %s", EnvContainerVersion)
		}
		cfg.Target.ContainerVersion = int32(i)
	}
	if v, ok := os.LookupEnv(EnvGameVersion); ok {
		i, err := strconv.ParseInt(v, 10, 16)
		if err != nil {
			return errors.Wrapf(err, "Invalid %s", EnvGameVersion)
		}
		cfg.Target.GameVersion = int16(i)
	}
	return nil
}
