package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for marketview.
type Config struct {
	Server  Server       `yaml:"server"`
	Storage Storage      `yaml:"storage"`
	Market  MarketConfig `yaml:"market"`
	Admin   AdminConfig  `yaml:"admin"`
	Logging Logging      `yaml:"logging"`
	Client  ClientConfig `yaml:"client"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Storage holds paths for data persistence. DataDir is the root of the
// flat-file user store; SQLitePath backs the market snapshot cache.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// MarketConfig controls where market data comes from. Offline is the
// deployment default: every data endpoint answers with the offline
// sentinel and no upstream calls are made.
type MarketConfig struct {
	Offline         bool   `yaml:"offline"`
	APIKey          string `yaml:"api_key"`
	APISecret       string `yaml:"api_secret"`
	BaseURL         string `yaml:"base_url"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// AdminCredential is one username/password pair accepted for admin login.
type AdminCredential struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// AdminConfig lists accepted admin credentials.
type AdminConfig struct {
	Credentials []AdminCredential `yaml:"credentials"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ClientConfig holds settings used by the terminal dashboard client.
type ClientConfig struct {
	ServerURL string `yaml:"server_url"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Server:  Server{Host: "0.0.0.0", Port: 5000},
		Storage: Storage{DataDir: "data", SQLitePath: "data/marketview.db"},
		Market:  MarketConfig{Offline: true, RateLimitPerMin: 200},
		Admin: AdminConfig{
			// Credential pairs carried over from the system this replaces.
			Credentials: []AdminCredential{
				{Username: "admin11", Password: "mview1"},
				{Username: "admin77", Password: "mview0"},
			},
		},
		Logging: Logging{Level: "info", Format: "json"},
		Client:  ClientConfig{ServerURL: "http://localhost:5000"},
	}
}

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, and then applies environment variable overrides. A missing
// file is not an error: defaults plus environment overrides are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MARKETVIEW_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}

	if v := os.Getenv("MARKETVIEW_OFFLINE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Market.Offline = b
		}
	}
	if v := os.Getenv("MARKETVIEW_SERVER_URL"); v != "" {
		cfg.Client.ServerURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Standard Alpaca env vars (canonical names used by the SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Market.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Market.APISecret = v
	}
}
