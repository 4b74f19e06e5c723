package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when a field is absent from file, env and flags.
const (
	DefaultTypingWindow = 2 * time.Second
	DefaultOfflineAfter = 5 * time.Minute
	DefaultSessionTTL   = 30 * 24 * time.Hour
	DefaultSweeperCron  = "* * * * *"
)

// Load reads a YAML config file from path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &c, nil
}

// LoadEnvOverrides applies RELAY_* environment variables on top of cfg.
// Env wins over file; flags win over env.
func LoadEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	if v := os.Getenv("RELAY_ADDR"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("RELAY_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("RELAY_DB_PATH"); v != "" {
		cfg.Server.DBPath = v
	}
	if v := os.Getenv("RELAY_TLS_CERT"); v != "" {
		cfg.Server.TLS.CertFile = v
	}
	if v := os.Getenv("RELAY_TLS_KEY"); v != "" {
		cfg.Server.TLS.KeyFile = v
	}
	if v := os.Getenv("RELAY_SESSION_SECRET"); v != "" {
		cfg.Sessions.Secret = v
	}
	if v := os.Getenv("RELAY_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Sessions.TTL = Duration(d)
		}
	}
	if v := os.Getenv("RELAY_DEV_PHONE"); v != "" {
		cfg.Security.Developer.Phone = v
	}
	if v := os.Getenv("RELAY_DEV_PASSWORD"); v != "" {
		cfg.Security.Developer.Password = v
	}
	if v := os.Getenv("RELAY_CORS_ORIGINS"); v != "" {
		cfg.Security.CORS.AllowedOrigins = splitCSV(v)
	}
	if v := os.Getenv("RELAY_IP_WHITELIST"); v != "" {
		cfg.Security.IPWhitelist = splitCSV(v)
	}
	if v := os.Getenv("RELAY_RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Security.RateLimit.RPS = f
		}
	}
	if v := os.Getenv("RELAY_RATE_BURST"); v != "" {
		if b, err := strconv.Atoi(v); err == nil {
			cfg.Security.RateLimit.Burst = b
		}
	}
	if v := os.Getenv("RELAY_TYPING_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Presence.TypingWindow = Duration(d)
		}
	}
	if v := os.Getenv("RELAY_OFFLINE_AFTER"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Presence.OfflineAfter = Duration(d)
		}
	}
	if v := os.Getenv("RELAY_SWEEPER_CRON"); v != "" {
		cfg.Sweeper.Cron = v
		cfg.Sweeper.Enabled = true
	}
	if v := os.Getenv("RELAY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Flags captures command-line values plus which flags were explicitly set.
type Flags struct {
	Addr       string
	DBPath     string
	ConfigPath string
	Set        map[string]bool
}

// ParseCommandFlags parses process flags. Only flags the operator actually
// passed override file/env values.
func ParseCommandFlags(args []string) (*Flags, error) {
	fs := flag.NewFlagSet("relay", flag.ContinueOnError)
	addr := fs.String("addr", "", "listen address (host:port)")
	db := fs.String("db", "", "path to the database directory")
	cfgPath := fs.String("config", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return &Flags{Addr: *addr, DBPath: *db, ConfigPath: *cfgPath, Set: set}, nil
}

// ResolveConfigPath picks the config file path: flag, then RELAY_CONFIG,
// then ./config.yaml if present.
func ResolveConfigPath(fl *Flags) string {
	if fl != nil && fl.Set["config"] && fl.ConfigPath != "" {
		return fl.ConfigPath
	}
	if v := os.Getenv("RELAY_CONFIG"); v != "" {
		return v
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return ""
}

// LoadEffective builds the effective configuration: file, then env, then
// explicitly-set flags, then defaults for anything still unset.
func LoadEffective(fl *Flags) (*Config, error) {
	cfg := &Config{}
	if path := ResolveConfigPath(fl); path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	LoadEnvOverrides(cfg)
	if fl != nil {
		if fl.Set["addr"] && fl.Addr != "" {
			host, port, ok := strings.Cut(fl.Addr, ":")
			if ok {
				if p, err := strconv.Atoi(port); err == nil {
					cfg.Server.Port = p
				}
			}
			if host != "" {
				cfg.Server.Address = host
			}
		}
		if fl.Set["db"] && fl.DBPath != "" {
			cfg.Server.DBPath = fl.DBPath
		}
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.DBPath == "" {
		cfg.Server.DBPath = "./data/relay"
	}
	if cfg.Presence.TypingWindow.Duration() <= 0 {
		cfg.Presence.TypingWindow = Duration(DefaultTypingWindow)
	}
	if cfg.Presence.OfflineAfter.Duration() <= 0 {
		cfg.Presence.OfflineAfter = Duration(DefaultOfflineAfter)
	}
	if cfg.Sessions.TTL.Duration() <= 0 {
		cfg.Sessions.TTL = Duration(DefaultSessionTTL)
	}
	if cfg.Sweeper.Cron == "" {
		cfg.Sweeper.Cron = DefaultSweeperCron
	}
}
