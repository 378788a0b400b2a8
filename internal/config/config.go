package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
)

type ConfigParam struct {
	Server   ServerConfig   `toml:"server"`
	DB       DBConfig       `toml:"db"`
	SCM      SCMConfig      `toml:"scm"`
	Registry RegistryConfig `toml:"registry"`
	CheckURL CheckURLConfig `toml:"checkurl"`
	Refresh  RefreshConfig  `toml:"refresh"`
	Log      LogConfig      `toml:"log"`
}

type ServerConfig struct {
	ListenAddr  string `toml:"listen_addr"`
	HandleCORS  bool   `toml:"handle_cors"`
	CORSOrigin  string `toml:"cors_origin"`
	ReadTimeout int    `toml:"read_timeout_seconds"`
}

type DBConfig struct {
	Driver          string `toml:"driver"` // postgresql | memory
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	DBName          string `toml:"dbname"`
	SSLMode         string `toml:"sslmode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime_minutes"`
}

// DSN returns the connection string for the pgx stdlib driver.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type SCMConfig struct {
	GitHubAPIBase    string `toml:"github_api_base"`
	GitHubToken      string `toml:"github_token"`
	BitbucketAPIBase string `toml:"bitbucket_api_base"`
	BitbucketToken   string `toml:"bitbucket_token"`
	GitLabAPIBase    string `toml:"gitlab_api_base"`
	GitLabToken      string `toml:"gitlab_token"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
}

func (c SCMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type RegistryConfig struct {
	DockerConfigFile string `toml:"docker_config_file"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
	// Scheme used to reach registries, https except in tests.
	Scheme string `toml:"scheme"`
}

type CheckURLConfig struct {
	Endpoint       string `toml:"endpoint"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type RefreshConfig struct {
	FetchConcurrency int `toml:"fetch_concurrency"`
	MaxImportDepth   int `toml:"max_import_depth"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // json | console
}

func DefaultConfig() *ConfigParam {
	return &ConfigParam{
		Server: ServerConfig{
			ListenAddr:  ":8080",
			CORSOrigin:  "http://localhost:4200",
			ReadTimeout: 30,
		},
		DB: DBConfig{
			Driver:          "postgresql",
			Host:            "localhost",
			Port:            5432,
			User:            "dockstore",
			DBName:          "dockstore",
			SSLMode:         "disable",
			MaxOpenConns:    50,
			MaxIdleConns:    4,
			ConnMaxLifetime: 5,
		},
		SCM: SCMConfig{
			GitHubAPIBase:    "https://api.github.com",
			BitbucketAPIBase: "https://api.bitbucket.org/2.0",
			GitLabAPIBase:    "https://gitlab.com/api/v4",
			TimeoutSeconds:   20,
		},
		Registry: RegistryConfig{
			TimeoutSeconds: 10,
			Scheme:         "https",
		},
		CheckURL: CheckURLConfig{
			TimeoutSeconds: 10,
		},
		Refresh: RefreshConfig{
			FetchConcurrency: 4,
			MaxImportDepth:   10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

var (
	cfg   = DefaultConfig()
	cfgMu sync.RWMutex
)

// Config returns the active configuration.
func Config() *ConfigParam {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return cfg
}

// SetConfig replaces the active configuration.
func SetConfig(c *ConfigParam) {
	cfgMu.Lock()
	defer cfgMu.Unlock()
	cfg = c
}

// LoadConfig reads a TOML file over the defaults and applies environment overrides.
// An empty path yields the defaults with overrides.
func LoadConfig(path string) (*ConfigParam, error) {
	c := DefaultConfig()
	if path != "" {
		if _, err := toml.DecodeFile(path, c); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	applyEnv(c)
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

var tokenEnvVars = map[string][]string{
	"github":    {"GITHUB_TOKEN", "GH_TOKEN"},
	"bitbucket": {"BITBUCKET_TOKEN"},
	"gitlab":    {"GITLAB_TOKEN"},
}

func firstEnv(names []string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

func applyEnv(c *ConfigParam) {
	if v := os.Getenv("HATCH_DB_PASSWORD"); v != "" {
		c.DB.Password = v
	}
	if c.SCM.GitHubToken == "" {
		c.SCM.GitHubToken = firstEnv(tokenEnvVars["github"])
	}
	if c.SCM.BitbucketToken == "" {
		c.SCM.BitbucketToken = firstEnv(tokenEnvVars["bitbucket"])
	}
	if c.SCM.GitLabToken == "" {
		c.SCM.GitLabToken = firstEnv(tokenEnvVars["gitlab"])
	}
}

func (c *ConfigParam) validate() error {
	switch c.DB.Driver {
	case "postgresql", "memory":
	default:
		return fmt.Errorf("unsupported db driver %q", c.DB.Driver)
	}
	if c.Refresh.FetchConcurrency <= 0 {
		c.Refresh.FetchConcurrency = 1
	}
	if c.Refresh.MaxImportDepth <= 0 {
		c.Refresh.MaxImportDepth = 10
	}
	if c.Registry.Scheme == "" {
		c.Registry.Scheme = "https"
	}
	return nil
}
