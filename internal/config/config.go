package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	dbFileName = "staging.db"
	envPrefix  = "FERRY"
)

// Config holds every setting of a run.
type Config struct {
	Source  SourceConfig  `mapstructure:"source" json:"source"`
	Target  TargetConfig  `mapstructure:"target" json:"target"`
	Import  ImportConfig  `mapstructure:"import" json:"import"`
	Retry   RetryConfig   `mapstructure:"retry" json:"retry"`
	Staging StagingConfig `mapstructure:"staging" json:"staging"`
	UserMap string        `mapstructure:"usermap" json:"usermap,omitempty"`
	Log     LogConfig     `mapstructure:"log" json:"log"`

	// ConfigFile is the file settings were read from, if any.
	ConfigFile string `mapstructure:"-" json:"config_file,omitempty"`
	// EnvVarSet reports whether FERRY_PATH chose the staging directory.
	EnvVarSet bool `mapstructure:"-" json:"env_var_set"`
}

type SourceConfig struct {
	Project  string `mapstructure:"project" json:"project,omitempty"`
	BaseURL  string `mapstructure:"base_url" json:"base_url"`
	PageSize int    `mapstructure:"page_size" json:"page_size"`
}

type TargetConfig struct {
	Owner   string `mapstructure:"owner" json:"owner,omitempty"`
	Org     string `mapstructure:"org" json:"org,omitempty"`
	Repo    string `mapstructure:"repo" json:"repo,omitempty"`
	Token   string `mapstructure:"token" json:"-"`
	BaseURL string `mapstructure:"base_url" json:"base_url,omitempty"`
}

type ImportConfig struct {
	SkipClosed    bool          `mapstructure:"skip_closed" json:"skip_closed"`
	MaxCount      int           `mapstructure:"max_count" json:"max_count"`
	RateLimitWarn int           `mapstructure:"rate_limit_warn" json:"rate_limit_warn"`
	BodyLimit     int           `mapstructure:"body_limit" json:"body_limit"`
	CommentPause  time.Duration `mapstructure:"comment_pause" json:"comment_pause"`
}

type RetryConfig struct {
	Interval    time.Duration `mapstructure:"interval" json:"interval"`
	MaxAttempts int           `mapstructure:"max_attempts" json:"max_attempts"`
}

type StagingConfig struct {
	Dir string `mapstructure:"dir" json:"dir"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
	File   string `mapstructure:"file" json:"file,omitempty"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			BaseURL:  "http://%s.codeplex.com",
			PageSize: 100,
		},
		Import: ImportConfig{
			MaxCount:      -1,
			RateLimitWarn: 100,
			BodyLimit:     60 * 1024,
			CommentPause:  2 * time.Second,
		},
		Retry: RetryConfig{
			Interval:    10 * time.Second,
			MaxAttempts: 60,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads settings from .env files, the environment (FERRY_ prefix,
// nested keys joined by underscores) and an optional YAML file. An empty
// path searches .ferry/config.yaml, ./config.yaml and ~/.ferry/config.yaml.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, Default())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".ferry")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".ferry"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.resolveStagingDir(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("source.project", d.Source.Project)
	v.SetDefault("source.base_url", d.Source.BaseURL)
	v.SetDefault("source.page_size", d.Source.PageSize)
	v.SetDefault("target.owner", d.Target.Owner)
	v.SetDefault("target.org", d.Target.Org)
	v.SetDefault("target.repo", d.Target.Repo)
	v.SetDefault("target.token", d.Target.Token)
	v.SetDefault("target.base_url", d.Target.BaseURL)
	v.SetDefault("import.skip_closed", d.Import.SkipClosed)
	v.SetDefault("import.max_count", d.Import.MaxCount)
	v.SetDefault("import.rate_limit_warn", d.Import.RateLimitWarn)
	v.SetDefault("import.body_limit", d.Import.BodyLimit)
	v.SetDefault("import.comment_pause", d.Import.CommentPause)
	v.SetDefault("retry.interval", d.Retry.Interval)
	v.SetDefault("retry.max_attempts", d.Retry.MaxAttempts)
	v.SetDefault("staging.dir", d.Staging.Dir)
	v.SetDefault("usermap", d.UserMap)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
}

// loadEnvFiles loads .env.local before .env; godotenv never overrides a
// variable that is already set, so the first file wins.
func loadEnvFiles() {
	for _, file := range []string{".env.local", ".env"} {
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Load(file)
		}
	}
}

// resolveStagingDir picks the staging directory: FERRY_PATH first, then
// staging.dir, then $PWD/.ferry.
func (c *Config) resolveStagingDir() error {
	if envPath := os.Getenv("FERRY_PATH"); envPath != "" {
		c.Staging.Dir = envPath
		c.EnvVarSet = true
		return nil
	}
	if c.Staging.Dir != "" {
		return nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	c.Staging.Dir = filepath.Join(cwd, ".ferry")
	return nil
}

// DBPath returns the path of the staging database.
func (c *Config) DBPath() string {
	return filepath.Join(c.Staging.Dir, dbFileName)
}

// Exists checks if the staging directory and DB file both exist.
// It returns an error for non-existence failures (e.g. permission errors).
func (c *Config) Exists() (bool, error) {
	if _, err := os.Stat(c.Staging.Dir); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if _, err := os.Stat(c.DBPath()); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Validate checks settings that have no usable fallback.
func (c *Config) Validate() error {
	var problems []string
	if c.Source.PageSize <= 0 {
		problems = append(problems, "source.page_size must be positive")
	}
	if c.Import.BodyLimit <= 0 {
		problems = append(problems, "import.body_limit must be positive")
	}
	if c.Import.CommentPause < 0 {
		problems = append(problems, "import.comment_pause must not be negative")
	}
	if c.Retry.Interval < 0 {
		problems = append(problems, "retry.interval must not be negative")
	}
	if c.Retry.MaxAttempts < 0 {
		problems = append(problems, "retry.max_attempts must not be negative")
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q must be text or json", c.Log.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ValidateSource reports a missing source project.
func (c *Config) ValidateSource() error {
	if c.Source.Project == "" {
		return fmt.Errorf("source project is not set: pass it as an argument or set source.project")
	}
	return nil
}

// ValidateTarget reports a missing target repository.
func (c *Config) ValidateTarget() error {
	if c.Target.Repo == "" {
		return fmt.Errorf("target repository is not set: pass owner/repo as an argument or set target.repo")
	}
	return nil
}
