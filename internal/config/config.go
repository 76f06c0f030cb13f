// Package config loads runner settings from uiflow.yaml, UIFLOW_* environment
// variables and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/gotrs-io/uiflow/internal/browser"
	"github.com/gotrs-io/uiflow/internal/profile"
	"github.com/gotrs-io/uiflow/internal/report"
	"github.com/gotrs-io/uiflow/internal/workflow"
)

// BaseURLEnv overrides every other base URL source
const BaseURLEnv = "APP_URL"

var (
	cfg *Config
	mu  sync.RWMutex
)

// Config is the complete runner configuration
type Config struct {
	Target  TargetConfig  `mapstructure:"target"`
	Browser BrowserConfig `mapstructure:"browser"`
	Timings TimingsConfig `mapstructure:"timings"`
	Run     RunConfig     `mapstructure:"run"`
	Report  ReportConfig  `mapstructure:"report"`
	History HistoryConfig `mapstructure:"history"`
	Lock    LockConfig    `mapstructure:"lock"`
	Monitor MonitorConfig `mapstructure:"monitor"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type TargetConfig struct {
	Profile     string `mapstructure:"profile"`
	ProfileFile string `mapstructure:"profile_file"`
	BaseURL     string `mapstructure:"base_url"`
}

type BrowserConfig struct {
	Headless      bool   `mapstructure:"headless"`
	Width         int    `mapstructure:"width"`
	Height        int    `mapstructure:"height"`
	NoSandbox     bool   `mapstructure:"no_sandbox"`
	SlowMo        int    `mapstructure:"slow_mo"`
	Install       bool   `mapstructure:"install"`
	ScreenshotDir string `mapstructure:"screenshot_dir"`
}

type TimingsConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	DialogWait     time.Duration `mapstructure:"dialog_wait"`
	AffordanceWait time.Duration `mapstructure:"affordance_wait"`
	SettleWait     time.Duration `mapstructure:"settle_wait"`
	DeleteWait     time.Duration `mapstructure:"delete_wait"`
	ClearCap       int           `mapstructure:"clear_cap"`
}

type RunConfig struct {
	Strict    bool          `mapstructure:"strict"`
	Only      []int         `mapstructure:"only"`
	WaitReady time.Duration `mapstructure:"wait_ready"`
}

type ReportConfig struct {
	Dir     string   `mapstructure:"dir"`
	Formats []string `mapstructure:"formats"`
}

type HistoryConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type LockConfig struct {
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	TTL           time.Duration `mapstructure:"ttl"`
}

type MonitorConfig struct {
	Schedule string `mapstructure:"schedule"`
	Listen   string `mapstructure:"listen"`
}

type LoggingConfig struct {
	Verbose bool `mapstructure:"verbose"`
}

// SetDefaults registers every key with its default on v
func SetDefaults(v *viper.Viper) {
	d := workflow.DefaultTimings()
	v.SetDefault("target.profile", profile.TaskManager)
	v.SetDefault("target.profile_file", "")
	v.SetDefault("target.base_url", "")

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.width", 1920)
	v.SetDefault("browser.height", 1080)
	v.SetDefault("browser.no_sandbox", true)
	v.SetDefault("browser.slow_mo", 0)
	v.SetDefault("browser.install", true)
	v.SetDefault("browser.screenshot_dir", "test-results/screenshots")

	v.SetDefault("timings.timeout", d.Timeout)
	v.SetDefault("timings.poll_interval", d.PollInterval)
	v.SetDefault("timings.dialog_wait", d.DialogWait)
	v.SetDefault("timings.affordance_wait", d.AffordanceWait)
	v.SetDefault("timings.settle_wait", d.SettleWait)
	v.SetDefault("timings.delete_wait", d.DeleteWait)
	v.SetDefault("timings.clear_cap", d.ClearCap)

	v.SetDefault("run.strict", false)
	v.SetDefault("run.only", []int{})
	v.SetDefault("run.wait_ready", time.Duration(0))

	v.SetDefault("report.dir", "test-results")
	v.SetDefault("report.formats", []string{"json", "junit", "markdown"})

	v.SetDefault("history.driver", "")
	v.SetDefault("history.dsn", "")

	v.SetDefault("lock.redis_addr", "")
	v.SetDefault("lock.redis_password", "")
	v.SetDefault("lock.ttl", 15*time.Minute)

	v.SetDefault("monitor.schedule", "0 */15 * * * *")
	v.SetDefault("monitor.listen", ":9090")

	v.SetDefault("logging.verbose", false)
}

// Loader owns the viper instance so callers can bind flags before Load
type Loader struct {
	v          *viper.Viper
	configFile string
	logger     *log.Logger
}

// NewLoader prepares defaults and UIFLOW_ environment binding. configFile
// may be empty, in which case uiflow.yaml is looked up in . and ./config.
func NewLoader(configFile string) *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("uiflow")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	SetDefaults(v)

	v.SetEnvPrefix("UIFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{
		v:          v,
		configFile: configFile,
		logger:     log.New(os.Stdout, "[CONFIG] ", log.LstdFlags),
	}
}

// Viper exposes the underlying instance for flag binding
func (l *Loader) Viper() *viper.Viper { return l.v }

// SetLogger replaces the loader's logger
func (l *Loader) SetLogger(logger *log.Logger) { l.logger = logger }

// Load reads the config file when present, unmarshals and validates the
// result and publishes it for Get
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if l.configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		l.logger.Printf("Using config file %s", l.v.ConfigFileUsed())
	}

	c, err := l.unmarshal()
	if err != nil {
		return nil, err
	}
	mu.Lock()
	cfg = c
	mu.Unlock()
	return c, nil
}

func (l *Loader) unmarshal() (*Config, error) {
	c := &Config{}
	if err := l.v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Watch reloads the configuration when the config file changes and passes
// each valid new version to onChange. Invalid edits keep the previous config.
func (l *Loader) Watch(onChange func(*Config)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		l.logger.Printf("Config file changed: %s", e.Name)
		newCfg, err := l.unmarshal()
		if err != nil {
			l.logger.Printf("Failed to reload config: %v", err)
			return
		}
		mu.Lock()
		cfg = newCfg
		mu.Unlock()
		l.logger.Println("Configuration reloaded successfully")
		if onChange != nil {
			onChange(newCfg)
		}
	})
	l.v.WatchConfig()
}

// Get returns the most recently loaded configuration
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// LoadDotEnv loads KEY=VALUE files into the environment without overriding
// variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Validate rejects settings no run could use
func (c *Config) Validate() error {
	var problems []string
	t := c.Timings
	for name, d := range map[string]time.Duration{
		"timeout":         t.Timeout,
		"poll_interval":   t.PollInterval,
		"dialog_wait":     t.DialogWait,
		"affordance_wait": t.AffordanceWait,
		"settle_wait":     t.SettleWait,
		"delete_wait":     t.DeleteWait,
	} {
		if d <= 0 {
			problems = append(problems, fmt.Sprintf("timings.%s must be positive", name))
		}
	}
	if t.ClearCap <= 0 {
		problems = append(problems, "timings.clear_cap must be positive")
	}
	if c.Browser.Width <= 0 || c.Browser.Height <= 0 {
		problems = append(problems, "browser viewport must be positive")
	}
	if c.Target.Profile == "" && c.Target.ProfileFile == "" {
		problems = append(problems, "target.profile or target.profile_file is required")
	}
	if _, err := report.ParseFormats(c.Report.Formats); err != nil {
		problems = append(problems, err.Error())
	}
	for _, pos := range c.Run.Only {
		if pos <= 0 {
			problems = append(problems, fmt.Sprintf("run.only position %d must be positive", pos))
		}
	}
	if c.History.DSN != "" && c.History.Driver == "" {
		problems = append(problems, "history.driver is required when history.dsn is set")
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
}

// Profile resolves the target profile from a file or the built-ins
func (c *Config) Profile() (*profile.Profile, error) {
	return profile.Resolve(c.Target.Profile, c.Target.ProfileFile)
}

// BaseURL applies the precedence APP_URL, then target.base_url, then the
// profile default
func (c *Config) BaseURL(p *profile.Profile) string {
	if v := strings.TrimSpace(os.Getenv(BaseURLEnv)); v != "" {
		return v
	}
	if c.Target.BaseURL != "" {
		return c.Target.BaseURL
	}
	return p.DefaultURL
}

// WorkflowTimings converts the timings section
func (c *Config) WorkflowTimings() workflow.Timings {
	t := c.Timings
	return workflow.Timings{
		Timeout:        t.Timeout,
		PollInterval:   t.PollInterval,
		DialogWait:     t.DialogWait,
		AffordanceWait: t.AffordanceWait,
		SettleWait:     t.SettleWait,
		DeleteWait:     t.DeleteWait,
		ClearCap:       t.ClearCap,
	}
}

// LaunchOptions converts the browser section
func (c *Config) LaunchOptions() browser.LaunchOptions {
	b := c.Browser
	return browser.LaunchOptions{
		Headless:      b.Headless,
		Width:         b.Width,
		Height:        b.Height,
		NoSandbox:     b.NoSandbox,
		SlowMo:        time.Duration(b.SlowMo) * time.Millisecond,
		Install:       b.Install,
		ActionTimeout: c.Timings.Timeout,
	}
}

// ReportFormats returns the validated report formats
func (c *Config) ReportFormats() []report.Format {
	formats, _ := report.ParseFormats(c.Report.Formats)
	return formats
}
