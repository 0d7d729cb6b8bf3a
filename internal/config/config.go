package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/solrfacet/internal/domain/facet"
)

// Config holds the solrfacet service configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Solr     SolrConfig     `yaml:"solr"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Session  SessionConfig  `yaml:"session"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
	Widgets  []WidgetConfig `yaml:"widgets"`
	Defaults []ParamConfig  `yaml:"defaults"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds session store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis, memory (default: valkey)
	Addrs            []string `yaml:"addrs"`
	URL              string   `yaml:"url"` // redis driver only
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// SolrConfig holds the search backend settings.
type SolrConfig struct {
	BaseURL    string `yaml:"base_url"`
	Core       string `yaml:"core"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// KafkaConfig holds selection event settings. No brokers disables publishing.
type KafkaConfig struct {
	Brokers        []string `yaml:"brokers"`
	Topic          string   `yaml:"topic"`
	BatchTimeoutMs int      `yaml:"batch_timeout_ms"`
}

// SessionConfig holds session persistence settings.
type SessionConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
	TTLSec    int    `yaml:"ttl_sec"`
}

// WidgetConfig declares one facet widget.
type WidgetConfig struct {
	ID         string            `yaml:"id"`
	Field      string            `yaml:"field"`
	Kind       string            `yaml:"kind"` // field, date, range or empty
	Multivalue *bool             `yaml:"multivalue"` // default true
	Union      bool              `yaml:"union"`
	Tag        string            `yaml:"tag"`
	Key        string            `yaml:"key"`
	Ex         string            `yaml:"ex"`
	Options    map[string]string `yaml:"options"`
}

// ParamConfig is a parameter every session starts with.
type ParamConfig struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// IsMultivalue reports the multivalue flag. Widgets are multivalue unless
// the file says otherwise.
func (w WidgetConfig) IsMultivalue() bool {
	return w.Multivalue == nil || *w.Multivalue
}

// Facet converts the declaration into a facet.Config. Options are ordered by name.
func (w WidgetConfig) Facet() (facet.Config, error) {
	kind, err := facet.ParseKind(w.Kind)
	if err != nil {
		return facet.Config{}, fmt.Errorf("widget %q: %w", w.ID, err)
	}
	names := make([]string, 0, len(w.Options))
	for name := range w.Options {
		names = append(names, name)
	}
	slices.Sort(names)
	opts := make([]facet.Option, 0, len(names))
	for _, name := range names {
		opts = append(opts, facet.Option{Name: name, Value: w.Options[name]})
	}
	return facet.Config{
		ID:         w.ID,
		Field:      w.Field,
		Kind:       kind,
		Multivalue: w.IsMultivalue(),
		Union:      w.Union,
		Tag:        w.Tag,
		Key:        w.Key,
		Ex:         w.Ex,
		Options:    opts,
	}, nil
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${VAR} references and applying defaults.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Solr.TimeoutSec <= 0 {
		c.Solr.TimeoutSec = 10
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "solrfacet.selections"
	}
	if c.Kafka.BatchTimeoutMs <= 0 {
		c.Kafka.BatchTimeoutMs = 50
	}
	if c.Session.KeyPrefix == "" {
		c.Session.KeyPrefix = "solrfacet:"
	}
	if c.Session.TTLSec <= 0 {
		c.Session.TTLSec = 86400
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "valkey":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required")
		}
	case "redis":
		if len(c.Database.Addrs) == 0 && c.Database.URL == "" {
			return fmt.Errorf("database.addrs or database.url is required")
		}
	case "memory":
	default:
		return fmt.Errorf("database.driver must be valkey, redis or memory, got %q", c.Database.Driver)
	}
	if c.Solr.BaseURL == "" {
		return fmt.Errorf("solr.base_url is required")
	}
	if c.Solr.Core == "" {
		return fmt.Errorf("solr.core is required")
	}
	if len(c.Widgets) == 0 {
		return fmt.Errorf("at least one widget is required")
	}
	seen := make(map[string]struct{}, len(c.Widgets))
	for i, w := range c.Widgets {
		if w.ID == "" {
			return fmt.Errorf("widgets[%d].id is required", i)
		}
		if _, dup := seen[w.ID]; dup {
			return fmt.Errorf("duplicate widget id %q", w.ID)
		}
		seen[w.ID] = struct{}{}
		fc, err := w.Facet()
		if err != nil {
			return err
		}
		if _, err := facet.New(fc); err != nil {
			return err
		}
	}
	for i, d := range c.Defaults {
		if d.Name == "" {
			return fmt.Errorf("defaults[%d].name is required", i)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
