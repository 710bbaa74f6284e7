package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"llmsvc/internal/logx"
)

// Tool describes the wrapped model-serving tool installed into the venv.
type Tool struct {
	Package     string   `json:"package" yaml:"package" toml:"package"`
	Binary      string   `json:"binary" yaml:"binary" toml:"binary"`
	ListArgs    []string `json:"list_args" yaml:"list_args" toml:"list_args"`
	BackendFlag string   `json:"backend_flag" yaml:"backend_flag" toml:"backend_flag"`
	GGUFBackend string   `json:"gguf_backend" yaml:"gguf_backend" toml:"gguf_backend"`
	PortFlag    string   `json:"port_flag" yaml:"port_flag" toml:"port_flag"`
}

// Config holds provisioning parameters.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	StorageDir      string   `json:"storage_dir" yaml:"storage_dir" toml:"storage_dir"`
	User            string   `json:"user" yaml:"user" toml:"user"`
	Group           string   `json:"group" yaml:"group" toml:"group"`
	BasePort        int      `json:"base_port" yaml:"base_port" toml:"base_port"`
	UnitPrefix      string   `json:"unit_prefix" yaml:"unit_prefix" toml:"unit_prefix"`
	UnitDir         string   `json:"unit_dir" yaml:"unit_dir" toml:"unit_dir"`
	RestartSec      int      `json:"restart_sec" yaml:"restart_sec" toml:"restart_sec"`
	StorageMode     string   `json:"storage_mode" yaml:"storage_mode" toml:"storage_mode"`
	SystemPackages  []string `json:"system_packages" yaml:"system_packages" toml:"system_packages"`
	MetricsTextfile string   `json:"metrics_textfile" yaml:"metrics_textfile" toml:"metrics_textfile"`
	Tool            Tool     `json:"tool" yaml:"tool" toml:"tool"`
}

const (
	DefaultStorageDir  = "/var/lib/llmsvc"
	DefaultUser        = "llmsvc"
	DefaultBasePort    = 3000
	DefaultUnitPrefix  = "llmsvc"
	DefaultUnitDir     = "/etc/systemd/system"
	DefaultRestartSec  = 5
	DefaultStorageMode = "0750"
)

// Default returns a Config with every field populated.
func Default() Config {
	var cfg Config
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.StorageDir == "" {
		c.StorageDir = DefaultStorageDir
	}
	if c.User == "" {
		c.User = DefaultUser
	}
	if c.Group == "" {
		c.Group = c.User
	}
	if c.BasePort == 0 {
		c.BasePort = DefaultBasePort
	}
	if c.UnitPrefix == "" {
		c.UnitPrefix = DefaultUnitPrefix
	}
	if c.UnitDir == "" {
		c.UnitDir = DefaultUnitDir
	}
	if c.RestartSec == 0 {
		c.RestartSec = DefaultRestartSec
	}
	if c.StorageMode == "" {
		c.StorageMode = DefaultStorageMode
	}
	if c.Tool.Package == "" {
		c.Tool.Package = "llm-serve"
	}
	if c.Tool.Binary == "" {
		c.Tool.Binary = c.Tool.Package
	}
	if len(c.Tool.ListArgs) == 0 {
		c.Tool.ListArgs = []string{"list", "--format", "json"}
	}
	if c.Tool.BackendFlag == "" {
		c.Tool.BackendFlag = "--backend"
	}
	if c.Tool.GGUFBackend == "" {
		c.Tool.GGUFBackend = "llamacpp"
	}
	if c.Tool.PortFlag == "" {
		c.Tool.PortFlag = "--port"
	}
}

// ApplyEnv overrides fields from LLMSVC_* environment variables.
func (c *Config) ApplyEnv() {
	c.StorageDir = logx.EnvStr("LLMSVC_STORAGE_DIR", c.StorageDir)
	c.User = logx.EnvStr("LLMSVC_USER", c.User)
	c.Group = logx.EnvStr("LLMSVC_GROUP", c.Group)
	c.BasePort = logx.EnvInt("LLMSVC_BASE_PORT", c.BasePort)
}

func (c Config) Validate() error {
	if !filepath.IsAbs(c.StorageDir) {
		return fmt.Errorf("storage_dir must be absolute: %q", c.StorageDir)
	}
	if c.User == "" || c.Group == "" {
		return fmt.Errorf("user and group must be set")
	}
	if c.BasePort < 1 || c.BasePort > 65535 {
		return fmt.Errorf("base_port out of range: %d", c.BasePort)
	}
	if c.RestartSec < 0 {
		return fmt.Errorf("restart_sec must not be negative: %d", c.RestartSec)
	}
	if _, err := c.Mode(); err != nil {
		return err
	}
	if strings.ContainsAny(c.UnitPrefix, "/ ") {
		return fmt.Errorf("unit_prefix contains invalid characters: %q", c.UnitPrefix)
	}
	return nil
}

// Mode parses StorageMode as an octal permission mask.
func (c Config) Mode() (os.FileMode, error) {
	m, err := strconv.ParseUint(c.StorageMode, 8, 32)
	if err != nil || m > 0o777 {
		return 0, fmt.Errorf("storage_mode must be octal permissions: %q", c.StorageMode)
	}
	return os.FileMode(m), nil
}

// VenvDir is the isolated runtime environment inside the storage directory.
func (c Config) VenvDir() string { return filepath.Join(c.StorageDir, ".venv") }

// ToolPath is the wrapped tool's executable inside the venv.
func (c Config) ToolPath() string { return filepath.Join(c.VenvDir(), "bin", c.Tool.Binary) }

// Load reads a configuration file based on its extension and applies defaults.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	cfg, err := decode(path)
	if err != nil {
		return cfg, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

func decode(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Resolve loads path when non-empty, applies env overrides, then defaults,
// and validates. Defaults come last so an unset group follows LLMSVC_USER.
func Resolve(path string) (Config, error) {
	var cfg Config
	if path != "" {
		var err error
		if cfg, err = decode(path); err != nil {
			return cfg, err
		}
	}
	cfg.ApplyEnv()
	cfg.ApplyDefaults()
	return cfg, cfg.Validate()
}
