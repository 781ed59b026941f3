package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file looked up in the work directory.
const DefaultFile = "mrequires.yaml"

// StateDir holds runtime files (status, lock, history) under the root.
const StateDir = ".mrequires"

// Target is one bundle to produce from an entry file. Output paths are
// relative to Root; an empty path disables that mode.
type Target struct {
	Entry      string `yaml:"entry"`
	JS         string `yaml:"js,omitempty"`
	CSS        string `yaml:"css,omitempty"`
	Img        string `yaml:"img,omitempty"`
	JSFiles    string `yaml:"jsfiles,omitempty"`
	CopyImages bool   `yaml:"copy_images,omitempty"`
}

// Outputs maps mode names to configured output paths.
func (t Target) Outputs() map[string]string {
	out := make(map[string]string, 4)
	for mode, path := range map[string]string{
		"js":      t.JS,
		"css":     t.CSS,
		"img":     t.Img,
		"jsfiles": t.JSFiles,
	} {
		if path != "" {
			out[mode] = path
		}
	}
	return out
}

type WatchConfig struct {
	IgnorePatterns []string `yaml:"ignore_patterns"`
	Extensions     []string `yaml:"extensions"`
	DebounceMs     int      `yaml:"debounce_ms"`
	MaxWaitMs      int      `yaml:"max_wait_ms"`
}

type ServeConfig struct {
	Addr string `yaml:"addr"`
}

// Config holds runtime configuration for the bundler.
type Config struct {
	Root       string            `yaml:"root"`
	Directive  string            `yaml:"directive"`
	LogLevel   string            `yaml:"log_level"`
	Namespaces map[string]string `yaml:"namespaces"`
	Targets    []Target          `yaml:"targets,omitempty"`
	Watch      WatchConfig       `yaml:"watch"`
	Serve      ServeConfig       `yaml:"serve"`

	source string
}

// Default returns a baseline configuration.
func Default() Config {
	return Config{
		Root:       ".",
		Directive:  "mRequires",
		LogLevel:   "info",
		Namespaces: map[string]string{"": "js"},
		Watch: WatchConfig{
			IgnorePatterns: []string{".git", "node_modules", StateDir},
			Extensions:     []string{".js", ".css"},
			DebounceMs:     300,
			MaxWaitMs:      2000,
		},
		Serve: ServeConfig{Addr: ":8080"},
	}
}

// Load reads configuration from a YAML file. Missing files fall back to defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return &cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.source = path
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	if err := validateSchema(data); err != nil {
		return nil, fmt.Errorf("config: %q: %w", path, err)
	}

	// Namespaces from the file replace the default mapping rather than merge.
	cfg.Namespaces = nil
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	if cfg.Namespaces == nil {
		cfg.Namespaces = Default().Namespaces
	}
	cfg.source = path
	return &cfg, nil
}

// Source returns the path the configuration was loaded from.
func (c *Config) Source() string {
	return c.source
}

// ApplyOverrides mutates the configuration with values supplied via CLI flags.
func (c *Config) ApplyOverrides(root, logLevel, addr string, namespaces map[string]string) {
	if root != "" {
		c.Root = root
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	if addr != "" {
		c.Serve.Addr = addr
	}
	if len(namespaces) > 0 {
		c.Namespaces = namespaces
	}
}

// Normalize resolves Root to an absolute path and fills zero values.
func (c *Config) Normalize() error {
	base := filepath.Dir(c.source)
	if base == "." || base == "" {
		if wd, err := os.Getwd(); err == nil {
			base = wd
		}
	}

	if c.Root == "" {
		c.Root = "."
	}
	if !filepath.IsAbs(c.Root) {
		root, err := filepath.Abs(filepath.Join(base, c.Root))
		if err != nil {
			return fmt.Errorf("config: resolve root: %w", err)
		}
		c.Root = root
	}

	def := Default()
	if c.Directive == "" {
		c.Directive = def.Directive
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.Watch.DebounceMs <= 0 {
		c.Watch.DebounceMs = def.Watch.DebounceMs
	}
	if c.Watch.MaxWaitMs <= 0 {
		c.Watch.MaxWaitMs = def.Watch.MaxWaitMs
	}
	if len(c.Watch.Extensions) == 0 {
		c.Watch.Extensions = def.Watch.Extensions
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = def.Serve.Addr
	}
	return nil
}

// ValidationError lists every problem found by Validate.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "config: invalid: " + strings.Join(e.Problems, "; ")
}

// Validate performs semantic checks the schema cannot express.
func (c *Config) Validate() error {
	var problems []string
	if c.Root == "" {
		problems = append(problems, "root required")
	}
	if _, ok := c.Namespaces[""]; !ok {
		problems = append(problems, `namespaces: default namespace "" required`)
	}
	if c.Directive != "" && strings.ContainsAny(c.Directive, "() \t\n") {
		problems = append(problems, fmt.Sprintf("directive %q must be a bare identifier", c.Directive))
	}
	for i, t := range c.Targets {
		if t.Entry == "" {
			problems = append(problems, fmt.Sprintf("targets[%d]: entry required", i))
		}
		if len(t.Outputs()) == 0 {
			problems = append(problems, fmt.Sprintf("targets[%d]: at least one of js/css/img/jsfiles required", i))
		}
		if t.CopyImages && t.CSS == "" {
			problems = append(problems, fmt.Sprintf("targets[%d]: copy_images needs a css output", i))
		}
	}
	if c.Watch.MaxWaitMs > 0 && c.Watch.DebounceMs > c.Watch.MaxWaitMs {
		problems = append(problems, "watch: debounce_ms must not exceed max_wait_ms")
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// StatePath returns the runtime state directory under Root.
func (c *Config) StatePath() string {
	return filepath.Join(c.Root, StateDir)
}

// PrettyYAML renders the configuration as YAML for diagnostics.
func (c Config) PrettyYAML() string {
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("%+v", c)
	}
	return string(out)
}
