package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds one analysis run's settings.
type Config struct {
	Root string `yaml:"root"`

	Walker struct {
		Include  []string `yaml:"include"`
		Exclude  []string `yaml:"exclude"`
		MaxDepth int      `yaml:"max_depth"` // 0 means unlimited
	} `yaml:"walker"`

	Resolver struct {
		IDSuffix string   `yaml:"id_suffix"`
		IDTypes  []string `yaml:"id_types"`
	} `yaml:"resolver"`

	History struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"history"`

	Pipeline struct {
		Workers     int           `yaml:"workers"` // 0 means GOMAXPROCS
		FileTimeout time.Duration `yaml:"file_timeout"`
	} `yaml:"pipeline"`

	Output struct {
		Dir     string   `yaml:"dir"`
		Formats []string `yaml:"formats"` // structured, html, excel
	} `yaml:"output"`
}

// Default returns the configuration used when no file or flags override it.
func Default() *Config {
	cfg := &Config{Root: "."}
	cfg.Resolver.IDSuffix = "_id"
	cfg.Resolver.IDTypes = []string{"int", "str", "UUID", "uuid.UUID"}
	cfg.History.Enabled = true
	cfg.Pipeline.FileTimeout = 10 * time.Second
	cfg.Output.Dir = "modelmap-out"
	cfg.Output.Formats = []string{"structured", "html", "excel"}
	return cfg
}

// Load reads a YAML config file and applies environment overrides on top
// of the defaults. A missing file is not an error; env vars still apply.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// optional file
		case err != nil:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if root := os.Getenv("MODELMAP_ROOT"); root != "" {
		cfg.Root = root
	}
	if dir := os.Getenv("MODELMAP_OUTPUT_DIR"); dir != "" {
		cfg.Output.Dir = dir
	}
	if formats := os.Getenv("MODELMAP_FORMATS"); formats != "" {
		cfg.Output.Formats = splitList(formats)
	}
	if exclude := os.Getenv("MODELMAP_EXCLUDE"); exclude != "" {
		cfg.Walker.Exclude = splitList(exclude)
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("root path must not be empty")
	}
	if c.Pipeline.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.FileTimeout < 0 {
		return fmt.Errorf("file timeout must be >= 0, got %s", c.Pipeline.FileTimeout)
	}
	for _, f := range c.Output.Formats {
		switch f {
		case "structured", "html", "excel":
		default:
			return fmt.Errorf("unknown output format %q", f)
		}
	}
	return nil
}

// WantsFormat reports whether the given renderer family was requested.
func (c *Config) WantsFormat(name string) bool {
	for _, f := range c.Output.Formats {
		if f == name {
			return true
		}
	}
	return false
}
