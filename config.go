package thumbnark

import (
	"fmt"
	"os"
	"runtime"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/eon-protocol/thumbnark/circuits/thumbnail"
)

type Config struct {
	Ratio       int         `yaml:"ratio"`
	Position    int         `yaml:"position"`
	Source      string      `yaml:"source"`
	Output      string      `yaml:"output"`
	Certificate string      `yaml:"certificate"`
	Format      PixelFormat `yaml:"format"`
	Truncate    bool        `yaml:"truncate"`
	BindSource  bool        `yaml:"bindSource"`
	Seed        string      `yaml:"seed"`
	Workers     int         `yaml:"workers"`
	CacheDir    string      `yaml:"cacheDir"`
	LogLevel    string      `yaml:"logLevel"`
}

func DefaultConfig() Config {
	return Config{
		Ratio:    DEFAULT_RATIO,
		Position: DEFAULT_POSITION,
		Source:   "demo.jpg",
		Output:   "thumbnail.png",
		Format:   RGBA8,
		Workers:  runtime.NumCPU(),
		LogLevel: "info",
	}
}

// LoadConfig overlays the YAML file at path on DefaultConfig.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	file, err := os.Open(path)
	if err != nil {
		return config, fail(ErrConfig, err, "open config")
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return config, fail(ErrConfig, err, "decode config")
	}
	return config, config.Validate()
}

// SaveConfig writes c as YAML.
func SaveConfig(path string, c Config) error {
	b, err := yaml.Marshal(&c)
	if err != nil {
		return fail(ErrConfig, err, "encode config")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fail(ErrIO, err, "write config")
	}
	return nil
}

func (c Config) Validate() error {
	if c.Ratio < 1 {
		return fmt.Errorf("%w: ratio must be >= 1, got %d", ErrConfig, c.Ratio)
	}
	if c.Position < 0 || c.Position >= c.Ratio*c.Ratio {
		return fmt.Errorf("%w: position must be in [0, %d), got %d", ErrConfig, c.Ratio*c.Ratio, c.Position)
	}
	if err := c.Format.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0, got %d", ErrConfig, c.Workers)
	}
	if c.LogLevel != "" {
		if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
			return fail(ErrConfig, err, "log level")
		}
	}
	return nil
}

// Shape is the circuit shape for blocks instances.
func (c Config) Shape(blocks int) thumbnail.Shape {
	return thumbnail.Shape{
		Ratio:      c.Ratio,
		Position:   c.Position,
		Blocks:     blocks,
		BindSource: c.BindSource,
	}
}

// Level is the parsed log level, info when unset.
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}
