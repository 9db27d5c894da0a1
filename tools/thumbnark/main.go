package main

import (
	"log"
	"os"
	"time"

	"github.com/consensys/gnark/logger"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/eon-protocol/thumbnark"
)

var configPath string
var overrides thumbnark.Config

var rootCmd = &cobra.Command{
	Use:           "thumbnark",
	Short:         "Prove that a thumbnail was selected from a source image",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	defaults := thumbnark.DefaultConfig()
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "YAML config file")
	flags.IntVarP(&overrides.Ratio, "ratio", "n", defaults.Ratio, "block side in source pixels")
	flags.IntVarP(&overrides.Position, "position", "p", defaults.Position, "selected in-block index, i*n+j")
	flags.StringVarP(&overrides.Source, "source", "s", defaults.Source, "source image")
	flags.StringVarP(&overrides.Output, "output", "o", defaults.Output, "thumbnail path (PNG)")
	flags.StringVar(&overrides.Certificate, "certificate", "", "certificate path")
	flags.StringVar((*string)(&overrides.Format), "format", string(defaults.Format), "pixel format: rgba8 or rgba16")
	flags.BoolVar(&overrides.Truncate, "truncate", false, "drop trailing rows and columns")
	flags.BoolVar(&overrides.BindSource, "bind-source", false, "also prove a digest of every source pixel")
	flags.StringVar(&overrides.Seed, "seed", "", "seed for a reproducible setup")
	flags.IntVar(&overrides.Workers, "workers", defaults.Workers, "parallel block encoders")
	flags.StringVar(&overrides.CacheDir, "cache-dir", "", "setup cache directory, used with --seed")
	flags.StringVar(&overrides.LogLevel, "log-level", defaults.LogLevel, "log level")

	rootCmd.AddCommand(runCmd, proveCmd, verifyCmd, benchCmd)
}

// loadConfig applies the config file, then every flag set on the command line.
func loadConfig(cmd *cobra.Command) thumbnark.Config {
	config := thumbnark.DefaultConfig()
	if configPath != "" {
		var err error
		if config, err = thumbnark.LoadConfig(configPath); err != nil {
			log.Fatalln(err)
		}
	}
	flags := cmd.Flags()
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	set("ratio", func() { config.Ratio = overrides.Ratio })
	set("position", func() { config.Position = overrides.Position })
	set("source", func() { config.Source = overrides.Source })
	set("output", func() { config.Output = overrides.Output })
	set("certificate", func() { config.Certificate = overrides.Certificate })
	set("format", func() { config.Format = overrides.Format })
	set("truncate", func() { config.Truncate = overrides.Truncate })
	set("bind-source", func() { config.BindSource = overrides.BindSource })
	set("seed", func() { config.Seed = overrides.Seed })
	set("workers", func() { config.Workers = overrides.Workers })
	set("cache-dir", func() { config.CacheDir = overrides.CacheDir })
	set("log-level", func() { config.LogLevel = overrides.LogLevel })
	if err := config.Validate(); err != nil {
		log.Fatalln(err)
	}

	l := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger().
		Level(config.Level())
	logger.Set(l)
	return config
}

// progress draws a bar over block encoding once the block count is known.
type progress struct {
	bar *progressbar.ProgressBar
}

func (p *progress) start(blocks int) {
	p.bar = progressbar.Default(int64(blocks), "encoding blocks")
}

func (p *progress) add() {
	if p.bar != nil {
		p.bar.Add(1)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalln(err)
	}
}
