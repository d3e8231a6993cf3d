// Package config loads melodygen settings from a YAML file, the environment
// and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/rcliao/melodygen/internal/model"
)

const (
	AppName   = "melodygen"
	EnvPrefix = "MELODYGEN"
)

// Config stores all configuration of the application.
type Config struct {
	DatasetDir          string           `mapstructure:"dataset_dir"`
	CorpusPath          string           `mapstructure:"corpus_path"`
	MappingPath         string           `mapstructure:"mapping_path"`
	DBPath              string           `mapstructure:"db_path"`
	SequenceLength      int              `mapstructure:"sequence_length"`
	TimeStep            float64          `mapstructure:"time_step"`
	AcceptableDurations []float64        `mapstructure:"acceptable_durations"`
	Workers             int              `mapstructure:"workers"`
	Model               ModelConfig      `mapstructure:"model"`
	Generation          GenerationConfig `mapstructure:"generation"`
	MIDI                MIDIConfig       `mapstructure:"midi"`
	Log                 LogConfig        `mapstructure:"log"`
	Server              ServerConfig     `mapstructure:"server"`
}

// ModelConfig selects the sequence model.
type ModelConfig struct {
	Provider string  `mapstructure:"provider"`
	Path     string  `mapstructure:"path"`
	Order    int     `mapstructure:"order"`
	Alpha    float64 `mapstructure:"alpha"`
}

// GenerationConfig holds sampling defaults.
type GenerationConfig struct {
	Temperature       float64 `mapstructure:"temperature"`
	NumSteps          int     `mapstructure:"num_steps"`
	MaxSequenceLength int     `mapstructure:"max_sequence_length"`
	Seed              string  `mapstructure:"seed"`
	// RandSeed fixes the random source; 0 seeds from the clock.
	RandSeed int64 `mapstructure:"rand_seed"`
}

// MIDIConfig controls rendering of generated melodies.
type MIDIConfig struct {
	TicksPerQuarter int     `mapstructure:"ticks_per_quarter"`
	Tempo           float64 `mapstructure:"tempo"`
	Velocity        int     `mapstructure:"velocity"`
	Channel         int     `mapstructure:"channel"`
}

// LogConfig configures the zerolog logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig configures `melodygen serve`.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// DefaultConfigDir is ~/.config/melodygen.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", AppName)
}

// DefaultDBPath is ~/.melodygen/melodygen.db.
func DefaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "."+AppName, AppName+".db")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("dataset_dir", "dataset")
	v.SetDefault("corpus_path", "corpus.txt")
	v.SetDefault("mapping_path", "mapping.json")
	v.SetDefault("db_path", DefaultDBPath())
	v.SetDefault("sequence_length", model.DefaultSequenceLength)
	v.SetDefault("time_step", model.DefaultTimeStep)
	v.SetDefault("acceptable_durations", model.AcceptableDurations)
	v.SetDefault("workers", 8)

	v.SetDefault("model.provider", "ngram")
	v.SetDefault("model.path", "model.json")
	v.SetDefault("model.order", 4)
	v.SetDefault("model.alpha", 0.01)

	v.SetDefault("generation.temperature", 0.3)
	v.SetDefault("generation.num_steps", 500)
	v.SetDefault("generation.max_sequence_length", model.DefaultSequenceLength)
	v.SetDefault("generation.seed", "55 _ _ _ 60 _ _ _ 60 _ _ _ 62 _")
	v.SetDefault("generation.rand_seed", 0)

	v.SetDefault("midi.ticks_per_quarter", 480)
	v.SetDefault("midi.tempo", 120.0)
	v.SetDefault("midi.velocity", 100)
	v.SetDefault("midi.channel", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("server.addr", ":8080")
}

// Load reads configuration from configPath, or from melodygen.yaml in the
// working directory or DefaultConfigDir when configPath is empty. A missing
// file is not an error. Environment variables MELODYGEN_<KEY> override file
// values, e.g. MELODYGEN_GENERATION_TEMPERATURE.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath(DefaultConfigDir())
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.SequenceLength <= 0 {
		errs = append(errs, fmt.Errorf("sequence_length must be positive"))
	}
	if !(c.TimeStep > 0) {
		errs = append(errs, fmt.Errorf("time_step must be positive"))
	}
	if len(c.AcceptableDurations) == 0 {
		errs = append(errs, fmt.Errorf("acceptable_durations must not be empty"))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive"))
	}
	if c.Model.Order < 0 {
		errs = append(errs, fmt.Errorf("model.order must not be negative"))
	}
	if !(c.Generation.Temperature > 0) {
		errs = append(errs, fmt.Errorf("generation.temperature must be positive"))
	}
	if c.Generation.NumSteps < 0 {
		errs = append(errs, fmt.Errorf("generation.num_steps must not be negative"))
	}
	if c.Generation.MaxSequenceLength <= 0 {
		errs = append(errs, fmt.Errorf("generation.max_sequence_length must be positive"))
	}
	if c.MIDI.TicksPerQuarter <= 0 || c.MIDI.TicksPerQuarter > 0x7FFF {
		errs = append(errs, fmt.Errorf("midi.ticks_per_quarter must be in 1..32767"))
	}
	if c.MIDI.Channel < 0 || c.MIDI.Channel > 15 {
		errs = append(errs, fmt.Errorf("midi.channel must be in 0..15"))
	}
	if c.MIDI.Velocity < 1 || c.MIDI.Velocity > 127 {
		errs = append(errs, fmt.Errorf("midi.velocity must be in 1..127"))
	}
	if !(c.MIDI.Tempo > 0) {
		errs = append(errs, fmt.Errorf("midi.tempo must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// SeedTokens splits the configured generation seed.
func (c *Config) SeedTokens() []string {
	return strings.Fields(c.Generation.Seed)
}
