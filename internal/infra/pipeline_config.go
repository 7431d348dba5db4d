package infra

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// PipelineConfig tunes how much work each advance performs and how the
// worker polls unfinished jobs.
type PipelineConfig struct {
	CandidateCount    int           `mapstructure:"candidate_count"`
	MaxPerConcept     int           `mapstructure:"max_per_concept"`
	BatchSize         int           `mapstructure:"batch_size"`
	BatchesPerAdvance int           `mapstructure:"batches_per_advance"`
	TimeBudget        time.Duration `mapstructure:"time_budget"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	LockTTL           time.Duration `mapstructure:"lock_ttl"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval"`
	StaleAfter        time.Duration `mapstructure:"stale_after"`
}

// LoadPipelineConfig reads defaults, then the optional YAML file at path,
// then THUMBGEN_* environment overrides.
func LoadPipelineConfig(path string) (PipelineConfig, error) {
	v := viper.New()
	v.SetDefault("candidate_count", 12)
	v.SetDefault("max_per_concept", 2)
	v.SetDefault("batch_size", 2)
	v.SetDefault("batches_per_advance", 3)
	v.SetDefault("time_budget", "45s")
	v.SetDefault("poll_interval", "5s")
	v.SetDefault("lock_ttl", "2m")
	v.SetDefault("sweep_interval", "1m")
	v.SetDefault("stale_after", "3m")

	v.SetEnvPrefix("THUMBGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return PipelineConfig{}, fmt.Errorf("read pipeline config: %w", err)
		}
	}

	var cfg PipelineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return PipelineConfig{}, fmt.Errorf("decode pipeline config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return PipelineConfig{}, err
	}
	return cfg, nil
}

// Validate rejects settings that would stall the pipeline.
func (c PipelineConfig) Validate() error {
	switch {
	case c.CandidateCount < 1:
		return errors.New("candidate_count must be positive")
	case c.BatchSize < 1:
		return errors.New("batch_size must be positive")
	case c.BatchesPerAdvance < 1:
		return errors.New("batches_per_advance must be positive")
	case c.MaxPerConcept < 0:
		return errors.New("max_per_concept must not be negative")
	case c.TimeBudget <= 0:
		return errors.New("time_budget must be positive")
	}
	return nil
}
