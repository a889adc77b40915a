package app

import (
	"errors"
	"regexp"

	"github.com/vk/benchgrid/internal/fsutil"
)

// Config holds everything an App instance needs for one run.
type Config struct {
	// ConfigPath points at the HCL file or directory describing the run.
	ConfigPath string

	// File narrows the run to a single suite file. Shared narrows it to one
	// shard, written "index/count". Pattern is a case-name filter regex
	// source forwarded to executors.
	File    string
	Shared  string
	Pattern string

	// BuilderFilter and ExecutorFilter are name regexes narrowing which
	// tools of each toolchain take part.
	BuilderFilter  string
	ExecutorFilter string

	// OutPath persists the raw result set after the run. DiffPath loads a
	// previously saved set as the diff baseline.
	OutPath  string
	DiffPath string

	LogFormat string
	LogLevel  string
	NoColor   bool
}

// NewConfig validates a Config.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}
	for _, re := range []string{cfg.Pattern, cfg.BuilderFilter, cfg.ExecutorFilter} {
		if re == "" {
			continue
		}
		if _, err := regexp.Compile(re); err != nil {
			return nil, err
		}
	}
	if cfg.Shared != "" {
		if _, err := fsutil.ParseShared(cfg.Shared); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}
