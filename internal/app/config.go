package app

import (
	"errors"
	"strings"

	"github.com/vk/weavergo/internal/image"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	InputPath  string // image to rewrite
	OutputPath string // rewritten image; derived from InputPath when empty
	ConfigPath string // hcl configuration file

	// PluginsPath optionally points at a directory of plugin image
	// files preloaded into the image cache.
	PluginsPath string

	LogFormat string
	LogLevel  string
}

// NewConfig validates a configuration and fills in derived defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.InputPath == "" {
		return nil, errors.New("InputPath is a required configuration field and cannot be empty")
	}
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = defaultOutputPath(cfg.InputPath)
	}
	return &cfg, nil
}

// defaultOutputPath derives "name.weaved.wvi" from "name.wvi".
func defaultOutputPath(input string) string {
	if strings.HasSuffix(input, image.FileExtension) {
		return strings.TrimSuffix(input, image.FileExtension) + ".weaved" + image.FileExtension
	}
	return input + ".weaved"
}
