package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source is one input of the standalone decoder
type Source struct {
	Type    string `yaml:"type"`
	Address string `yaml:"address"`
}

// File is the YAML configuration of cmd/aisdecode
type File struct {
	Decoder struct {
		Strict     *bool  `yaml:"strict"`
		MaxPending int    `yaml:"maxPending"`
		MaxAge     string `yaml:"maxAge"`
	} `yaml:"decoder"`
	Sources []Source  `yaml:"sources"`
	Logs    LogConfig `yaml:"logs"`
}

// LoadFile reads a YAML configuration and applies defaults
func LoadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	var cfg File
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	baseDir := filepath.Dir(path)
	for i, src := range cfg.Sources {
		src.Type = strings.ToLower(strings.TrimSpace(src.Type))
		if src.Address == "" {
			return nil, fmt.Errorf("source %d: address is required", i)
		}
		switch src.Type {
		case "udp", "tcp":
		case "file":
			if !filepath.IsAbs(src.Address) {
				src.Address = filepath.Join(baseDir, src.Address)
			}
		default:
			return nil, fmt.Errorf("source %d: unknown type %q", i, src.Type)
		}
		cfg.Sources[i] = src
	}

	if cfg.Logs.MaxSizeMB <= 0 {
		cfg.Logs.MaxSizeMB = 25
	}
	if cfg.Logs.MaxAgeDays <= 0 {
		cfg.Logs.MaxAgeDays = 7
	}
	if cfg.Logs.MaxBackups <= 0 {
		cfg.Logs.MaxBackups = 5
	}

	return &cfg, nil
}

// DecoderConfig resolves the decoder section against the defaults
func (f *File) DecoderConfig() (DecoderConfig, error) {
	cfg := DefaultDecoder()
	if f.Decoder.Strict != nil {
		cfg.Strict = *f.Decoder.Strict
	}
	if f.Decoder.MaxPending > 0 {
		cfg.MaxPending = f.Decoder.MaxPending
	}
	if f.Decoder.MaxAge != "" {
		d, err := time.ParseDuration(f.Decoder.MaxAge)
		if err != nil {
			return cfg, fmt.Errorf("invalid decoder.maxAge: %w", err)
		}
		cfg.MaxAge = d
	}
	return cfg, nil
}
