package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the optional YAML file. Every field is a default that the
// matching environment variable overrides. Secrets are env-only.
type fileConfig struct {
	Server        fileServer        `yaml:"server"`
	AI            fileAI            `yaml:"ai"`
	Vision        fileVision        `yaml:"vision"`
	History       fileHistory       `yaml:"history"`
	Observability fileObservability `yaml:"observability"`
}

type fileServer struct {
	Port            string `yaml:"port"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

type fileAI struct {
	Provider        string   `yaml:"provider"`
	ArkModel        string   `yaml:"ark_model"`
	OpenAIBaseURL   string   `yaml:"openai_base_url"`
	OpenAIModel     string   `yaml:"openai_model"`
	ClassifierModel string   `yaml:"classifier_model"`
	Temperature     *float64 `yaml:"temperature"`
	MaxTokens       *int     `yaml:"max_tokens"`
	Stream          *bool    `yaml:"stream"`
	Timeout         string   `yaml:"timeout"`
}

type fileVision struct {
	SimulatorEnabled *bool  `yaml:"simulator_enabled"`
	Interval         string `yaml:"interval"`
}

type fileHistory struct {
	Limit int `yaml:"limit"`
}

type fileObservability struct {
	MetricsEnabled *bool  `yaml:"metrics_enabled"`
	ServiceName    string `yaml:"service_name"`
}

// loadFile reads path, returning zero defaults when path is empty.
func loadFile(path string) (fileConfig, error) {
	if path == "" {
		return fileConfig{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := decodeFile(f)
	if err != nil {
		return fileConfig{}, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

func decodeFile(r io.Reader) (fileConfig, error) {
	var cfg fileConfig
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return fileConfig{}, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}
