package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "250ms".
type Duration time.Duration

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}

	if s == "" {
		*d = 0
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// fileConfig mirrors Config with YAML-friendly field types.
type fileConfig struct {
	URL            string            `yaml:"url"`
	Method         string            `yaml:"method,omitempty"`
	Headers        map[string]string `yaml:"headers,omitempty"`
	Payload        string            `yaml:"payload,omitempty"`
	QPS            *float64          `yaml:"qps,omitempty"`
	Timeout        *Duration         `yaml:"timeout,omitempty"`
	MaxRequests    *int              `yaml:"maxRequests,omitempty"`
	MaxConcurrency int               `yaml:"maxConcurrency,omitempty"`
	Percentiles    []float64         `yaml:"percentiles,omitempty"`
	Thresholds     []Duration        `yaml:"thresholds,omitempty"`
	LogFile        string            `yaml:"logFile,omitempty"`
	AcceptAny2xx   bool              `yaml:"accept2xx,omitempty"`
	OnInterrupt    string            `yaml:"onInterrupt,omitempty"`
}

// Load reads a run configuration from a YAML file, applies defaults and
// validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	// Absent numeric fields take the documented defaults; fields that are
	// present keep their value, so an explicit zero fails validation.
	cfg := &Config{
		URL:            fc.URL,
		Method:         fc.Method,
		Headers:        fc.Headers,
		QPS:            DefaultQPS,
		Timeout:        DefaultTimeout,
		MaxRequests:    DefaultMaxRequests,
		MaxConcurrency: fc.MaxConcurrency,
		Percentiles:    fc.Percentiles,
		LogFile:        fc.LogFile,
		AcceptAny2xx:   fc.AcceptAny2xx,
		OnInterrupt:    InterruptPolicy(fc.OnInterrupt),
	}
	if fc.QPS != nil {
		cfg.QPS = *fc.QPS
	}
	if fc.Timeout != nil {
		cfg.Timeout = time.Duration(*fc.Timeout)
	}
	if fc.MaxRequests != nil {
		cfg.MaxRequests = *fc.MaxRequests
	}
	if fc.Payload != "" {
		cfg.Payload = []byte(fc.Payload)
	}
	for _, t := range fc.Thresholds {
		cfg.Thresholds = append(cfg.Thresholds, time.Duration(t))
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
