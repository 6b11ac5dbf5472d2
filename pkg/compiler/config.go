package compiler

import (
	"os"

	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"

	"github.com/raymyers/ralph-hdl/pkg/ntlgraph"
	"github.com/raymyers/ralph-hdl/pkg/pass"
)

// Config tunes one compile. The zero value is not valid; start from
// DefaultConfig.
type Config struct {
	// MaxSweeps bounds every fixed-point loop. Exceeding it is an ICE.
	MaxSweeps int `yaml:"max_sweeps"`

	// Cost weighs NTL opcodes for the critical path analysis.
	Cost ntlgraph.Cost `yaml:"cost"`

	// CriticalPaths is the maximum number of reported critical paths.
	CriticalPaths int `yaml:"critical_paths"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		MaxSweeps:     pass.DefaultMaxSweeps,
		Cost:          ntlgraph.DefaultCost(),
		CriticalPaths: 1,
	}
}

// LoadConfig reads a YAML config file. Keys missing from the file keep
// their default values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, errors.Wrap(err, "%s", path)
	}

	return cfg, nil
}

// ParseConfig decodes a YAML config document over DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse config")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	if c.MaxSweeps < 1 {
		return errors.New("max_sweeps must be positive, got %d", c.MaxSweeps)
	}
	if c.CriticalPaths < 0 {
		return errors.New("critical_paths must not be negative, got %d", c.CriticalPaths)
	}

	weights := []struct {
		name string
		v    int
	}{
		{"assign", c.Cost.Assign},
		{"not", c.Cost.Not},
		{"binary", c.Cost.Binary},
		{"select", c.Cost.Select},
		{"vector_per_bit", c.Cost.VectorPerBit},
		{"multiply_per_bit2", c.Cost.MultiplyPerBit2},
		{"case_per_entry", c.Cost.CasePerEntry},
		{"black_box", c.Cost.BlackBox},
	}
	for _, w := range weights {
		if w.v < 0 {
			return errors.New("cost.%s must not be negative, got %d", w.name, w.v)
		}
	}

	return nil
}

// Fingerprint hashes the settings that affect compile output.
func (c Config) Fingerprint() pass.Digest {
	w := c.Cost

	return pass.NewHasher("ralph-hdl/config/v1").
		Int(int64(c.MaxSweeps)).
		Int(int64(c.CriticalPaths)).
		Int(int64(w.Assign)).
		Int(int64(w.Not)).
		Int(int64(w.Binary)).
		Int(int64(w.Select)).
		Int(int64(w.VectorPerBit)).
		Int(int64(w.MultiplyPerBit2)).
		Int(int64(w.CasePerEntry)).
		Int(int64(w.BlackBox)).
		Sum()
}
