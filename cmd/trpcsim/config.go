// YAML workload configuration: simulated procedures, traffic rate, duration
// Parses the procedure map into a normalised slice and validates rates
package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/andrewh/oteltrpc/pkg/oteltrpc"
)

// Workload is the top-level YAML configuration for a simulation run.
type Workload struct {
	Procedures []ProcedureConfig
	Rate       Rate
	Duration   time.Duration
}

// ProcedureConfig describes one simulated procedure.
type ProcedureConfig struct {
	Path        string
	Type        oteltrpc.ProcedureType
	Latency     time.Duration
	FailureRate float64
	FailureCode string
	ThrowRate   float64
}

// rawWorkload mirrors the YAML structure before normalisation.
type rawWorkload struct {
	Procedures map[string]rawProcedure `yaml:"procedures"`
	Traffic    rawTraffic              `yaml:"traffic"`
	Duration   string                  `yaml:"duration,omitempty"`
}

type rawProcedure struct {
	Type        string  `yaml:"type"`
	Latency     string  `yaml:"latency,omitempty"`
	FailureRate float64 `yaml:"failure_rate,omitempty"`
	FailureCode string  `yaml:"failure_code,omitempty"`
	ThrowRate   float64 `yaml:"throw_rate,omitempty"`
}

type rawTraffic struct {
	Rate string `yaml:"rate"`
}

const defaultDuration = 1 * time.Minute

// LoadWorkload reads and parses a YAML workload file.
func LoadWorkload(path string) (*Workload, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-supplied config path is expected
	if err != nil {
		return nil, fmt.Errorf("reading workload: %w", err)
	}

	var raw rawWorkload
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing workload: %w", err)
	}
	if len(raw.Procedures) == 0 {
		return nil, fmt.Errorf("workload defines no procedures")
	}

	w := &Workload{Duration: defaultDuration}

	if raw.Duration != "" {
		d, err := time.ParseDuration(raw.Duration)
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q: %w", raw.Duration, err)
		}
		w.Duration = d
	}

	w.Rate, err = ParseRate(raw.Traffic.Rate)
	if err != nil {
		return nil, fmt.Errorf("invalid traffic rate: %w", err)
	}

	paths := make([]string, 0, len(raw.Procedures))
	for path := range raw.Procedures {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		proc, err := normaliseProcedure(path, raw.Procedures[path])
		if err != nil {
			return nil, err
		}
		w.Procedures = append(w.Procedures, proc)
	}
	return w, nil
}

func normaliseProcedure(path string, raw rawProcedure) (ProcedureConfig, error) {
	proc := ProcedureConfig{
		Path:        path,
		Type:        oteltrpc.ProcedureType(raw.Type),
		FailureRate: raw.FailureRate,
		FailureCode: raw.FailureCode,
		ThrowRate:   raw.ThrowRate,
	}

	switch proc.Type {
	case oteltrpc.TypeQuery, oteltrpc.TypeMutation, oteltrpc.TypeSubscription:
	case "":
		return proc, fmt.Errorf("procedure %q: missing type", path)
	default:
		return proc, fmt.Errorf("procedure %q: unknown type %q (expected query, mutation, or subscription)", path, raw.Type)
	}

	if raw.Latency != "" {
		d, err := time.ParseDuration(raw.Latency)
		if err != nil {
			return proc, fmt.Errorf("procedure %q: invalid latency %q: %w", path, raw.Latency, err)
		}
		if d < 0 {
			return proc, fmt.Errorf("procedure %q: latency cannot be negative", path)
		}
		proc.Latency = d
	}

	if proc.FailureRate < 0 || proc.FailureRate > 1 {
		return proc, fmt.Errorf("procedure %q: failure_rate must be within [0, 1]", path)
	}
	if proc.ThrowRate < 0 || proc.ThrowRate > 1 {
		return proc, fmt.Errorf("procedure %q: throw_rate must be within [0, 1]", path)
	}
	if proc.FailureRate+proc.ThrowRate > 1 {
		return proc, fmt.Errorf("procedure %q: failure_rate + throw_rate cannot exceed 1", path)
	}
	if proc.FailureRate > 0 && proc.FailureCode == "" {
		return proc, fmt.Errorf("procedure %q: failure_rate set without failure_code", path)
	}
	return proc, nil
}

// Rate represents calls per time period.
type Rate struct {
	count  int
	period time.Duration
}

// Interval returns the pause between consecutive calls.
func (r Rate) Interval() time.Duration {
	return r.period / time.Duration(r.count)
}

// ParseRate creates a Rate from a string like "10/s", "5/m", "100/h".
func ParseRate(s string) (Rate, error) {
	if s == "" {
		return Rate{}, fmt.Errorf("rate cannot be empty")
	}

	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return Rate{}, fmt.Errorf("invalid rate format (expected 'N/unit')")
	}

	count, err := strconv.Atoi(parts[0])
	if err != nil {
		return Rate{}, fmt.Errorf("invalid rate count: %w", err)
	}
	if count <= 0 {
		return Rate{}, fmt.Errorf("rate count must be positive")
	}
	if count > 10000 {
		return Rate{}, fmt.Errorf("rate count cannot exceed 10000")
	}

	period, err := parseRatePeriod(parts[1])
	if err != nil {
		return Rate{}, err
	}

	return Rate{count: count, period: period}, nil
}

func parseRatePeriod(unit string) (time.Duration, error) {
	switch strings.ToLower(unit) {
	case "s", "sec", "second", "seconds":
		return time.Second, nil
	case "m", "min", "minute", "minutes":
		return time.Minute, nil
	case "h", "hour", "hours":
		return time.Hour, nil
	default:
		return 0, fmt.Errorf("unsupported rate unit '%s', supported units: s, m, h", unit)
	}
}
