package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Bounds are min-max normalization anchors: a raw value equal to Worst maps to
// 0 and one equal to Best maps to 1.
type Bounds struct {
	Worst float64 `yaml:"worst"`
	Best  float64 `yaml:"best"`
}

// MetricsFile is the optional YAML document tuning metric weights and
// normalization, keyed by metric name:
//
//	weights:
//	  recovery_rate: 0.3
//	  similarity: 0.2
//	normalization:
//	  response_time: {worst: 60000, best: 0}
type MetricsFile struct {
	Weights       map[string]float64 `yaml:"weights"`
	Normalization map[string]Bounds  `yaml:"normalization"`
}

// LoadMetricsFile reads and validates a metrics YAML file.
func LoadMetricsFile(path string) (*MetricsFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metrics file: %w", err)
	}
	defer f.Close()

	var out MetricsFile
	if err := yaml.NewDecoder(f).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode metrics file %s: %w", path, err)
	}

	for name, w := range out.Weights {
		if w < 0 {
			return nil, fmt.Errorf("metrics file %s: negative weight for %s", path, name)
		}
	}
	for name, b := range out.Normalization {
		if b.Worst == b.Best {
			return nil, fmt.Errorf("metrics file %s: normalization bounds for %s must differ", path, name)
		}
	}
	return &out, nil
}
