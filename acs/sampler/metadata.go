package sampler

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Record is one row of a metadata table keyed by column name.
type Record map[string]any

// Metadata holds the SAMPLER and PORT tables of a backend file.
type Metadata struct {
	Samplers []Record `yaml:"sampler"`
	Ports    []Record `yaml:"port"`
}

// Text returns the first present column among names as a string.
func (r Record) Text(names ...string) (string, bool) {
	for _, name := range names {
		v, ok := r[name]
		if !ok {
			continue
		}
		switch x := v.(type) {
		case string:
			return strings.TrimSpace(x), true
		case fmt.Stringer:
			return x.String(), true
		default:
			return fmt.Sprint(x), true
		}
	}
	return "", false
}

// Int returns the first present column among names as an integer.
func (r Record) Int(names ...string) (int, bool) {
	for _, name := range names {
		v, ok := r[name]
		if !ok {
			continue
		}
		switch x := v.(type) {
		case int:
			return x, true
		case int32:
			return int(x), true
		case int64:
			return int(x), true
		case uint8:
			return int(x), true
		case float32:
			return roundInt(float64(x))
		case float64:
			return roundInt(x)
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(x))
			return n, err == nil
		}
		return 0, false
	}
	return 0, false
}

func roundInt(x float64) (int, bool) {
	if math.IsNaN(x) || math.IsInf(x, 0) || x != math.Trunc(x) {
		return 0, false
	}
	return int(x), true
}
