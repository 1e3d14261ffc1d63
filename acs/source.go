package acs

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-acs/acs/sampler"
)

// Keywords is a FITS-style header keyword set.
type Keywords map[string]any

// Text returns keyword name as a string.
func (k Keywords) Text(name string) (string, bool) {
	return sampler.Record(k).Text(name)
}

// Int returns keyword name as an integer.
func (k Keywords) Int(name string) (int, bool) {
	return sampler.Record(k).Int(name)
}

// Float returns keyword name as a float.
func (k Keywords) Float(name string) (float64, bool) {
	v, ok := k[name]
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// Row is the ACS content of one table row.
type Row struct {
	// Data is the lag cell in column-major order with shape [lags, dim2, dim3].
	Data  []float32 `yaml:"data"`
	Shape []int     `yaml:"shape"`
	// Integrat holds integration times or clock counts. IntegratShape may be
	// empty when it follows from the table layout.
	Integrat      []float64 `yaml:"integrat"`
	IntegratShape []int     `yaml:"integratShape"`
}

// Source is a backend table positioned on a current row. Row and file I/O
// are the caller's business; Table only reads.
type Source interface {
	Name() string
	Keywords() Keywords
	SamplerKeywords() Keywords
	Metadata() sampler.Metadata
	RowNumber() int
	Row() (Row, error)
}

// MemorySource is a Source held in memory, loadable from YAML.
type MemorySource struct {
	FileName      string           `yaml:"name"`
	Header        Keywords         `yaml:"keywords"`
	SamplerHeader Keywords         `yaml:"samplerKeywords"`
	Meta          sampler.Metadata `yaml:"metadata"`
	Rows          []Row            `yaml:"rows"`

	current int
}

// LoadMemorySource reads a YAML table description.
func LoadMemorySource(path string) (*MemorySource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("acs: %w", err)
	}
	src := &MemorySource{}
	if err := yaml.Unmarshal(data, src); err != nil {
		return nil, fmt.Errorf("acs: %s: %w", path, err)
	}
	if src.FileName == "" {
		src.FileName = path
	}
	return src, nil
}

// Name returns the file name of the table.
func (s *MemorySource) Name() string { return s.FileName }

// Keywords returns the primary header keywords.
func (s *MemorySource) Keywords() Keywords { return s.Header }

// SamplerKeywords returns the SAMPLER table keywords.
func (s *MemorySource) SamplerKeywords() Keywords { return s.SamplerHeader }

// Metadata returns the SAMPLER and PORT tables.
func (s *MemorySource) Metadata() sampler.Metadata { return s.Meta }

// NumRows returns the row count.
func (s *MemorySource) NumRows() int { return len(s.Rows) }

// RowNumber returns the current row.
func (s *MemorySource) RowNumber() int { return s.current }

// Seek moves to row n.
func (s *MemorySource) Seek(n int) error {
	if n < 0 || n >= len(s.Rows) {
		return fmt.Errorf("%w: %d of %d", ErrRowRange, n, len(s.Rows))
	}
	s.current = n
	return nil
}

// Row returns the current row.
func (s *MemorySource) Row() (Row, error) {
	if len(s.Rows) == 0 {
		return Row{}, ErrNoRows
	}
	return s.Rows[s.current], nil
}

// NewRow builds a Row from per-spectrum lag vectors listed in DATA order,
// spectrum index i2 + dim2*i3.
func NewRow(dim2, dim3 int, lags [][]float64) Row {
	nlags := 0
	if len(lags) > 0 {
		nlags = len(lags[0])
	}
	data := make([]float32, 0, nlags*len(lags))
	for _, spec := range lags {
		for _, v := range spec {
			data = append(data, float32(v))
		}
	}
	return Row{Data: data, Shape: []int{nlags, dim2, dim3}}
}

// finite reports whether v is a usable float.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
