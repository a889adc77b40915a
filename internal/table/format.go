package table

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// FormatSpec is the parsed form of a metric format string, written
// "{kind.unit}suffix", e.g. "{duration.ms}" or "{number} ops/s". kind is one
// of number, duration or dataSize; unit names the unit the raw values are
// measured in and defaults to the kind's base unit.
type FormatSpec struct {
	Kind   string
	Unit   string
	Suffix string
}

// unitScale lists a kind's units from finest to coarsest together with the
// factor of each unit expressed in the finest one.
type unitScale struct {
	names   []string
	factors []float64
}

var scales = map[string]unitScale{
	"number": {
		names:   []string{"", "K", "M", "G", "T"},
		factors: []float64{1, 1e3, 1e6, 1e9, 1e12},
	},
	"duration": {
		names:   []string{"ns", "us", "ms", "s", "m", "h", "d"},
		factors: []float64{1, 1e3, 1e6, 1e9, 60e9, 3600e9, 86400e9},
	},
	"dataSize": {
		names:   []string{"B", "KB", "MB", "GB", "TB"},
		factors: []float64{1, 1 << 10, 1 << 20, 1 << 30, 1 << 40},
	},
}

// ParseFormat parses a "{kind.unit}suffix" format string. An empty string
// yields the plain number spec.
func ParseFormat(s string) (FormatSpec, error) {
	if s == "" {
		return FormatSpec{Kind: "number"}, nil
	}
	if !strings.HasPrefix(s, "{") {
		return FormatSpec{}, fmt.Errorf("invalid format spec %q: must start with '{'", s)
	}
	end := strings.IndexByte(s, '}')
	if end < 0 {
		return FormatSpec{}, fmt.Errorf("invalid format spec %q: missing '}'", s)
	}
	body := s[1:end]
	spec := FormatSpec{Suffix: s[end+1:]}
	if dot := strings.IndexByte(body, '.'); dot >= 0 {
		spec.Kind, spec.Unit = body[:dot], body[dot+1:]
	} else {
		spec.Kind = body
	}

	scale, ok := scales[spec.Kind]
	if !ok {
		return FormatSpec{}, fmt.Errorf("invalid format spec %q: unknown kind %q", s, spec.Kind)
	}
	if spec.Unit == "" {
		spec.Unit = scale.names[0]
	}
	if scale.indexOf(spec.Unit) < 0 {
		return FormatSpec{}, fmt.Errorf("invalid format spec %q: unknown %s unit %q", s, spec.Kind, spec.Unit)
	}
	return spec, nil
}

func (u unitScale) indexOf(name string) int {
	for i, n := range u.names {
		if n == name {
			return i
		}
	}
	return -1
}

// pick returns the coarsest unit index that keeps value at or above 1, or
// the finest unit for zero and sub-unit values.
func (u unitScale) pick(valueInBase float64) int {
	v := math.Abs(valueInBase)
	best := 0
	for i, f := range u.factors {
		if v/f >= 1 {
			best = i
		}
	}
	return best
}

var printer = message.NewPrinter(language.English)

// renderValue renders one already-scaled value with thousands separators.
func renderValue(v float64) string {
	return printer.Sprintf("%v", number.Decimal(v, number.MaxFractionDigits(2)))
}

// Formatter renders the numeric cells of one column. In homogeneous mode one
// shared display unit is chosen for the whole column; in flex mode every
// value picks its own.
type Formatter struct {
	spec  FormatSpec
	scale unitScale
	flex  bool
}

// NewFormatter builds a formatter for a parsed format spec.
func NewFormatter(spec FormatSpec, flex bool) *Formatter {
	return &Formatter{spec: spec, scale: scales[spec.Kind], flex: flex}
}

// Render formats the given values. The slice may contain NaN entries for
// absent observations; they render as empty cells.
func (f *Formatter) Render(values []float64) []string {
	base := f.scale.factors[f.scale.indexOf(f.spec.Unit)]

	shared := -1
	if !f.flex {
		// Pick the coarsest unit that keeps the smallest value >= 1.
		min := math.Inf(1)
		for _, v := range values {
			if !math.IsNaN(v) && math.Abs(v)*base < min && v != 0 {
				min = math.Abs(v) * base
			}
		}
		if math.IsInf(min, 1) {
			min = 0
		}
		shared = f.scale.pick(min)
	}

	out := make([]string, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = ""
			continue
		}
		inBase := v * base
		idx := shared
		if f.flex {
			idx = f.scale.pick(inBase)
		}
		scaled := inBase / f.scale.factors[idx]
		text := renderValue(scaled)
		if name := f.scale.names[idx]; name != "" {
			text += " " + name
		}
		out[i] = text + f.spec.Suffix
	}
	return out
}
