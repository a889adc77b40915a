// Package summary flattens one or more raw result sets into comparable rows,
// the unit the report engine works on. Each row is one (case,
// parameter-combination) observation tagged with its builder and executor
// provenance.
package summary

import (
	"fmt"
	"sort"

	"github.com/vk/benchgrid/internal/errs"
	"github.com/vk/benchgrid/internal/result"
	"github.com/vk/benchgrid/internal/stats"
)

// Built-in variable names. Everything else in a row's variable map is a
// user-defined suite parameter.
const (
	VarName     = "Name"
	VarBuilder  = "Builder"
	VarExecutor = "Executor"
)

// BuiltinVar reports whether name is one of the engine-assigned variables.
func BuiltinVar(name string) bool {
	return name == VarName || name == VarBuilder || name == VarExecutor
}

// Row is one flattened observation. Identity for cross-run comparison is the
// full variable map: case name plus every parameter value plus builder and
// executor.
type Row struct {
	// Index is the display row number, assigned during table assembly and
	// used to scope notes. Zero until assigned.
	Index int
	// Vars holds every variable value of this observation.
	Vars map[string]string
	// Metrics holds the raw metric values of this observation.
	Metrics result.Metrics
}

// Series returns the sample series of a Statistics metric on this row. A
// Statistics metric holding anything but a numeric series is a contract
// violation between the suite and the engine.
func (r *Row) Series(name string) ([]float64, error) {
	v, ok := r.Metrics[name]
	if !ok {
		return nil, nil
	}
	series, ok := v.([]float64)
	if !ok {
		return nil, errs.MetricShapef("metric %q is declared Statistics but its value is %T, not a sample series", name, v)
	}
	return series, nil
}

// Note is an advisory message for the report, optionally attributed to a row.
type Note struct {
	Type string // "info" or "warn"
	Text string
	Row  *Row
}

// Domain is the set of distinct observed values of one variable, in first
// appearance order.
type Domain struct {
	Name   string
	Values []string
}

// Has reports whether value was observed for this variable.
func (d *Domain) Has(value string) bool {
	for _, v := range d.Values {
		if v == value {
			return true
		}
	}
	return false
}

// Summary owns the flattened rows of one or more result sets, the
// accumulated variable-value domains, the metric metadata registry, and the
// advisory notes collected along the way.
type Summary struct {
	Rows  []*Row
	Notes []Note

	varOrder []string
	domains  map[string]*Domain

	metaOrder []string
	meta      map[string]result.MetricMeta

	index map[string]*Row
}

// New flattens the given result sets into a Summary. Suite files are
// processed in sorted order so row order is reproducible. Metric metadata is
// append-only: a later record redefining a metric name with different
// metadata is rejected rather than silently reconciled.
func New(sets ...result.Set) (*Summary, error) {
	s := &Summary{
		domains: make(map[string]*Domain),
		meta:    make(map[string]result.MetricMeta),
	}
	for _, set := range sets {
		files := make([]string, 0, len(set))
		for file := range set {
			files = append(files, file)
		}
		sort.Strings(files)
		for _, file := range files {
			for _, record := range set[file] {
				if err := s.addRecord(file, record); err != nil {
					return nil, err
				}
			}
		}
	}
	return s, nil
}

func (s *Summary) addRecord(file string, record result.SuiteRecord) error {
	want := record.ParamDef.Combinations()
	if len(record.Scenes) != want {
		return errs.MetricShapef(
			"suite %s: %d scenes do not match the %d parameter combinations of the matrix",
			file, len(record.Scenes), want)
	}
	if err := s.mergeMeta(record.Meta); err != nil {
		return err
	}

	first := len(s.Rows)
	for i, scene := range record.Scenes {
		params := combination(record.ParamDef, i)
		names := make([]string, 0, len(scene))
		for name := range scene {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			vars := map[string]string{
				VarName:     name,
				VarBuilder:  record.Builder,
				VarExecutor: record.Executor,
			}
			for k, v := range params {
				vars[k] = v
			}
			row := &Row{Vars: vars, Metrics: scene[name]}
			s.Rows = append(s.Rows, row)

			s.addVar(VarName, name)
			for _, axis := range record.ParamDef {
				s.addVar(axis.Name, params[axis.Name])
			}
			s.addVar(VarBuilder, record.Builder)
			s.addVar(VarExecutor, record.Executor)
		}
	}

	for _, note := range record.Notes {
		n := Note{Type: note.Type, Text: note.Text}
		if note.Case != nil && *note.Case >= 0 && first+*note.Case < len(s.Rows) {
			n.Row = s.Rows[first+*note.Case]
		}
		s.Notes = append(s.Notes, n)
	}
	return nil
}

// combination decodes scene index i into its parameter values, first axis
// varying slowest. The length check in addRecord guarantees i is in range.
func combination(def result.ParamDef, i int) map[string]string {
	out := make(map[string]string, len(def))
	for j := len(def) - 1; j >= 0; j-- {
		axis := def[j]
		out[axis.Name] = axis.Values[i%len(axis.Values)]
		i /= len(axis.Values)
	}
	return out
}

func (s *Summary) addVar(name, value string) {
	d, ok := s.domains[name]
	if !ok {
		d = &Domain{Name: name}
		s.domains[name] = d
		s.varOrder = append(s.varOrder, name)
	}
	if !d.Has(value) {
		d.Values = append(d.Values, value)
	}
}

func (s *Summary) mergeMeta(meta map[string]result.MetricMeta) error {
	names := make([]string, 0, len(meta))
	for name := range meta {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		incoming := meta[name]
		existing, ok := s.meta[name]
		if !ok {
			s.meta[name] = incoming
			s.metaOrder = append(s.metaOrder, name)
			continue
		}
		if existing != incoming {
			return errs.MetricShapef("conflicting metadata for metric %q across result sets", name)
		}
	}
	return nil
}

// Vars returns the variable domains in first appearance order.
func (s *Summary) Vars() []*Domain {
	out := make([]*Domain, len(s.varOrder))
	for i, name := range s.varOrder {
		out[i] = s.domains[name]
	}
	return out
}

// Domain returns the value domain of one variable.
func (s *Summary) Domain(name string) (*Domain, bool) {
	d, ok := s.domains[name]
	return d, ok
}

// MetricNames returns metric names in first appearance order.
func (s *Summary) MetricNames() []string {
	return s.metaOrder
}

// Meta returns the metadata registered for a metric name.
func (s *Summary) Meta(name string) (result.MetricMeta, bool) {
	m, ok := s.meta[name]
	return m, ok
}

// AddNote appends an advisory note, optionally attributed to a row.
func (s *Summary) AddNote(typ, text string, row *Row) {
	s.Notes = append(s.Notes, Note{Type: typ, Text: text, Row: row})
}

// FilterOutliers applies Tukey filtering to every Statistics metric of every
// row and records an informational note per row whose sample count changed.
func (s *Summary) FilterOutliers(mode stats.OutlierMode) error {
	if mode == stats.OutlierNone {
		return nil
	}
	for _, row := range s.Rows {
		for _, name := range s.metaOrder {
			meta := s.meta[name]
			if meta.Analysis != result.AnalysisStats {
				continue
			}
			if _, ok := row.Metrics[name]; !ok {
				continue
			}
			series, err := row.Series(name)
			if err != nil {
				return err
			}
			filtered := stats.TukeyFilter(series, mode, meta.LowerIsBetter)
			if removed := len(series) - len(filtered); removed > 0 {
				row.Metrics[name] = filtered
				s.AddNote("info", fmt.Sprintf("%d outliers were removed", removed), row)
			}
		}
	}
	return nil
}

// Find returns the row of this summary whose identity (case name plus every
// variable value) matches the given row, or nil. Used to pair current rows
// with their counterparts in a previously saved run.
func (s *Summary) Find(row *Row) *Row {
	if s.index == nil {
		s.index = make(map[string]*Row, len(s.Rows))
		for _, r := range s.Rows {
			s.index[identity(r)] = r
		}
	}
	return s.index[identity(row)]
}

func identity(r *Row) string {
	names := make([]string, 0, len(r.Vars))
	for name := range r.Vars {
		names = append(names, name)
	}
	sort.Strings(names)
	key := ""
	for _, name := range names {
		key += name + "\x00" + r.Vars[name] + "\x01"
	}
	return key
}
