// Package result defines the raw benchmark result model: the per-suite
// records streamed back by executors, the suite-keyed result set they
// accumulate into, and its persisted JSON form.
package result

import (
	"encoding/json"
	"fmt"
)

// Analysis describes how a metric's values may be aggregated.
type Analysis int

const (
	// AnalysisNone metrics are displayed raw and never aggregated.
	AnalysisNone Analysis = iota
	// AnalysisStats metrics are sample series supporting mean, stddev,
	// percentiles and outlier filtering.
	AnalysisStats
)

// MetricMeta describes one named metric: how it may be analyzed, how it is
// displayed, and which direction is an improvement.
type MetricMeta struct {
	Analysis      Analysis `json:"analysis"`
	Format        string   `json:"format,omitempty"`
	LowerIsBetter bool     `json:"lowerIsBetter"`
}

// Metrics maps metric name to its observed value for one case in one scene.
// A value is a float64 scalar, a []float64 sample series, or a string.
type Metrics map[string]any

// UnmarshalJSON normalizes numeric arrays into []float64 so downstream code
// never has to deal with []any.
func (m *Metrics) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Metrics, len(raw))
	for name, rv := range raw {
		var arr []float64
		if err := json.Unmarshal(rv, &arr); err == nil {
			out[name] = arr
			continue
		}
		var v any
		if err := json.Unmarshal(rv, &v); err != nil {
			return err
		}
		out[name] = v
	}
	*m = out
	return nil
}

// Scene holds the results of one concrete parameter combination: every case
// that ran in it, keyed by case name.
type Scene map[string]Metrics

// Note is an advisory message attached to a suite record, optionally scoped
// to one case.
type Note struct {
	Type string `json:"type"` // "info" or "warn"
	Text string `json:"text"`
	Case *int   `json:"caseId,omitempty"`
}

// ParamAxis is one variable of the parameter matrix: its name and the
// ordered candidate values, pre-rendered as display strings.
type ParamAxis struct {
	Name   string
	Values []string
}

// ParamDef is the ordered parameter matrix definition. Scene i of a record
// corresponds to Cartesian-product combination i of these axes, first axis
// varying slowest.
type ParamDef []ParamAxis

// Combinations returns the total number of parameter combinations.
func (d ParamDef) Combinations() int {
	n := 1
	for _, axis := range d {
		n *= len(axis.Values)
	}
	return n
}

// MarshalJSON encodes each axis as a [name, values] pair to keep the
// on-disk order stable.
func (a ParamAxis) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{a.Name, a.Values})
}

// UnmarshalJSON decodes the [name, values] pair form.
func (a *ParamAxis) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("param axis must be a [name, values] pair, got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &a.Name); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &a.Values)
}

// SuiteRecord is the outcome of running one suite file through one builder
// and one executor. Builder and Executor are filled in by the coordinator;
// everything else comes from the executor's streamed message.
type SuiteRecord struct {
	Builder  string                `json:"builder"`
	Executor string                `json:"executor"`
	ParamDef ParamDef              `json:"paramDef"`
	Meta     map[string]MetricMeta `json:"meta"`
	Notes    []Note                `json:"notes,omitempty"`
	Scenes   []Scene               `json:"scenes"`
}

// Set is the raw result of a run: suite file identifier mapped to the
// ordered records collected for it, one per (builder, executor) pairing.
type Set map[string][]SuiteRecord

// Merge appends more's per-file record arrays onto s, creating keys as
// needed. No deduplication: combining overlapping sets yields their union.
func (s Set) Merge(more Set) {
	for file, records := range more {
		s[file] = append(s[file], records...)
	}
}
