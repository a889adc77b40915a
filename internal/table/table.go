// Package table assembles the statistical report: ordered columns over
// grouped, flattened rows, with baseline and diff ratios and a unit-scaled
// formatting pass.
package table

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/vk/benchgrid/internal/errs"
	"github.com/vk/benchgrid/internal/result"
	"github.com/vk/benchgrid/internal/stats"
	"github.com/vk/benchgrid/internal/summary"
)

// RatioStyle selects how baseline and diff ratios are displayed.
type RatioStyle string

const (
	// RatioValue renders the plain ratio, e.g. "2.00x".
	RatioValue RatioStyle = "value"
	// RatioPercentage renders the signed delta from 1, e.g. "-86.36%".
	RatioPercentage RatioStyle = "percentage"
	// RatioTrend renders the raw ratio as a percentage, e.g. "100.00%".
	RatioTrend RatioStyle = "trend"
)

// Baseline designates the reference row within each group: the row whose
// variable Type has the given Value.
type Baseline struct {
	Type  string
	Value string
}

// Options controls report assembly.
type Options struct {
	// Stdev adds a standard-deviation column per Statistics metric.
	Stdev bool
	// Percentiles adds a percentile column per listed value (0-100).
	Percentiles []int
	// Outliers selects the Tukey filtering mode applied before aggregation.
	Outliers stats.OutlierMode
	// Baseline enables per-group ratio columns.
	Baseline *Baseline
	// RatioStyle selects ratio display, default RatioValue.
	RatioStyle RatioStyle
	// ShowSingle keeps variable columns with only one observed value.
	ShowSingle bool
	// FlexUnit lets every cell pick its own display unit instead of one
	// shared unit per column.
	FlexUnit bool
}

// Tone is the semantic styling tag of a cell.
type Tone int

const (
	ToneNeutral Tone = iota
	ToneImproved
	ToneRegressed
	// ToneEmphasis marks user-defined variable columns so reporters can
	// render them distinctly from built-in ones.
	ToneEmphasis
)

// Cell is one rendered table cell.
type Cell struct {
	Text string
	Tone Tone
}

// Table is the assembled report: a header, row groups, and formatted notes.
type Table struct {
	Header []Cell
	Groups [][][]Cell
	Notes  []string
}

// column renders one report column for a row group. Group-scoped state, such
// as the baseline reference or the shared display unit, is computed inside
// render, which is invoked once per group.
type column interface {
	header() Cell
	render(group []*summary.Row) ([]Cell, error)
}

// Build assembles the report table from the current summary and an optional
// previous-run summary for diff columns. It applies outlier filtering first,
// so a failed assembly never corrupts already-persisted raw data.
func Build(cur *summary.Summary, prev *summary.Summary, opts Options) (*Table, error) {
	if opts.RatioStyle == "" {
		opts.RatioStyle = RatioValue
	}
	switch opts.RatioStyle {
	case RatioValue, RatioPercentage, RatioTrend:
	default:
		return nil, errs.Configf("invalid ratio style %q", opts.RatioStyle)
	}
	if !opts.Outliers.Valid() {
		return nil, errs.Configf("invalid outlier mode %q", opts.Outliers)
	}
	for _, p := range opts.Percentiles {
		if p < 0 || p > 100 {
			return nil, errs.Configf("percentile %d is out of range 0..100", p)
		}
	}
	if opts.Baseline != nil {
		d, ok := cur.Domain(opts.Baseline.Type)
		if !ok {
			return nil, errs.Baselinef("baseline variable %q was not observed in any row", opts.Baseline.Type)
		}
		if !d.Has(opts.Baseline.Value) {
			return nil, errs.Baselinef("baseline value %q was not observed for variable %q", opts.Baseline.Value, opts.Baseline.Type)
		}
	}

	if err := cur.FilterOutliers(opts.Outliers); err != nil {
		return nil, err
	}
	if prev != nil {
		if err := prev.FilterOutliers(opts.Outliers); err != nil {
			return nil, err
		}
	}

	cols, err := buildColumns(cur, prev, opts)
	if err != nil {
		return nil, err
	}

	groups := partition(cur, opts.Baseline)
	index := 1
	for _, group := range groups {
		for _, row := range group {
			row.Index = index
			index++
		}
	}

	t := &Table{}
	for _, col := range cols {
		t.Header = append(t.Header, col.header())
	}
	for _, group := range groups {
		cells := make([][]Cell, len(group))
		for i := range cells {
			cells[i] = make([]Cell, 0, len(cols))
		}
		for _, col := range cols {
			rendered, err := col.render(group)
			if err != nil {
				return nil, err
			}
			for i, cell := range rendered {
				cells[i] = append(cells[i], cell)
			}
		}
		t.Groups = append(t.Groups, cells)
	}

	for _, note := range cur.Notes {
		if note.Row != nil {
			t.Notes = append(t.Notes, fmt.Sprintf("[No.%d] %s", note.Row.Index, note.Text))
		} else {
			t.Notes = append(t.Notes, note.Text)
		}
	}
	return t, nil
}

func buildColumns(cur *summary.Summary, prev *summary.Summary, opts Options) ([]column, error) {
	cols := []column{rowNumCol{}}
	for _, d := range cur.Vars() {
		if len(d.Values) > 1 || opts.ShowSingle {
			cols = append(cols, varCol{name: d.Name})
		}
	}
	for _, name := range cur.MetricNames() {
		meta, _ := cur.Meta(name)
		spec, err := ParseFormat(meta.Format)
		if err != nil {
			return nil, errs.Configf("metric %q: %v", name, err)
		}
		fmtr := NewFormatter(spec, opts.FlexUnit)
		cols = append(cols, &rawCol{metric: name, meta: meta, fmtr: fmtr})
		if meta.Analysis == result.AnalysisStats {
			if opts.Stdev {
				cols = append(cols, &stdevCol{metric: name, fmtr: fmtr})
			}
			for _, p := range opts.Percentiles {
				cols = append(cols, &percentileCol{metric: name, p: p, fmtr: fmtr})
			}
		}
		if opts.Baseline != nil {
			cols = append(cols, &ratioCol{
				metric: name, meta: meta,
				baseline: *opts.Baseline, style: opts.RatioStyle,
			})
		}
		if prev != nil {
			cols = append(cols, &diffCol{
				metric: name, meta: meta,
				prev: prev, style: opts.RatioStyle,
			})
		}
	}
	return cols, nil
}

// partition splits rows into groups sharing every variable value except the
// baseline variable's, so each group carries its own reference row. Without
// a baseline all rows form a single group.
func partition(s *summary.Summary, baseline *Baseline) [][]*summary.Row {
	if baseline == nil {
		if len(s.Rows) == 0 {
			return nil
		}
		return [][]*summary.Row{s.Rows}
	}

	var keys []string
	byKey := make(map[string][]*summary.Row)
	var varNames []string
	for _, d := range s.Vars() {
		if d.Name != baseline.Type {
			varNames = append(varNames, d.Name)
		}
	}
	for _, row := range s.Rows {
		parts := make([]string, len(varNames))
		for i, name := range varNames {
			parts[i] = row.Vars[name]
		}
		key := strings.Join(parts, "\x00")
		if _, ok := byKey[key]; !ok {
			keys = append(keys, key)
		}
		byKey[key] = append(byKey[key], row)
	}

	out := make([][]*summary.Row, len(keys))
	for i, key := range keys {
		out[i] = byKey[key]
	}
	return out
}

// meanOf returns a row's comparable value for one metric: the mean for a
// sample series, the value itself for a scalar, NaN otherwise.
func meanOf(row *summary.Row, metric string) float64 {
	switch v := row.Metrics[metric].(type) {
	case []float64:
		return stats.Mean(v)
	case float64:
		return v
	default:
		return math.NaN()
	}
}

type rowNumCol struct{}

func (rowNumCol) header() Cell { return Cell{Text: "No."} }

func (rowNumCol) render(group []*summary.Row) ([]Cell, error) {
	cells := make([]Cell, len(group))
	for i, row := range group {
		cells[i] = Cell{Text: fmt.Sprintf("%d", row.Index)}
	}
	return cells, nil
}

type varCol struct {
	name string
}

func (c varCol) header() Cell {
	if summary.BuiltinVar(c.name) {
		return Cell{Text: c.name}
	}
	return Cell{Text: c.name, Tone: ToneEmphasis}
}

func (c varCol) render(group []*summary.Row) ([]Cell, error) {
	cells := make([]Cell, len(group))
	for i, row := range group {
		cells[i] = Cell{Text: row.Vars[c.name]}
	}
	return cells, nil
}

// rawCol shows the metric itself: the mean of a sample series, or the bare
// scalar/string value.
type rawCol struct {
	metric string
	meta   result.MetricMeta
	fmtr   *Formatter
}

func (c *rawCol) header() Cell { return Cell{Text: c.metric} }

func (c *rawCol) render(group []*summary.Row) ([]Cell, error) {
	values := make([]float64, len(group))
	texts := make([]string, len(group))
	for i, row := range group {
		values[i] = math.NaN()
		v, ok := row.Metrics[c.metric]
		if !ok {
			continue
		}
		if c.meta.Analysis == result.AnalysisStats {
			series, err := row.Series(c.metric)
			if err != nil {
				return nil, err
			}
			values[i] = stats.Mean(series)
			continue
		}
		switch v := v.(type) {
		case []float64:
			values[i] = stats.Mean(v)
		case float64:
			values[i] = v
		case string:
			texts[i] = v
		}
	}

	rendered := c.fmtr.Render(values)
	cells := make([]Cell, len(group))
	for i := range cells {
		if texts[i] != "" {
			cells[i] = Cell{Text: texts[i]}
		} else {
			cells[i] = Cell{Text: rendered[i]}
		}
	}
	return cells, nil
}

type stdevCol struct {
	metric string
	fmtr   *Formatter
}

func (c *stdevCol) header() Cell { return Cell{Text: c.metric + ".SD"} }

func (c *stdevCol) render(group []*summary.Row) ([]Cell, error) {
	values := make([]float64, len(group))
	for i, row := range group {
		values[i] = math.NaN()
		series, err := row.Series(c.metric)
		if err != nil {
			return nil, err
		}
		if series != nil {
			values[i] = stats.Stdev(series)
		}
	}
	return textCells(c.fmtr.Render(values)), nil
}

type percentileCol struct {
	metric string
	p      int
	fmtr   *Formatter
}

func (c *percentileCol) header() Cell {
	return Cell{Text: fmt.Sprintf("%s.p%d", c.metric, c.p)}
}

func (c *percentileCol) render(group []*summary.Row) ([]Cell, error) {
	values := make([]float64, len(group))
	for i, row := range group {
		values[i] = math.NaN()
		series, err := row.Series(c.metric)
		if err != nil {
			return nil, err
		}
		if series != nil {
			sorted := append([]float64(nil), series...)
			sort.Float64s(sorted)
			values[i] = stats.Quantile(sorted, float64(c.p)/100)
		}
	}
	return textCells(c.fmtr.Render(values)), nil
}

// ratioCol compares every row of a group against the group's reference row.
type ratioCol struct {
	metric   string
	meta     result.MetricMeta
	baseline Baseline
	style    RatioStyle
}

func (c *ratioCol) header() Cell { return Cell{Text: c.metric + ".ratio"} }

func (c *ratioCol) render(group []*summary.Row) ([]Cell, error) {
	base := math.NaN()
	for _, row := range group {
		if row.Vars[c.baseline.Type] == c.baseline.Value {
			base = meanOf(row, c.metric)
			break
		}
	}

	cells := make([]Cell, len(group))
	for i, row := range group {
		cells[i] = styleRatio(meanOf(row, c.metric)/base, c.style, c.meta.LowerIsBetter)
	}
	return cells, nil
}

// diffCol compares every row against its identity-matching counterpart in a
// previously loaded summary. Rows with no match produce no diff value.
type diffCol struct {
	metric string
	meta   result.MetricMeta
	prev   *summary.Summary
	style  RatioStyle
}

func (c *diffCol) header() Cell { return Cell{Text: c.metric + ".diff"} }

func (c *diffCol) render(group []*summary.Row) ([]Cell, error) {
	cells := make([]Cell, len(group))
	for i, row := range group {
		match := c.prev.Find(row)
		if match == nil {
			continue
		}
		cur, old := meanOf(row, c.metric), meanOf(match, c.metric)
		if math.IsNaN(cur) || math.IsNaN(old) {
			continue
		}
		cells[i] = styleRatio(cur/old, c.style, c.meta.LowerIsBetter)
	}
	return cells, nil
}

// styleRatio renders a ratio in the configured style and tags it as
// improved, regressed or neutral. A lower-is-better metric improves when the
// ratio drops below 1.
func styleRatio(ratio float64, style RatioStyle, lowerIsBetter bool) Cell {
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return Cell{Text: "N/A"}
	}

	var text string
	switch style {
	case RatioPercentage:
		text = fmt.Sprintf("%+.2f%%", (ratio-1)*100)
	case RatioTrend:
		text = fmt.Sprintf("%.2f%%", ratio*100)
	default:
		text = fmt.Sprintf("%.2fx", ratio)
	}

	tone := ToneNeutral
	if ratio != 1 {
		if (ratio < 1) == lowerIsBetter {
			tone = ToneImproved
		} else {
			tone = ToneRegressed
		}
	}
	return Cell{Text: text, Tone: tone}
}

func textCells(texts []string) []Cell {
	cells := make([]Cell, len(texts))
	for i, t := range texts {
		cells[i] = Cell{Text: t}
	}
	return cells
}
