package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/benchgrid/internal/errs"
	"github.com/vk/benchgrid/internal/result"
	"github.com/vk/benchgrid/internal/stats"
	"github.com/vk/benchgrid/internal/summary"
)

func mustSummary(t *testing.T, set result.Set) *summary.Summary {
	t.Helper()
	s, err := summary.New(set)
	require.NoError(t, err)
	return s
}

func statsMeta(lowerIsBetter bool) map[string]result.MetricMeta {
	return map[string]result.MetricMeta{
		"time": {Analysis: result.AnalysisStats, LowerIsBetter: lowerIsBetter},
	}
}

// Three cases with series means 4, 8 and 1 under one suite.
func abcSet() result.Set {
	return result.Set{
		"bench/list.js": {
			{
				Builder:  "esbuild",
				Executor: "node",
				ParamDef: result.ParamDef{},
				Meta:     statsMeta(true),
				Scenes: []result.Scene{
					{
						"A": {"time": []float64{4}},
						"B": {"time": []float64{8}},
						"C": {"time": []float64{1}},
					},
				},
			},
		},
	}
}

func headerTexts(tbl *Table) []string {
	out := make([]string, len(tbl.Header))
	for i, c := range tbl.Header {
		out[i] = c.Text
	}
	return out
}

func rowTexts(row []Cell) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = c.Text
	}
	return out
}

func TestBuildBasicTable(t *testing.T) {
	tbl, err := Build(mustSummary(t, abcSet()), nil, Options{})
	require.NoError(t, err)

	// Single-valued Builder and Executor columns are hidden.
	assert.Equal(t, []string{"No.", "Name", "time"}, headerTexts(tbl))
	require.Len(t, tbl.Groups, 1)
	group := tbl.Groups[0]
	require.Len(t, group, 3)
	assert.Equal(t, []string{"1", "A", "4"}, rowTexts(group[0]))
	assert.Equal(t, []string{"2", "B", "8"}, rowTexts(group[1]))
	assert.Equal(t, []string{"3", "C", "1"}, rowTexts(group[2]))
}

func TestBuildShowSingleKeepsAllVarColumns(t *testing.T) {
	tbl, err := Build(mustSummary(t, abcSet()), nil, Options{ShowSingle: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"No.", "Name", "Builder", "Executor", "time"}, headerTexts(tbl))
}

func TestBuildBaselineRatios(t *testing.T) {
	opts := Options{Baseline: &Baseline{Type: summary.VarName, Value: "A"}}
	tbl, err := Build(mustSummary(t, abcSet()), nil, opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"No.", "Name", "time", "time.ratio"}, headerTexts(tbl))
	require.Len(t, tbl.Groups, 1)
	group := tbl.Groups[0]

	assert.Equal(t, Cell{Text: "1.00x", Tone: ToneNeutral}, group[0][3])
	assert.Equal(t, Cell{Text: "2.00x", Tone: ToneRegressed}, group[1][3])
	assert.Equal(t, Cell{Text: "0.25x", Tone: ToneImproved}, group[2][3])
}

func TestBuildBaselineToneFollowsDirection(t *testing.T) {
	set := abcSet()
	rec := set["bench/list.js"][0]
	rec.Meta = statsMeta(false)
	set["bench/list.js"][0] = rec

	opts := Options{Baseline: &Baseline{Type: summary.VarName, Value: "A"}}
	tbl, err := Build(mustSummary(t, set), nil, opts)
	require.NoError(t, err)

	group := tbl.Groups[0]
	assert.Equal(t, ToneNeutral, group[0][3].Tone)
	assert.Equal(t, ToneImproved, group[1][3].Tone)
	assert.Equal(t, ToneRegressed, group[2][3].Tone)
}

func TestBuildBaselineGroupsByRemainingVars(t *testing.T) {
	set := result.Set{
		"bench/list.js": {
			{
				Builder:  "esbuild",
				Executor: "node",
				ParamDef: result.ParamDef{{Name: "size", Values: []string{"10", "100"}}},
				Meta:     statsMeta(true),
				Scenes: []result.Scene{
					{"A": {"time": []float64{2}}, "B": {"time": []float64{4}}},
					{"A": {"time": []float64{10}}, "B": {"time": []float64{5}}},
				},
			},
		},
	}

	opts := Options{Baseline: &Baseline{Type: summary.VarName, Value: "A"}}
	tbl, err := Build(mustSummary(t, set), nil, opts)
	require.NoError(t, err)

	require.Len(t, tbl.Groups, 2)
	require.Len(t, tbl.Groups[0], 2)
	require.Len(t, tbl.Groups[1], 2)

	// Row numbering runs through all groups.
	assert.Equal(t, "1", tbl.Groups[0][0][0].Text)
	assert.Equal(t, "4", tbl.Groups[1][1][0].Text)

	// Each group is measured against its own reference row.
	assert.Equal(t, "2.00x", tbl.Groups[0][1][4].Text)
	assert.Equal(t, "0.50x", tbl.Groups[1][1][4].Text)
}

func TestBuildBaselineMissingMetricRendersNA(t *testing.T) {
	set := abcSet()
	rec := set["bench/list.js"][0]
	delete(rec.Scenes[0]["A"], "time")
	set["bench/list.js"][0] = rec

	opts := Options{Baseline: &Baseline{Type: summary.VarName, Value: "A"}}
	tbl, err := Build(mustSummary(t, set), nil, opts)
	require.NoError(t, err)

	group := tbl.Groups[0]
	for _, row := range group {
		assert.Equal(t, "N/A", row[3].Text)
	}
}

func TestBuildDiffPercentage(t *testing.T) {
	cur := result.Set{
		"bench/list.js": {
			{
				Builder: "esbuild", Executor: "node",
				ParamDef: result.ParamDef{},
				Meta:     statsMeta(true),
				Scenes:   []result.Scene{{"A": {"time": []float64{0, 1, 1, 1}}}},
			},
		},
	}
	prev := result.Set{
		"bench/list.js": {
			{
				Builder: "esbuild", Executor: "node",
				ParamDef: result.ParamDef{},
				Meta:     statsMeta(true),
				Scenes:   []result.Scene{{"A": {"time": []float64{5, 6, 5, 6}}}},
			},
		},
	}

	opts := Options{RatioStyle: RatioPercentage}
	tbl, err := Build(mustSummary(t, cur), mustSummary(t, prev), opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"No.", "time", "time.diff"}, headerTexts(tbl))
	cell := tbl.Groups[0][0][2]
	assert.Equal(t, "-86.36%", cell.Text)
	assert.Equal(t, ToneImproved, cell.Tone)
}

func TestBuildDiffUnmatchedRowIsEmpty(t *testing.T) {
	prev := result.Set{
		"bench/list.js": {
			{
				Builder: "rollup", Executor: "node",
				ParamDef: result.ParamDef{},
				Meta:     statsMeta(true),
				Scenes:   []result.Scene{{"A": {"time": []float64{1}}}},
			},
		},
	}

	tbl, err := Build(mustSummary(t, abcSet()), mustSummary(t, prev), Options{})
	require.NoError(t, err)

	for _, row := range tbl.Groups[0] {
		assert.Equal(t, "", row[len(row)-1].Text)
	}
}

func TestBuildRatioStyles(t *testing.T) {
	opts := Options{
		Baseline:   &Baseline{Type: summary.VarName, Value: "A"},
		RatioStyle: RatioTrend,
	}
	tbl, err := Build(mustSummary(t, abcSet()), nil, opts)
	require.NoError(t, err)

	group := tbl.Groups[0]
	assert.Equal(t, "100.00%", group[0][3].Text)
	assert.Equal(t, "200.00%", group[1][3].Text)
	assert.Equal(t, "25.00%", group[2][3].Text)
}

func TestBuildStdevAndPercentileColumns(t *testing.T) {
	set := result.Set{
		"bench/list.js": {
			{
				Builder: "esbuild", Executor: "node",
				ParamDef: result.ParamDef{},
				Meta:     statsMeta(true),
				Scenes:   []result.Scene{{"A": {"time": []float64{1, 2, 3, 4}}}},
			},
		},
	}

	opts := Options{Stdev: true, Percentiles: []int{50, 75}}
	tbl, err := Build(mustSummary(t, set), nil, opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"No.", "time", "time.SD", "time.p50", "time.p75"}, headerTexts(tbl))
	row := tbl.Groups[0][0]
	assert.Equal(t, "2.5", row[1].Text)
	assert.Equal(t, "2.5", row[3].Text)
	assert.Equal(t, "3.25", row[4].Text)
}

func TestBuildOutlierNotesAreNumbered(t *testing.T) {
	set := result.Set{
		"bench/list.js": {
			{
				Builder: "esbuild", Executor: "node",
				ParamDef: result.ParamDef{},
				Meta:     statsMeta(true),
				Scenes:   []result.Scene{{"A": {"time": []float64{100, 10, 11, 10, 12, 11, 10, -50}}}},
			},
		},
	}

	tbl, err := Build(mustSummary(t, set), nil, Options{Outliers: stats.OutlierAll})
	require.NoError(t, err)

	require.Len(t, tbl.Notes, 1)
	assert.Equal(t, "[No.1] 2 outliers were removed", tbl.Notes[0])
}

func TestBuildRejectsScalarStatisticsMetric(t *testing.T) {
	set := abcSet()
	rec := set["bench/list.js"][0]
	rec.Scenes[0]["A"]["time"] = 4.0
	set["bench/list.js"][0] = rec

	_, err := Build(mustSummary(t, set), nil, Options{})

	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindMetricShape))
}

func TestBuildValidatesOptions(t *testing.T) {
	s := mustSummary(t, abcSet())

	_, err := Build(s, nil, Options{RatioStyle: "sparkline"})
	assert.True(t, errs.IsKind(err, errs.KindConfig))

	_, err = Build(s, nil, Options{Outliers: "median"})
	assert.True(t, errs.IsKind(err, errs.KindConfig))

	_, err = Build(s, nil, Options{Percentiles: []int{150}})
	assert.True(t, errs.IsKind(err, errs.KindConfig))
}

func TestBuildRejectsUnknownBaseline(t *testing.T) {
	s := mustSummary(t, abcSet())

	_, err := Build(s, nil, Options{Baseline: &Baseline{Type: "impl", Value: "x"}})
	assert.True(t, errs.IsKind(err, errs.KindBaseline))

	_, err = Build(s, nil, Options{Baseline: &Baseline{Type: summary.VarName, Value: "Z"}})
	assert.True(t, errs.IsKind(err, errs.KindBaseline))
}

func TestVarColumnEmphasis(t *testing.T) {
	set := result.Set{
		"bench/list.js": {
			{
				Builder: "esbuild", Executor: "node",
				ParamDef: result.ParamDef{{Name: "size", Values: []string{"10", "100"}}},
				Meta:     statsMeta(true),
				Scenes: []result.Scene{
					{"A": {"time": []float64{1}}},
					{"A": {"time": []float64{2}}},
				},
			},
		},
	}

	tbl, err := Build(mustSummary(t, set), nil, Options{})
	require.NoError(t, err)

	require.Equal(t, []string{"No.", "size", "time"}, headerTexts(tbl))
	assert.Equal(t, ToneNeutral, tbl.Header[0].Tone)
	assert.Equal(t, ToneEmphasis, tbl.Header[1].Tone)
}
