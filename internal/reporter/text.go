package reporter

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gookit/color"

	"github.com/vk/benchgrid/internal/result"
	"github.com/vk/benchgrid/internal/summary"
	"github.com/vk/benchgrid/internal/table"
)

// Text renders the statistical report table to a writer.
type Text struct {
	Out     io.Writer
	Options table.Options
	Color   bool
}

// Report flattens cur (and prev, when present), assembles the table and
// renders it.
func (t *Text) Report(ctx context.Context, cur, prev result.Set) error {
	curSummary, err := summary.New(cur)
	if err != nil {
		return err
	}
	var prevSummary *summary.Summary
	if len(prev) > 0 {
		prevSummary, err = summary.New(prev)
		if err != nil {
			return err
		}
	}

	tbl, err := table.Build(curSummary, prevSummary, t.Options)
	if err != nil {
		return err
	}
	t.render(tbl)
	return nil
}

func (t *Text) render(tbl *table.Table) {
	widths := make([]int, len(tbl.Header))
	measure := func(cells []table.Cell) {
		for i, cell := range cells {
			if len(cell.Text) > widths[i] {
				widths[i] = len(cell.Text)
			}
		}
	}
	measure(tbl.Header)
	for _, group := range tbl.Groups {
		for _, row := range group {
			measure(row)
		}
	}

	t.printRow(tbl.Header, widths)
	total := 0
	for _, w := range widths {
		total += w + 2
	}
	for _, group := range tbl.Groups {
		fmt.Fprintln(t.Out, strings.Repeat("-", total))
		for _, row := range group {
			t.printRow(row, widths)
		}
	}

	if len(tbl.Notes) > 0 {
		fmt.Fprintln(t.Out)
		for _, note := range tbl.Notes {
			fmt.Fprintln(t.Out, note)
		}
	}
}

func (t *Text) printRow(cells []table.Cell, widths []int) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		text := cell.Text + strings.Repeat(" ", widths[i]-len(cell.Text))
		parts[i] = t.paint(text, cell.Tone)
	}
	fmt.Fprintln(t.Out, strings.Join(parts, "  "))
}

func (t *Text) paint(text string, tone table.Tone) string {
	if !t.Color {
		return text
	}
	switch tone {
	case table.ToneImproved:
		return color.Green.Render(text)
	case table.ToneRegressed:
		return color.Red.Render(text)
	case table.ToneEmphasis:
		return color.Magenta.Render(text)
	default:
		return text
	}
}
