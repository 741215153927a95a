package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RenderSummary returns the terminal summary for a finished run: the grade
// table followed by the run diagnostics.
func (r *Report) RenderSummary() string {
	var b strings.Builder

	b.WriteString(r.renderGrades())
	b.WriteString("\n\n")
	b.WriteString(r.renderStats())
	return b.String()
}

func (r *Report) renderGrades() string {
	byRow := make(map[int]string, len(r.Records))
	for _, rec := range r.Records {
		byRow[rec.Row] = rec.Name
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Row", "Name", "Scores", "Grade"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	for _, g := range r.Grades {
		grade := strconv.Itoa(g.Grade)
		if g.Ungraded {
			grade = "ungraded"
		}
		tw.AppendRow(table.Row{g.Row, byRow[g.Row], g.ScoreCount, grade})
	}
	return tw.Render()
}

func (r *Report) renderStats() string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Run", r.RunID})

	tw.AppendRow(table.Row{"Sheets ingested", r.Stats.SheetsIngested})
	tw.AppendRow(table.Row{"Sheets failed", r.Stats.SheetsFailed})
	tw.AppendRow(table.Row{"Unreadable entries", r.Stats.UnreadableEntries})
	tw.AppendRow(table.Row{"Malformed entries", r.Stats.MalformedEntries})
	tw.AppendRow(table.Row{"Students", len(r.Records)})
	tw.AppendRow(table.Row{"Students with full coverage", r.Stats.StudentsFullCoverage})
	tw.AppendRow(table.Row{"Avg scores per student", fmt.Sprintf("%.1f", r.Stats.AvgScoresPerStudent)})
	if len(r.Stats.StudentsWithoutScores) > 0 {
		tw.AppendRow(table.Row{"Rows without scores", joinInts(r.Stats.StudentsWithoutScores)})
	}
	if len(r.Stats.FailedSheets) > 0 {
		tw.AppendRow(table.Row{"Failed sheets", strings.Join(r.Stats.FailedSheets, ", ")})
	}
	return tw.Render()
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}
