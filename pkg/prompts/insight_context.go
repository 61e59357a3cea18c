package prompts

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ekaya-inc/ekaya-insight/pkg/logging"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
)

// TruncationMarker is appended to markdown cut at the size budget.
const TruncationMarker = "\n\n[Context truncated due to size limits]"

// FailureBanner starts the warning line of an unavailable data source.
const FailureBanner = "> **WARNING: Data source unavailable**"

// StatusConnected marks the section of a profiled data source.
const StatusConnected = "- Status: connected"

const (
	maxSampleRowsShown = 5
	maxTopValuesShown  = 5
	maxCellBytes       = 80
)

// budgetWriter accumulates markdown and reports once the budget is passed.
// Anything written after that point is cut by TruncateToBudget, so rendering
// stops there.
type budgetWriter struct {
	sb     strings.Builder
	budget int
	p      *message.Printer
}

func (w *budgetWriter) printf(format string, args ...any) {
	w.sb.WriteString(w.p.Sprintf(format, args...))
}

func (w *budgetWriter) line(s string) {
	w.sb.WriteString(s)
	w.sb.WriteString("\n")
}

func (w *budgetWriter) exceeded() bool {
	return w.budget > 0 && w.sb.Len() > w.budget
}

// BuildInsightContextMarkdown renders the profile of all data sources. A
// positive budget lets rendering stop once the output is past it.
func BuildInsightContextMarkdown(ic *models.InsightContext, budget int) string {
	w := &budgetWriter{budget: budget, p: message.NewPrinter(language.English)}

	succeeded, failed := 0, 0
	for i := range ic.DataSources {
		if ic.DataSources[i].Succeeded() {
			succeeded++
		} else {
			failed++
		}
	}

	w.line("# Data Source Context")
	w.line("")
	w.printf("- Data sources: %d (%d connected, %d unavailable)\n", ic.TotalSources, succeeded, failed)
	w.printf("- Tables: %d (%d sampled)\n", ic.TotalTables, ic.SamplingInfo.TablesSampled)
	w.printf("- Estimated rows: %d\n", ic.TotalRowsEstimated)
	w.printf("- Sample rows: %d (up to %d per table)\n", ic.SamplingInfo.TotalRowsSampled, ic.SamplingInfo.MaxRowsPerTable)
	w.line("")

	for i := range ic.DataSources {
		if w.exceeded() {
			return w.sb.String()
		}
		writeDataSource(w, &ic.DataSources[i])
	}

	if succeeded > 1 && !w.exceeded() {
		w.line("## Cross-Source Analysis")
		w.line("")
		w.line("Several data sources are connected. Look for columns that identify the same entity across sources " +
			"(ids, emails, external references) and consider joining them when answering questions.")
		w.line("")
	}

	return w.sb.String()
}

func writeDataSource(w *budgetWriter, ds *models.DataSourceContext) {
	name := ds.DataSourceName
	if name == "" {
		name = ds.DataSourceID.String()
	}
	if ds.DataSourceType != "" {
		w.printf("## Data Source: %s (%s)\n\n", name, ds.DataSourceType)
	} else {
		w.printf("## Data Source: %s\n\n", name)
	}

	if !ds.Succeeded() {
		w.line(FailureBanner + " - " + oneLine(ds.ErrorMessage))
		w.line("")
		return
	}

	w.line(StatusConnected)
	w.printf("- Tables: %d\n", ds.TotalTables)
	w.printf("- Estimated rows: %d\n", ds.TotalRowsEstimated)
	w.line("")

	for _, schema := range ds.Schemas {
		if w.exceeded() {
			return
		}
		w.printf("### Schema: %s\n\n", schema.SchemaName)
		for i := range schema.Tables {
			if w.exceeded() {
				return
			}
			writeTable(w, &schema.Tables[i])
		}
	}
}

func writeTable(w *budgetWriter, t *models.TableSample) {
	if t.DisplayName != "" && t.DisplayName != t.TableName {
		w.printf("#### Table: %s (%s)\n\n", t.DisplayName, t.TableName)
	} else {
		w.printf("#### Table: %s\n\n", t.TableName)
	}
	w.printf("Estimated rows: %d\n\n", t.RowCount)

	if len(t.ForeignKeys) > 0 {
		w.line("Foreign keys:")
		for _, fk := range t.ForeignKeys {
			target := fk.ReferencedTable
			if fk.ReferencedSchema != "" {
				target = fk.ReferencedSchema + "." + target
			}
			if fk.ReferencedColumn != "" {
				target += "." + fk.ReferencedColumn
			}
			w.printf("- %s -> %s\n", fk.Column, target)
		}
		w.line("")
	}

	if len(t.ColumnStatistics) > 0 {
		w.line("Column statistics:")
		w.line("")
		w.line(statisticsTable(w.p, t.ColumnStatistics))
		w.line("")
	}

	if len(t.SampleRows) > 0 {
		shown := min(len(t.SampleRows), maxSampleRowsShown)
		w.printf("Sample rows (%d of %d sampled):\n\n", shown, len(t.SampleRows))
		w.line(sampleTable(t))
		w.line("")
	}

	for _, c := range t.ColumnStatistics {
		if c.Category != models.TypeCategoryString || len(c.TopValues) == 0 {
			continue
		}
		w.printf("Top values of %s:\n", c.ColumnName)
		for _, tv := range c.TopValues[:min(len(c.TopValues), maxTopValuesShown)] {
			w.printf("- %s (%d)\n", formatCell(tv.Value), tv.Count)
		}
		w.line("")
	}
}

func statisticsTable(p *message.Printer, stats []models.ColumnStatistics) string {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"Column", "Type", "Null %", "Distinct", "Min", "Max", "Avg", "Notes"})
	for _, c := range stats {
		minCell, maxCell, avgCell := "", "", ""
		switch c.Category {
		case models.TypeCategoryNumeric, models.TypeCategoryDate:
			minCell = derefString(c.MinValue)
			maxCell = derefString(c.MaxValue)
			if c.AvgValue != nil {
				avgCell = p.Sprintf("%.2f", *c.AvgValue)
			}
		case models.TypeCategoryString:
			if c.MinLength != nil {
				minCell = fmt.Sprintf("len %d", *c.MinLength)
			}
			if c.MaxLength != nil {
				maxCell = fmt.Sprintf("len %d", *c.MaxLength)
			}
		}
		tw.AppendRow(table.Row{
			c.ColumnName,
			c.DeclaredType,
			fmt.Sprintf("%.1f", c.NullPercentage),
			p.Sprintf("%d", c.DistinctCount),
			formatCell(minCell),
			formatCell(maxCell),
			avgCell,
			ColumnNotes(c),
		})
	}
	return tw.RenderMarkdown()
}

func sampleTable(t *models.TableSample) string {
	columns := make([]string, 0, len(t.ColumnStatistics))
	for _, c := range t.ColumnStatistics {
		columns = append(columns, c.ColumnName)
	}
	if len(columns) == 0 {
		for k := range t.SampleRows[0] {
			columns = append(columns, k)
		}
		sort.Strings(columns)
	}

	tw := table.NewWriter()
	header := make(table.Row, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	tw.AppendHeader(header)

	for _, row := range t.SampleRows[:min(len(t.SampleRows), maxSampleRowsShown)] {
		r := make(table.Row, len(columns))
		for i, c := range columns {
			r[i] = formatCell(row[c])
		}
		tw.AppendRow(r)
	}
	return tw.RenderMarkdown()
}

// ColumnNotes summarises the shape of a column's statistics in a few words.
func ColumnNotes(c models.ColumnStatistics) string {
	var notes []string
	switch {
	case c.RowCount == 0:
	case c.NullCount == c.RowCount:
		notes = append(notes, "all null")
	case c.DistinctCount == c.RowCount:
		notes = append(notes, "unique")
	case c.DistinctCount == 1:
		notes = append(notes, "constant")
	case c.DistinctCount <= 10 && c.RowCount > 20:
		notes = append(notes, "low cardinality")
	}
	if c.NullCount > 0 && c.NullCount < c.RowCount {
		notes = append(notes, fmt.Sprintf("%.0f%% null", c.NullPercentage))
	}
	if c.DateRangeDays != nil {
		notes = append(notes, fmt.Sprintf("spans %d days", *c.DateRangeDays))
	}
	if c.AvgLength != nil {
		notes = append(notes, fmt.Sprintf("avg length %.1f", *c.AvgLength))
	}
	if c.StddevValue != nil {
		notes = append(notes, fmt.Sprintf("σ %.2f", *c.StddevValue))
	}
	return strings.Join(notes, ", ")
}

// formatCell renders a sample value on one line, at most maxCellBytes long.
func formatCell(v any) string {
	var s string
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		s = val
	case []byte:
		if !utf8.Valid(val) {
			return fmt.Sprintf("<binary %d bytes>", len(val))
		}
		s = string(val)
	case time.Time:
		s = val.Format(time.RFC3339)
	case fmt.Stringer:
		s = val.String()
	default:
		s = fmt.Sprint(val)
	}
	return logging.TruncateString(oneLine(s), maxCellBytes)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// TruncateToBudget cuts markdown to fit budget bytes including the marker,
// never splitting a UTF-8 sequence. It reports whether anything was cut.
func TruncateToBudget(markdown string, budget int) (string, bool) {
	if budget <= 0 || len(markdown) <= budget {
		return markdown, false
	}
	cut := max(budget-len(TruncationMarker), 0)
	for cut > 0 && !utf8.RuneStart(markdown[cut]) {
		cut--
	}
	return markdown[:cut] + TruncationMarker, true
}
