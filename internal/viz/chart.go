package viz

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/vizbot/vizbot/internal/executor"
	"github.com/vizbot/vizbot/internal/observability"
)

type ChartKind string

const (
	KindLine    ChartKind = "line"
	KindBar     ChartKind = "bar"
	KindBox     ChartKind = "box"
	KindHeatmap ChartKind = "heatmap"
	KindTable   ChartKind = "table"
)

// maxBarRows is the row count above which a bar chart stops being readable.
const maxBarRows = 20

// ChartSpec binds a chart kind to result columns. XField and YField are empty
// for the tabular fallback.
type ChartSpec struct {
	Kind   ChartKind `json:"kind"`
	XField string    `json:"x_field,omitempty"`
	YField string    `json:"y_field,omitempty"`
	Title  string    `json:"title"`
}

// ChooseChart maps a result shape to a chart. It is total: every shape maps
// to something, with tabular display as the fallback. Precedence:
//
//  1. time axis plus a numeric measure: line
//  2. categorical dimension plus a numeric measure, few rows: bar
//  3. two numeric dimensions, many rows: heatmap for a dense grid, box for
//     distributions per group, with question keywords breaking ties
//  4. tabular fallback
func ChooseChart(result executor.ResultSet, question string) ChartSpec {
	spec := chooseChart(result, question)
	observability.IncrementChartSelection(string(spec.Kind))
	return spec
}

func chooseChart(result executor.ResultSet, question string) ChartSpec {
	title := titleFor(question)
	timeCols := columnsOfKind(result, executor.KindTime)
	numericCols := columnsOfKind(result, executor.KindNumeric)
	categoricalCols := columnsOfKind(result, executor.KindCategorical)
	rowCount := len(result.Rows)

	if len(timeCols) > 0 && len(numericCols) > 0 {
		return ChartSpec{Kind: KindLine, XField: timeCols[0].Name, YField: numericCols[0].Name, Title: title}
	}
	if len(categoricalCols) > 0 && len(numericCols) > 0 && rowCount > 0 && rowCount <= maxBarRows {
		return ChartSpec{Kind: KindBar, XField: categoricalCols[0].Name, YField: numericCols[0].Name, Title: title}
	}
	// a lone categorical column with few rows still reads as a bar of counts
	if len(categoricalCols) == 1 && len(numericCols) == 0 && rowCount > 0 && rowCount <= maxBarRows {
		return ChartSpec{Kind: KindBar, XField: categoricalCols[0].Name, Title: title}
	}
	if len(numericCols) >= 2 && rowCount > maxBarRows {
		x, y := numericCols[0], numericCols[1]
		kind := KindBox
		switch {
		case wantsBox(question):
			kind = KindBox
		case wantsHeatmap(question):
			kind = KindHeatmap
		case isDenseGrid(result, x.Name, y.Name):
			kind = KindHeatmap
		}
		return ChartSpec{Kind: kind, XField: x.Name, YField: y.Name, Title: title}
	}
	return ChartSpec{Kind: KindTable, Title: title}
}

func columnsOfKind(result executor.ResultSet, kind executor.ColumnKind) []executor.Column {
	matched := make([]executor.Column, 0, len(result.Columns))
	for _, column := range result.Columns {
		if column.Kind == kind {
			matched = append(matched, column)
		}
	}
	return matched
}

func wantsBox(question string) bool {
	return containsAny(question, "distribution", "spread", "variance", "quartile", "outlier")
}

func wantsHeatmap(question string) bool {
	return containsAny(question, "heatmap", "heat map", "correlation", "density", "grid")
}

func containsAny(question string, keywords ...string) bool {
	lower := strings.ToLower(question)
	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// isDenseGrid reports whether the two columns repeat over a small set of
// values, so the rows tile an x-by-y grid rather than trace distributions.
func isDenseGrid(result executor.ResultSet, xField, yField string) bool {
	xIdx, yIdx := columnIndex(result, xField), columnIndex(result, yField)
	if xIdx < 0 || yIdx < 0 {
		return false
	}
	xValues := make(map[string]struct{})
	yValues := make(map[string]struct{})
	for _, row := range result.Rows {
		xValues[fmt.Sprint(row[xIdx])] = struct{}{}
		yValues[fmt.Sprint(row[yIdx])] = struct{}{}
	}
	xDistinct, yDistinct := len(xValues), len(yValues)
	if xDistinct < 2 || yDistinct < 2 || xDistinct > 50 || yDistinct > 50 {
		return false
	}
	return xDistinct*yDistinct <= 2*len(result.Rows)
}

func columnIndex(result executor.ResultSet, name string) int {
	for i, column := range result.Columns {
		if column.Name == name {
			return i
		}
	}
	return -1
}

func titleFor(question string) string {
	trimmed := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(question), "?!."))
	if trimmed == "" {
		return "Query results"
	}
	runes := []rune(trimmed)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
