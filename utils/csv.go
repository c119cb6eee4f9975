package utils

import (
	"fmt"
	"strings"
)

// CSVColumn maps a row key to its header label.
type CSVColumn struct {
	Key   string
	Label string
}

// ExportToCSV renders rows as CSV. A field is quoted only when it holds a
// comma, quote or newline; embedded quotes are doubled.
func ExportToCSV(rows []map[string]interface{}, columns []CSVColumn) string {
	if len(rows) == 0 {
		return ""
	}

	labels := make([]string, len(columns))
	for i, col := range columns {
		labels[i] = csvField(col.Label)
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, strings.Join(labels, ","))

	for _, row := range rows {
		fields := make([]string, len(columns))
		for i, col := range columns {
			fields[i] = csvField(csvString(row[col.Key]))
		}
		lines = append(lines, strings.Join(fields, ","))
	}
	return strings.Join(lines, "\n")
}

func csvString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case *string:
		if val == nil {
			return ""
		}
		return *val
	default:
		return fmt.Sprint(val)
	}
}

func csvField(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
