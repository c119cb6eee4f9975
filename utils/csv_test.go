package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExportToCSV(t *testing.T) {
	columns := []CSVColumn{{Key: "name", Label: "الاسم"}, {Key: "note", Label: "Note"}, {Key: "count", Label: "Count"}}
	rows := []map[string]interface{}{
		{"name": "Ali", "note": "plain", "count": 3},
		{"name": "Sara, Jr", "note": `say "hi"`, "count": nil},
		{"name": "Line\nBreak", "note": nil, "count": 0},
	}

	out := ExportToCSV(rows, columns)

	want := "الاسم,Note,Count\n" +
		"Ali,plain,3\n" +
		`"Sara, Jr","say ""hi""",` + "\n" +
		"\"Line\nBreak\",,0"
	assert.Equal(t, want, out)
}

func TestExportToCSV_Empty(t *testing.T) {
	assert.Equal(t, "", ExportToCSV(nil, []CSVColumn{{Key: "a", Label: "A"}}))
}
