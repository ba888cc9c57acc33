package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "500.000", FormatMoney(500000))
	assert.Equal(t, "1.250.000", FormatMoney(1250000))
	assert.Equal(t, "0", FormatMoney(0))
	assert.Equal(t, "999", FormatMoney(999))
	assert.Equal(t, "-450.000", FormatMoney(-450000))
}

func TestCSVRender(t *testing.T) {
	data := Dataset{
		Headers: []string{"Student", "Class", "Fee"},
		Rows: []map[string]string{
			{"Student": "An", "Class": "Toan 10", "Fee": "500.000"},
			{"Student": "Binh", "Class": "Ly 11", "Fee": "450.000"},
		},
		Footer: map[string]string{"Student": "Total", "Fee": "950.000"},
	}
	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Student,Class,Fee", lines[0])
	assert.Equal(t, "An,Toan 10,500.000", lines[1])
	assert.Equal(t, "Total,,950.000", lines[3])
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFRender(t *testing.T) {
	data := Dataset{
		Title:   "Tuition ledger 05/2024",
		Headers: []string{"Student", "Fee"},
		Rows:    []map[string]string{{"Student": "An", "Fee": "500.000"}},
	}
	out, err := NewPDFExporter().Render(data)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "%PDF"))

	data.Landscape = true
	out, err = NewPDFExporter().Render(data)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
