package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Platform analytics",
		Headers: []string{"metric", "value"},
		Rows: []map[string]string{
			{"metric": "users", "value": "12"},
			{"metric": "jobs", "value": "3"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "metric,value\nusers,12\njobs,3\n", string(out))
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestForFormat(t *testing.T) {
	exp, ok := ForFormat("pdf")
	require.True(t, ok)
	assert.Equal(t, "application/pdf", exp.ContentType())

	_, ok = ForFormat("xlsx")
	assert.False(t, ok)

	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}
