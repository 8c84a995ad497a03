package loader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadText(t *testing.T) {
	path := writeFile(t, "report-2025.txt", "Acme Corp reported record revenue.")

	text, prov, err := New(nil).Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp reported record revenue.", text)
	assert.Equal(t, "report-2025", prov.DocumentID)
}

func TestLoadCSVRendersRowsAsLines(t *testing.T) {
	path := writeFile(t, "suppliers.csv", "company,supplier,volume\nAcme,Globex,1200\nAcme,Initech,\n")

	text, _, err := New(nil).Load(path)
	require.NoError(t, err)
	assert.Contains(t, text, "company: Acme | supplier: Globex | volume: 1200.\n")
	// Empty cells are dropped, not rendered as "volume: ".
	assert.Contains(t, text, "company: Acme | supplier: Initech.\n")
}

func TestLoadTSV(t *testing.T) {
	path := writeFile(t, "metrics.tsv", "metric\tvalue\nrevenue\t4.2B\n")

	text, _, err := New(nil).Load(path)
	require.NoError(t, err)
	assert.Contains(t, text, "metric: revenue | value: 4.2B.")
}

func TestLoadJSONFlattensInStableOrder(t *testing.T) {
	path := writeFile(t, "filing.json", `{"company":"Acme","metrics":{"revenue":"4.2B","debt":"1.1B"},"products":["widgets","gears"]}`)

	text, _, err := New(nil).Load(path)
	require.NoError(t, err)
	assert.Contains(t, text, "company: Acme.\n")
	assert.Contains(t, text, "metrics.debt: 1.1B.\n")
	assert.Contains(t, text, "metrics.revenue: 4.2B.\n")
	assert.Contains(t, text, "products[0]: widgets.\n")
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := writeFile(t, "image.png", "not a document")

	_, _, err := New(nil).Load(path)
	var ufe *UnsupportedFormatError
	require.True(t, errors.As(err, &ufe))
	assert.Equal(t, ".png", ufe.Extension)
}

func TestLoadMissingFile(t *testing.T) {
	_, _, err := New(nil).Load(filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
}
