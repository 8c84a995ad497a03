// Package loader reads source documents into plain text with provenance.
// Supported formats: plain text, CSV/TSV, JSON and PDF.
package loader

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/finsight/fingraph/pkg/types"
)

// UnsupportedFormatError names a file extension the loader cannot handle.
type UnsupportedFormatError struct {
	Extension string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported document format %q", e.Extension)
}

// Loader turns files into (text, provenance) pairs.
type Loader struct {
	logger *slog.Logger
}

// New creates a Loader.
func New(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load reads the file at path and returns its text and provenance. The
// document id is the file's base name without extension.
func (l *Loader) Load(path string) (string, types.Provenance, error) {
	ext := strings.ToLower(filepath.Ext(path))
	prov := types.Provenance{
		DocumentID: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
	}

	var (
		text string
		err  error
	)
	switch ext {
	case ".txt", ".md", ".text", "":
		text, err = l.loadText(path)
	case ".csv":
		text, err = l.loadDelimited(path, ',')
	case ".tsv":
		text, err = l.loadDelimited(path, '\t')
	case ".json":
		text, err = l.loadJSON(path)
	case ".pdf":
		text, err = l.loadPDF(path)
	default:
		return "", prov, &UnsupportedFormatError{Extension: ext}
	}
	if err != nil {
		return "", prov, err
	}

	l.logger.Debug("loaded document",
		"path", path, "document", prov.DocumentID, "bytes", len(text))
	return text, prov, nil
}

func (l *Loader) loadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// loadDelimited renders each data row as one "header: value | ..." line so
// tabular facts survive chunking as self-contained sentences.
func (l *Loader) loadDelimited(path string, comma rune) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = comma
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return "", nil
	}

	header := records[0]
	var b strings.Builder
	for _, row := range records[1:] {
		cells := make([]string, 0, len(row))
		for i, value := range row {
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			name := fmt.Sprintf("column_%d", i+1)
			if i < len(header) {
				name = strings.TrimSpace(header[i])
			}
			cells = append(cells, fmt.Sprintf("%s: %s", name, value))
		}
		if len(cells) == 0 {
			continue
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString(".\n")
	}
	return b.String(), nil
}

// loadJSON flattens the document into "path: value" lines in stable key
// order, one scalar per line.
func (l *Loader) loadJSON(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", path, err)
	}

	var b strings.Builder
	flattenJSON("", doc, &b)
	return b.String(), nil
}

func flattenJSON(prefix string, value any, b *strings.Builder) {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flattenJSON(joinPath(prefix, k), v[k], b)
		}
	case []any:
		for i, item := range v {
			flattenJSON(fmt.Sprintf("%s[%d]", prefix, i), item, b)
		}
	default:
		fmt.Fprintf(b, "%s: %v.\n", prefix, v)
	}
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// loadPDF extracts plain text page by page. Pages that fail extraction are
// skipped rather than failing the document.
func (l *Loader) loadPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			l.logger.Warn("failed to extract PDF page", "path", path, "page", i, "error", err)
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}

	if b.Len() == 0 {
		return "", fmt.Errorf("no text content extracted from %s", path)
	}
	return b.String(), nil
}
