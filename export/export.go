// Package export persists a finished audit to disk: the full result as
// indented JSON and the roadmap as a spreadsheet-friendly CSV.
package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/topicforge/go-site-audit/models"
)

// Writer persists one audit result.
type Writer interface {
	Write(result *models.SiteAuditResult) error
	Close() error
}

// JSONWriter writes the complete result as one indented JSON document.
type JSONWriter struct {
	file   *os.File
	writer *bufio.Writer
	mu     sync.Mutex
}

// NewJSONWriter initialises the JSON writer.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create json file: %w", err)
	}
	return &JSONWriter{
		file:   f,
		writer: bufio.NewWriter(f),
	}, nil
}

// Write encodes the result.
func (jw *JSONWriter) Write(result *models.SiteAuditResult) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	encoder := json.NewEncoder(jw.writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("encode audit result: %w", err)
	}
	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return nil
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Close()
}

// CSVWriter writes the roadmap tasks as CSV, one row per task.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter initialises a CSV writer and writes the header row.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	header := []string{"id", "priority", "category", "type", "title", "impact", "effort", "affected_urls"}
	if err := writer.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &CSVWriter{
		file:   f,
		writer: writer,
	}, nil
}

// Write appends every roadmap task in priority order.
func (cw *CSVWriter) Write(result *models.SiteAuditResult) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, group := range result.Roadmap.Priorities {
		for _, task := range group.Tasks {
			record := []string{
				task.ID,
				string(task.Priority),
				group.Category,
				string(task.Type),
				task.Title,
				string(task.Impact),
				string(task.Effort),
				strings.Join(task.AffectedURLs, " "),
			}
			if err := cw.writer.Write(record); err != nil {
				return fmt.Errorf("write csv record: %w", err)
			}
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

// DualWriter persists the result as JSON and the roadmap as CSV in one
// call.
type DualWriter struct {
	jsonWriter *JSONWriter
	csvWriter  *CSVWriter
}

// NewDualWriter builds both writers, cleaning up on partial failure.
func NewDualWriter(jsonFilename, csvFilename string) (*DualWriter, error) {
	jsonWriter, err := NewJSONWriter(jsonFilename)
	if err != nil {
		return nil, err
	}
	csvWriter, err := NewCSVWriter(csvFilename)
	if err != nil {
		jsonWriter.Close()
		return nil, err
	}
	return &DualWriter{jsonWriter: jsonWriter, csvWriter: csvWriter}, nil
}

// Write writes the result through both writers.
func (dw *DualWriter) Write(result *models.SiteAuditResult) error {
	if err := dw.jsonWriter.Write(result); err != nil {
		return err
	}
	return dw.csvWriter.Write(result)
}

// Close closes both writers, reporting every failure.
func (dw *DualWriter) Close() error {
	var errs []error
	if err := dw.jsonWriter.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := dw.csvWriter.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("close writers: %v", errs)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
