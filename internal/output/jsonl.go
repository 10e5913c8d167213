package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"vaultScope/internal/model"
)

// Stdout is the path that selects standard output.
const Stdout = "-"

// Sink receives report records.
type Sink interface {
	PutSnapshots(records []model.TVLSnapshot) error
	PutMarkets(records []model.MarketRecord) error
}

// JsonlSink writes report records as JSON lines, appending to a file or
// writing to standard output.
type JsonlSink struct {
	path   string
	stdout io.Writer
	mu     sync.Mutex
}

func NewJsonlSink(path string) *JsonlSink {
	return &JsonlSink{path: path, stdout: os.Stdout}
}

// PutSnapshots appends TVL snapshots.
func (s *JsonlSink) PutSnapshots(records []model.TVLSnapshot) error {
	items := make([]interface{}, 0, len(records))
	for _, record := range records {
		items = append(items, record)
	}
	return s.write(items)
}

// PutMarkets appends market listings.
func (s *JsonlSink) PutMarkets(records []model.MarketRecord) error {
	items := make([]interface{}, 0, len(records))
	for _, record := range records {
		items = append(items, record)
	}
	return s.write(items)
}

func (s *JsonlSink) write(records []interface{}) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var dst io.Writer
	if s.path == "" || s.path == Stdout {
		dst = s.stdout
	} else {
		dir := filepath.Dir(s.path)
		if dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
		}
		file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open output file: %w", err)
		}
		defer file.Close()
		dst = file
	}

	writer := bufio.NewWriter(dst)
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}
