package export

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sadopc/tasktimer/internal/store"
)

// FormatVersion is written into every JSON snapshot.
const FormatVersion = "1.0.0"

// Snapshot is the JSON export document.
type Snapshot struct {
	Tasks      []store.Task   `json:"tasks"`
	Records    []store.Record `json:"records"`
	ExportDate string         `json:"exportDate"`
	Version    string         `json:"version"`
}

func NewSnapshot(tasks []store.Task, records []store.Record, now time.Time) Snapshot {
	if tasks == nil {
		tasks = []store.Task{}
	}
	if records == nil {
		records = []store.Record{}
	}
	return Snapshot{
		Tasks:      tasks,
		Records:    records,
		ExportDate: now.UTC().Format("2006-01-02T15:04:05.000Z"),
		Version:    FormatVersion,
	}
}

// WriteJSON writes an indented snapshot of all tasks and records to w.
func WriteJSON(w io.Writer, tasks []store.Task, records []store.Record, now time.Time) error {
	data, err := sonic.MarshalIndent(NewSnapshot(tasks, records, now), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

func ToJSON(tasks []store.Task, records []store.Record, path string, now time.Time) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create json file: %w", err)
	}
	defer f.Close()

	if err := WriteJSON(f, tasks, records, now); err != nil {
		return err
	}
	return f.Close()
}

// DefaultFilename names an export file after the local date of now.
func DefaultFilename(ext string, now time.Time) string {
	return fmt.Sprintf("tasktimer-export-%s.%s", now.Format("2006-01-02"), ext)
}
