package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sadopc/tasktimer/internal/util"
)

// ErrCorruptDocument is returned when a stored document cannot be decoded.
var ErrCorruptDocument = errors.New("corrupt document")

// Gateway is the load/save contract the core packages persist through.
// Loads never fail: absent or corrupt documents come back as empty defaults.
// Saves are fire-and-forget; failures are logged.
type Gateway interface {
	LoadTasks() []Task
	SaveTasks(tasks []Task)
	LoadRecords() []Record
	SaveRecords(records []Record)
	LoadTimer() TimerSnapshot
	SaveTimer(snap TimerSnapshot)
	LoadTracking() TrackingState
	SaveTracking(state TrackingState)
}

var _ Gateway = (*Store)(nil)

// LoadDocument decodes the document stored under key into v. It reports
// false with a nil error when the document does not exist.
func (s *Store) LoadDocument(key string, v any) (bool, error) {
	var raw string
	err := s.db.QueryRow(`SELECT value FROM documents WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load document %q: %w", key, err)
	}
	if err := sonic.UnmarshalString(raw, v); err != nil {
		return true, fmt.Errorf("decode document %q: %w: %v", key, ErrCorruptDocument, err)
	}
	return true, nil
}

// SaveDocument encodes v and upserts it under key.
func (s *Store) SaveDocument(key string, v any) error {
	raw, err := sonic.MarshalString(v)
	if err != nil {
		return fmt.Errorf("encode document %q: %w", key, err)
	}
	now := s.clock.Now().UTC().Format(time.RFC3339)
	_, err = s.db.Exec(
		`INSERT INTO documents (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, raw, now,
	)
	if err != nil {
		return fmt.Errorf("save document %q: %w", key, err)
	}
	return nil
}

// DeleteDocument removes the document stored under key, if any.
func (s *Store) DeleteDocument(key string) error {
	if _, err := s.db.Exec(`DELETE FROM documents WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete document %q: %w", key, err)
	}
	return nil
}

// ClearAll removes the tasks, records, timer and tracking documents.
func (s *Store) ClearAll() error {
	for _, key := range []string{DocTasks, DocRecords, DocTimer, DocTracking} {
		if err := s.DeleteDocument(key); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) load(key string, v any) bool {
	if _, err := s.LoadDocument(key, v); err != nil {
		s.log.Warn("falling back to default document", util.F("key", key), util.Err(err))
		return false
	}
	return true
}

func (s *Store) save(key string, v any) {
	if err := s.SaveDocument(key, v); err != nil {
		s.log.Error("save document failed", util.F("key", key), util.Err(err))
	}
}

func (s *Store) LoadTasks() []Task {
	var tasks []Task
	if !s.load(DocTasks, &tasks) || tasks == nil {
		return []Task{}
	}
	return tasks
}

func (s *Store) SaveTasks(tasks []Task) {
	if tasks == nil {
		tasks = []Task{}
	}
	s.save(DocTasks, tasks)
}

func (s *Store) LoadRecords() []Record {
	var records []Record
	if !s.load(DocRecords, &records) || records == nil {
		return []Record{}
	}
	return records
}

func (s *Store) SaveRecords(records []Record) {
	if records == nil {
		records = []Record{}
	}
	s.save(DocRecords, records)
}

func (s *Store) LoadTimer() TimerSnapshot {
	var snap TimerSnapshot
	if !s.load(DocTimer, &snap) {
		return TimerSnapshot{}
	}
	return snap
}

func (s *Store) SaveTimer(snap TimerSnapshot) {
	s.save(DocTimer, snap)
}

func (s *Store) LoadTracking() TrackingState {
	var state TrackingState
	if !s.load(DocTracking, &state) {
		return TrackingState{}
	}
	return state
}

func (s *Store) SaveTracking(state TrackingState) {
	s.save(DocTracking, state)
}
