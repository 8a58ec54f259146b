package store

// Task is a user-defined activity that time is recorded against.
type Task struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	CreatedAt int64  `json:"createdAt"` // epoch ms
}

// Record is one recording session for a task. A record with a nil EndAt is
// active.
type Record struct {
	ID          string `json:"id"`
	TaskID      string `json:"taskId"`
	StartAt     int64  `json:"startAt"`     // epoch ms of the most recent start/resume
	Accumulated int64  `json:"accumulated"` // ms confirmed before the current run
	EndAt       *int64 `json:"endAt,omitempty"`
	Note        string `json:"note,omitempty"`
}

// Completed reports whether the record has been finalized.
func (r Record) Completed() bool { return r.EndAt != nil }

// TimerSnapshot is the persisted timer cache used to survive a restart
// mid-recording.
type TimerSnapshot struct {
	CurrentTime int64 `json:"currentTime"`
	FixedTime   int64 `json:"fixedTime"`
	IsRunning   bool  `json:"isRunning"`
	StartTime   int64 `json:"startTime"`
}

// TrackingState is the task-selection slot.
type TrackingState struct {
	SelectedTaskID string `json:"selectedTaskId,omitempty"`
	ActiveRecordID string `json:"activeRecordId,omitempty"`
	Paused         bool   `json:"paused,omitempty"`
}

type Setting struct {
	Key   string
	Value string
}

// Document keys.
const (
	DocTasks    = "tasks"
	DocRecords  = "records"
	DocTimer    = "timer"
	DocTracking = "tracking"
)

// Setting keys.
const (
	SettingTheme       = "theme"
	SettingHistorySort = "history_sort"
)
