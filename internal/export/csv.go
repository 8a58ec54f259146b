package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/sadopc/tasktimer/internal/history"
	"github.com/sadopc/tasktimer/internal/store"
)

var csvHeader = []string{"ID", "Task", "Icon", "Start", "End", "Duration (ms)", "Duration", "Note"}

// WriteCSV writes completed records, oldest first, with task names resolved.
func WriteCSV(w io.Writer, records []store.Record, tasks history.TaskLookup) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	res := history.Run(records, tasks, history.Query{Sort: history.SortOldest})
	for _, e := range res.Entries {
		r := e.Record
		row := []string{
			r.ID,
			e.TaskName,
			e.TaskIcon,
			formatTime(r.StartAt),
			formatTime(*r.EndAt),
			strconv.FormatInt(r.Accumulated, 10),
			formatDuration(r.Accumulated),
			r.Note,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func ToCSV(records []store.Record, tasks history.TaskLookup, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	if err := WriteCSV(f, records, tasks); err != nil {
		return err
	}
	return f.Close()
}

func formatTime(ms int64) string {
	return time.UnixMilli(ms).Local().Format(time.RFC3339)
}

// formatDuration renders ms as HH:MM:SS; hours are not wrapped at 24.
func formatDuration(ms int64) string {
	secs := ms / 1000
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
