// Package history queries completed records for display and reporting.
package history

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/sadopc/tasktimer/internal/registry"
	"github.com/sadopc/tasktimer/internal/store"
)

type SortOrder string

const (
	SortNewest   SortOrder = "newest"
	SortOldest   SortOrder = "oldest"
	SortLongest  SortOrder = "longest"
	SortShortest SortOrder = "shortest"
)

// SortOrders lists the orders in cycling order.
var SortOrders = []SortOrder{SortNewest, SortOldest, SortLongest, SortShortest}

// ParseSort accepts a sort order name; empty means newest.
func ParseSort(s string) (SortOrder, error) {
	if s == "" {
		return SortNewest, nil
	}
	o := SortOrder(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(SortOrders, o) {
		return SortNewest, fmt.Errorf("unknown sort order %q (want newest, oldest, longest or shortest)", s)
	}
	return o, nil
}

// Next returns the order after o, wrapping around.
func (o SortOrder) Next() SortOrder {
	i := slices.Index(SortOrders, o)
	return SortOrders[(i+1)%len(SortOrders)]
}

func (o SortOrder) Label() string {
	switch o {
	case SortOldest:
		return "Oldest first"
	case SortLongest:
		return "Longest first"
	case SortShortest:
		return "Shortest first"
	default:
		return "Newest first"
	}
}

// TaskLookup finds tasks by id.
type TaskLookup interface {
	Get(id string) (store.Task, bool)
}

type Query struct {
	Search string
	Sort   SortOrder
}

// Entry is a completed record with its task resolved for display.
type Entry struct {
	Record   store.Record
	TaskName string
	TaskIcon string
	// Orphan is set when the record's task no longer exists.
	Orphan bool
}

type Result struct {
	Entries []Entry
	// Total is the summed accumulated time of Entries, in ms.
	Total int64
}

// Run filters completed records by task name and sorts them.
func Run(records []store.Record, tasks TaskLookup, q Query) Result {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	res := Result{Entries: []Entry{}}

	for _, r := range records {
		if !r.Completed() {
			continue
		}
		e := Entry{Record: r, TaskName: registry.UnknownTaskName, TaskIcon: registry.UnknownTaskIcon, Orphan: true}
		if t, ok := tasks.Get(r.TaskID); ok {
			e.TaskName, e.TaskIcon, e.Orphan = t.Name, t.Icon, false
		}
		if search != "" && (e.Orphan || !strings.Contains(strings.ToLower(e.TaskName), search)) {
			continue
		}
		res.Entries = append(res.Entries, e)
		res.Total += r.Accumulated
	}

	slices.SortStableFunc(res.Entries, compareFor(q.Sort))
	return res
}

func compareFor(o SortOrder) func(a, b Entry) int {
	switch o {
	case SortOldest:
		return func(a, b Entry) int { return cmp.Compare(*a.Record.EndAt, *b.Record.EndAt) }
	case SortLongest:
		return func(a, b Entry) int { return cmp.Compare(b.Record.Accumulated, a.Record.Accumulated) }
	case SortShortest:
		return func(a, b Entry) int { return cmp.Compare(a.Record.Accumulated, b.Record.Accumulated) }
	default:
		return func(a, b Entry) int { return cmp.Compare(*b.Record.EndAt, *a.Record.EndAt) }
	}
}

// TaskTotal is the time spent on one task.
type TaskTotal struct {
	TaskID string
	Name   string
	Icon   string
	Total  int64
	Count  int
}

// SummarizeByTask groups entries by task, largest total first.
func SummarizeByTask(entries []Entry) []TaskTotal {
	idx := map[string]int{}
	var out []TaskTotal
	for _, e := range entries {
		i, ok := idx[e.Record.TaskID]
		if !ok {
			i = len(out)
			idx[e.Record.TaskID] = i
			out = append(out, TaskTotal{TaskID: e.Record.TaskID, Name: e.TaskName, Icon: e.TaskIcon})
		}
		out[i].Total += e.Record.Accumulated
		out[i].Count++
	}
	slices.SortStableFunc(out, func(a, b TaskTotal) int { return cmp.Compare(b.Total, a.Total) })
	return out
}
