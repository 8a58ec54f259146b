// Package registry owns the user's task definitions.
package registry

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sadopc/tasktimer/internal/store"
	"github.com/sadopc/tasktimer/internal/util"
)

const (
	DefaultIcon     = "⏱️"
	UnknownTaskName = "Unknown task"
	UnknownTaskIcon = "🔍"
)

var (
	ErrNotFound  = errors.New("task not found")
	ErrEmptyName = errors.New("task name is empty")
	ErrAmbiguous = errors.New("task reference is ambiguous")
)

// TaskStore is the slice of the persistence gateway the registry uses.
type TaskStore interface {
	LoadTasks() []store.Task
	SaveTasks(tasks []store.Task)
}

type Registry struct {
	mu    sync.RWMutex
	tasks []store.Task
	store TaskStore
	clock util.Clock
	newID func() string
}

type Option func(*Registry)

func WithClock(c util.Clock) Option { return func(r *Registry) { r.clock = c } }

// WithIDFunc overrides uuid generation.
func WithIDFunc(fn func() string) Option { return func(r *Registry) { r.newID = fn } }

// New rehydrates the registry from s.
func New(s TaskStore, opts ...Option) *Registry {
	r := &Registry{
		store: s,
		clock: util.SystemClock(),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.tasks = s.LoadTasks()
	return r
}

// Reload discards in-memory tasks and reads them from the store again.
func (r *Registry) Reload() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = r.store.LoadTasks()
}

// List returns tasks in creation order.
func (r *Registry) List() []store.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]store.Task, len(r.tasks))
	copy(out, r.tasks)
	return out
}

func (r *Registry) Get(id string) (store.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.index(id); i >= 0 {
		return r.tasks[i], true
	}
	return store.Task{}, false
}

func (r *Registry) Add(name, icon string) (store.Task, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Task{}, ErrEmptyName
	}
	icon = strings.TrimSpace(icon)
	if icon == "" {
		icon = DefaultIcon
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	t := store.Task{
		ID:        r.newID(),
		Name:      name,
		Icon:      icon,
		CreatedAt: util.NowMillis(r.clock),
	}
	r.tasks = append(r.tasks, t)
	r.persistLocked()
	return t, nil
}

// Update changes name and icon. An empty icon keeps the current one.
func (r *Registry) Update(id, name, icon string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	r.tasks[i].Name = name
	if icon = strings.TrimSpace(icon); icon != "" {
		r.tasks[i].Icon = icon
	}
	r.persistLocked()
	return nil
}

// Delete removes a task. Records that reference it are left alone and
// resolve to the unknown-task placeholder.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)
	r.persistLocked()
	return nil
}

// Resolve returns display name and icon for a task id.
func (r *Registry) Resolve(id string) (name, icon string) {
	if t, ok := r.Get(id); ok {
		return t.Name, t.Icon
	}
	return UnknownTaskName, UnknownTaskIcon
}

// FindByName matches a task name case-insensitively.
func (r *Registry) FindByName(name string) (store.Task, bool) {
	name = strings.TrimSpace(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tasks {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return store.Task{}, false
}

// Lookup resolves a user-typed reference: exact id, name, then unique id prefix.
func (r *Registry) Lookup(ref string) (store.Task, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return store.Task{}, ErrNotFound
	}
	if t, ok := r.Get(ref); ok {
		return t, nil
	}
	if t, ok := r.FindByName(ref); ok {
		return t, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	var matches []store.Task
	for _, t := range r.tasks {
		if strings.HasPrefix(t.ID, ref) {
			matches = append(matches, t)
		}
	}
	switch len(matches) {
	case 0:
		return store.Task{}, fmt.Errorf("%q: %w", ref, ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return store.Task{}, fmt.Errorf("%q matches %d tasks: %w", ref, len(matches), ErrAmbiguous)
	}
}

func (r *Registry) index(id string) int {
	for i, t := range r.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (r *Registry) persistLocked() {
	out := make([]store.Task, len(r.tasks))
	copy(out, r.tasks)
	r.store.SaveTasks(out)
}
