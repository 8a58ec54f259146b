package registry

import (
	"fmt"
	"testing"
	"time"

	"github.com/sadopc/tasktimer/internal/store"
	"github.com/sadopc/tasktimer/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("task-%02d", n)
	}
}

func newTestRegistry(t *testing.T) (*Registry, *store.Store) {
	t.Helper()
	s := newTestStore(t)
	clock := util.NewFakeClock(time.UnixMilli(1_700_000_000_000))
	return New(s, WithClock(clock), WithIDFunc(seqIDs())), s
}

func TestAddDefaultsAndTrims(t *testing.T) {
	r, _ := newTestRegistry(t)

	task, err := r.Add("  Read  ", "📚")
	require.NoError(t, err)
	assert.Equal(t, "task-01", task.ID)
	assert.Equal(t, "Read", task.Name)
	assert.Equal(t, "📚", task.Icon)
	assert.Equal(t, int64(1_700_000_000_000), task.CreatedAt)

	task, err = r.Add("Write", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultIcon, task.Icon)
}

func TestAddRejectsEmptyName(t *testing.T) {
	r, s := newTestRegistry(t)

	_, err := r.Add("   ", "📚")
	assert.ErrorIs(t, err, ErrEmptyName)
	assert.Empty(t, r.List())
	assert.Empty(t, s.LoadTasks())
}

func TestAddUsesUUIDByDefault(t *testing.T) {
	r := New(newTestStore(t))
	a, err := r.Add("a", "")
	require.NoError(t, err)
	b, err := r.Add("b", "")
	require.NoError(t, err)
	assert.Len(t, a.ID, 36)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestListKeepsCreationOrderAndPersists(t *testing.T) {
	r, s := newTestRegistry(t)
	for _, name := range []string{"Zeta", "Alpha", "Mid"} {
		_, err := r.Add(name, "")
		require.NoError(t, err)
	}

	names := func(tasks []store.Task) []string {
		var out []string
		for _, t := range tasks {
			out = append(out, t.Name)
		}
		return out
	}
	assert.Equal(t, []string{"Zeta", "Alpha", "Mid"}, names(r.List()))
	assert.Equal(t, []string{"Zeta", "Alpha", "Mid"}, names(s.LoadTasks()))

	reloaded := New(s)
	assert.Equal(t, r.List(), reloaded.List())
}

func TestListReturnsCopy(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.Add("Read", "📚")
	require.NoError(t, err)

	list := r.List()
	list[0].Name = "mutated"
	got, ok := r.Get("task-01")
	require.True(t, ok)
	assert.Equal(t, "Read", got.Name)
}

func TestUpdate(t *testing.T) {
	r, s := newTestRegistry(t)
	task, err := r.Add("Read", "📚")
	require.NoError(t, err)

	require.NoError(t, r.Update(task.ID, "Read books", ""))
	got, _ := r.Get(task.ID)
	assert.Equal(t, "Read books", got.Name)
	assert.Equal(t, "📚", got.Icon, "empty icon keeps the current one")
	assert.Equal(t, task.CreatedAt, got.CreatedAt)

	require.NoError(t, r.Update(task.ID, "Read", "📖"))
	assert.Equal(t, "📖", s.LoadTasks()[0].Icon)

	assert.ErrorIs(t, r.Update(task.ID, " ", "x"), ErrEmptyName)
	assert.ErrorIs(t, r.Update("missing", "x", ""), ErrNotFound)
}

func TestDeleteAndResolvePlaceholder(t *testing.T) {
	r, s := newTestRegistry(t)
	task, err := r.Add("Read", "📚")
	require.NoError(t, err)

	name, icon := r.Resolve(task.ID)
	assert.Equal(t, "Read", name)
	assert.Equal(t, "📚", icon)

	require.NoError(t, r.Delete(task.ID))
	assert.Empty(t, s.LoadTasks())

	name, icon = r.Resolve(task.ID)
	assert.Equal(t, UnknownTaskName, name)
	assert.Equal(t, UnknownTaskIcon, icon)

	assert.ErrorIs(t, r.Delete(task.ID), ErrNotFound)
}

func TestLookup(t *testing.T) {
	r := New(newTestStore(t), WithIDFunc(func() func() string {
		ids := []string{"abc-1", "abd-2", "xyz-3"}
		i := 0
		return func() string { i++; return ids[i-1] }
	}()))
	for _, name := range []string{"Read", "Write", "Exercise"} {
		_, err := r.Add(name, "")
		require.NoError(t, err)
	}

	tests := []struct {
		ref  string
		want string
		err  error
	}{
		{ref: "abd-2", want: "Write"},
		{ref: "exercise", want: "Exercise"},
		{ref: "xy", want: "Exercise"},
		{ref: "ab", err: ErrAmbiguous},
		{ref: "nope", err: ErrNotFound},
		{ref: "", err: ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := r.Lookup(tt.ref)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Name)
		})
	}
}

func TestReload(t *testing.T) {
	r, s := newTestRegistry(t)
	_, err := r.Add("Read", "")
	require.NoError(t, err)

	require.NoError(t, s.ClearAll())
	assert.Len(t, r.List(), 1)
	r.Reload()
	assert.Empty(t, r.List())
}
