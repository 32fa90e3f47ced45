package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/tada/internal/kv"
	"github.com/Makepad-fr/tada/internal/model"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestStore(t *testing.T, backend kv.KV) *Store {
	t.Helper()
	s := New(backend, WithIDFunc(seqIDs()))
	s.Init()
	return s
}

func persisted(t *testing.T, backend kv.KV) []model.Item {
	t.Helper()
	raw, ok, err := backend.Get(DefaultKey)
	require.NoError(t, err)
	require.True(t, ok, "nothing persisted")
	var items []model.Item
	require.NoError(t, json.Unmarshal([]byte(raw), &items))
	return items
}

func numbers(items []model.Item) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.Number
	}
	return out
}

// failingKV returns errors from both Get and Set.
type failingKV struct{ sets int }

func (f *failingKV) Get(string) (string, bool, error) { return "", false, errors.New("disk on fire") }
func (f *failingKV) Set(string, string) error {
	f.sets++
	return errors.New("disk full")
}

func TestAddNumbersSequentially(t *testing.T) {
	mem := kv.NewMemory()
	s := newTestStore(t, mem)

	for i := 0; i < 5; i++ {
		it, ok := s.Add(fmt.Sprintf("task %d", i), "")
		require.True(t, ok)
		assert.Equal(t, i+1, it.Number)
		assert.False(t, it.Done)
	}

	assert.Len(t, s.Items(), 5)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, numbers(s.Items()))
	assert.Equal(t, s.Items(), persisted(t, mem))
}

func TestAddRejectsBlankTitle(t *testing.T) {
	mem := kv.NewMemory()
	s := newTestStore(t, mem)

	for _, title := range []string{"", "   ", "\t\n"} {
		_, ok := s.Add(title, "x")
		assert.False(t, ok, "title %q", title)
	}
	assert.Empty(t, s.Items())
	assert.Equal(t, 0, mem.Len(), "rejected add must not write")
}

func TestAddTrimsInput(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())
	it, ok := s.Add("  Buy milk  ", "  2 litres ")
	require.True(t, ok)
	assert.Equal(t, "Buy milk", it.Title)
	assert.Equal(t, "2 litres", it.Description)
}

func TestUniqueIDsWithDefaultGenerator(t *testing.T) {
	s := New(kv.NewMemory())
	s.Init()
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		it, ok := s.Add("x", "")
		require.True(t, ok)
		require.False(t, seen[it.ID], "duplicate id %s", it.ID)
		seen[it.ID] = true
	}
}

func TestToggleIsInvolution(t *testing.T) {
	mem := kv.NewMemory()
	s := newTestStore(t, mem)
	it, _ := s.Add("walk dog", "")

	require.True(t, s.Toggle(it.ID))
	got, _ := s.Get(it.ID)
	assert.True(t, got.Done)
	assert.True(t, persisted(t, mem)[0].Done)

	require.True(t, s.Toggle(it.ID))
	got, _ = s.Get(it.ID)
	assert.False(t, got.Done)
	assert.False(t, persisted(t, mem)[0].Done)
}

func TestLookupMissesAreNoOps(t *testing.T) {
	mem := kv.NewMemory()
	s := newTestStore(t, mem)
	s.Add("a", "")
	before := persisted(t, mem)

	assert.False(t, s.Toggle("nope"))
	assert.False(t, s.Delete("nope"))
	assert.False(t, s.Update("nope", "title", "desc"))

	assert.Equal(t, before, s.Items())
	assert.Equal(t, before, persisted(t, mem))
}

func TestDeleteRenumbersAndIsIdempotent(t *testing.T) {
	mem := kv.NewMemory()
	s := newTestStore(t, mem)
	a, _ := s.Add("a", "")
	b, _ := s.Add("b", "")
	c, _ := s.Add("c", "")

	require.True(t, s.Delete(b.ID))
	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, []string{a.ID, c.ID}, []string{items[0].ID, items[1].ID})
	assert.Equal(t, []int{1, 2}, numbers(items))
	assert.Equal(t, items, persisted(t, mem))

	assert.False(t, s.Delete(b.ID))
	assert.Equal(t, items, s.Items())
}

func TestUpdate(t *testing.T) {
	t.Run("replaces title and description", func(t *testing.T) {
		mem := kv.NewMemory()
		s := newTestStore(t, mem)
		it, _ := s.Add("old", "old desc")

		require.True(t, s.Update(it.ID, "  new  ", ""))
		got, _ := s.Get(it.ID)
		assert.Equal(t, "new", got.Title)
		assert.Equal(t, "", got.Description)
		assert.Equal(t, 1, got.Number)
		assert.Equal(t, "new", persisted(t, mem)[0].Title)
	})

	t.Run("blank title is rejected", func(t *testing.T) {
		mem := kv.NewMemory()
		s := newTestStore(t, mem)
		it, _ := s.Add("keep me", "desc")

		assert.False(t, s.Update(it.ID, "   ", "other"))
		got, _ := s.Get(it.ID)
		assert.Equal(t, "keep me", got.Title)
		assert.Equal(t, "desc", got.Description)
		assert.Equal(t, "keep me", persisted(t, mem)[0].Title)
	})
}

func TestClearCompleted(t *testing.T) {
	mem := kv.NewMemory()
	s := newTestStore(t, mem)
	a, _ := s.Add("a", "")
	b, _ := s.Add("b", "")
	c, _ := s.Add("c", "")
	s.Toggle(a.ID)
	s.Toggle(c.ID)

	assert.Equal(t, 2, s.ClearCompleted())
	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, b.ID, items[0].ID)
	assert.Equal(t, 1, items[0].Number)
	assert.Equal(t, items, persisted(t, mem))

	assert.Equal(t, 0, s.ClearCompleted())
}

func TestFilteredView(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())
	s.Add("buy milk", "")
	s.Add("Call Bob", "")
	s.Add("Buy bread", "")

	tests := []struct {
		filter string
		want   []string
	}{
		{"", []string{"buy milk", "Call Bob", "Buy bread"}},
		{"Buy", []string{"buy milk", "Buy bread"}},
		{"BOB", []string{"Call Bob"}},
		{"milk", []string{"buy milk"}},
		{"zebra", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			s.SetSearchFilter(tt.filter)
			got := []string{}
			for _, it := range s.Filtered() {
				got = append(got, it.Title)
			}
			assert.Equal(t, tt.want, got)
			assert.Len(t, s.Items(), 3, "filter must not touch items")
		})
	}
}

func TestSearchFilterIsNotPersisted(t *testing.T) {
	mem := kv.NewMemory()
	s := newTestStore(t, mem)
	s.Add("a", "")
	before, _, _ := mem.Get(DefaultKey)

	s.SetSearchFilter("a")
	after, _, _ := mem.Get(DefaultKey)
	assert.Equal(t, before, after)

	reopened := newTestStore(t, mem)
	assert.Equal(t, "", reopened.SearchFilter())
}

func TestInitRoundTrip(t *testing.T) {
	mem := kv.NewMemory()
	s := newTestStore(t, mem)
	s.Add("a", "one")
	b, _ := s.Add("b", "two")
	s.Add("c", "three")
	s.Toggle(b.ID)
	s.Update(b.ID, "bee", "two!")
	want := s.Items()

	reopened := New(mem)
	st := reopened.Init()
	assert.Equal(t, want, st.Items)
	assert.Equal(t, want, reopened.Items())
}

func TestInitRecomputesStoredNumbers(t *testing.T) {
	mem := kv.NewMemory()
	require.NoError(t, mem.Set(DefaultKey, `[{"id":"x","number":7,"title":"a"},{"id":"y","number":7,"title":"b"}]`))

	s := New(mem)
	st := s.Init()
	assert.Equal(t, []int{1, 2}, numbers(st.Items))

	// idempotent
	st = s.Init()
	assert.Equal(t, []int{1, 2}, numbers(st.Items))
}

func TestInitWithBadData(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(*kv.Memory)
		titles []string
	}{
		{"absent", func(*kv.Memory) {}, nil},
		{"empty", func(m *kv.Memory) { m.Set(DefaultKey, "") }, nil},
		{"corrupt", func(m *kv.Memory) { m.Set(DefaultKey, "{not json") }, nil},
		{"null", func(m *kv.Memory) { m.Set(DefaultKey, "null") }, nil},
		{"missing ids", func(m *kv.Memory) {
			m.Set(DefaultKey, `[{"title":"a","done":false},{"title":"b","done":false}]`)
		}, []string{"a", "b"}},
		{"duplicate ids", func(m *kv.Memory) {
			m.Set(DefaultKey, `[{"id":"x","title":"a"},{"id":"x","title":"b"},{"id":"","title":"c"}]`)
		}, []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := kv.NewMemory()
			tt.setup(mem)
			s := New(mem)
			st := s.Init()
			assert.NotNil(t, st.Items)

			if tt.titles == nil {
				assert.Empty(t, st.Items)
			} else {
				ids := map[string]bool{}
				var titles []string
				for _, it := range st.Items {
					assert.NotEmpty(t, it.ID)
					assert.False(t, ids[it.ID], "duplicate id %q", it.ID)
					ids[it.ID] = true
					titles = append(titles, it.Title)
				}
				assert.Equal(t, tt.titles, titles)
				assert.Equal(t, st.Items, persisted(t, mem), "repaired ids are written back")
			}

			_, ok := s.Add("still works", "")
			assert.True(t, ok)
		})
	}
}

func TestRepairedIDsAddressOneItem(t *testing.T) {
	t.Run("toggle second of id-less items", func(t *testing.T) {
		mem := kv.NewMemory()
		require.NoError(t, mem.Set(DefaultKey, `[{"title":"a","done":false},{"title":"b","done":false}]`))
		s := New(mem)
		s.Init()

		second, ok := s.ByNumber(2)
		require.True(t, ok)
		require.True(t, s.Toggle(second.ID))

		items := s.Items()
		assert.False(t, items[0].Done)
		assert.True(t, items[1].Done)
	})

	t.Run("delete one of two duplicates", func(t *testing.T) {
		mem := kv.NewMemory()
		require.NoError(t, mem.Set(DefaultKey, `[{"id":"x","title":"a"},{"id":"x","title":"b"}]`))
		s := New(mem)
		s.Init()

		require.True(t, s.Delete("x"))
		_, ok := s.Get("x")
		assert.False(t, ok)
		require.Len(t, s.Items(), 1)
		assert.Equal(t, "b", s.Items()[0].Title)
	})

	t.Run("fresh id never reuses a stored one", func(t *testing.T) {
		mem := kv.NewMemory()
		require.NoError(t, mem.Set(DefaultKey, `[{"title":"a"},{"id":"id-1","title":"b"}]`))
		s := New(mem, WithIDFunc(seqIDs()))
		s.Init()

		items := s.Items()
		require.Len(t, items, 2)
		assert.NotEqual(t, items[0].ID, items[1].ID)
		assert.NotEmpty(t, items[0].ID)
		assert.NotEmpty(t, items[1].ID)
	})

	t.Run("clean data is not rewritten", func(t *testing.T) {
		mem := kv.NewMemory()
		raw := `[{"id":"x","title":"a"}]`
		require.NoError(t, mem.Set(DefaultKey, raw))
		New(mem).Init()

		got, _, err := mem.Get(DefaultKey)
		require.NoError(t, err)
		assert.Equal(t, raw, got)
	})
}

func TestPersistenceFailuresAreLoggedNotSurfaced(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf)
	fk := &failingKV{}
	s := New(fk, WithLogger(logger), WithIDFunc(seqIDs()))

	st := s.Init()
	assert.Empty(t, st.Items)
	assert.Contains(t, buf.String(), "load failed")

	it, ok := s.Add("offline", "")
	require.True(t, ok)
	assert.True(t, s.Toggle(it.ID))
	assert.Equal(t, 2, fk.sets)
	assert.Contains(t, buf.String(), "persist failed")
	assert.Contains(t, buf.String(), "disk full")

	got, _ := s.Get(it.ID)
	assert.True(t, got.Done, "in-memory state keeps working")
}

func TestWithKey(t *testing.T) {
	mem := kv.NewMemory()
	s := New(mem, WithKey("work"))
	s.Init()
	s.Add("a", "")

	_, ok, _ := mem.Get("work")
	assert.True(t, ok)
	_, ok, _ = mem.Get(DefaultKey)
	assert.False(t, ok)
}

func TestByNumberAndStats(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())
	s.Add("a", "")
	b, _ := s.Add("b", "")
	s.Toggle(b.ID)

	got, ok := s.ByNumber(2)
	require.True(t, ok)
	assert.Equal(t, b.ID, got.ID)
	_, ok = s.ByNumber(0)
	assert.False(t, ok)
	_, ok = s.ByNumber(3)
	assert.False(t, ok)

	assert.Equal(t, model.Stats{Total: 2, Active: 1, Completed: 1}, s.Stats())
}

func TestItemsReturnsCopy(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())
	s.Add("a", "")
	items := s.Items()
	items[0].Title = "mutated"
	got, _ := s.ByNumber(1)
	assert.Equal(t, "a", got.Title)
}

func TestScenario(t *testing.T) {
	mem := kv.NewMemory()
	s := newTestStore(t, mem)
	milk, _ := s.Add("Buy milk", "")
	bob, _ := s.Add("Call Bob", "re: project")

	items := s.Items()
	assert.Equal(t, 1, items[0].Number)
	assert.Equal(t, "Buy milk", items[0].Title)
	assert.Equal(t, 2, items[1].Number)
	assert.Equal(t, "Call Bob", items[1].Title)

	s.Delete(milk.ID)
	got, _ := s.Get(bob.ID)
	assert.Equal(t, 1, got.Number)

	s.Toggle(bob.ID)
	reopened := New(mem)
	st := reopened.Init()
	require.Len(t, st.Items, 1)
	assert.True(t, st.Items[0].Done)
	assert.Equal(t, "re: project", st.Items[0].Description)
}
