// Package store owns the ordered todo list and writes it through to a KV
// backend after every mutation.
//
// A Store is not safe for concurrent use; callers drive it from a single
// goroutine (a CLI command or the bubbletea update loop).
package store

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Makepad-fr/tada/internal/kv"
	"github.com/Makepad-fr/tada/internal/logging"
	"github.com/Makepad-fr/tada/internal/model"
)

// DefaultKey is the KV key holding the JSON-encoded item list.
const DefaultKey = "todos"

type Store struct {
	kv     kv.KV
	key    string
	logger *log.Logger
	newID  func() string

	items  []model.Item
	filter string
}

type Option func(*Store)

// WithKey overrides the KV key the list is stored under.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDFunc replaces the uuid generator; tests use it for stable ids.
func WithIDFunc(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// New returns an empty store. Call Init to load persisted items.
func New(backend kv.KV, opts ...Option) *Store {
	s := &Store{
		kv:     backend,
		key:    DefaultKey,
		logger: logging.Discard(),
		newID:  uuid.NewString,
		items:  []model.Item{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Init replaces the in-memory list with the persisted one. Missing or
// unreadable data yields an empty list; the failure is logged, not returned.
func (s *Store) Init() model.State {
	items, repaired := s.load()
	s.items = items
	s.renumber()
	if repaired > 0 {
		s.logger.Info("assigned fresh ids to stored todos", "key", s.key, "count", repaired)
		s.save()
	}
	s.logger.Debug("loaded todos", "key", s.key, "count", len(s.items))
	return s.State()
}

// load reads the stored list. Items with a missing or repeated id get a
// fresh one; the second return value counts them.
func (s *Store) load() ([]model.Item, int) {
	raw, ok, err := s.kv.Get(s.key)
	if err != nil {
		s.logger.Warn("load failed, starting empty", "key", s.key, "err", err)
		return []model.Item{}, 0
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return []model.Item{}, 0
	}
	var items []model.Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.logger.Warn("stored todos are corrupt, starting empty", "key", s.key, "err", fmt.Errorf("json unmarshal: %w", err))
		return []model.Item{}, 0
	}
	if items == nil {
		return []model.Item{}, 0
	}

	seen := make(map[string]struct{}, len(items))
	repaired := 0
	for i := range items {
		if _, dup := seen[items[i].ID]; items[i].ID == "" || dup {
			items[i].ID = s.freshID(seen)
			repaired++
		}
		seen[items[i].ID] = struct{}{}
	}
	return items, repaired
}

func (s *Store) freshID(taken map[string]struct{}) string {
	for {
		id := s.newID()
		if _, ok := taken[id]; id != "" && !ok {
			return id
		}
	}
}

// Add appends a new item. A title that is blank after trimming is rejected
// with ok == false and nothing is written.
func (s *Store) Add(title, description string) (model.Item, bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Item{}, false
	}
	it := model.Item{
		ID:          s.newID(),
		Title:       title,
		Description: strings.TrimSpace(description),
	}
	s.items = append(s.items, it)
	s.renumber()
	s.save()
	added := s.items[len(s.items)-1]
	s.logger.Debug("added", "id", added.ID, "number", added.Number)
	return added, true
}

// Toggle flips the completion flag. Unknown ids are ignored.
func (s *Store) Toggle(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.items[i].Done = !s.items[i].Done
	s.save()
	s.logger.Debug("toggled", "id", id, "done", s.items[i].Done)
	return true
}

// Delete removes the item and renumbers the rest. Unknown ids are ignored.
func (s *Store) Delete(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.items = slices.Delete(s.items, i, i+1)
	s.renumber()
	s.save()
	s.logger.Debug("deleted", "id", id)
	return true
}

// Update replaces title and description. The same non-blank title rule as
// Add applies; a blank title leaves the item untouched.
func (s *Store) Update(id, title, description string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return false
	}
	s.items[i].Title = title
	s.items[i].Description = strings.TrimSpace(description)
	s.save()
	s.logger.Debug("updated", "id", id)
	return true
}

// ClearCompleted drops every done item and returns how many were removed.
func (s *Store) ClearCompleted() int {
	before := len(s.items)
	s.items = slices.DeleteFunc(s.items, func(it model.Item) bool { return it.Done })
	removed := before - len(s.items)
	if removed == 0 {
		return 0
	}
	s.renumber()
	s.save()
	s.logger.Debug("cleared completed", "removed", removed)
	return removed
}

// SetSearchFilter sets the session-only title filter used by Filtered.
func (s *Store) SetSearchFilter(q string) { s.filter = q }

func (s *Store) SearchFilter() string { return s.filter }

// Filtered returns the items whose title contains the search filter,
// ignoring case. An empty filter returns every item.
func (s *Store) Filtered() []model.Item {
	if s.filter == "" {
		return s.Items()
	}
	q := strings.ToLower(s.filter)
	out := make([]model.Item, 0, len(s.items))
	for _, it := range s.items {
		if strings.Contains(strings.ToLower(it.Title), q) {
			out = append(out, it)
		}
	}
	return out
}

// Items returns a copy of the full list in display order.
func (s *Store) Items() []model.Item {
	return slices.Clone(s.items)
}

func (s *Store) State() model.State {
	return model.State{Items: s.Items(), SearchFilter: s.filter}
}

func (s *Store) Get(id string) (model.Item, bool) {
	i := s.index(id)
	if i < 0 {
		return model.Item{}, false
	}
	return s.items[i], true
}

// ByNumber looks an item up by its 1-based display number.
func (s *Store) ByNumber(n int) (model.Item, bool) {
	if n < 1 || n > len(s.items) {
		return model.Item{}, false
	}
	return s.items[n-1], true
}

func (s *Store) Stats() model.Stats { return model.CountStats(s.items) }

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.items, func(it model.Item) bool { return it.ID == id })
}

func (s *Store) renumber() {
	for i := range s.items {
		s.items[i].Number = i + 1
	}
}

// save writes the whole list. Failures are logged and otherwise ignored:
// the in-memory list stays authoritative for the rest of the session.
func (s *Store) save() {
	b, err := json.Marshal(s.items)
	if err != nil {
		s.logger.Warn("encode failed", "key", s.key, "err", fmt.Errorf("json marshal: %w", err))
		return
	}
	if err := s.kv.Set(s.key, string(b)); err != nil {
		s.logger.Warn("persist failed", "key", s.key, "err", err)
	}
}
