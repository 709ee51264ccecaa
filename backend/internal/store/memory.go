package store

import (
	"context"
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is a mutex-guarded in-memory Store used by unit tests and small
// deployments that do not want a database. Records are copied on the way in
// and out, list values included, so callers never alias stored state.
type MemoryStore struct {
	mu    sync.Mutex
	nodes map[string]map[string]Record // kind -> id -> record
	order map[string][]string          // kind -> insertion order of ids
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes: map[string]map[string]Record{},
		order: map[string][]string{},
	}
}

func (s *MemoryStore) CreateNode(_ context.Context, kind string, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := copyRecord(rec)
	stored[KeyID] = uuid.NewString()
	s.insert(kind, stored)
	return copyRecord(stored), nil
}

func (s *MemoryStore) FindNodes(_ context.Context, kind string, filter Record) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Record
	for _, id := range s.order[kind] {
		rec := s.nodes[kind][id]
		if matches(rec, filter) {
			out = append(out, copyRecord(rec))
		}
	}
	return out, nil
}

func (s *MemoryStore) UpdateNode(_ context.Context, kind string, id string, patch Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.nodes[kind][id]
	if !ok {
		return nil, ErrNodeNotFound{Kind: kind, ID: id}
	}
	for k, v := range patch {
		if k == KeyID {
			continue
		}
		rec[k] = v
	}
	return copyRecord(rec), nil
}

func (s *MemoryStore) ReplaceNode(_ context.Context, kind string, id string, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.nodes[kind][id]
	if !ok {
		return nil, ErrNodeNotFound{Kind: kind, ID: id}
	}

	creator, hasCreator := stored[KeyCreatorID]
	for k := range stored {
		delete(stored, k)
	}
	for k, v := range copyRecord(rec) {
		if k == KeyID || k == KeyCreatorID {
			continue
		}
		stored[k] = v
	}
	stored[KeyID] = id
	if hasCreator {
		stored[KeyCreatorID] = creator
	}
	return copyRecord(stored), nil
}

func (s *MemoryStore) CreateOwnedNode(_ context.Context, kind, ownerKind, ownerID string, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.nodes[ownerKind][ownerID]
	if !ok {
		return nil, ErrNodeNotFound{Kind: ownerKind, ID: ownerID}
	}

	stored := copyRecord(rec)
	stored[KeyID] = uuid.NewString()
	stored[KeyCreatorID] = ownerID
	s.insert(kind, stored)

	owner[KeyContent] = append(Strings(owner, KeyContent), stored[KeyID].(string))
	return copyRecord(stored), nil
}

func (s *MemoryStore) Connect(_ context.Context, kind, fromID, toID string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, ok := s.nodes[kind][fromID]
	if !ok {
		return nil, ErrNodeNotFound{Kind: kind, ID: fromID}
	}
	to, ok := s.nodes[kind][toID]
	if !ok {
		return nil, ErrNodeNotFound{Kind: kind, ID: toID}
	}

	from[KeyFollowList] = appendUnique(Strings(from, KeyFollowList), toID)
	to[KeyFollowedList] = appendUnique(Strings(to, KeyFollowedList), fromID)
	return copyRecord(to), nil
}

func (s *MemoryStore) Disconnect(_ context.Context, kind, fromID, toID string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, ok := s.nodes[kind][fromID]
	if !ok {
		return nil, ErrNodeNotFound{Kind: kind, ID: fromID}
	}
	to, ok := s.nodes[kind][toID]
	if !ok {
		return nil, ErrNodeNotFound{Kind: kind, ID: toID}
	}

	from[KeyFollowList] = remove(Strings(from, KeyFollowList), toID)
	to[KeyFollowedList] = remove(Strings(to, KeyFollowedList), fromID)
	return copyRecord(to), nil
}

func (s *MemoryStore) insert(kind string, rec Record) {
	if s.nodes[kind] == nil {
		s.nodes[kind] = map[string]Record{}
	}
	id := rec[KeyID].(string)
	s.nodes[kind][id] = rec
	s.order[kind] = append(s.order[kind], id)
}

func matches(rec Record, filter Record) bool {
	for k, want := range filter {
		got, ok := rec[k]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

func appendUnique(list []string, v string) []string {
	for _, item := range list {
		if item == v {
			return list
		}
	}
	return append(list, v)
}

func remove(list []string, v string) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		if item != v {
			out = append(out, item)
		}
	}
	return out
}
