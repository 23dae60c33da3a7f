// Package mem implements a staged in-memory snapshot of a store.
//
// A snapshot keeps only the updates made on top of its parent. Reads fall
// through to the parent when the key has not been touched, so that a chain of
// stages can be discarded at any level without affecting the parent until the
// updates are explicitly applied.
package mem

import (
	"sort"

	"go.dedis.ch/ballot/core/store"
	"golang.org/x/xerrors"
)

// Snapshot is an in-memory overlay over a readable store.
//
// - implements store.Snapshot
type Snapshot struct {
	parent  store.Readable
	values  map[string][]byte
	deleted map[string]struct{}
}

// NewSnapshot returns a new empty snapshot on top of the parent. The parent
// can be nil.
func NewSnapshot(parent store.Readable) *Snapshot {
	return &Snapshot{
		parent:  parent,
		values:  make(map[string][]byte),
		deleted: make(map[string]struct{}),
	}
}

// Get implements store.Readable. It returns the staged value if any, otherwise
// the value of the parent.
func (s *Snapshot) Get(key []byte) ([]byte, error) {
	str := string(key)

	_, found := s.deleted[str]
	if found {
		return nil, nil
	}

	val, found := s.values[str]
	if found {
		return append([]byte{}, val...), nil
	}

	if s.parent == nil {
		return nil, nil
	}

	val, err := s.parent.Get(key)
	if err != nil {
		return nil, xerrors.Errorf("parent: %v", err)
	}

	return val, nil
}

// Set implements store.Writable. It stages the value for the key.
func (s *Snapshot) Set(key, value []byte) error {
	str := string(key)

	delete(s.deleted, str)
	s.values[str] = append([]byte{}, value...)

	return nil
}

// Delete implements store.Writable. It stages the deletion of the key.
func (s *Snapshot) Delete(key []byte) error {
	str := string(key)

	delete(s.values, str)
	s.deleted[str] = struct{}{}

	return nil
}

// Len returns the number of staged updates, deletions included.
func (s *Snapshot) Len() int {
	return len(s.values) + len(s.deleted)
}

// Stage creates a child of the snapshot and runs the function with it. The
// child is returned only when the function succeeds, and it is left to the
// caller to apply it.
func (s *Snapshot) Stage(fn func(store.Snapshot) error) (*Snapshot, error) {
	child := NewSnapshot(s)

	err := fn(child)
	if err != nil {
		return nil, err
	}

	return child, nil
}

// Apply writes the staged updates to the store in the lexicographic order of
// the keys.
func (s *Snapshot) Apply(w store.Writable) error {
	keys := make([]string, 0, len(s.values))
	for key := range s.values {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		err := w.Set([]byte(key), s.values[key])
		if err != nil {
			return xerrors.Errorf("failed to set key %#x: %v", key, err)
		}
	}

	deleted := make([]string, 0, len(s.deleted))
	for key := range s.deleted {
		deleted = append(deleted, key)
	}

	sort.Strings(deleted)

	for _, key := range deleted {
		err := w.Delete([]byte(key))
		if err != nil {
			return xerrors.Errorf("failed to delete key %#x: %v", key, err)
		}
	}

	return nil
}
