// Package store holds the active batch of editable shift records.
//
// A Store is not safe for concurrent use. Every operation completes
// synchronously; callers that share a Store across goroutines serialize
// access themselves.
package store

import "shiftcal/internal/model"

// Store is an ordered, in-memory batch of records keyed by Record.ID.
type Store struct {
	records []model.Record
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// Replace discards the current batch and adopts records in their given order.
func (s *Store) Replace(records []model.Record) {
	s.records = append([]model.Record(nil), records...)
}

// Records returns a copy of the batch in its current order.
func (s *Store) Records() []model.Record {
	return append([]model.Record(nil), s.records...)
}

// Len returns the number of records in the batch.
func (s *Store) Len() int {
	return len(s.records)
}

// Get returns the record with the given id.
func (s *Store) Get(id int) (model.Record, bool) {
	if i := s.index(id); i >= 0 {
		return s.records[i], true
	}
	return model.Record{}, false
}

// Update replaces one field of the record with the given id. Values are not
// validated. It reports whether a record matched.
func (s *Store) Update(id int, field model.Field, value string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.records[i] = s.records[i].With(field, value)
	return true
}

// Delete removes the record with the given id. Remaining records keep their
// order and ids. It reports whether a record matched.
func (s *Store) Delete(id int) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.records = append(s.records[:i:i], s.records[i+1:]...)
	return true
}

// Reset clears the batch.
func (s *Store) Reset() {
	s.records = nil
}

func (s *Store) index(id int) int {
	for i := range s.records {
		if s.records[i].ID == id {
			return i
		}
	}
	return -1
}
