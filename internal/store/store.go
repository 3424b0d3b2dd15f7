// Package store holds the dashboard's mutable keyed state (roster and latest
// detections) behind a single-writer lock discipline.
package store

import (
	"sync"

	"github.com/samber/lo"

	"github.com/spignelon/roadvision-assignment/internal/models"
)

// RosterStore keeps the current full stream roster. Replace swaps the whole
// mapping: частичного merge нет, новый snapshot ростера полностью заменяет
// предыдущий.
type RosterStore struct {
	mu      sync.Mutex
	streams map[string]models.StreamDescriptor
	order   []string
}

func NewRoster() *RosterStore {
	return &RosterStore{streams: make(map[string]models.StreamDescriptor)}
}

// Replace installs a fresh roster snapshot and returns the ids that were
// present before but are gone now, so the caller can evict their resources.
func (r *RosterStore) Replace(descriptors []models.StreamDescriptor) (removed []string) {
	next := make(map[string]models.StreamDescriptor, len(descriptors))
	order := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		next[d.ID] = d
		order = append(order, d.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for id := range r.streams {
		if _, ok := next[id]; !ok {
			removed = append(removed, id)
		}
	}
	r.streams = next
	r.order = order
	return removed
}

// IDs returns the roster stream ids in roster order.
func (r *RosterStore) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// Get returns the descriptor for id.
func (r *RosterStore) Get(id string) (models.StreamDescriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.streams[id]
	return d, ok
}

// All returns the descriptors in roster order.
func (r *RosterStore) All() []models.StreamDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Map(r.order, func(id string, _ int) models.StreamDescriptor {
		return r.streams[id]
	})
}

// Len returns the roster size.
func (r *RosterStore) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.streams)
}

// DetectionStore keeps the latest DetectionRecord per stream. A newer record
// replaces the previous one wholesale.
type DetectionStore struct {
	mu      sync.Mutex
	records map[string]models.DetectionRecord
}

func NewDetections() *DetectionStore {
	return &DetectionStore{records: make(map[string]models.DetectionRecord)}
}

// Replace stores rec for id, dropping the previous record.
func (s *DetectionStore) Replace(id string, rec models.DetectionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = rec
}

// Get returns the latest record for id.
func (s *DetectionStore) Get(id string) (models.DetectionRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	return rec, ok
}

// EnsureRecord stores an empty record for id unless one already exists, so
// consumers never observe an absent record after the first poll.
func (s *DetectionStore) EnsureRecord(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		s.records[id] = models.EmptyRecord()
	}
}

// Remove drops the record for a stream deleted from the roster.
func (s *DetectionStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
}
