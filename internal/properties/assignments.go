package properties

import (
	"sync"
	"time"

	"github.com/propflow/settlement-api/internal/types"
)

// AssignmentStore is a keyed in-process cache of property assignments:
// load on demand, patch after a successful status update, invalidate to
// force a reload. It replaces ad hoc client-side array rewrites with an
// explicit refresh/invalidation lifecycle.
type AssignmentStore struct {
	mu        sync.RWMutex
	snapshots map[string]AssignmentSnapshot
}

func NewAssignmentStore() *AssignmentStore {
	return &AssignmentStore{
		snapshots: make(map[string]AssignmentSnapshot),
	}
}

// Get returns the cached snapshot for a property, if any
func (s *AssignmentStore) Get(propertyID string) (AssignmentSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.snapshots[propertyID]
	return snapshot, ok
}

// Put stores a snapshot built from the persisted property
func (s *AssignmentStore) Put(property *types.Property) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[property.PropertyID] = AssignmentSnapshot{
		PropertyID:  property.PropertyID,
		Title:       property.Title,
		Status:      property.Status,
		SellerID:    property.SellerID,
		SellerName:  property.SellerName,
		SellerEmail: property.SellerEmail,
		AgentID:     property.AgentID,
		LoadedAt:    time.Now(),
	}
}

// Patch applies a status change to an existing snapshot. A missing entry
// is left missing; callers reload through Get miss handling.
func (s *AssignmentStore) Patch(propertyID, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, ok := s.snapshots[propertyID]
	if !ok {
		return
	}
	snapshot.Status = status
	snapshot.LoadedAt = time.Now()
	s.snapshots[propertyID] = snapshot
}

// Invalidate drops a snapshot so the next access reloads it
func (s *AssignmentStore) Invalidate(propertyID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.snapshots, propertyID)
}

// Len returns the number of cached snapshots
func (s *AssignmentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.snapshots)
}
