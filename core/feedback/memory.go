package feedback

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"model-lifecycle/core/models"
)

// MemoryRepository keeps labels in process memory
type MemoryRepository struct {
	mu     sync.RWMutex
	labels map[string]*models.FeedbackLabel
	seq    map[string]uint64
	next   uint64
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		labels: make(map[string]*models.FeedbackLabel),
		seq:    make(map[string]uint64),
	}
}

// Create stores a copy of the label
func (r *MemoryRepository) Create(_ context.Context, label *models.FeedbackLabel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.labels[label.ID]; ok {
		return fmt.Errorf("feedback %s already exists: %w", label.ID, models.ErrInvalidInput)
	}
	c := *label
	r.labels[label.ID] = &c
	r.next++
	r.seq[label.ID] = r.next
	return nil
}

// Get returns a copy of the label
func (r *MemoryRepository) Get(_ context.Context, id string) (*models.FeedbackLabel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	label, ok := r.labels[id]
	if !ok {
		return nil, fmt.Errorf("feedback %s: %w", id, models.ErrNotFound)
	}
	c := *label
	return &c, nil
}

// Update replaces a stored label
func (r *MemoryRepository) Update(_ context.Context, label *models.FeedbackLabel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.labels[label.ID]; !ok {
		return fmt.Errorf("feedback %s: %w", label.ID, models.ErrNotFound)
	}
	c := *label
	r.labels[label.ID] = &c
	return nil
}

// Delete removes a label
func (r *MemoryRepository) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.labels[id]; !ok {
		return false, nil
	}
	delete(r.labels, id)
	delete(r.seq, id)
	return true, nil
}

// List returns copies of matching labels, oldest first
func (r *MemoryRepository) List(_ context.Context, filter models.FeedbackFilter) ([]*models.FeedbackLabel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.FeedbackLabel, 0)
	for _, label := range r.labels {
		if !matches(label, filter) {
			continue
		}
		c := *label
		out = append(out, &c)
	}

	// Insertion order breaks ties between labels created in the same instant
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return r.seq[out[i].ID] < r.seq[out[j].ID]
	})
	return out, nil
}

func matches(label *models.FeedbackLabel, filter models.FeedbackFilter) bool {
	if filter.RequestID != "" && label.RequestID != filter.RequestID {
		return false
	}
	if filter.TenantID != "" && label.TenantID != filter.TenantID {
		return false
	}
	if filter.FalsePositive && !label.FalsePositive {
		return false
	}
	if filter.FalseNegative && !label.FalseNegative {
		return false
	}
	return true
}
