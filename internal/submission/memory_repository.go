package submission

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository for tests and local development.
type MemoryRepository struct {
	mu   sync.RWMutex
	subs map[string]*Submission
	now  func() time.Time
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		subs: make(map[string]*Submission),
		now:  time.Now,
	}
}

// Create stores a copy of the submission and fills its id and created_at.
func (r *MemoryRepository) Create(ctx context.Context, sub *Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.Status == "" {
		sub.Status = StatusNew
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = r.now().UTC()
	}
	r.subs[sub.ID] = copySubmission(sub)
	return nil
}

// GetByID fetches a single submission.
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, ok := r.subs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copySubmission(sub), nil
}

// List returns a filtered page, newest first, plus the total matching count.
func (r *MemoryRepository) List(ctx context.Context, filter Filter) ([]*Submission, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*Submission
	for _, sub := range r.subs {
		if filter.Status != "" && sub.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !matchesSearch(sub, filter.Search) {
			continue
		}
		matched = append(matched, sub)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	start := filter.Offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	page := make([]*Submission, 0, end-start)
	for _, sub := range matched[start:end] {
		page = append(page, copySubmission(sub))
	}
	return page, total, nil
}

// UpdateStatus changes a submission's status.
func (r *MemoryRepository) UpdateStatus(ctx context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[id]
	if !ok {
		return ErrNotFound
	}
	sub.Status = status
	return nil
}

// Delete removes one submission.
func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[id]; !ok {
		return ErrNotFound
	}
	delete(r.subs, id)
	return nil
}

// DeleteMany removes a batch and reports how many went away.
func (r *MemoryRepository) DeleteMany(ctx context.Context, ids []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	for _, id := range ids {
		if _, ok := r.subs[id]; ok {
			delete(r.subs, id)
			deleted++
		}
	}
	return deleted, nil
}

// DailyCounts returns per-day counts for the trailing window, oldest first,
// zero-filled.
func (r *MemoryRepository) DailyCounts(ctx context.Context, days int) ([]DailyCount, error) {
	if days <= 0 {
		days = 7
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	since := r.now().UTC().AddDate(0, 0, -(days - 1)).Truncate(24 * time.Hour)
	byDay := make(map[string]int)
	for _, sub := range r.subs {
		created := sub.CreatedAt.UTC()
		if created.Before(since) {
			continue
		}
		byDay[created.Format("2006-01-02")]++
	}

	return fillDailyCounts(byDay, since, days), nil
}

func matchesSearch(sub *Submission, search string) bool {
	search = strings.ToLower(search)
	for _, v := range []string{sub.Name, sub.Email, sub.Message} {
		if strings.Contains(strings.ToLower(v), search) {
			return true
		}
	}
	return false
}

func copySubmission(sub *Submission) *Submission {
	out := *sub
	out.Fields = make(map[string]string, len(sub.Fields))
	for k, v := range sub.Fields {
		out.Fields[k] = v
	}
	return &out
}
