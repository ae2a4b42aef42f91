package submission

import "context"

// Filter narrows List results. Zero values mean no constraint; Limit 0 falls
// back to a server-side default.
type Filter struct {
	Status string
	Search string
	Limit  int
	Offset int
}

// DailyCount is one day's submission volume for the admin dashboard chart.
type DailyCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Repository persists submissions.
type Repository interface {
	Create(ctx context.Context, sub *Submission) error
	GetByID(ctx context.Context, id string) (*Submission, error)
	List(ctx context.Context, filter Filter) ([]*Submission, int, error)
	UpdateStatus(ctx context.Context, id, status string) error
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) (int, error)
	DailyCounts(ctx context.Context, days int) ([]DailyCount, error)
}
