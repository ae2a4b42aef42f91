package submission

import "errors"

var (
	// ErrNotFound indicates the submission id does not exist.
	ErrNotFound = errors.New("submission: not found")
	// ErrSaveFailed indicates the repository could not persist the submission.
	ErrSaveFailed = errors.New("submission: failed to save submission")
)

// ValidationError rejects a submission with a user-facing message and the
// 1-based step the offending field renders on, so the client can jump there.
// Reason is a coarse label for metrics, never shown to users.
type ValidationError struct {
	Step    int
	Reason  string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
