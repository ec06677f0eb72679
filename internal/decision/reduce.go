package decision

import "fmt"

// Reduce folds a pushed full snapshot into the current state. The snapshot
// replaces current wholesale when it validates; otherwise current is
// returned unchanged along with the validation error.
func Reduce(current, snapshot *Analysis) (*Analysis, error) {
	if snapshot == nil {
		return current, fmt.Errorf("reduce: nil snapshot")
	}
	if current != nil && current.UserID != "" && snapshot.UserID != current.UserID {
		return current, fmt.Errorf("reduce: snapshot for user %q applied to %q", snapshot.UserID, current.UserID)
	}
	next := snapshot.Clone()
	next.Normalize()
	if err := next.Validate(); err != nil {
		return current, fmt.Errorf("reduce: %w", err)
	}
	return next, nil
}
