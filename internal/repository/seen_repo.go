package repository

import "context"

// SeenSet tracks the links observed during one extraction run.
type SeenSet interface {
	// MarkSeen records link and reports whether it had not been seen before.
	MarkSeen(ctx context.Context, link string) (bool, error)
	// Len returns the number of distinct links seen.
	Len(ctx context.Context) (int, error)
	// Release drops the set once the run is over.
	Release(ctx context.Context) error
}

// SeenSetProvider hands out an empty SeenSet per extraction run.
type SeenSetProvider interface {
	NewRun(ctx context.Context) (SeenSet, error)
}
