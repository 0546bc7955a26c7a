package ports

import (
	"context"
	"iter"
)

// ChangeSource exposes the version-control questions asked by change conditions.
type ChangeSource interface {
	// CurrentBranch returns the name of the checked-out branch.
	CurrentBranch(ctx context.Context) (string, error)

	// Checkout switches the working tree to ref.
	Checkout(ctx context.Context, ref string) error

	// Head returns the revision id of the current head.
	Head(ctx context.Context) (string, error)

	// Commits yields revision ids from head backward. Stopping the
	// iteration early must release any underlying resource.
	Commits(ctx context.Context) iter.Seq2[string, error]

	// ChangedFiles lists the paths that differ between two revisions.
	ChangedFiles(ctx context.Context, from, to string) ([]string, error)

	// FileContent returns path as of rev, or nil if it does not exist there.
	FileContent(ctx context.Context, rev, path string) ([]byte, error)
}
