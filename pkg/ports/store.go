package ports

import (
	"context"

	"github.com/plumber-ci/plumber/pkg/domain"
)

// CheckpointStore persists the checkpoint document as a whole.
type CheckpointStore interface {
	// Get returns the stored document. A store that holds nothing yet
	// returns an empty document and no error.
	Get(ctx context.Context) (domain.Document, error)

	// Save replaces the stored document. info is a human-readable summary
	// of the run that produced it; stores may record it (commit message,
	// metadata) or ignore it.
	Save(ctx context.Context, doc domain.Document, info string) error
}
