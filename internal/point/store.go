package point

import "context"

type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeRemoved  ChangeKind = "removed"
)

// Change is one store mutation as observed through the change feed. Removed
// changes carry only the point id.
type Change struct {
	Kind  ChangeKind     `json:"kind"`
	Point RecyclingPoint `json:"point"`
}

// Store is the durable collection of recycling points. Writes publish a
// Change on the feed after they commit; readers converge through the feed,
// never through write return values.
type Store interface {
	All(ctx context.Context) ([]RecyclingPoint, error)
	Get(ctx context.Context, id string) (RecyclingPoint, error)
	// Create persists a new point. Verified and CreatedBy are taken from the
	// input as given; callers are responsible for assigning them.
	Create(ctx context.Context, input RecyclingPoint) (RecyclingPoint, error)
	// UpdateMetadata changes title, description and category only.
	UpdateMetadata(ctx context.Context, id string, meta Metadata) (RecyclingPoint, error)
	// Approve flips verified to true. Approving an already verified point is
	// a harmless rewrite of the same value.
	Approve(ctx context.Context, id string) (RecyclingPoint, error)
	Delete(ctx context.Context, id string) error
}
