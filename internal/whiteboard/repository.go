package whiteboard

import "context"

type Repository interface {
	// Load returns an empty board when none has been saved yet.
	Load(ctx context.Context) (*Board, error)
	Save(ctx context.Context, b *Board) error
}
