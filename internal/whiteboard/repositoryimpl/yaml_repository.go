package repositoryimpl

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/kazz187/labtrack/internal/whiteboard"
	"github.com/kazz187/labtrack/pkg/cerr"
	"github.com/kazz187/labtrack/pkg/storage"
)

const boardPath = "whiteboard/board.yaml"

type YAMLRepository struct {
	storage storage.Storage
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func (r *YAMLRepository) Load(ctx context.Context) (*whiteboard.Board, error) {
	data, err := r.storage.Read(ctx, boardPath)
	if errors.Is(err, storage.ErrNotFound) {
		return &whiteboard.Board{}, nil
	}
	if err != nil {
		return nil, cerr.WrapStorageReadError("whiteboard", err)
	}
	var b whiteboard.Board
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal whiteboard: %w", err))
	}
	return &b, nil
}

func (r *YAMLRepository) Save(ctx context.Context, b *whiteboard.Board) error {
	data, err := yaml.Marshal(b)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal whiteboard: %w", err))
	}
	if err := r.storage.Write(ctx, boardPath, data); err != nil {
		return cerr.WrapStorageWriteError("whiteboard", err)
	}
	return nil
}
