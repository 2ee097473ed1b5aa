package repositoryimpl

import (
	"context"
	"sort"
	"strings"

	"github.com/kazz187/labtrack/internal/file"
	"github.com/kazz187/labtrack/pkg/docstore"
	"github.com/kazz187/labtrack/pkg/storage"
)

const (
	foldersPrefix = "folders"
	filesPrefix   = "files"
)

type FolderRepository struct {
	docs *docstore.Collection[file.Folder]
}

func NewFolderRepository(s storage.Storage) *FolderRepository {
	return &FolderRepository{
		docs: docstore.NewCollection(s, foldersPrefix, "folder", func(f *file.Folder) string { return f.ID }),
	}
}

func (r *FolderRepository) Create(ctx context.Context, f *file.Folder) error {
	return r.docs.Create(ctx, f)
}

func (r *FolderRepository) Get(ctx context.Context, id string) (*file.Folder, error) {
	return r.docs.Get(ctx, id)
}

func (r *FolderRepository) List(ctx context.Context) ([]*file.Folder, error) {
	return r.docs.All(ctx)
}

// Children returns the direct subfolders of parentID ordered by name.
func (r *FolderRepository) Children(ctx context.Context, parentID string) ([]*file.Folder, error) {
	all, err := r.docs.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*file.Folder, 0)
	for _, f := range all {
		if f.ParentID == parentID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (r *FolderRepository) Update(ctx context.Context, f *file.Folder) error {
	return r.docs.Update(ctx, f)
}

func (r *FolderRepository) Delete(ctx context.Context, id string) error {
	return r.docs.Delete(ctx, id)
}

type FileRepository struct {
	docs *docstore.Collection[file.File]
}

func NewFileRepository(s storage.Storage) *FileRepository {
	return &FileRepository{
		docs: docstore.NewCollection(s, filesPrefix, "file", func(f *file.File) string { return f.ID }),
	}
}

func (r *FileRepository) Create(ctx context.Context, f *file.File) error {
	return r.docs.Create(ctx, f)
}

func (r *FileRepository) Get(ctx context.Context, id string) (*file.File, error) {
	return r.docs.Get(ctx, id)
}

func (r *FileRepository) ListByFolder(ctx context.Context, folderID string) ([]*file.File, error) {
	all, err := r.docs.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*file.File, 0)
	for _, f := range all {
		if f.FolderID == folderID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (r *FileRepository) Delete(ctx context.Context, id string) error {
	return r.docs.Delete(ctx, id)
}
