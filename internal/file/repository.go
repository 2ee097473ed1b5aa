package file

import "context"

type FolderRepository interface {
	Create(ctx context.Context, f *Folder) error
	Get(ctx context.Context, id string) (*Folder, error)
	List(ctx context.Context) ([]*Folder, error)
	Children(ctx context.Context, parentID string) ([]*Folder, error)
	Update(ctx context.Context, f *Folder) error
	Delete(ctx context.Context, id string) error
}

type FileRepository interface {
	Create(ctx context.Context, f *File) error
	Get(ctx context.Context, id string) (*File, error)
	ListByFolder(ctx context.Context, folderID string) ([]*File, error)
	Delete(ctx context.Context, id string) error
}
