package file

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sourcegraph/conc/pool"

	"github.com/kazz187/labtrack/internal/eventbus"
	"github.com/kazz187/labtrack/pkg/cerr"
	"github.com/kazz187/labtrack/pkg/storage"
)

const (
	blobPrefix   = "blobs"
	maxNameLen   = 255
	sizeParallel = 8
)

type Service struct {
	folders  FolderRepository
	files    FileRepository
	blobs    storage.Storage
	eventBus *eventbus.Bus
	maxBytes int64

	mu sync.Mutex
}

func NewService(folders FolderRepository, files FileRepository, blobs storage.Storage, eventBus *eventbus.Bus, maxBytes int64) *Service {
	return &Service{
		folders:  folders,
		files:    files,
		blobs:    blobs,
		eventBus: eventBus,
		maxBytes: maxBytes,
	}
}

func (s *Service) MaxBytes() int64 { return s.maxBytes }

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", cerr.NewInvalidArgumentError("invalid name", map[string]string{"name": "is required"})
	case len(name) > maxNameLen:
		return "", cerr.NewInvalidArgumentError("invalid name", map[string]string{"name": "is too long"})
	case strings.ContainsAny(name, `/\`), name == ".", name == "..":
		return "", cerr.NewInvalidArgumentError("invalid name", map[string]string{"name": "must not contain path separators"})
	}
	return name, nil
}

func (s *Service) CreateFolder(ctx context.Context, name, parentID, by string) (*Folder, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkParent(ctx, parentID); err != nil {
		return nil, err
	}
	if err := s.checkSiblingName(ctx, parentID, name, ""); err != nil {
		return nil, err
	}
	now := time.Now()
	f := &Folder{
		ID:        ulid.Make().String(),
		Name:      name,
		ParentID:  parentID,
		CreatedBy: by,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.folders.Create(ctx, f); err != nil {
		return nil, err
	}
	s.publish(f.ID, "folder_created")
	return f, nil
}

// UpdateFolder renames and/or moves a folder. Moving a folder under itself
// or one of its descendants is rejected.
func (s *Service) UpdateFolder(ctx context.Context, id string, name, parentID *string) (*Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.folders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if name != nil {
		if f.Name, err = validateName(*name); err != nil {
			return nil, err
		}
	}
	if parentID != nil && *parentID != f.ParentID {
		if err := s.checkParent(ctx, *parentID); err != nil {
			return nil, err
		}
		if err := s.checkNotDescendant(ctx, id, *parentID); err != nil {
			return nil, err
		}
		f.ParentID = *parentID
	}
	if err := s.checkSiblingName(ctx, f.ParentID, f.Name, f.ID); err != nil {
		return nil, err
	}
	f.UpdatedAt = time.Now()
	if err := s.folders.Update(ctx, f); err != nil {
		return nil, err
	}
	s.publish(f.ID, "folder_updated")
	return f, nil
}

// Contents lists a folder. An empty id lists the root.
func (s *Service) Contents(ctx context.Context, id string) (*Contents, error) {
	c := &Contents{Path: []*Folder{}}
	if id != "" {
		f, err := s.folders.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		c.Folder = f
		if c.Path, err = s.path(ctx, f); err != nil {
			return nil, err
		}
	}
	var err error
	if c.Folders, err = s.folders.Children(ctx, id); err != nil {
		return nil, err
	}
	if c.Files, err = s.files.ListByFolder(ctx, id); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteFolder removes a folder with every subfolder, file and blob below it.
func (s *Service) DeleteFolder(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.folders.Get(ctx, id); err != nil {
		return err
	}
	all, err := s.folders.List(ctx)
	if err != nil {
		return err
	}
	subtree := descendants(all, id)
	// deepest first so a failure never leaves an orphaned child
	for i := len(subtree) - 1; i >= 0; i-- {
		folderID := subtree[i]
		files, err := s.files.ListByFolder(ctx, folderID)
		if err != nil {
			return err
		}
		for _, f := range files {
			if err := s.deleteFile(ctx, f); err != nil {
				return err
			}
		}
		if err := s.folders.Delete(ctx, folderID); err != nil {
			return err
		}
	}
	slog.InfoContext(ctx, "folder deleted", "folder_id", id, "folders", len(subtree))
	s.publish(id, "folder_deleted")
	return nil
}

// Size is the recursive byte and file count of a folder.
type Size struct {
	Bytes   int64 `json:"bytes"`
	Files   int   `json:"files"`
	Folders int   `json:"folders"`
}

// FolderSize sums every file below id. Folder listings are read concurrently.
func (s *Service) FolderSize(ctx context.Context, id string) (*Size, error) {
	if _, err := s.folders.Get(ctx, id); err != nil {
		return nil, err
	}
	all, err := s.folders.List(ctx)
	if err != nil {
		return nil, err
	}
	subtree := descendants(all, id)

	p := pool.NewWithResults[Size]().WithMaxGoroutines(sizeParallel).WithContext(ctx)
	for _, folderID := range subtree {
		p.Go(func(ctx context.Context) (Size, error) {
			files, err := s.files.ListByFolder(ctx, folderID)
			if err != nil {
				return Size{}, err
			}
			sz := Size{Files: len(files), Folders: 1}
			for _, f := range files {
				sz.Bytes += f.Size
			}
			return sz, nil
		})
	}
	parts, err := p.Wait()
	if err != nil {
		return nil, err
	}
	total := &Size{}
	for _, sz := range parts {
		total.Bytes += sz.Bytes
		total.Files += sz.Files
		total.Folders += sz.Folders
	}
	// the folder itself is not counted
	total.Folders--
	return total, nil
}

// Upload stores data as a new file in folderID.
func (s *Service) Upload(ctx context.Context, folderID, name, contentType string, data []byte, by string) (*File, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > s.maxBytes {
		return nil, cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("file exceeds the %d byte limit", s.maxBytes), nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkParent(ctx, folderID); err != nil {
		return nil, err
	}
	id := ulid.Make().String()
	f := &File{
		ID:          id,
		FolderID:    folderID,
		Name:        name,
		Size:        int64(len(data)),
		ContentType: contentType,
		BlobKey:     blobPrefix + "/" + id,
		UploadedBy:  by,
		CreatedAt:   time.Now(),
	}
	if err := s.blobs.Write(ctx, f.BlobKey, data); err != nil {
		return nil, cerr.WrapStorageWriteError("file", err)
	}
	if err := s.files.Create(ctx, f); err != nil {
		if delErr := s.blobs.Delete(ctx, f.BlobKey); delErr != nil {
			slog.WarnContext(ctx, "failed to remove orphaned blob", "blob_key", f.BlobKey, "error", delErr)
		}
		return nil, err
	}
	s.publish(f.ID, "file_uploaded")
	return f, nil
}

func (s *Service) Get(ctx context.Context, id string) (*File, error) {
	return s.files.Get(ctx, id)
}

// Download returns the file metadata and its content.
func (s *Service) Download(ctx context.Context, id string) (*File, []byte, error) {
	f, err := s.files.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.blobs.Read(ctx, f.BlobKey)
	if err != nil {
		return nil, nil, cerr.WrapStorageReadError("file content", err)
	}
	return f, data, nil
}

func (s *Service) DeleteFile(ctx context.Context, id string) error {
	f, err := s.files.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.deleteFile(ctx, f); err != nil {
		return err
	}
	s.publish(id, "file_deleted")
	return nil
}

func (s *Service) deleteFile(ctx context.Context, f *File) error {
	if err := s.blobs.Delete(ctx, f.BlobKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return cerr.WrapStorageDeleteError("file content", err)
	}
	return s.files.Delete(ctx, f.ID)
}

func (s *Service) checkParent(ctx context.Context, parentID string) error {
	if parentID == "" {
		return nil
	}
	if _, err := s.folders.Get(ctx, parentID); err != nil {
		if cerr.IsCode(err, cerr.NotFound) {
			return cerr.NewInvalidArgumentError("invalid parent", map[string]string{"parentId": "unknown folder"})
		}
		return err
	}
	return nil
}

func (s *Service) checkSiblingName(ctx context.Context, parentID, name, selfID string) error {
	siblings, err := s.folders.Children(ctx, parentID)
	if err != nil {
		return err
	}
	for _, sib := range siblings {
		if sib.ID != selfID && strings.EqualFold(sib.Name, name) {
			return cerr.NewError(cerr.AlreadyExists, fmt.Sprintf("folder %q already exists here", name), nil)
		}
	}
	return nil
}

func (s *Service) checkNotDescendant(ctx context.Context, id, newParentID string) error {
	for cur := newParentID; cur != ""; {
		if cur == id {
			return cerr.NewError(cerr.FailedPrecondition, "cannot move a folder into itself or its descendants", nil)
		}
		f, err := s.folders.Get(ctx, cur)
		if err != nil {
			return err
		}
		cur = f.ParentID
	}
	return nil
}

// path returns the ancestors of f from the root down, f included.
func (s *Service) path(ctx context.Context, f *Folder) ([]*Folder, error) {
	path := []*Folder{f}
	seen := map[string]struct{}{f.ID: {}}
	for cur := f.ParentID; cur != ""; {
		if _, ok := seen[cur]; ok {
			return nil, cerr.NewError(cerr.DataLoss, "folder tree contains a cycle", nil)
		}
		seen[cur] = struct{}{}
		parent, err := s.folders.Get(ctx, cur)
		if err != nil {
			return nil, err
		}
		path = append([]*Folder{parent}, path...)
		cur = parent.ParentID
	}
	return path, nil
}

func (s *Service) publish(id, action string) {
	s.eventBus.PublishNew(eventbus.FileChanged, id, map[string]string{"action": action})
}

// descendants returns root followed by every folder below it, parents
// before children.
func descendants(all []*Folder, root string) []string {
	children := make(map[string][]string, len(all))
	for _, f := range all {
		children[f.ParentID] = append(children[f.ParentID], f.ID)
	}
	out := []string{root}
	seen := map[string]struct{}{root: {}}
	for i := 0; i < len(out); i++ {
		for _, c := range children[out[i]] {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				out = append(out, c)
			}
		}
	}
	return out
}
