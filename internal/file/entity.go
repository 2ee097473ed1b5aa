// Package file manages the lab's shared folder tree and the blobs behind it.
package file

import "time"

// Folder is a node in the tree. An empty ParentID places it at the root.
type Folder struct {
	ID        string    `yaml:"id" json:"id"`
	Name      string    `yaml:"name" json:"name"`
	ParentID  string    `yaml:"parent_id" json:"parentId"`
	CreatedBy string    `yaml:"created_by" json:"createdBy"`
	CreatedAt time.Time `yaml:"created_at" json:"createdAt"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updatedAt"`
}

type File struct {
	ID          string    `yaml:"id" json:"id"`
	FolderID    string    `yaml:"folder_id" json:"folderId"`
	Name        string    `yaml:"name" json:"name"`
	Size        int64     `yaml:"size" json:"size"`
	ContentType string    `yaml:"content_type" json:"contentType"`
	BlobKey     string    `yaml:"blob_key" json:"-"`
	UploadedBy  string    `yaml:"uploaded_by" json:"uploadedBy"`
	CreatedAt   time.Time `yaml:"created_at" json:"createdAt"`
}

// Contents is one folder listing.
type Contents struct {
	Folder  *Folder   `json:"folder,omitempty"`
	Path    []*Folder `json:"path"`
	Folders []*Folder `json:"folders"`
	Files   []*File   `json:"files"`
}
