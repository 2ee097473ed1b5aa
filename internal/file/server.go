package file

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/labtrack/internal/auth"
	"github.com/kazz187/labtrack/pkg/cerr"
	"github.com/kazz187/labtrack/pkg/rest"
)

// multipart framing allowance on top of the file size limit
const multipartOverhead = 1 << 20

type Server struct {
	service *Service
}

func NewServer(service *Service) *Server {
	return &Server{service: service}
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/folders", rest.Handle(s.contents))
	r.Post("/folders", rest.Create(s.createFolder))
	r.Get("/folders/{id}", rest.Handle(s.contents))
	r.Patch("/folders/{id}", rest.Handle(s.updateFolder))
	r.Delete("/folders/{id}", rest.Handle(s.deleteFolder))
	r.Get("/folders/{id}/size", rest.Handle(s.folderSize))

	r.Post("/files", s.upload)
	r.Get("/files/{id}", rest.Handle(s.getFile))
	r.Get("/files/{id}/download", s.download)
	r.Delete("/files/{id}", rest.Handle(s.deleteFile))
}

func (s *Server) contents(r *http.Request) (any, error) {
	return s.service.Contents(r.Context(), chi.URLParam(r, "id"))
}

type folderRequest struct {
	Name     *string `json:"name"`
	ParentID *string `json:"parentId"`
}

func (s *Server) createFolder(r *http.Request) (any, error) {
	var req folderRequest
	if err := rest.Decode(r, &req); err != nil {
		return nil, err
	}
	var name, parentID string
	if req.Name != nil {
		name = *req.Name
	}
	if req.ParentID != nil {
		parentID = *req.ParentID
	}
	id, _ := auth.FromContext(r.Context())
	return s.service.CreateFolder(r.Context(), name, parentID, id.Username)
}

func (s *Server) updateFolder(r *http.Request) (any, error) {
	var req folderRequest
	if err := rest.Decode(r, &req); err != nil {
		return nil, err
	}
	return s.service.UpdateFolder(r.Context(), chi.URLParam(r, "id"), req.Name, req.ParentID)
}

func (s *Server) deleteFolder(r *http.Request) (any, error) {
	return nil, s.service.DeleteFolder(r.Context(), chi.URLParam(r, "id"))
}

func (s *Server) folderSize(r *http.Request) (any, error) {
	return s.service.FolderSize(r.Context(), chi.URLParam(r, "id"))
}

func (s *Server) getFile(r *http.Request) (any, error) {
	return s.service.Get(r.Context(), chi.URLParam(r, "id"))
}

func (s *Server) deleteFile(r *http.Request) (any, error) {
	return nil, s.service.DeleteFile(r.Context(), chi.URLParam(r, "id"))
}

// upload reads the "file" part of a multipart body into the folder named by
// the folderId query parameter.
func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := s.service.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "expected a multipart/form-data body", err)
		return
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "missing file part", nil)
			return
		}
		if err != nil {
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "malformed multipart body", err)
			return
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}

		data, err := io.ReadAll(io.LimitReader(part, limit+1))
		_ = part.Close()
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "file exceeds the "+strconv.FormatInt(limit, 10)+" byte limit", err)
				return
			}
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "failed to read upload", err)
			return
		}
		contentType := part.Header.Get("Content-Type")
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = http.DetectContentType(data)
		}
		id, _ := auth.FromContext(ctx)
		f, err := s.service.Upload(ctx, r.URL.Query().Get("folderId"), part.FileName(), contentType, data, id.Username)
		if err != nil {
			cerr.SetJSONError(ctx, err)
			return
		}
		cerr.SetCreatedJSONResponse(ctx, f)
		return
	}
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f, data, err := s.service.Download(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.Name}))
	cerr.SetRawResponse(ctx)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
