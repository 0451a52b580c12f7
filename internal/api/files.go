package api

import (
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tamuctf/CTFd/internal/ctfd"
)

// maxUploadMemory bounds the in-memory part of an upload.
const maxUploadMemory = 32 << 20

// FileHandler manages challenge attachments.
type FileHandler struct {
	*Handler
}

// NewFileHandler creates a new file handler.
func NewFileHandler(base *Handler) *FileHandler {
	return &FileHandler{Handler: base}
}

// RegisterRoutes registers file routes.
func (h *FileHandler) RegisterRoutes(r chi.Router) {
	r.Route("/challenges/{chalID}/files", func(r chi.Router) {
		r.Post("/", h.Upload)
		r.Post("/{fileID}/delete", h.Delete)
	})
}

// Upload forwards the posted files[] to the server.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	chalID, err := pathInt(r, "chalID")
	if err != nil {
		h.fail(w, r, "upload_files", err)
		return
	}
	if r.MultipartForm == nil {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			h.fail(w, r, "upload_files", &ctfd.OutcomeError{Op: "upload_files", Outcome: ctfd.ValidationFailure, Message: "expected a multipart upload", Err: err})
			return
		}
	}

	headers := r.MultipartForm.File["files[]"]
	uploads := make([]ctfd.Upload, 0, len(headers))
	var opened []multipart.File
	defer func() {
		for _, f := range opened {
			if closeErr := f.Close(); closeErr != nil {
				slog.Debug("Failed to close upload", "error", closeErr)
			}
		}
	}()
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			h.fail(w, r, "upload_files", err)
			return
		}
		opened = append(opened, f)
		uploads = append(uploads, ctfd.Upload{Name: fh.Filename, Body: f})
	}

	err = h.server.UploadFiles(r.Context(), chalID, uploads)
	if err == nil {
		h.reloadPanels(r, chalID)
	}
	h.finish(w, r, "upload_files", err, 0, challengePath(chalID, "files"), nil)
}

// Delete removes an attachment.
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	chalID, err := pathInt(r, "chalID")
	if err != nil {
		h.fail(w, r, "delete_file", err)
		return
	}
	fileID, err := pathInt(r, "fileID")
	if err != nil {
		h.fail(w, r, "delete_file", err)
		return
	}
	err = h.server.DeleteFile(r.Context(), chalID, fileID)
	if err == nil {
		h.reloadPanels(r, chalID)
	}
	h.finish(w, r, "delete_file", err, 0, challengePath(chalID, "files"), nil)
}
