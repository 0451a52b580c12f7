package ctfd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tamuctf/CTFd/internal/domain"
)

// Upload is one file to attach to a challenge.
type Upload struct {
	Name string
	Body io.Reader
}

// Files lists the attachments of a challenge.
func (c *Client) Files(ctx context.Context, chalID int) ([]domain.File, error) {
	var resp struct {
		Files []domain.File `json:"files"`
	}
	err := c.getJSON(ctx, "list_files", fmt.Sprintf("/admin/files/%d", chalID), &resp)
	return resp.Files, err
}

// FileURL is the public download link of a stored file.
func (c *Client) FileURL(f domain.File) string {
	return c.URL("/files/" + f.File)
}

// UploadFiles attaches files to a challenge in one multipart request.
func (c *Client) UploadFiles(ctx context.Context, chalID int, uploads []Upload) error {
	if len(uploads) == 0 {
		return validationError("upload_files", "no files selected", nil)
	}
	nonce, err := c.Nonce(ctx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, field := range [][2]string{{"nonce", nonce}, {"method", "upload"}} {
		if err := mw.WriteField(field[0], field[1]); err != nil {
			return validationError("upload_files", "encode form", err)
		}
	}
	for _, u := range uploads {
		part, err := mw.CreateFormFile("files[]", u.Name)
		if err != nil {
			return validationError("upload_files", "encode file", err)
		}
		if _, err := io.Copy(part, u.Body); err != nil {
			return validationError("upload_files", "read "+u.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return validationError("upload_files", "encode form", err)
	}

	_, err = c.do(ctx, "upload_files", http.MethodPost, fmt.Sprintf("/admin/files/%d", chalID), &buf, mw.FormDataContentType())
	return err
}

// DeleteFile removes one attachment.
func (c *Client) DeleteFile(ctx context.Context, chalID, fileID int) error {
	return c.postExpectOne(ctx, "delete_file", fmt.Sprintf("/admin/files/%d", chalID), url.Values{
		"method": {"delete"},
		"file":   {strconv.Itoa(fileID)},
	})
}
