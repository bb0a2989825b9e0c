package handlers

import (
	"mime/multipart"

	"github.com/bluerally/buooy-backend/internal/services"
)

// openUpload opens a multipart file for a service call. The returned func
// closes it.
func openUpload(fh *multipart.FileHeader) (services.Upload, func(), error) {
	f, err := fh.Open()
	if err != nil {
		return services.Upload{}, nil, err
	}
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return services.Upload{
		Filename:    fh.Filename,
		ContentType: contentType,
		Size:        fh.Size,
		Body:        f,
	}, func() { _ = f.Close() }, nil
}
