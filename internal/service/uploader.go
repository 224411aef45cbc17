package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gabriel-vasile/mimetype"
)

// FileUploader stores an uploaded file and returns a public reference URL.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

var allowedArtifactTypes = []string{
	"application/pdf",
	"application/zip",
	"application/x-zip-compressed",
	"text/plain",
	"image/png",
	"image/jpeg",
}

func validateArtifactType(file *multipart.FileHeader) error {
	reader, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	mime, err := mimetype.DetectReader(reader)
	if err != nil {
		return fmt.Errorf("failed to detect file type: %w", err)
	}

	for _, allowed := range allowedArtifactTypes {
		if mime.Is(allowed) {
			return nil
		}
	}

	return fmt.Errorf("unsupported file type: %s", mime.String())
}

// uploadArtifact validates and stores a submission artifact, returning its
// reference URL. A nil file yields an empty reference without error; the
// content guard decides whether that is acceptable.
func uploadArtifact(ctx context.Context, uploader FileUploader, file *multipart.FileHeader) (string, error) {
	if file == nil {
		return "", nil
	}

	if err := validateArtifactType(file); err != nil {
		return "", err
	}

	reader, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	url, err := uploader.Upload(ctx, file.Filename, reader)
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	return url, nil
}
