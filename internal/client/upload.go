package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"scan2cal/calendar-app/internal/domain"
	"scan2cal/calendar-app/internal/service"
)

// MaxParallelUploads bounds concurrent PUTs of one batch.
const MaxParallelUploads = 4

// AllowedContentTypes are the document types the cleaner understands.
var AllowedContentTypes = map[string]bool{
	"application/pdf":  true,
	"application/json": true,
}

var ErrUnsupportedType = errors.New("unsupported file type")

// File is one document to upload.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// UploadResult is the outcome for one file. Exactly one of Upload and Err is set.
type UploadResult struct {
	Name   string
	Key    string
	Upload *domain.Upload
	Err    error
}

// UploadFiles presigns the batch, PUTs every file concurrently and confirms
// each successful PUT. Failures are reported per file; the batch never fails
// as a whole and successful files stay uploaded.
func (c *Client) UploadFiles(ctx context.Context, files []File) []UploadResult {
	results := make([]UploadResult, len(files))
	var (
		specs   []service.FileSpec
		indexes []int
	)
	for i, f := range files {
		results[i].Name = f.Name
		ct := strings.ToLower(strings.TrimSpace(f.ContentType))
		if !AllowedContentTypes[ct] {
			results[i].Err = fmt.Errorf("%w: %q", ErrUnsupportedType, f.ContentType)
			continue
		}
		specs = append(specs, service.FileSpec{Filename: f.Name, ContentType: ct})
		indexes = append(indexes, i)
	}
	if len(specs) == 0 {
		return results
	}

	presigned, err := c.Presign(ctx, specs)
	if err == nil && len(presigned) != len(specs) {
		err = fmt.Errorf("presign returned %d urls for %d files", len(presigned), len(specs))
	}
	if err != nil {
		for _, i := range indexes {
			results[i].Err = fmt.Errorf("presign: %w", err)
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(MaxParallelUploads)
	for n, i := range indexes {
		target := presigned[n]
		results[i].Key = target.Key
		g.Go(func() error {
			upload, err := c.uploadOne(ctx, files[i], target)
			results[i].Upload, results[i].Err = upload, err
			if err != nil {
				c.log.Warn(ctx, "upload failed", "file", files[i].Name, "key", target.Key, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (c *Client) uploadOne(ctx context.Context, f File, target service.PresignedUpload) (*domain.Upload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target.URL, bytes.NewReader(f.Data))
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", target.ContentType)
	req.ContentLength = int64(len(f.Data))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("upload: %w", decodeAPIError(resp))
	}

	size := int64(len(f.Data))
	upload, err := c.Confirm(ctx, service.ConfirmRequest{
		Key:  target.Key,
		ETag: resp.Header.Get("ETag"),
		Size: &size,
	})
	if err != nil {
		return nil, fmt.Errorf("confirm: %w", err)
	}
	return upload, nil
}
