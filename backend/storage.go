package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Bucket provides access to one bucket of the backend's object store.
type Bucket struct {
	c    *Client
	name string
}

// Storage returns a handle to the named object store bucket.
func (c *Client) Storage(name string) *Bucket {
	return &Bucket{c: c, name: name}
}

func (b *Bucket) objectURL(path string) string {
	return b.c.baseURL + "/storage/v1/object/" + b.name + "/" + url.PathEscape(path)
}

// Upload stores the blob under path in the bucket.
func (b *Bucket) Upload(ctx context.Context, path string, r io.Reader, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.objectURL(path), r)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)

	_, err = b.c.do(req)
	return err
}

// Remove deletes the object stored under path.
func (b *Bucket) Remove(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, b.objectURL(path), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	_, err = b.c.do(req)
	return err
}

// PublicURL resolves the public URL of the object stored under path. The
// bucket carries a public-read policy, so no signing is involved.
func (b *Bucket) PublicURL(path string) string {
	return b.c.baseURL + "/storage/v1/object/public/" + b.name + "/" + url.PathEscape(path)
}
