// Package gallery manages the portfolio photo collection: listing,
// URL-adds, file uploads through the object store, and deletion.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/alief-faisal/portofoliowidia/backend"
)

var (
	// ErrValidation is returned when an add is rejected before any
	// network call: empty title, empty URL or absent file.
	ErrValidation = errors.New("invalid input")

	// ErrDuplicate is returned when the photo's public URL is already in
	// the collection. The backend's unique constraint on image_url maps
	// here too, so two racing clients can't defeat the dedup gate.
	ErrDuplicate = backend.ErrDuplicate

	// ErrBusy is returned when another add is still in flight.
	ErrBusy = errors.New("another upload is in progress")
)

const tableName = "gallery_photos"

// Photo is one gallery photo. Photos are immutable after creation.
type Photo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

type photoInsert struct {
	Title    string `json:"title"`
	ImageURL string `json:"image_url"`
}

// Store manages the gallery collection through the backend client.
type Store struct {
	client *backend.Client
	bucket string

	// addMu is the single-slot reentrancy lock: a second add while one is
	// in flight is a no-op.
	addMu sync.Mutex
}

// NewStore creates a gallery store over the given object store bucket. A
// nil client is allowed: every operation then reports
// backend.ErrNotConfigured.
func NewStore(client *backend.Client, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

// List returns all photos, newest first.
func (s *Store) List(ctx context.Context) ([]Photo, error) {
	if s.client == nil {
		return nil, backend.ErrNotConfigured
	}

	var photos []Photo
	if err := s.client.From(tableName).Order("created_at", true).Get(ctx, &photos); err != nil {
		return nil, err
	}
	return photos, nil
}

// AddByURL inserts a photo pointing at an external image URL. The URL must
// not already be in the collection.
func (s *Store) AddByURL(ctx context.Context, title, imageURL string) error {
	if s.client == nil {
		return backend.ErrNotConfigured
	}

	title = strings.TrimSpace(title)
	imageURL = strings.TrimSpace(imageURL)
	if title == "" || imageURL == "" {
		return fmt.Errorf("%w: title and image URL are required", ErrValidation)
	}

	if !s.addMu.TryLock() {
		return ErrBusy
	}
	defer s.addMu.Unlock()

	return s.insertUnlessExists(ctx, title, imageURL)
}

// AddByFile uploads the blob to the object store under
// "{epoch_millis}_{filename}", resolves its public URL and inserts the
// photo unless that URL is already in the collection.
func (s *Store) AddByFile(ctx context.Context, title, filename string, r io.Reader, size int64, contentType string) error {
	if s.client == nil {
		return backend.ErrNotConfigured
	}

	title = strings.TrimSpace(title)
	if title == "" || r == nil {
		return fmt.Errorf("%w: title and file are required", ErrValidation)
	}

	if !s.addMu.TryLock() {
		return ErrBusy
	}
	defer s.addMu.Unlock()

	bucket := s.client.Storage(s.bucket)
	objectPath := fmt.Sprintf("%d_%s", time.Now().UnixMilli(), filename)
	if err := bucket.Upload(ctx, objectPath, r, contentType); err != nil {
		return err
	}
	log.Info("uploaded gallery object", "path", objectPath, "size", humanize.Bytes(uint64(max(size, 0))))

	return s.insertUnlessExists(ctx, title, bucket.PublicURL(objectPath))
}

// insertUnlessExists is the dedup gate: look the URL up, report
// ErrDuplicate on a hit, insert otherwise. The read-then-write window is
// closed by the backend's unique constraint, which also maps to
// ErrDuplicate.
func (s *Store) insertUnlessExists(ctx context.Context, title, imageURL string) error {
	var existing []Photo
	if err := s.client.From(tableName).Select("id").Eq("image_url", imageURL).Limit(1).Get(ctx, &existing); err != nil {
		return err
	}
	if len(existing) > 0 {
		return fmt.Errorf("%w: %s", ErrDuplicate, imageURL)
	}

	return s.client.From(tableName).Insert(ctx, photoInsert{Title: title, ImageURL: imageURL})
}

// Delete removes the photo row. When the image URL originates from the
// backend's object store, the underlying object is removed best-effort
// first; a failed object removal never blocks the row delete.
func (s *Store) Delete(ctx context.Context, photo Photo) error {
	if s.client == nil {
		return backend.ErrNotConfigured
	}

	if strings.Contains(photo.ImageURL, s.client.Host()) {
		if objectPath := lastSegment(photo.ImageURL); objectPath != "" {
			if err := s.client.Storage(s.bucket).Remove(ctx, objectPath); err != nil {
				log.Warn("failed to remove gallery object", "path", objectPath, "error", err)
			}
		}
	}

	return s.client.From(tableName).Eq("id", photo.ID).Delete(ctx)
}

func lastSegment(rawURL string) string {
	if i := strings.LastIndex(rawURL, "/"); i >= 0 {
		return rawURL[i+1:]
	}
	return rawURL
}
