// Package storage is the client for the hosted object-storage bucket that
// serves product images.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type ObjectStore interface {
	// Upload writes the blob under path and returns its public URL.
	Upload(ctx context.Context, path, contentType string, data []byte) (string, error)
	// Remove deletes the object at path.
	Remove(ctx context.Context, path string) error
	// ObjectPath maps a public URL back to its object path, false when the
	// URL belongs to some other bucket.
	ObjectPath(publicURL string) (string, bool)
}

// HTTPStore uploads to a Supabase-style storage REST endpoint:
// POST /storage/v1/object/{bucket}/{path}, public URL under
// /storage/v1/object/public/{bucket}/{path}.
type HTTPStore struct {
	HTTP    *http.Client
	BaseURL string
	Bucket  string
	Token   string
}

func NewHTTPStore(baseURL, bucket, token string) *HTTPStore {
	return &HTTPStore{
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		BaseURL: strings.TrimRight(baseURL, "/"),
		Bucket:  bucket,
		Token:   token,
	}
}

func (s *HTTPStore) objectURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", s.BaseURL, s.Bucket, path)
}

// PublicURL resolves the browsable URL of an uploaded object.
func (s *HTTPStore) PublicURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.BaseURL, s.Bucket, path)
}

func (s *HTTPStore) ObjectPath(publicURL string) (string, bool) {
	prefix := s.PublicURL("")
	if !strings.HasPrefix(publicURL, prefix) {
		return "", false
	}
	return strings.TrimPrefix(publicURL, prefix), true
}

func (s *HTTPStore) Upload(ctx context.Context, path, contentType string, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.objectURL(path), bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)
	req.Header.Set("Content-Type", contentType)

	res, err := s.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("storage upload error: %s", res.Status)
	}
	return s.PublicURL(path), nil
}

func (s *HTTPStore) Remove(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.objectURL(path), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)

	res, err := s.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusNoContent {
		return fmt.Errorf("storage delete error: %s", res.Status)
	}
	return nil
}
