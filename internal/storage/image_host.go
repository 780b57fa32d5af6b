// Package storage uploads user images and returns their download URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// ImageHost stores image bytes under path and returns a URL that serves them.
type ImageHost interface {
	Put(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

var ErrUnsupportedType = errors.New("unsupported image type")

var extByType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/heic": ".heic",
}

// Ext returns the file extension for an accepted image content type.
func Ext(contentType string) (string, error) {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	ext, ok := extByType[ct]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}
	return ext, nil
}

// LocationImagePath and AvatarPath name the objects for uploaded images.
func LocationImagePath(locationID, contentType string) (string, error) {
	ext, err := Ext(contentType)
	if err != nil {
		return "", err
	}
	return path.Join("locations", locationID, uuid.NewString()+ext), nil
}

func AvatarPath(uid, contentType string) (string, error) {
	ext, err := Ext(contentType)
	if err != nil {
		return "", err
	}
	return path.Join("avatars", uid, uuid.NewString()+ext), nil
}

// GCSImageHost writes objects to a Firebase Storage bucket with a download
// token, so the returned URL works without signed requests.
type GCSImageHost struct {
	client *storage.Client
	bucket string
}

func NewGCSImageHost(client *storage.Client, bucket string) *GCSImageHost {
	return &GCSImageHost{client: client, bucket: bucket}
}

func (h *GCSImageHost) Put(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	if h == nil || h.client == nil {
		return "", errors.New("storage client is nil")
	}
	token := uuid.NewString()
	w := h.client.Bucket(h.bucket).Object(objectPath).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{
		"firebaseStorageDownloadTokens": token,
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return DownloadURL(h.bucket, objectPath, token), nil
}

func DownloadURL(bucket, objectPath, token string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucket, url.PathEscape(objectPath), token)
}
