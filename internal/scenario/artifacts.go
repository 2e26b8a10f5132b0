package scenario

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kuitang/et-e2e/internal/s3client"
)

// ObjectPutter is the part of s3client.Client used to upload artifacts.
type ObjectPutter interface {
	PutObject(ctx context.Context, obj s3client.Object, content []byte, contentType string) error
}

// Artifacts stores failure screenshots in a directory, a bucket, or both.
type Artifacts struct {
	Dir    string
	Bucket string
	Store  ObjectPutter // required when Bucket is set
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9]+`)

func slug(s string) string {
	return strings.Trim(unsafeChars.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// SaveScreenshot stores png for an attempt and returns where it went.
func (a *Artifacts) SaveScreenshot(ctx context.Context, runID, scenario string, attempt int, png []byte) ([]string, error) {
	if a == nil {
		return nil, nil
	}
	rel := filepath.ToSlash(filepath.Join(runID, slug(scenario), fmt.Sprintf("attempt-%d.png", attempt)))
	var locations []string

	if a.Dir != "" {
		path := filepath.Join(a.Dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return locations, fmt.Errorf("artifacts: %w", err)
		}
		if err := os.WriteFile(path, png, 0o644); err != nil {
			return locations, fmt.Errorf("artifacts: %w", err)
		}
		locations = append(locations, path)
	}
	if a.Bucket != "" {
		if a.Store == nil {
			return locations, fmt.Errorf("artifacts: bucket %q configured without an S3 client", a.Bucket)
		}
		obj := s3client.Object{Bucket: a.Bucket, Key: "screenshots/" + rel}
		if err := a.Store.PutObject(ctx, obj, png, "image/png"); err != nil {
			return locations, fmt.Errorf("artifacts: %w", err)
		}
		locations = append(locations, obj.String())
	}
	return locations, nil
}
