// Package fixture loads the JSON documents that describe a case's initial field values.
// A fixture reference is either a path relative to the fixtures directory or an
// s3://bucket/key URI. Scenarios may override individual fields by JSON path.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/kuitang/et-e2e/internal/errs"
	"github.com/kuitang/et-e2e/internal/s3client"
)

// ObjectGetter is the part of s3client.Client the loader uses.
type ObjectGetter interface {
	GetObject(ctx context.Context, obj s3client.Object) ([]byte, error)
}

// Generated is an override value computed each time a fixture is loaded.
type Generated func() any

// Unique returns a Generated value of prefix followed by eight random hex characters.
// Retried attempts get a fresh value, so no two seeded cases share it.
func Unique(prefix string) Generated {
	return func() any {
		return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	}
}

// Loader resolves fixture references.
type Loader struct {
	Dir string
	S3  ObjectGetter // nil disables s3:// references
}

// Load returns the fixture document with overrides applied. Override keys are sjson
// paths ("claimantIndType.claimant_last_name"); they are applied in key order.
func (l *Loader) Load(ctx context.Context, ref string, overrides map[string]any) ([]byte, error) {
	raw, err := l.read(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(raw) {
		return nil, errs.New(errs.InvalidArgument, fmt.Sprintf("fixture %s: not valid JSON", ref))
	}
	if !gjson.ParseBytes(raw).IsObject() {
		return nil, errs.New(errs.InvalidArgument, fmt.Sprintf("fixture %s: top level must be an object", ref))
	}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, path := range keys {
		value := overrides[path]
		if gen, ok := value.(Generated); ok {
			value = gen()
		}
		raw, err = sjson.SetBytes(raw, path, value)
		if err != nil {
			return nil, errs.Wrap(errs.InvalidArgument, fmt.Sprintf("fixture %s: override %q", ref, path), err)
		}
	}
	return raw, nil
}

func (l *Loader) read(ctx context.Context, ref string) ([]byte, error) {
	if s3client.IsURI(ref) {
		obj, err := s3client.ParseURI(ref)
		if err != nil {
			return nil, errs.Wrap(errs.InvalidArgument, "fixture reference", err)
		}
		if l.S3 == nil {
			return nil, errs.New(errs.FailedPrecondition, fmt.Sprintf("fixture %s: no S3 client configured", ref))
		}
		data, err := l.S3.GetObject(ctx, obj)
		if errors.Is(err, s3client.ErrObjectNotFound) {
			return nil, errs.Wrap(errs.NotFound, fmt.Sprintf("fixture %s", ref), err)
		}
		if err != nil {
			return nil, errs.Wrap(errs.Unavailable, fmt.Sprintf("fixture %s", ref), err)
		}
		return data, nil
	}

	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.Dir, path)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errs.Wrap(errs.NotFound, fmt.Sprintf("fixture %s", ref), err)
	}
	if err != nil {
		return nil, errs.Wrap(errs.Internal, fmt.Sprintf("fixture %s", ref), err)
	}
	return data, nil
}
