package store

import (
	"bytes"
	"context"
	"fmt"
	neturl "net/url"
	"sort"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
)

const documentExt = ".json"

// AFS stores one JSON object per workspace under a base URL (file://, mem://,
// s3://, gs:// ... anything viant/afs can reach). Object stores offer no
// conditional write here, so AFS does not implement Versioned.
type AFS struct {
	fs      afs.Service
	baseURL string
}

func NewAFS(baseURL string) *AFS {
	return &AFS{fs: afs.New(), baseURL: baseURL}
}

// documentURL returns the URL for storing the document of a workspace
func (a *AFS) documentURL(key string) string {
	return url.Join(a.baseURL, neturl.PathEscape(key)+documentExt)
}

func (a *AFS) Read(ctx context.Context, key string) (*Document, error) {
	URL := a.documentURL(key)
	exists, err := a.fs.Exists(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if !exists {
		return nil, ErrNotFound
	}
	data, err := a.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return decode(data)
}

func (a *AFS) Write(ctx context.Context, key string, doc *Document) error {
	if err := validKey(key); err != nil {
		return err
	}
	data, err := encode(doc)
	if err != nil {
		return err
	}
	if err := a.fs.Upload(ctx, a.documentURL(key), file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (a *AFS) Keys(ctx context.Context) ([]string, error) {
	exists, err := a.fs.Exists(ctx, a.baseURL)
	if err != nil || !exists {
		return nil, err
	}
	objects, err := a.fs.List(ctx, a.baseURL)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", a.baseURL, err)
	}
	var keys []string
	for _, object := range objects {
		name := object.Name()
		if object.IsDir() || !strings.HasSuffix(name, documentExt) {
			continue
		}
		key, err := neturl.PathUnescape(strings.TrimSuffix(name, documentExt))
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (a *AFS) Close() error { return nil }
