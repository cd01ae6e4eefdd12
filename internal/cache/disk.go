package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/revamp-proxy/revamp/internal/atomicfile"
)

// DiskTier is a filesystem-backed cache tier: each entry is a data file
// plus a JSON sidecar, both written atomically, mirroring the
// oci-pull-through proxy's FSStore. A corrupt or unreadable sidecar is
// treated as a miss rather than an error, so a damaged cache entry is
// silently evicted and refetched instead of wedging the request
// (spec.md §4.6's corruption-handling requirement).
type DiskTier struct {
	root string
}

// NewDiskTier builds a DiskTier rooted at root, creating it if missing.
func NewDiskTier(root string) (*DiskTier, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &DiskTier{root: root}, nil
}

type diskMeta struct {
	ContentType string `json:"content_type"`
}

func (d *DiskTier) dataPath(key string) string { return filepath.Join(d.root, key) }
func (d *DiskTier) metaPath(key string) string { return d.dataPath(key) + ".meta.json" }

func (d *DiskTier) Get(_ context.Context, key string) (*Entry, error) {
	metaBytes, err := os.ReadFile(d.metaPath(key))
	if err != nil {
		return nil, ErrNotFound
	}
	var meta diskMeta
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		d.evict(key)
		return nil, ErrNotFound
	}

	body, err := os.ReadFile(d.dataPath(key))
	if err != nil {
		d.evict(key)
		return nil, ErrNotFound
	}

	return &Entry{ContentType: meta.ContentType, Body: body}, nil
}

func (d *DiskTier) Put(_ context.Context, key string, entry Entry) error {
	if err := os.MkdirAll(filepath.Dir(d.dataPath(key)), 0o755); err != nil {
		return err
	}
	if err := atomicfile.WriteBytes(d.dataPath(key), entry.Body); err != nil {
		return err
	}
	metaBytes, err := json.Marshal(diskMeta{ContentType: entry.ContentType})
	if err != nil {
		return err
	}
	return atomicfile.WriteBytes(d.metaPath(key), metaBytes)
}

func (d *DiskTier) Delete(_ context.Context, key string) error {
	d.evict(key)
	return nil
}

// evict removes both the data file and its sidecar, ignoring errors from
// files that are already gone.
func (d *DiskTier) evict(key string) {
	os.Remove(d.dataPath(key))
	os.Remove(d.metaPath(key))
}
