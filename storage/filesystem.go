package storage

import (
	"fmt"
	"log/slog"
	"os"

	flatfs "github.com/ipfs/go-ds-flatfs"
)

// NewFilesystem returns a directory-backed storage implementation: one
// file per key, sharded across subdirectories the way flatfs shards blocks
// for IPFS, under the given directory.
func NewFilesystem(dir string) (ByteStorage, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0775); err != nil {
			return nil, fmt.Errorf("storage: create directory %s: %w", dir, err)
		}
		slog.Default().With("system", "storage").Info("created node storage directory", "dir", dir)
	}

	ds, err := flatfs.CreateOrOpen(dir, flatfs.IPFS_DEF_SHARD, false)
	if err != nil {
		return nil, fmt.Errorf("storage: open flatfs at %s: %w", dir, err)
	}
	return &datastoreBackend{ds: ds}, nil
}
