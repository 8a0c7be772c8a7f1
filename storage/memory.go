package storage

import (
	datastore "github.com/ipfs/go-datastore"
)

// NewMemory returns the default in-memory map-backed storage
// implementation: a plain map from string to byte array, with no
// persistence across process lifetimes.
func NewMemory() ByteStorage {
	return &datastoreBackend{ds: datastore.NewMapDatastore()}
}
