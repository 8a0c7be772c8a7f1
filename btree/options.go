package btree

import (
	"fmt"

	"github.com/jvillste/argumentica/compare"
	"github.com/jvillste/argumentica/storage"
)

// comparatorFunc is a local alias so the rest of the package does not need
// to import compare.Comparator by name everywhere.
type comparatorFunc = compare.Comparator

// FullFunc decides when a node must split on insertion. The tree requires
// the predicate's implied maximum value count to be odd so that a split
// produces a unique median.
type FullFunc func(valueCount int) bool

// MaxValues returns a FullFunc that fires once a node holds max values.
// max must be odd; New returns an error otherwise.
func MaxValues(max int) FullFunc {
	return func(valueCount int) bool { return valueCount >= max }
}

// config collects the construction options: the fullness predicate, node
// storage, and metadata storage.
type config struct {
	comparator     comparatorFunc
	full           FullFunc
	fullMax        int
	nodeStorage    storage.ByteStorage
	metadataStorage storage.ByteStorage
}

// Option configures a Tree at construction, following the usual
// functional-options shape for Go constructors that take several optional
// knobs.
type Option func(*config)

// WithFull overrides the fullness predicate. max is the node's maximum
// value count and must be odd.
func WithFull(max int) Option {
	return func(c *config) {
		c.fullMax = max
		c.full = MaxValues(max)
	}
}

// WithNodeStorage overrides the backend node bytes are spilled to. Default
// is an in-memory map.
func WithNodeStorage(s storage.ByteStorage) Option {
	return func(c *config) { c.nodeStorage = s }
}

// WithMetadataStorage overrides the backend metadata and root snapshots are
// kept in. Default is an in-memory map.
func WithMetadataStorage(s storage.ByteStorage) Option {
	return func(c *config) { c.metadataStorage = s }
}

const defaultFullMax = 1001

func newConfig(cmp comparatorFunc, opts ...Option) (*config, error) {
	c := &config{
		comparator:      cmp,
		fullMax:         defaultFullMax,
		full:            MaxValues(defaultFullMax),
		nodeStorage:     storage.NewMemory(),
		metadataStorage: storage.NewMemory(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.fullMax%2 == 0 {
		return nil, invariantf("fullness max %d must be odd", c.fullMax)
	}
	if c.comparator == nil {
		return nil, fmt.Errorf("btree: comparator is required")
	}
	return c, nil
}
