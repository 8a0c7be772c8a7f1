package btree

import "fmt"

// Sentinel errors for this package's failure kinds. Callers match these
// with errors.Is/errors.As rather than a parallel exception hierarchy.
var (
	// ErrNotFound means storage believes it holds a key the tree expects,
	// but the backend returned nothing for it: storage corruption or a
	// node-storage/metadata-storage mismatch.
	ErrNotFound = fmt.Errorf("btree: storage key not found")

	// ErrInvariant marks a fatal programmer error: an odd-max violation, an
	// attempt to unload a node that still has resident children, or similar.
	// The handle should be considered unusable after this is returned.
	ErrInvariant = fmt.Errorf("btree: invariant violated")
)

// invariantf builds an ErrInvariant-wrapping error with detail.
func invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvariant}, args...)...)
}
