package btree

import "fmt"

// NodeID is a tagged-identity sum type: either a resident integer id
// (valid only within this handle's lifetime)
// or a persisted storage key (a stable, globally unique content hash). It
// is deliberately not a bare interface{} or string/int union, so that the
// two variants can never be confused by a comparator or a map key
// collision.
type NodeID struct {
	resident    uint64
	storageKey  string
	isPersisted bool
}

// Resident constructs a resident NodeID.
func Resident(id uint64) NodeID { return NodeID{resident: id} }

// Persisted constructs a persisted NodeID from a storage key.
func Persisted(key string) NodeID { return NodeID{storageKey: key, isPersisted: true} }

// IsPersisted reports whether this id names a storage key rather than a
// resident slot.
func (n NodeID) IsPersisted() bool { return n.isPersisted }

// IsResident reports whether this id names a resident slot.
func (n NodeID) IsResident() bool { return !n.isPersisted }

// ResidentID returns the resident integer id. Only valid if IsResident.
func (n NodeID) ResidentID() uint64 { return n.resident }

// StorageKey returns the persisted storage key. Only valid if IsPersisted.
func (n NodeID) StorageKey() string { return n.storageKey }

// Equal reports whether two ids name the same variant and value.
func (n NodeID) Equal(other NodeID) bool {
	if n.isPersisted != other.isPersisted {
		return false
	}
	if n.isPersisted {
		return n.storageKey == other.storageKey
	}
	return n.resident == other.resident
}

func (n NodeID) String() string {
	if n.isPersisted {
		return n.storageKey
	}
	return fmt.Sprintf("#%d", n.resident)
}
