// Package codec turns a node's value set and child list into the
// self-describing, compressed byte form that the storage layer keeps nodes
// under, and computes the content hash used as a storage key.
//
// The wire form is JSON (a self-describing textual encoding) deflated with
// compress/flate, and the content hash is SHA-256 computed with
// minio/sha256-simd.
package codec

import (
	"bytes"
	"compress/flate"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	sha256simd "github.com/minio/sha256-simd"
)

// Payload is the logical structure a node encodes to: its sorted values and,
// for internal nodes, the storage keys of its children. ChildIDs is nil for
// leaves.
//
// Values round-trips through encoding/json, so any Go number stored in the
// tree comes back as float64 after a persist/load cycle rather than its
// original int type. Callers that need numbers to survive a round trip
// exactly should compare with a numeric-aware comparator (compare.CrossType)
// rather than asserting a fixed concrete type.
type Payload struct {
	Values   []any    `json:"values"`
	ChildIDs []string `json:"child_ids,omitempty"`
}

// Encode serializes a payload to its self-describing textual form and
// DEFLATE-compresses it with standard settings.
func Encode(p Payload) ([]byte, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("codec: marshal payload: %w", err)
	}

	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("codec: new flate writer: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return nil, fmt.Errorf("codec: flate write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("codec: flate close: %w", err)
	}
	return buf.Bytes(), nil
}

// ErrDecode wraps a decode failure together with the key and bytes that
// failed to parse, for forensic logging.
type ErrDecode struct {
	Key   string
	Bytes []byte
	Err   error
}

func (e *ErrDecode) Error() string {
	return fmt.Sprintf("codec: decode failed for key %s (%d bytes): %v", e.Key, len(e.Bytes), e.Err)
}

func (e *ErrDecode) Unwrap() error { return e.Err }

// Decode inflates and parses bytes back into a Payload. key is used only to
// annotate a failure; pass "" if unknown.
func Decode(key string, data []byte) (Payload, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()

	raw, err := io.ReadAll(r)
	if err != nil {
		return Payload{}, &ErrDecode{Key: key, Bytes: data, Err: fmt.Errorf("inflate: %w", err)}
	}

	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, &ErrDecode{Key: key, Bytes: data, Err: fmt.Errorf("unmarshal: %w", err)}
	}
	return p, nil
}

// Hash returns the uppercase hex-encoded SHA-256 of data, used as the node's
// storage key.
func Hash(data []byte) string {
	sum := sha256simd.Sum256(data)
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
