package pass

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"

	"github.com/raymyers/ralph-hdl/pkg/diag"
	"github.com/raymyers/ralph-hdl/pkg/symtab"
)

// Digest is the structural hash of an IR object.
type Digest [sha256.Size]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Short returns the first 8 bytes in hex, for log lines.
func (d Digest) Short() string {
	return hex.EncodeToString(d[:8])
}

// Hasher feeds canonical tokens into SHA-256. Every token is length or tag
// prefixed so that different token sequences never produce the same stream.
type Hasher struct {
	h   hash.Hash
	buf [binary.MaxVarintLen64]byte
}

// NewHasher starts a hash in the given domain, e.g. "ralph-hdl/rhif/v1".
func NewHasher(domain string) *Hasher {
	h := &Hasher{h: sha256.New()}
	h.h.Write([]byte(domain))
	h.h.Write([]byte{0})
	return h
}

// Tag writes a single type tag byte.
func (h *Hasher) Tag(t byte) *Hasher {
	h.h.Write([]byte{t})
	return h
}

// Int writes a signed integer.
func (h *Hasher) Int(v int64) *Hasher {
	n := binary.PutVarint(h.buf[:], v)
	h.h.Write(h.buf[:n])
	return h
}

// Uint writes an unsigned integer.
func (h *Hasher) Uint(v uint64) *Hasher {
	n := binary.PutUvarint(h.buf[:], v)
	h.h.Write(h.buf[:n])
	return h
}

// Bool writes a boolean.
func (h *Hasher) Bool(v bool) *Hasher {
	if v {
		return h.Tag(1)
	}
	return h.Tag(0)
}

// String writes a length-prefixed string.
func (h *Hasher) String(s string) *Hasher {
	h.Uint(uint64(len(s)))
	h.h.Write([]byte(s))
	return h
}

// Bytes writes a length-prefixed byte slice.
func (h *Hasher) Bytes(b []byte) *Hasher {
	h.Uint(uint64(len(b)))
	h.h.Write(b)
	return h
}

// Span writes a source span.
func (h *Hasher) Span(s diag.Span) *Hasher {
	return h.String(s.File).Int(int64(s.Start)).Int(int64(s.End))
}

// Ref writes a tagged symbol table reference.
func (h *Hasher) Ref(r symtab.Ref) *Hasher {
	return h.Tag(byte(r.Tag)).Int(int64(r.ID))
}

// Refs writes a length-prefixed list of references.
func (h *Hasher) Refs(rs ...symtab.Ref) *Hasher {
	h.Uint(uint64(len(rs)))
	for _, r := range rs {
		h.Ref(r)
	}
	return h
}

// Sum returns the digest of everything written so far.
func (h *Hasher) Sum() (d Digest) {
	copy(d[:], h.h.Sum(nil))
	return d
}
