package project

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest is a SHA-256 value, the same shape as source.File.Hash.
type Digest [32]byte

// Combine hashes content followed by each dep in order.
func Combine(content Digest, deps ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, d := range deps {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// DigestString hashes a settings string so it can be combined with content.
func DigestString(s string) Digest {
	return Digest(sha256.Sum256([]byte(s)))
}

// DigestBytes hashes raw content.
func DigestBytes(b []byte) Digest {
	return Digest(sha256.Sum256(b))
}

func (d Digest) IsZero() bool { return d == Digest{} }

func (d Digest) String() string { return hex.EncodeToString(d[:]) }
