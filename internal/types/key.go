package types

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// KeyKind tags how much confidence an identity key carries
type KeyKind int

const (
	// KeyClean is derived from message-id, Date header text and subject
	KeyClean KeyKind = iota
	// KeyDirty is the date+subject fallback used when the clean fields are unavailable
	KeyDirty
)

// String returns the report tag for the kind
func (k KeyKind) String() string {
	switch k {
	case KeyClean:
		return "clean"
	case KeyDirty:
		return "dirty"
	default:
		return fmt.Sprintf("KeyKind(%d)", int(k))
	}
}

// IsValid checks if the kind value is valid
func (k KeyKind) IsValid() bool {
	return k == KeyClean || k == KeyDirty
}

// DigestSize is the length of an identity digest (SHA-256)
const DigestSize = 32

// Key is the identity fingerprint of a message.
//
// Key is comparable: two keys are equal only when both the kind and the
// digest bytes match, so a clean and a dirty key never collide even if their
// digests happen to be identical. It is safe to use as a map key.
type Key struct {
	Kind   KeyKind
	Digest [DigestSize]byte
}

// CleanKey builds a clean-tagged key
func CleanKey(digest [DigestSize]byte) Key {
	return Key{Kind: KeyClean, Digest: digest}
}

// DirtyKey builds a dirty-tagged key
func DirtyKey(digest [DigestSize]byte) Key {
	return Key{Kind: KeyDirty, Digest: digest}
}

// IsClean reports whether the key was derived from the strong field set
func (k Key) IsClean() bool {
	return k.Kind == KeyClean
}

// Hex returns the hex-encoded digest
func (k Key) Hex() string {
	return hex.EncodeToString(k.Digest[:])
}

// String renders the key as "<kind>:<hex>"
func (k Key) String() string {
	return k.Kind.String() + ":" + k.Hex()
}

// Compare orders keys by kind, then by digest bytes
func (k Key) Compare(other Key) int {
	if k.Kind != other.Kind {
		if k.Kind < other.Kind {
			return -1
		}
		return 1
	}
	return bytes.Compare(k.Digest[:], other.Digest[:])
}

// ParseKey parses the String form of a key
func ParseKey(s string) (Key, error) {
	kind, digest, ok := strings.Cut(s, ":")
	if !ok {
		return Key{}, fmt.Errorf("invalid key %q: missing kind prefix", s)
	}

	var key Key
	switch kind {
	case "clean":
		key.Kind = KeyClean
	case "dirty":
		key.Kind = KeyDirty
	default:
		return Key{}, fmt.Errorf("invalid key kind %q", kind)
	}

	raw, err := hex.DecodeString(digest)
	if err != nil {
		return Key{}, fmt.Errorf("invalid key digest: %w", err)
	}
	if len(raw) != DigestSize {
		return Key{}, fmt.Errorf("invalid key digest length %d (want %d)", len(raw), DigestSize)
	}
	copy(key.Digest[:], raw)
	return key, nil
}

// MarshalText implements encoding.TextMarshaler so keys export as strings
// in JSON and YAML reports
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *Key) UnmarshalText(text []byte) error {
	parsed, err := ParseKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
