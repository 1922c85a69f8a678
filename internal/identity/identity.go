// Package identity derives the fingerprint used to decide that two message
// files hold the same logical message.
//
// A clean key hashes "{messageId}-{date}-{subject}" where date is the raw
// Date header text. When any of those fields cannot be read the deriver falls
// back to a dirty key over "{parsedDate}-${subject}". The literal '$' is part
// of the format: changing it changes which dirty-keyed messages collide.
package identity

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/steveyegge/maildedup/internal/types"
)

// Fields is the view of a parsed message the deriver needs.
// *message.Message satisfies it.
type Fields interface {
	MessageID() (string, error)
	RawHeader(name string) string
	DateText() string
	Date() (time.Time, error)
	Subject() (string, error)
}

// errFieldUnavailable marks a field that is missing or unreadable.
// It triggers the dirty fallback and never leaves this package.
var errFieldUnavailable = errors.New("field unavailable")

// Derive returns the identity key for a message. It never fails: when the
// clean field set is unavailable it returns a dirty key.
func Derive(f Fields) types.Key {
	key, err := deriveClean(f)
	if err == nil {
		return key
	}
	slog.Debug("Falling back to dirty identity key", "reason", err)
	return deriveDirty(f)
}

func deriveClean(f Fields) (types.Key, error) {
	id, err := messageID(f)
	if err != nil {
		return types.Key{}, err
	}

	date := f.DateText()
	if date == "" {
		return types.Key{}, fmt.Errorf("date header: %w", errFieldUnavailable)
	}

	subject, err := f.Subject()
	if err != nil {
		return types.Key{}, fmt.Errorf("subject: %w (%v)", errFieldUnavailable, err)
	}

	return types.CleanKey(sha256.Sum256([]byte(id + "-" + date + "-" + subject))), nil
}

// messageID prefers the structured identifier and falls back to the raw
// header text when the structured form is absent or malformed.
func messageID(f Fields) (string, error) {
	id, err := f.MessageID()
	if err == nil && id != "" {
		return id, nil
	}
	if raw := strings.TrimSpace(f.RawHeader("Message-ID")); raw != "" {
		return raw, nil
	}
	if err != nil {
		return "", fmt.Errorf("message-id: %w (%v)", errFieldUnavailable, err)
	}
	return "", fmt.Errorf("message-id: %w", errFieldUnavailable)
}

func deriveDirty(f Fields) types.Key {
	date := ""
	if t, err := f.Date(); err == nil {
		date = t.UTC().Format(time.RFC3339)
	}

	subject, err := f.Subject()
	if err != nil {
		subject = f.RawHeader("Subject")
	}

	return types.DirtyKey(sha256.Sum256([]byte(date + "-$" + subject)))
}
