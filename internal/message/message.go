// Package message extracts the header fields the deduplicator needs from a
// single RFC 5322 message file.
//
// Only the header block is read; bodies are never decoded. Encoded-word
// subjects in legacy charsets are decoded through go-message's charset
// table.
package message

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	gomessage "github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
)

// ErrNoHeaders is returned for input that has no header fields at all
var ErrNoHeaders = errors.New("no header fields found")

// Standard header names read by the extractor
const (
	HeaderMessageID = "Message-Id"
	HeaderDate      = "Date"
	HeaderSubject   = "Subject"
)

// Message is a parsed message header
type Message struct {
	header mail.Header
	count  int
}

// Parse reads the header block of a message.
// It fails when the header block is malformed or empty.
func Parse(r io.Reader) (*Message, error) {
	h, err := textproto.ReadHeader(bufio.NewReader(r))
	// A header block that runs to EOF without a blank line is still usable.
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	count := 0
	fields := h.Fields()
	for fields.Next() {
		count++
	}
	if count == 0 {
		return nil, ErrNoHeaders
	}

	return &Message{
		header: mail.Header{Header: gomessage.Header{Header: h}},
		count:  count,
	}, nil
}

// MessageID returns the structured message identifier without angle brackets.
// It returns an error if the header is present but malformed, and an empty
// string if it is absent.
func (m *Message) MessageID() (string, error) {
	return m.header.MessageID()
}

// RawHeader returns the unparsed text of the first field with the given name
func (m *Message) RawHeader(name string) string {
	return strings.TrimSpace(m.header.Get(name))
}

// DateText returns the raw Date header text
func (m *Message) DateText() string {
	return m.RawHeader(HeaderDate)
}

// Date returns the parsed Date header
func (m *Message) Date() (time.Time, error) {
	return m.header.Date()
}

// Subject returns the decoded Subject header. A missing Subject is an empty
// string; an undecodable one is an error.
func (m *Message) Subject() (string, error) {
	return m.header.Subject()
}

// HeaderCount returns the number of header fields, duplicates included
func (m *Message) HeaderCount() int {
	return m.count
}

// HasHeader reports whether at least one field with the given name exists
func (m *Message) HasHeader(name string) bool {
	return m.header.Has(name)
}
