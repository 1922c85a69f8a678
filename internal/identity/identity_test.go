package identity

import (
	"crypto/sha256"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/maildedup/internal/message"
	"github.com/steveyegge/maildedup/internal/types"
)

// fakeFields is a hand-built Fields for exercising each failure path
type fakeFields struct {
	id      string
	idErr   error
	raw     map[string]string
	date    time.Time
	dateErr error
	subject string
	subjErr error
}

func (f fakeFields) MessageID() (string, error) { return f.id, f.idErr }
func (f fakeFields) RawHeader(name string) string {
	return f.raw[strings.ToLower(name)]
}
func (f fakeFields) DateText() string         { return f.raw["date"] }
func (f fakeFields) Date() (time.Time, error) { return f.date, f.dateErr }
func (f fakeFields) Subject() (string, error) { return f.subject, f.subjErr }

var testDate = time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)

func wellFormed() fakeFields {
	return fakeFields{
		id:      "abc@example.com",
		raw:     map[string]string{"date": "Thu, 04 Mar 2021 05:06:07 +0000", "subject": "hello"},
		date:    testDate,
		subject: "hello",
	}
}

func TestDerive_CleanKey(t *testing.T) {
	f := wellFormed()
	key := Derive(f)

	assert.Equal(t, types.KeyClean, key.Kind)
	want := sha256.Sum256([]byte("abc@example.com-Thu, 04 Mar 2021 05:06:07 +0000-hello"))
	assert.Equal(t, want, key.Digest)
}

func TestDerive_Deterministic(t *testing.T) {
	assert.Equal(t, Derive(wellFormed()), Derive(wellFormed()))

	other := wellFormed()
	other.subject = "hello again"
	assert.NotEqual(t, Derive(wellFormed()), Derive(other))
}

func TestDerive_MalformedIDUsesRawHeader(t *testing.T) {
	f := wellFormed()
	f.id = ""
	f.idErr = errors.New("mail: missing '<' in msg-id")
	f.raw["message-id"] = "legacy-id-without-brackets"

	key := Derive(f)
	assert.Equal(t, types.KeyClean, key.Kind)
	want := sha256.Sum256([]byte("legacy-id-without-brackets-Thu, 04 Mar 2021 05:06:07 +0000-hello"))
	assert.Equal(t, want, key.Digest)
}

func TestDerive_DirtyFallback(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *fakeFields)
	}{
		{
			name:   "missing message-id",
			mutate: func(f *fakeFields) { f.id = "" },
		},
		{
			name: "malformed message-id and no raw header",
			mutate: func(f *fakeFields) {
				f.id = ""
				f.idErr = errors.New("malformed")
			},
		},
		{
			name:   "missing date header",
			mutate: func(f *fakeFields) { delete(f.raw, "date") },
		},
		{
			name: "undecodable subject",
			mutate: func(f *fakeFields) {
				f.subjErr = errors.New("unknown charset")
				f.subject = ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := wellFormed()
			tt.mutate(&f)
			key := Derive(f)
			assert.Equal(t, types.KeyDirty, key.Kind)
		})
	}
}

func TestDerive_DirtyDigestFormat(t *testing.T) {
	f := wellFormed()
	f.id = ""

	key := Derive(f)
	want := sha256.Sum256([]byte("2021-03-04T05:06:07Z-$hello"))
	assert.Equal(t, types.DirtyKey(want), key)
}

func TestDerive_DirtyInvalidDateAndRawSubject(t *testing.T) {
	f := fakeFields{
		raw:     map[string]string{"subject": "=?x-bogus?Q?abc?="},
		dateErr: errors.New("no date"),
		subjErr: errors.New("unknown charset"),
	}

	key := Derive(f)
	want := sha256.Sum256([]byte("-$=?x-bogus?Q?abc?="))
	assert.Equal(t, types.DirtyKey(want), key)
}

func TestDerive_DirtyKeysCollideOnDateAndSubject(t *testing.T) {
	a := wellFormed()
	a.id = ""
	a.raw["from"] = "alice@example.com"

	b := wellFormed()
	b.id = ""
	b.raw = map[string]string{"date": "Thu, 4 Mar 2021 05:06:07 GMT", "from": "bob@example.com"}

	assert.Equal(t, Derive(a), Derive(b))
}

func TestDerive_FromParsedMessage(t *testing.T) {
	clean := "Message-ID: <m1@example.com>\r\nDate: Thu, 04 Mar 2021 05:06:07 +0000\r\nSubject: hello\r\n\r\nbody\r\n"
	dirty := "Date: Thu, 04 Mar 2021 05:06:07 +0000\r\nSubject: hello\r\n\r\nbody\r\n"

	cm, err := message.Parse(strings.NewReader(clean))
	require.NoError(t, err)
	dm, err := message.Parse(strings.NewReader(dirty))
	require.NoError(t, err)

	ck := Derive(cm)
	dk := Derive(dm)

	assert.True(t, ck.IsClean())
	assert.Equal(t, sha256.Sum256([]byte("m1@example.com-Thu, 04 Mar 2021 05:06:07 +0000-hello")), ck.Digest)
	assert.False(t, dk.IsClean())
	assert.Equal(t, sha256.Sum256([]byte("2021-03-04T05:06:07Z-$hello")), dk.Digest)
}

func TestCleanAndDirtyNeverEqual(t *testing.T) {
	digest := sha256.Sum256([]byte("same bytes"))
	assert.NotEqual(t, types.CleanKey(digest), types.DirtyKey(digest))

	seen := map[types.Key]int{}
	seen[types.CleanKey(digest)]++
	seen[types.DirtyKey(digest)]++
	assert.Len(t, seen, 2)
}
