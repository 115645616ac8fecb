package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecord_AuthToken(t *testing.T) {
	rec := &Record{Token: "abc123"}
	assert.Equal(t, "abc123", rec.AuthToken())
}

func TestRecord_AuthToken_NilReceiver(t *testing.T) {
	var rec *Record
	assert.Equal(t, "", rec.AuthToken())
}

func TestRecord_Expired(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	past := now.Add(-time.Hour)
	rec := &Record{ExpiresAt: &past}
	assert.True(t, rec.Expired(now))

	future := now.Add(time.Hour)
	rec2 := &Record{ExpiresAt: &future}
	assert.False(t, rec2.Expired(now))

	rec3 := &Record{}
	assert.False(t, rec3.Expired(now))
}
