package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore_LoginGetLogout(t *testing.T) {
	s := NewSessionStore(time.Hour)

	_, ok := s.Get("abc")
	assert.False(t, ok)

	s.Login("abc", 1, "johndoe")
	sess, ok := s.Get("abc")
	require.True(t, ok)
	assert.Equal(t, int64(1), sess.UserID)
	assert.Equal(t, "johndoe", sess.Username)

	s.Logout("abc")
	_, ok = s.Get("abc")
	assert.False(t, ok)
}

func TestSessionStore_EmptyID(t *testing.T) {
	s := NewSessionStore(time.Hour)
	s.Login("", 1, "x")
	_, ok := s.Get("")
	assert.False(t, ok)
}

func TestSessionStore_Expiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewSessionStore(10 * time.Minute)
	s.now = func() time.Time { return now }

	s.Login("a", 1, "johndoe")
	s.Login("b", 2, "janedoe")

	now = now.Add(5 * time.Minute)
	_, ok := s.Get("a") // refreshes a
	require.True(t, ok)

	now = now.Add(6 * time.Minute)
	_, ok = s.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, s.Len())

	assert.Equal(t, 1, s.Sweep())
	_, ok = s.Get("b")
	assert.False(t, ok)
}
