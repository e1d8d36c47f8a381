package localstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("", true)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSetGetDelete(t *testing.T) {
	s := openMemory(t)

	_, err := s.Get(KeyElderCode)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(KeyElderCode, "567", 0))
	v, err := s.Get(KeyElderCode)
	require.NoError(t, err)
	assert.Equal(t, "567", v)

	require.NoError(t, s.Set(KeyElderCode, "A1B", 0))
	v, err = s.Get(KeyElderCode)
	require.NoError(t, err)
	assert.Equal(t, "A1B", v)

	require.NoError(t, s.Delete(KeyElderCode))
	require.NoError(t, s.Delete(KeyElderCode))
	_, err = s.Get(KeyElderCode)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, false)
	require.NoError(t, err)
	require.NoError(t, s.Set(KeySession, "token", time.Hour))
	require.NoError(t, s.Close())

	s, err = Open(dir, false)
	require.NoError(t, err)
	defer s.Close()
	v, err := s.Get(KeySession)
	require.NoError(t, err)
	assert.Equal(t, "token", v)
}
