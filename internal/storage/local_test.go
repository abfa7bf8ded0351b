package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemLocal(t *testing.T) (*Local, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	st, err := NewLocal(fs, "/data")
	require.NoError(t, err)
	return st, fs
}

func TestLocal_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	st, fs := newMemLocal(t)
	key := NewKey(7)

	require.NoError(t, st.Put(ctx, key, strings.NewReader("hello, world"), "text/plain"))

	size, err := st.Stat(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(12), size)

	exists, err := afero.Exists(fs, "/data/"+key)
	require.NoError(t, err)
	assert.True(t, exists)

	obj, err := st.Get(ctx, key)
	require.NoError(t, err)
	body, err := io.ReadAll(obj)
	require.NoError(t, err)
	require.NoError(t, obj.Close())
	assert.Equal(t, "hello, world", string(body))
	assert.Equal(t, int64(12), obj.ContentLength())

	require.NoError(t, st.Delete(ctx, key))
	assert.ErrorIs(t, st.Delete(ctx, key), ErrObjectNotFound)

	_, err = st.Get(ctx, key)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocal_PutLeavesNoTempOnFailure(t *testing.T) {
	ctx := context.Background()
	st, fs := newMemLocal(t)

	err := st.Put(ctx, "1/broken", io.MultiReader(strings.NewReader("part"), failingReader{}), "")
	require.Error(t, err)

	entries, err := afero.ReadDir(fs, "/data/1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"1/0f8e3c", false},
		{"", true},
		{"/etc/passwd", true},
		{"../secret", true},
		{"1/../../secret", true},
		{`1\evil`, true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := validateKey(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewKeyIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		key := NewKey(1)
		require.False(t, seen[key])
		require.True(t, strings.HasPrefix(key, "1/"))
		seen[key] = true
	}
}

func TestNewUnknownDriver(t *testing.T) {
	_, err := New(Config{Driver: "ftp"})
	assert.Error(t, err)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}
