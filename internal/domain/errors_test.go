package domain

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsKnown(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"обернутая доменная ошибка", fmt.Errorf("%w: folder 7", ErrNotFound), true},
		{"дважды обернутая", fmt.Errorf("upload: %w", fmt.Errorf("%w: 10 > 5", ErrQuotaExceeded)), true},
		{"посторонняя ошибка", errors.New("connection reset"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsKnown(tt.err))
		})
	}
}

func TestDeleteResultAdd(t *testing.T) {
	a := DeleteResult{FilesRemoved: 2, FoldersRemoved: 1, BytesFreed: 100}
	b := DeleteResult{FilesRemoved: 3, FoldersRemoved: 2, BytesFreed: 50}

	assert.Equal(t, DeleteResult{FilesRemoved: 5, FoldersRemoved: 3, BytesFreed: 150}, a.Add(b))
}

func TestShareGrantActive(t *testing.T) {
	now := mustTime(t, "2025-01-10T12:00:00Z")
	past := mustTime(t, "2025-01-09T12:00:00Z")
	future := mustTime(t, "2025-01-11T12:00:00Z")

	assert.True(t, (&ShareGrant{}).Active(now))
	assert.True(t, (&ShareGrant{ExpiresAt: &future}).Active(now))
	assert.False(t, (&ShareGrant{ExpiresAt: &past}).Active(now))
}

func TestQuotaInfo(t *testing.T) {
	info := NewQuotaInfo(&Account{StorageUsed: 250, StorageLimit: 1000})

	assert.Equal(t, int64(750), info.AvailableSpace)
	assert.InDelta(t, 25.0, info.UsagePercent, 0.001)

	over := &Account{StorageUsed: 1200, StorageLimit: 1000}
	assert.Equal(t, int64(0), over.Available())
	assert.False(t, over.Fits(1))
}

func TestAccountFits(t *testing.T) {
	account := &Account{StorageUsed: 600, StorageLimit: 1000}

	tests := []struct {
		name string
		size int64
		want bool
	}{
		{"ноль", 0, true},
		{"ровно остаток", 400, true},
		{"на байт больше", 401, false},
		{"максимальный int64", math.MaxInt64, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, account.Fits(tt.size))
		})
	}
}

func TestSplitExt(t *testing.T) {
	tests := []struct {
		name     string
		wantBase string
		wantExt  string
	}{
		{"отчет.pdf", "отчет", ".pdf"},
		{"archive.tar.gz", "archive.tar", ".gz"},
		{"README", "README", ""},
		{".bashrc", ".bashrc", ""},
		{"..hidden", "..hidden", ""},
		{"..hidden.txt", "..hidden", ".txt"},
		{"trailing.", "trailing", "."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, ext := SplitExt(tt.name)
			assert.Equal(t, tt.wantBase, base)
			assert.Equal(t, tt.wantExt, ext)
		})
	}
}
