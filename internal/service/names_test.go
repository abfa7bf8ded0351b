package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clouddrive/internal/domain"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"обычное имя", "отчет.pdf", "отчет.pdf", false},
		{"пробелы по краям", "  notes.txt ", "notes.txt", false},
		{"unix путь", "../../etc/passwd", "passwd", false},
		{"windows путь", `C:\Users\me\photo.jpg`, "photo.jpg", false},
		{"управляющие символы", "bad\x00na\nme.txt", "badname.txt", false},
		{"пустое", "", "", true},
		{"только путь", "dir/", "", true},
		{"точка", ".", "", true},
		{"две точки", "..", "", true},
		{"слишком длинное", strings.Repeat("я", 200) + ".txt", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sanitizeName(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidName)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"обычное имя", "отчет.pdf", "отчет.pdf", false},
		{"пробелы по краям", " notes ", "notes", false},
		{"unix путь", "dir/other.pdf", "", true},
		{"выход из папки", "../x", "", true},
		{"windows путь", `a\b.txt`, "", true},
		{"только разделитель", "/", "", true},
		{"пустое", "  ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validateName(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidName)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
