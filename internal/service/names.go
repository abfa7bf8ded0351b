package service

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"clouddrive/internal/domain"
	"clouddrive/internal/repository"
)

const (
	maxNameLength    = 255
	maxDedupAttempts = 1000
)

// sanitizeName готовит отображаемое имя: отбрасывает путь и управляющие
// символы. Пустое имя, "." и ".." недопустимы
func sanitizeName(name string) (string, error) {
	name = strings.ReplaceAll(name, `\`, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}

	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == utf8.RuneError {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)

	switch {
	case name == "" || name == "." || name == "..":
		return "", fmt.Errorf("%w: name is empty", domain.ErrInvalidName)
	case len(name) > maxNameLength:
		return "", fmt.Errorf("%w: name is longer than %d bytes", domain.ErrInvalidName, maxNameLength)
	}
	return name, nil
}

// validateName проверяет имя, введенное пользователем напрямую. В отличие
// от имени загружаемого файла, путь в нем не отбрасывается, а отклоняется
func validateName(name string) (string, error) {
	if strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: name must not contain path separators", domain.ErrInvalidName)
	}
	return sanitizeName(name)
}

// uniqueFileName подбирает свободное имя в папке: "отчет.pdf" -> "отчет (1).pdf"
func uniqueFileName(ctx context.Context, files repository.FileRepository, accountID int64, folderID *int64, name string) (string, error) {
	candidate := name
	base, ext := domain.SplitExt(name)

	for n := 1; n <= maxDedupAttempts; n++ {
		taken, err := files.NameTaken(ctx, accountID, folderID, candidate, 0)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s (%d)%s", base, n, ext)
	}
	return "", fmt.Errorf("%w: too many files named %q", domain.ErrDuplicateName, name)
}
