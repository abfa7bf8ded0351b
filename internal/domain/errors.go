package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("access denied")
	ErrQuotaExceeded      = errors.New("storage quota exceeded")
	ErrInvalidName        = errors.New("invalid name")
	ErrDuplicateName      = errors.New("name already exists")
	ErrCyclicMove         = errors.New("folder cannot be moved into itself or its descendant")
	ErrCycleDetected      = errors.New("folder hierarchy is corrupted: cycle detected")
	ErrResourceNotEmpty   = errors.New("account still owns files or folders")
	ErrStorageIO          = errors.New("storage operation failed")
	ErrTransactionFailed  = errors.New("transaction failed")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidArgument    = errors.New("invalid argument")
)

var knownErrors = []error{
	ErrNotFound,
	ErrForbidden,
	ErrQuotaExceeded,
	ErrInvalidName,
	ErrDuplicateName,
	ErrCyclicMove,
	ErrCycleDetected,
	ErrResourceNotEmpty,
	ErrStorageIO,
	ErrTransactionFailed,
	ErrInvalidCredentials,
	ErrInvalidArgument,
}

// IsKnown сообщает, относится ли ошибка к одной из доменных
func IsKnown(err error) bool {
	for _, known := range knownErrors {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}
