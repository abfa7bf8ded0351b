package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"clouddrive/internal/domain"
	"clouddrive/internal/logger"
	"clouddrive/internal/repository"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 80
	minPasswordLength = 6
	resetPasswordSize = 9
)

// AccountService управляет учетными записями и проверкой паролей
type AccountService struct {
	store           repository.Store
	activityService *ActivityService
	defaultLimit    int64
	now             func() time.Time
	log             zerolog.Logger

	// dummyHash сравнивается при неизвестном логине, чтобы время ответа
	// не выдавало существование аккаунта
	dummyHash []byte
}

func NewAccountService(store repository.Store, activityService *ActivityService, defaultLimit int64, log zerolog.Logger) *AccountService {
	dummy, _ := bcrypt.GenerateFromPassword([]byte("clouddrive-dummy-password"), bcrypt.DefaultCost)
	return &AccountService{
		store:           store,
		activityService: activityService,
		defaultLimit:    defaultLimit,
		now:             time.Now,
		log:             logger.Component(log, "AccountService"),
		dummyHash:       dummy,
	}
}

func validateAccount(req domain.CreateAccountRequest) error {
	n := utf8.RuneCountInString(req.Username)
	switch {
	case n < minUsernameLength || n > maxUsernameLength:
		return fmt.Errorf("%w: username must be %d to %d characters", domain.ErrInvalidArgument, minUsernameLength, maxUsernameLength)
	case !strings.Contains(req.Email, "@"):
		return fmt.Errorf("%w: email address is invalid", domain.ErrInvalidArgument)
	case utf8.RuneCountInString(req.Password) < minPasswordLength:
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidArgument, minPasswordLength)
	case req.StorageLimit < 0:
		return fmt.Errorf("%w: storage limit cannot be negative", domain.ErrInvalidArgument)
	}
	return nil
}

// CreateAccount создает аккаунт. Нулевой лимит заменяется лимитом по умолчанию
func (s *AccountService) CreateAccount(ctx context.Context, req domain.CreateAccountRequest) (*domain.Account, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := validateAccount(req); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	limit := req.StorageLimit
	if limit == 0 {
		limit = s.defaultLimit
	}

	account := &domain.Account{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		IsAdmin:      req.IsAdmin,
		IsActive:     true,
		StorageLimit: limit,
	}
	if err := s.store.Accounts().Create(ctx, account); err != nil {
		return nil, err
	}

	s.log.Info().Int64("account_id", account.ID).Str("username", account.Username).Bool("admin", account.IsAdmin).Msg("account created")
	return account, nil
}

// Register создает обычный аккаунт от имени самого пользователя
func (s *AccountService) Register(ctx context.Context, username, email, password string) (*domain.Account, error) {
	account, err := s.CreateAccount(ctx, domain.CreateAccountRequest{
		Username: username,
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, err
	}

	s.activityService.Record(ctx, account.ID, domain.ActionRegister, domain.ResourceAccount, account.ID)
	return account, nil
}

// VerifyCredentials проверяет логин и пароль. Отключенный аккаунт
// получает ErrForbidden даже с верным паролем
func (s *AccountService) VerifyCredentials(ctx context.Context, username, password string) (*domain.Account, error) {
	account, err := s.store.Accounts().GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		s.log.Warn().Str("username", account.Username).Msg("failed login attempt")
		return nil, domain.ErrInvalidCredentials
	}
	if !account.IsActive {
		return nil, fmt.Errorf("%w: account %s is disabled", domain.ErrForbidden, account.Username)
	}

	at := s.now()
	if err := s.store.Accounts().TouchLastLogin(ctx, account.ID, at); err != nil {
		s.log.Warn().Err(err).Int64("account_id", account.ID).Msg("failed to update last login")
	} else {
		account.LastLogin = &at
	}

	s.activityService.Record(ctx, account.ID, domain.ActionLogin, domain.ResourceAccount, account.ID)
	return account, nil
}

func (s *AccountService) GetAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	return s.store.Accounts().GetByID(ctx, accountID)
}

func (s *AccountService) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.store.Accounts().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return nonNil(accounts), nil
}

// DeleteAccount удаляет аккаунт без файлов и папок. Удалить себя нельзя
func (s *AccountService) DeleteAccount(ctx context.Context, actorID, accountID int64) error {
	if actorID == accountID {
		return fmt.Errorf("%w: cannot delete your own account", domain.ErrInvalidArgument)
	}

	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.Accounts().Lock(ctx, accountID); err != nil {
			return err
		}

		files, folders, err := tx.Accounts().CountOwned(ctx, accountID)
		if err != nil {
			return err
		}
		if files > 0 || folders > 0 {
			return fmt.Errorf("%w: %d files and %d folders", domain.ErrResourceNotEmpty, files, folders)
		}
		return tx.Accounts().Delete(ctx, accountID)
	})
	if err != nil {
		return err
	}

	s.log.Info().Int64("account_id", accountID).Int64("actor_id", actorID).Msg("account deleted")
	s.activityService.Record(ctx, actorID, domain.ActionAccountDelete, domain.ResourceAccount, accountID)
	return nil
}

// ToggleStatus включает или отключает аккаунт
func (s *AccountService) ToggleStatus(ctx context.Context, actorID, accountID int64) (*domain.Account, error) {
	if actorID == accountID {
		return nil, fmt.Errorf("%w: cannot disable your own account", domain.ErrInvalidArgument)
	}

	var account *domain.Account
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if account, err = tx.Accounts().Lock(ctx, accountID); err != nil {
			return err
		}
		account.IsActive = !account.IsActive
		return tx.Accounts().SetActive(ctx, accountID, account.IsActive)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("account_id", accountID).Bool("active", account.IsActive).Msg("account status changed")
	s.activityService.Record(ctx, actorID, domain.ActionAccountToggle, domain.ResourceAccount, accountID)
	return account, nil
}

func validateProfile(username, email string) error {
	n := utf8.RuneCountInString(username)
	switch {
	case n < minUsernameLength || n > maxUsernameLength:
		return fmt.Errorf("%w: username must be %d to %d characters", domain.ErrInvalidArgument, minUsernameLength, maxUsernameLength)
	case !strings.Contains(email, "@"):
		return fmt.Errorf("%w: email address is invalid", domain.ErrInvalidArgument)
	}
	return nil
}

// UpdateSettings меняет email и, если задан, пароль владельца аккаунта.
// Требует текущий пароль; пустой email оставляет прежний
func (s *AccountService) UpdateSettings(ctx context.Context, accountID int64, currentPassword, email, newPassword string) (*domain.Account, error) {
	email = strings.TrimSpace(email)
	if newPassword != "" && utf8.RuneCountInString(newPassword) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidArgument, minPasswordLength)
	}

	var newHash string
	if newPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		newHash = string(hash)
	}

	var account *domain.Account
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if account, err = tx.Accounts().Lock(ctx, accountID); err != nil {
			return err
		}
		if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(currentPassword)); err != nil {
			return domain.ErrInvalidCredentials
		}

		if email != "" {
			account.Email = email
		}
		if err := validateProfile(account.Username, account.Email); err != nil {
			return err
		}
		if err := tx.Accounts().UpdateProfile(ctx, account); err != nil {
			return err
		}

		if newHash == "" {
			return nil
		}
		account.PasswordHash = newHash
		return tx.Accounts().UpdatePassword(ctx, accountID, newHash)
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			s.log.Warn().Int64("account_id", accountID).Msg("settings change with wrong password")
		}
		return nil, err
	}

	s.log.Info().Int64("account_id", accountID).Bool("password_changed", newHash != "").Msg("settings updated")
	s.activityService.Record(ctx, accountID, domain.ActionUpdateSettings, domain.ResourceAccount, accountID)
	return account, nil
}

// UpdateAccount правит профиль чужого аккаунта. Себя администратор не
// правит, иначе мог бы снять с себя права или отключиться
func (s *AccountService) UpdateAccount(ctx context.Context, actorID, accountID int64, req domain.UpdateAccountRequest) (*domain.Account, error) {
	if actorID == accountID {
		return nil, fmt.Errorf("%w: cannot edit your own account", domain.ErrInvalidArgument)
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := validateProfile(req.Username, req.Email); err != nil {
		return nil, err
	}

	var account *domain.Account
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if account, err = tx.Accounts().Lock(ctx, accountID); err != nil {
			return err
		}
		account.Username = req.Username
		account.Email = req.Email
		account.IsAdmin = req.IsAdmin
		account.IsActive = req.IsActive
		return tx.Accounts().UpdateProfile(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("account_id", accountID).
		Int64("actor_id", actorID).
		Bool("admin", account.IsAdmin).
		Bool("active", account.IsActive).
		Msg("account updated")
	s.activityService.Record(ctx, actorID, domain.ActionAccountEdit, domain.ResourceAccount, accountID)
	return account, nil
}

// AccountStorage собирает квоту и все записи аккаунта
func (s *AccountService) AccountStorage(ctx context.Context, accountID int64) (*domain.AccountStorage, error) {
	account, err := s.store.Accounts().GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	folders, err := s.store.Folders().ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	files, err := s.store.Files().ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return &domain.AccountStorage{
		Account: account,
		Quota:   domain.NewQuotaInfo(account),
		Folders: nonNil(folders),
		Files:   nonNil(files),
	}, nil
}

// ResetPassword задает случайный пароль и возвращает его один раз
func (s *AccountService) ResetPassword(ctx context.Context, actorID, accountID int64) (string, error) {
	buf := make([]byte, resetPasswordSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	password := base64.RawURLEncoding.EncodeToString(buf)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.store.Accounts().UpdatePassword(ctx, accountID, string(hash)); err != nil {
		return "", err
	}

	s.log.Info().Int64("account_id", accountID).Int64("actor_id", actorID).Msg("password reset")
	s.activityService.Record(ctx, actorID, domain.ActionPasswordReset, domain.ResourceAccount, accountID)
	return password, nil
}
