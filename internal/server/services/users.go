package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/nizamla/internal/common"
	"github.com/dmitrijs2005/nizamla/internal/cryptox"
	"github.com/dmitrijs2005/nizamla/internal/logging"
	"github.com/dmitrijs2005/nizamla/internal/server/limiter"
	"github.com/dmitrijs2005/nizamla/internal/server/models"
	"github.com/dmitrijs2005/nizamla/internal/server/repositories/repomanager"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 64
	maxEmailLen    = 100
	minPasswordLen = 6
	maxPasswordLen = 64
)

// UserService registers and authenticates users.
type UserService struct {
	repos   repomanager.RepositoryManager
	limiter limiter.LoginLimiter
	logger  logging.Logger
	params  cryptox.Params

	dummyOnce sync.Once
	dummyHash string
}

type UserOption func(*UserService)

// WithHashParams overrides the argon2id cost. Tests use it to stay fast.
func WithHashParams(p cryptox.Params) UserOption {
	return func(s *UserService) { s.params = p }
}

func NewUserService(repos repomanager.RepositoryManager, lim limiter.LoginLimiter, logger logging.Logger, opts ...UserOption) *UserService {
	s := &UserService{repos: repos, limiter: lim, logger: logger, params: cryptox.DefaultParams}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a user with the default role.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	return s.CreateUser(ctx, username, email, password, common.DefaultUserRole)
}

// CreateUser validates input, hashes the password and stores the user.
// Taken usernames or emails give common.ErrorAlreadyExists.
func (s *UserService) CreateUser(ctx context.Context, username, email, password, role string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if role == "" {
		role = common.DefaultUserRole
	}

	if err := validateRegistration(username, email, password); err != nil {
		return nil, err
	}

	users := s.repos.Users()
	if _, err := users.GetByUsername(ctx, username); err == nil {
		return nil, fmt.Errorf("%w: username is already registered", common.ErrorAlreadyExists)
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if _, err := users.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email is already in use", common.ErrorAlreadyExists)
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := cryptox.HashPassword([]byte(password), s.params)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %w", common.ErrorInternal, err)
	}

	user, err := users.Create(ctx, &models.User{
		Username:     username,
		Email:        email,
		Role:         role,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Authenticate checks a username and password. Unknown users and wrong
// passwords both give common.ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	v := &validator{}
	v.check(username != "", "username", "username is required")
	v.check(password != "", "password", "password is required")
	if err := v.err(); err != nil {
		return nil, err
	}

	if err := s.limiter.Check(ctx, username); err != nil {
		if errors.Is(err, common.ErrTooManyAttempts) {
			s.logger.Warn(ctx, "login refused, account locked", "username", username)
			return nil, err
		}
		s.logger.Warn(ctx, "login limiter unavailable", "error", err)
	}

	user, err := s.repos.Users().GetByUsername(ctx, username)
	if errors.Is(err, common.ErrorNotFound) {
		// Burn one hash check for unknown users too.
		_, _ = cryptox.VerifyPassword([]byte(password), s.dummy())
		return nil, s.failed(ctx, username)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	ok, err := cryptox.VerifyPassword([]byte(password), user.PasswordHash)
	if err != nil {
		s.logger.Error(ctx, "stored password hash is unreadable", "user_id", user.ID, "error", err)
	}
	if !ok {
		return nil, s.failed(ctx, username)
	}

	if err := s.limiter.Reset(ctx, username); err != nil {
		s.logger.Warn(ctx, "login limiter reset failed", "error", err)
	}
	s.logger.Info(ctx, "user logged in", "user_id", user.ID)
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repos.Users().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *UserService) failed(ctx context.Context, username string) error {
	s.logger.Warn(ctx, "invalid login attempt", "username", username)
	if err := s.limiter.RecordFailure(ctx, username); err != nil {
		s.logger.Warn(ctx, "login limiter record failed", "error", err)
	}
	return common.ErrInvalidCredentials
}

func (s *UserService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = cryptox.HashPassword(common.GenerateRandByteArray(16), s.params)
	})
	return s.dummyHash
}

func validateRegistration(username, email, password string) error {
	v := &validator{}

	n := utf8.RuneCountInString(username)
	v.check(n > 0, "username", "username is required")
	v.check(n == 0 || n >= minUsernameLen, "username", fmt.Sprintf("username must be at least %d characters", minUsernameLen))
	v.check(n <= maxUsernameLen, "username", fmt.Sprintf("username must be at most %d characters", maxUsernameLen))

	v.check(email != "", "email", "email is required")
	if email != "" {
		addr, err := mail.ParseAddress(email)
		v.check(err == nil && addr.Address == email, "email", "email address is not valid")
		v.check(utf8.RuneCountInString(email) <= maxEmailLen, "email", fmt.Sprintf("email must be at most %d characters", maxEmailLen))
	}

	p := utf8.RuneCountInString(password)
	v.check(p > 0, "password", "password is required")
	if p > 0 {
		v.check(p >= minPasswordLen, "password", fmt.Sprintf("password must be at least %d characters", minPasswordLen))
		v.check(p <= maxPasswordLen, "password", fmt.Sprintf("password must be at most %d characters", maxPasswordLen))
		v.check(strings.IndexFunc(password, unicode.IsUpper) >= 0, "password", "password must contain an upper-case letter")
		v.check(strings.IndexFunc(password, unicode.IsLower) >= 0, "password", "password must contain a lower-case letter")
		v.check(strings.IndexFunc(password, unicode.IsDigit) >= 0, "password", "password must contain a digit")
	}

	return v.err()
}
