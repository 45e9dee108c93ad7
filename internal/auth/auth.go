package auth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"lenslingua/internal/logging"
	"lenslingua/internal/model"
)

var (
	ErrDuplicateUser = errors.New("user already exists")
	ErrInvalidInput  = errors.New("invalid credentials input")
)

type User struct {
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Repository interface {
	LoadAll(ctx context.Context) ([]User, error)
	// Insert adds user unless the email is taken, in which case it returns
	// ErrDuplicateUser. The check and the write happen atomically.
	Insert(ctx context.Context, user User) error
}

type Service struct {
	repo      Repository
	hashCost  int
	minPasswd int
	now       func() time.Time
}

func NewService(repo Repository, hashCost, minPasswordLength int) *Service {
	if minPasswordLength < 1 {
		minPasswordLength = 1
	}
	return &Service{repo: repo, hashCost: hashCost, minPasswd: minPasswordLength, now: time.Now}
}

// Register creates an account for the normalized email.
func (s *Service) Register(ctx context.Context, email, password string) error {
	email = model.NormalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if !strings.Contains(email, "@") {
		return fmt.Errorf("%w: email must contain @", ErrInvalidInput)
	}
	if len([]rune(password)) < s.minPasswd {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, s.minPasswd)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, maxPasswordBytes)
	}
	hash, err := hashPassword(password, s.hashCost)
	if err != nil {
		return err
	}
	if err := s.repo.Insert(ctx, User{Email: email, PasswordHash: hash, CreatedAt: s.now().UTC()}); err != nil {
		return err
	}
	logging.NewLogger(ctx).WithField("email", email).Info("user registered")
	return nil
}

// Verify reports whether the credentials match a registered account.
func (s *Service) Verify(ctx context.Context, email, password string) bool {
	email = model.NormalizeEmail(email)
	if email == "" {
		return false
	}
	users, err := s.repo.LoadAll(ctx)
	if err != nil {
		logging.NewLogger(ctx).Warnf("load users: %v", err)
		return false
	}
	for _, u := range users {
		if u.Email == email {
			return checkPassword(u.PasswordHash, password)
		}
	}
	return false
}

// List returns every account sorted by email.
func (s *Service) List(ctx context.Context) []User {
	users, err := s.repo.LoadAll(ctx)
	if err != nil {
		logging.NewLogger(ctx).Warnf("load users: %v", err)
		return nil
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users
}
