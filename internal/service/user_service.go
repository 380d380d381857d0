package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"user-service/internal/domain"
	"user-service/internal/password"
	"user-service/internal/repository"
)

var (
	// ErrMissingCredentials indicates that email or password was not supplied.
	ErrMissingCredentials = errors.New("email and password required")
	// ErrEmptyEmail is returned when an update tries to clear the email.
	ErrEmptyEmail = errors.New("email cannot be empty")
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserAlreadyExists is returned when the email is already registered.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrUserNotFound is returned when no user matches the identifier or the identifier is malformed.
	ErrUserNotFound = errors.New("user not found")
)

// dummyPassword is hashed once so failed lookups can still pay for a verification.
const dummyPassword = "user-service/no-such-user"

// RegisterInput carries the registration payload.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Address  string
	Phone    string
}

// UserService describes user lifecycle operations. Every returned user is sanitized.
type UserService interface {
	List(ctx context.Context) ([]domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	Update(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error)
	Delete(ctx context.Context, id string) error
}

type userService struct {
	users  repository.UserRepository
	hasher password.Hasher

	dummyOnce sync.Once
	dummyHash string
}

func NewUserService(users repository.UserRepository, hasher password.Hasher) UserService {
	return &userService{
		users:  users,
		hasher: hasher,
	}
}

func (s *userService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.User, 0, len(users))
	for i := range users {
		out = append(out, *users[i].Sanitized())
	}
	return out, nil
}

func (s *userService) Get(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return user.Sanitized(), nil
}

func (s *userService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, ErrMissingCredentials
	}

	// Early answer for the common case; the unique index decides races.
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrUserAlreadyExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         in.Name,
		Email:        email,
		PasswordHash: hash,
		Address:      in.Address,
		Phone:        in.Phone,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		return nil, translate(err)
	}

	return user.Sanitized(), nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_, _ = s.hasher.Verify(password, s.dummy())
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}

	return user.Sanitized(), nil
}

func (s *userService) Update(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error) {
	patch = patch.Normalize()
	if patch.Email != nil && *patch.Email == "" {
		return nil, ErrEmptyEmail
	}

	user, err := s.users.Update(ctx, id, patch)
	if err != nil {
		return nil, translate(err)
	}
	return user.Sanitized(), nil
}

func (s *userService) Delete(ctx context.Context, id string) error {
	return translate(s.users.Delete(ctx, id))
}

func (s *userService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash(dummyPassword)
	})
	return s.dummyHash
}

// translate maps store error kinds onto service errors and passes everything else through.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrInvalidID):
		return ErrUserNotFound
	case errors.Is(err, repository.ErrDuplicateEmail):
		return ErrUserAlreadyExists
	}
	return err
}
