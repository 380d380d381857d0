package service

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"user-service/internal/domain"
	"user-service/internal/storage"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Init(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) (string, error) {
	args := m.Called(ctx, user)
	if id := args.String(0); id != "" {
		user.ID = id
	}
	return args.String(0), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockHasher struct {
	mock.Mock
}

func (m *MockHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockHasher) Verify(password, encoded string) (bool, error) {
	args := m.Called(password, encoded)
	return args.Bool(0), args.Error(1)
}

type MockStorage struct {
	mock.Mock
	body []byte
}

func (m *MockStorage) PutObject(ctx context.Context, body io.Reader, opts storage.PutOptions) (string, error) {
	m.body, _ = io.ReadAll(body)
	args := m.Called(ctx, opts)
	return args.String(0), args.Error(1)
}

func (m *MockStorage) ListObjects(ctx context.Context, bucket, prefix string) ([]storage.ObjectInfo, error) {
	args := m.Called(ctx, bucket, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.ObjectInfo), args.Error(1)
}

func (m *MockStorage) GetObjectURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error) {
	args := m.Called(ctx, bucket, key, expires)
	return args.String(0), args.Error(1)
}
