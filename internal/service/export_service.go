package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"user-service/internal/domain"
	"user-service/internal/repository"
	"user-service/internal/storage"
)

// ErrExportDisabled is returned when no export bucket is configured.
var ErrExportDisabled = errors.New("user export storage is not configured")

// ExportConfig locates export snapshots.
type ExportConfig struct {
	Bucket    string
	KeyPrefix string
	URLTTL    time.Duration
}

// ExportResult describes a written snapshot.
type ExportResult struct {
	Location   string
	Key        string
	Count      int
	ExportedAt time.Time
}

// ExportObject is a stored snapshot with a temporary download link.
type ExportObject struct {
	Key          string
	Size         int64
	LastModified *time.Time
	URL          string
}

// ExportService writes sanitized user snapshots to object storage.
type ExportService interface {
	Export(ctx context.Context) (*ExportResult, error)
	ListExports(ctx context.Context) ([]ExportObject, error)
}

type exportService struct {
	users repository.UserRepository
	store storage.Service
	cfg   ExportConfig
}

func NewExportService(users repository.UserRepository, store storage.Service, cfg ExportConfig) ExportService {
	cfg.KeyPrefix = strings.Trim(cfg.KeyPrefix, "/")
	if cfg.URLTTL <= 0 {
		cfg.URLTTL = 15 * time.Minute
	}
	return &exportService{
		users: users,
		store: store,
		cfg:   cfg,
	}
}

type exportedUser struct {
	ID        string `json:"_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
	CreatedAt string `json:"createdAt"`
}

type snapshot struct {
	ExportedAt string         `json:"exportedAt"`
	Count      int            `json:"count"`
	Users      []exportedUser `json:"users"`
}

func (s *exportService) enabled() bool {
	return s.store != nil && s.cfg.Bucket != ""
}

func (s *exportService) Export(ctx context.Context) (*ExportResult, error) {
	if !s.enabled() {
		return nil, ErrExportDisabled
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	snap := snapshot{
		ExportedAt: now.Format(time.RFC3339),
		Count:      len(users),
		Users:      make([]exportedUser, 0, len(users)),
	}
	for i := range users {
		snap.Users = append(snap.Users, toExportedUser(users[i].Sanitized()))
	}

	body, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	key := path.Join(s.cfg.KeyPrefix, fmt.Sprintf("users-%s-%s.json", now.Format("20060102T150405Z"), uuid.NewString()[:8]))
	location, err := s.store.PutObject(ctx, bytes.NewReader(body), storage.PutOptions{
		Bucket:      s.cfg.Bucket,
		Key:         key,
		ContentType: "application/json",
	})
	if err != nil {
		return nil, err
	}

	return &ExportResult{
		Location:   location,
		Key:        key,
		Count:      len(users),
		ExportedAt: now,
	}, nil
}

func (s *exportService) ListExports(ctx context.Context) ([]ExportObject, error) {
	if !s.enabled() {
		return nil, ErrExportDisabled
	}

	prefix := s.cfg.KeyPrefix
	if prefix != "" {
		prefix += "/"
	}
	objects, err := s.store.ListObjects(ctx, s.cfg.Bucket, prefix)
	if err != nil {
		return nil, err
	}

	out := make([]ExportObject, 0, len(objects))
	for _, obj := range objects {
		url, err := s.store.GetObjectURL(ctx, s.cfg.Bucket, obj.Key, s.cfg.URLTTL)
		if err != nil {
			return nil, err
		}
		out = append(out, ExportObject{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
			URL:          url,
		})
	}
	return out, nil
}

func toExportedUser(u *domain.User) exportedUser {
	return exportedUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Address:   u.Address,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}
