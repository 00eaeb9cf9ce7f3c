// Package settingservice manages business logic layer of back-office settings.
package settingservice

import (
	"context"

	"github.com/caribfx/bureau/internal/domain"
)

// Repo provides data access layer to the service.
//
//go:generate mockgen -source=service.go -destination=service_mock.go -package=settingservice
type Repo interface {
	Upsert(ctx context.Context, key, value string) (domain.Setting, error)
	Get(ctx context.Context, key string) (domain.Setting, error)
	List(ctx context.Context) ([]domain.Setting, error)
	Delete(ctx context.Context, key string) error
}

// Service facilitates setting service layer logic.
type Service struct {
	repo Repo
}

// New returns setting Service.
func New(repo Repo) *Service {
	return &Service{repo: repo}
}

// Upsert stores the value under the key and returns the stored setting.
func (s *Service) Upsert(ctx context.Context, key, value string) (domain.Setting, error) {
	return s.repo.Upsert(ctx, key, value)
}

// Get returns the setting for the given key.
func (s *Service) Get(ctx context.Context, key string) (domain.Setting, error) {
	return s.repo.Get(ctx, key)
}

// List returns all settings.
func (s *Service) List(ctx context.Context) ([]domain.Setting, error) {
	return s.repo.List(ctx)
}

// Delete removes the setting for the given key.
func (s *Service) Delete(ctx context.Context, key string) error {
	return s.repo.Delete(ctx, key)
}
