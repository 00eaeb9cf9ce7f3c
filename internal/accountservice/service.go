// Package accountservice manages business logic layer of currency accounts.
package accountservice

import (
	"context"

	"github.com/caribfx/bureau/internal/domain"
)

// Repo provides data access layer interface needed by account service layer.
type Repo interface {
	Create(ctx context.Context, currency, balance string) (domain.Account, error)
	Get(ctx context.Context, currency string) (domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
}

// Service facilitates account service layer logic.
type Service struct {
	repo Repo
}

// New returns account service struct to manage account bussines logic.
func New(ar Repo) *Service {
	return &Service{repo: ar}
}

// Create creates and returns the account for the given currency. Creation is
// idempotent: an existing account is returned as is.
func (s *Service) Create(ctx context.Context, currency string) (domain.Account, error) {
	account, err := s.repo.Create(ctx, currency, "0")
	if err != nil {
		return account, err
	}

	return account, nil
}

// Get returns the account for the given currency.
func (s *Service) Get(ctx context.Context, currency string) (domain.Account, error) {
	account, err := s.repo.Get(ctx, currency)
	if err != nil {
		return account, err
	}

	return account, nil
}

// List returns all accounts ordered by currency.
func (s *Service) List(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	return accounts, nil
}
