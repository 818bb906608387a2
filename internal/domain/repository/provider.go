package repository

//go:generate mockgen -package=usecase_test -destination=../../usecase/mock_provider_test.go -source=provider.go TokenProvider

import (
	"context"

	"TokenPull/internal/domain/models"
)

// TokenProvider is one upstream source of token records. A fetch may fail
// transiently; callers decide whether to retry.
type TokenProvider interface {
	Name() string
	FetchAll(ctx context.Context) ([]models.RawRecord, error)
}
