// Package storage defines the persistence interface for profiles.
package storage

import (
	"context"

	"github.com/hyperjump/cohort/internal/models"
)

// Storage defines profile persistence operations. Profiles are listed in
// insertion order so repeated analyses see the same index order.
type Storage interface {
	CreateProfile(ctx context.Context, p *models.Profile) error
	BatchCreateProfiles(ctx context.Context, profiles []*models.Profile) error
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, p *models.Profile) error
	DeleteProfile(ctx context.Context, id string) error
	DeleteProfilesBySource(ctx context.Context, source string) ([]string, error)
	// ListProfiles returns up to limit profiles after offset; limit <= 0 returns all.
	ListProfiles(ctx context.Context, offset, limit int) ([]*models.Profile, error)
	ListProfilesBySource(ctx context.Context, source string) ([]*models.Profile, error)
	CountProfiles(ctx context.Context) (int64, error)
	Close() error
}
