package store

import (
	"context"
	"time"

	"storefront/internal/tenant/models"
)

// Saver is implemented by both store record backends.
type Saver interface {
	Save(ctx context.Context, store *models.Store) error
}

// SeedDemoStore registers the demo store served by the render command and local
// development: "demo" on demo.{platformDomain}.
func SeedDemoStore(ctx context.Context, s Saver, platformDomain string, now time.Time) (*models.Store, error) {
	demo := &models.Store{
		ID:            "demo",
		UserID:        "demo-owner",
		Name:          "Demo Store",
		Description:   "Tienda de demostración",
		Currency:      models.DefaultCurrency,
		Status:        models.StoreStatusActive,
		DefaultDomain: "demo." + platformDomain,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.Save(ctx, demo); err != nil {
		return nil, err
	}
	return demo, nil
}
