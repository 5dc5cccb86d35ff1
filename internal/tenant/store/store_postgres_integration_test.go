//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"storefront/internal/tenant/models"
	"storefront/internal/tenant/store"
	"storefront/pkg/platform/sentinel"
	"storefront/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.postgres.DB.ExecContext(context.Background(), "TRUNCATE stores")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestRoundTripByHost() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	acme := &models.Store{
		ID:             "acme",
		Name:           "Acme",
		Status:         models.StoreStatusActive,
		DefaultDomain:  "acme.fasttify.com",
		CustomDomain:   "shop.acme.test",
		DomainVerified: true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.Require().NoError(s.store.Save(ctx, acme))

	byCustom, err := s.store.FindByCustomDomain(ctx, "SHOP.acme.test")
	s.Require().NoError(err)
	s.Equal("acme", byCustom.ID)
	s.Equal("COP", byCustom.Currency)

	byDefault, err := s.store.FindByDefaultDomain(ctx, "acme.fasttify.com")
	s.Require().NoError(err)
	s.Equal(byCustom, byDefault)

	_, err = s.store.FindByCustomDomain(ctx, "acme.fasttify.com")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestDefaultDomainUnique() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, &models.Store{ID: "a", Name: "A", Status: models.StoreStatusActive, DefaultDomain: "same.fasttify.com"}))
	err := s.store.Save(ctx, &models.Store{ID: "b", Name: "B", Status: models.StoreStatusActive, DefaultDomain: "same.fasttify.com"})
	s.Error(err)
}
