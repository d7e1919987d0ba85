package catalog

import (
	"context"
	"testing"

	pkgerrors "github.com/commercezen/engine/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCatalog(t *testing.T) *Repository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	repo := NewRepository(db)
	require.NoError(t, repo.Migrate(context.Background()))
	require.NoError(t, repo.Seed(context.Background(), DefaultProducts()))
	return repo
}

func TestFindByID(t *testing.T) {
	repo := setupCatalog(t)

	product, err := repo.FindByID(context.Background(), "p1")
	require.NoError(t, err)
	require.Equal(t, "Aurora Desk Lamp", product.Name)
	require.True(t, product.Price.Equal(decimal.NewFromInt(500)))
}

func TestFindByIDMissingMapsToNotFound(t *testing.T) {
	repo := setupCatalog(t)

	_, err := repo.FindByID(context.Background(), "ghost")
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListFeatured(t *testing.T) {
	repo := setupCatalog(t)

	featured, err := repo.ListFeatured(context.Background())
	require.NoError(t, err)
	require.Len(t, featured, 3)
	for _, product := range featured {
		require.True(t, product.Featured)
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	repo := setupCatalog(t)
	require.NoError(t, repo.Seed(context.Background(), DefaultProducts()))

	products, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, products, len(DefaultProducts()))
}
