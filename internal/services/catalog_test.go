package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour-booking/internal/apperr"
	"tour-booking/internal/models"
)

func TestCityLifecycle(t *testing.T) {
	f := newFixture(t, Deps{})

	_, err := f.svc.Cities.Create(f.ctx, &models.CityRequest{Name: strPtr("  ")})
	assertKind(t, err, apperr.KindValidation)

	city, err := f.svc.Cities.Create(f.ctx, &models.CityRequest{Name: strPtr(" Oslo "), Country: strPtr("Norway")})
	require.NoError(t, err)
	assert.Equal(t, "Oslo", city.Name)

	_, err = f.svc.Cities.Create(f.ctx, &models.CityRequest{Name: strPtr("oslo"), Country: strPtr("Norway")})
	assertKind(t, err, apperr.KindConflict)

	_, err = f.svc.Cities.Update(f.ctx, city.ID, &models.CityRequest{})
	assertKind(t, err, apperr.KindValidation)

	_, err = f.svc.Cities.Update(f.ctx, city.ID, &models.CityRequest{Name: strPtr("Bergen")})
	assertKind(t, err, apperr.KindConflict)

	updated, err := f.svc.Cities.Update(f.ctx, city.ID, &models.CityRequest{Description: strPtr("Capital")})
	require.NoError(t, err)
	assert.Equal(t, "Capital", *updated.Description)

	require.NoError(t, f.svc.Cities.Delete(f.ctx, city.ID))
	_, err = f.svc.Cities.Get(f.ctx, city.ID)
	assertKind(t, err, apperr.KindNotFound)
}

func TestDeleteCityWithTours(t *testing.T) {
	f := newFixture(t, Deps{})

	err := f.svc.Cities.Delete(f.ctx, f.city.ID)

	assertKind(t, err, apperr.KindConflict)
	assert.Contains(t, err.Error(), "Cannot delete city with tours")
}

func TestCategoryLifecycle(t *testing.T) {
	f := newFixture(t, Deps{})

	_, err := f.svc.Categories.Create(f.ctx, &models.CategoryRequest{})
	assertKind(t, err, apperr.KindValidation)

	_, err = f.svc.Categories.Create(f.ctx, &models.CategoryRequest{Name: strPtr("cruise")})
	assertKind(t, err, apperr.KindConflict)

	hiking, err := f.svc.Categories.Create(f.ctx, &models.CategoryRequest{Name: strPtr("Hiking"), Icon: strPtr("boot")})
	require.NoError(t, err)
	assert.Zero(t, hiking.TourCount)

	err = f.svc.Categories.Delete(f.ctx, f.cat.ID)
	assertKind(t, err, apperr.KindConflict)

	require.NoError(t, f.svc.Categories.Delete(f.ctx, hiking.ID))
}

func TestCatalogCounts(t *testing.T) {
	f := newFixture(t, Deps{})

	city, err := f.svc.Cities.Get(f.ctx, f.city.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, city.TourCount)

	cities, total, err := f.svc.Cities.List(f.ctx, models.NameFilter{Search: "nor"}, models.NewPage(1, 10))
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Bergen", cities[0].Name)
}
