package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour-booking/internal/apperr"
	"tour-booking/internal/models"
)

func float64Ptr(v float64) *float64 { return &v }

func validTourRequest(f *fixture) *models.TourRequest {
	return &models.TourRequest{
		CityID:        &f.city.ID,
		CategoryID:    &f.cat.ID,
		Name:          strPtr("Glacier Walk"),
		DurationDays:  intPtr(1),
		PriceStandard: float64Ptr(89.5),
		MaxGuests:     intPtr(12),
	}
}

func TestCreateTour(t *testing.T) {
	f := newFixture(t, Deps{})

	tour, err := f.svc.Tours.Create(f.ctx, validTourRequest(f))

	require.NoError(t, err)
	assert.True(t, tour.IsActive)
	assert.Equal(t, "Bergen", tour.CityName)
	assert.Equal(t, "Cruise", tour.CategoryName)
	assert.Empty(t, tour.RecentReviews)
	assert.NotNil(t, tour.Images)
}

func TestCreateTourValidation(t *testing.T) {
	f := newFixture(t, Deps{})
	missingCity := int64(999)

	tests := []struct {
		name   string
		mutate func(r *models.TourRequest)
	}{
		{"missing name", func(r *models.TourRequest) { r.Name = nil }},
		{"missing max guests", func(r *models.TourRequest) { r.MaxGuests = nil }},
		{"zero duration", func(r *models.TourRequest) { r.DurationDays = intPtr(0) }},
		{"negative price", func(r *models.TourRequest) { r.PriceStandard = float64Ptr(-1) }},
		{"zero premium", func(r *models.TourRequest) { r.PricePremium = float64Ptr(0) }},
		{"unknown city", func(r *models.TourRequest) { r.CityID = &missingCity }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validTourRequest(f)
			tt.mutate(req)
			_, err := f.svc.Tours.Create(f.ctx, req)
			assertKind(t, err, apperr.KindValidation)
		})
	}
}

func TestGetInactiveTour(t *testing.T) {
	f := newFixture(t, Deps{})
	inactive := false
	_, err := f.svc.Tours.Update(f.ctx, f.tour.ID, &models.TourRequest{IsActive: &inactive})
	require.NoError(t, err)

	_, err = f.svc.Tours.Get(f.ctx, f.tour.ID, false)
	assertKind(t, err, apperr.KindNotFound)

	detail, err := f.svc.Tours.Get(f.ctx, f.tour.ID, true)
	require.NoError(t, err)
	assert.False(t, detail.IsActive)
}

func TestUpdateTour(t *testing.T) {
	f := newFixture(t, Deps{})

	_, err := f.svc.Tours.Update(f.ctx, f.tour.ID, &models.TourRequest{})
	assertKind(t, err, apperr.KindValidation)

	_, err = f.svc.Tours.Update(f.ctx, 999, &models.TourRequest{Name: strPtr("x")})
	assertKind(t, err, apperr.KindNotFound)

	updated, err := f.svc.Tours.Update(f.ctx, f.tour.ID, &models.TourRequest{MaxGuests: intPtr(4), Images: []string{"a.jpg"}})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.MaxGuests)
	assert.Equal(t, models.StringList{"a.jpg"}, updated.Images)
}

func TestDeleteTourWithOpenBookings(t *testing.T) {
	f := newFixture(t, Deps{})
	b := f.book(t, f.client, 2, "")

	err := f.svc.Tours.Delete(f.ctx, f.tour.ID)
	assertKind(t, err, apperr.KindInvalidState)

	f.setStatus(t, b.ID, models.BookingCompleted)
	require.NoError(t, f.svc.Tours.Delete(f.ctx, f.tour.ID))

	_, err = f.svc.Tours.Get(f.ctx, f.tour.ID, true)
	assertKind(t, err, apperr.KindNotFound)
}
