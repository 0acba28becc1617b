package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"tour-booking/internal/models"
)

// InMemoryStore keeps every table in maps guarded by one mutex. It enforces
// the same unique keys and reference rules as the MySQL schema and backs
// the memory driver and the tests.
type InMemoryStore struct {
	mutex sync.RWMutex

	users      map[int64]*models.User
	cities     map[int64]*models.City
	categories map[int64]*models.Category
	tours      map[int64]*models.Tour
	bookings   map[int64]*models.Booking
	payments   map[int64]*models.Payment
	reviews    map[int64]*models.Review

	nextID map[string]int64
	clock  func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:      make(map[int64]*models.User),
		cities:     make(map[int64]*models.City),
		categories: make(map[int64]*models.Category),
		tours:      make(map[int64]*models.Tour),
		bookings:   make(map[int64]*models.Booking),
		payments:   make(map[int64]*models.Payment),
		reviews:    make(map[int64]*models.Review),
		nextID:     make(map[string]int64),
		clock:      now,
	}
}

func (s *InMemoryStore) id(table string) int64 {
	s.nextID[table]++
	return s.nextID[table]
}

func (s *InMemoryStore) stamp() time.Time {
	return s.clock()
}

func (s *InMemoryStore) HealthCheck(ctx context.Context) error { return nil }
func (s *InMemoryStore) Close() error                          { return nil }

func paginate[T any](items []T, page models.Page) []T {
	if page.Limit <= 0 {
		return items
	}
	start := page.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(strings.TrimSpace(needle)))
}

// ---- users

func (s *InMemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return ErrDuplicate
		}
	}
	ts := s.stamp()
	user.ID = s.id("users")
	user.CreatedAt, user.UpdatedAt = ts, ts
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *InMemoryStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *InMemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) ListUsers(ctx context.Context, filter models.UserFilter, page models.Page) ([]*models.User, int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var out []*models.User
	for _, u := range s.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.Search != "" && !contains(u.Email, filter.Search) &&
			!contains(u.FirstName, filter.Search) && !contains(u.LastName, filter.Search) {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return paginate(out, page), len(out), nil
}

func (s *InMemoryStore) UpdateUser(ctx context.Context, id int64, patch models.UserPatch) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	if patch.FirstName != nil {
		u.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		u.LastName = *patch.LastName
	}
	if patch.Phone != nil {
		phone := *patch.Phone
		u.Phone = &phone
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	if patch.PasswordHash != nil {
		u.PasswordHash = *patch.PasswordHash
	}
	u.UpdatedAt = s.stamp()
	return nil
}

func (s *InMemoryStore) DeleteUser(ctx context.Context, id int64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	for bid, b := range s.bookings {
		if b.UserID == id {
			s.deleteBookingLocked(bid)
		}
	}
	for rid, r := range s.reviews {
		if r.UserID == id {
			delete(s.reviews, rid)
		}
	}
	return nil
}

// ---- cities and categories

func (s *InMemoryStore) tourCount(match func(*models.Tour) bool) int {
	n := 0
	for _, t := range s.tours {
		if t.IsActive && match(t) {
			n++
		}
	}
	return n
}

func (s *InMemoryStore) CreateCity(ctx context.Context, city *models.City) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, c := range s.cities {
		if strings.EqualFold(c.Name, city.Name) {
			return ErrDuplicate
		}
	}
	city.ID = s.id("cities")
	city.CreatedAt = s.stamp()
	cp := *city
	s.cities[city.ID] = &cp
	return nil
}

func (s *InMemoryStore) cityView(c *models.City) *models.City {
	cp := *c
	cp.TourCount = s.tourCount(func(t *models.Tour) bool { return t.CityID == c.ID })
	return &cp
}

func (s *InMemoryStore) GetCity(ctx context.Context, id int64) (*models.City, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	c, ok := s.cities[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.cityView(c), nil
}

func (s *InMemoryStore) ListCities(ctx context.Context, filter models.NameFilter, page models.Page) ([]*models.City, int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var out []*models.City
	for _, c := range s.cities {
		if filter.Search != "" && !contains(c.Name, filter.Search) && !contains(c.Country, filter.Search) {
			continue
		}
		out = append(out, s.cityView(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, page), len(out), nil
}

func (s *InMemoryStore) UpdateCity(ctx context.Context, id int64, patch models.CityPatch) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	c, ok := s.cities[id]
	if !ok {
		return ErrNotFound
	}
	if patch.Name != nil {
		for oid, o := range s.cities {
			if oid != id && strings.EqualFold(o.Name, *patch.Name) {
				return ErrDuplicate
			}
		}
		c.Name = *patch.Name
	}
	if patch.Country != nil {
		c.Country = *patch.Country
	}
	if patch.Description != nil {
		v := *patch.Description
		c.Description = &v
	}
	if patch.ImageURL != nil {
		v := *patch.ImageURL
		c.ImageURL = &v
	}
	return nil
}

func (s *InMemoryStore) DeleteCity(ctx context.Context, id int64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.cities[id]; !ok {
		return ErrNotFound
	}
	for _, t := range s.tours {
		if t.CityID == id {
			return ErrReferenced
		}
	}
	delete(s.cities, id)
	return nil
}

func (s *InMemoryStore) CreateCategory(ctx context.Context, category *models.Category) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, c := range s.categories {
		if strings.EqualFold(c.Name, category.Name) {
			return ErrDuplicate
		}
	}
	category.ID = s.id("categories")
	category.CreatedAt = s.stamp()
	cp := *category
	s.categories[category.ID] = &cp
	return nil
}

func (s *InMemoryStore) categoryView(c *models.Category) *models.Category {
	cp := *c
	cp.TourCount = s.tourCount(func(t *models.Tour) bool { return t.CategoryID == c.ID })
	return &cp
}

func (s *InMemoryStore) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	c, ok := s.categories[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.categoryView(c), nil
}

func (s *InMemoryStore) ListCategories(ctx context.Context, filter models.NameFilter, page models.Page) ([]*models.Category, int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var out []*models.Category
	for _, c := range s.categories {
		desc := ""
		if c.Description != nil {
			desc = *c.Description
		}
		if filter.Search != "" && !contains(c.Name, filter.Search) && !contains(desc, filter.Search) {
			continue
		}
		out = append(out, s.categoryView(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, page), len(out), nil
}

func (s *InMemoryStore) UpdateCategory(ctx context.Context, id int64, patch models.CategoryPatch) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	c, ok := s.categories[id]
	if !ok {
		return ErrNotFound
	}
	if patch.Name != nil {
		for oid, o := range s.categories {
			if oid != id && strings.EqualFold(o.Name, *patch.Name) {
				return ErrDuplicate
			}
		}
		c.Name = *patch.Name
	}
	if patch.Description != nil {
		v := *patch.Description
		c.Description = &v
	}
	if patch.Icon != nil {
		v := *patch.Icon
		c.Icon = &v
	}
	return nil
}

func (s *InMemoryStore) DeleteCategory(ctx context.Context, id int64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.categories[id]; !ok {
		return ErrNotFound
	}
	for _, t := range s.tours {
		if t.CategoryID == id {
			return ErrReferenced
		}
	}
	delete(s.categories, id)
	return nil
}

// ---- tours

func (s *InMemoryStore) CreateTour(ctx context.Context, tour *models.Tour) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.cities[tour.CityID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.categories[tour.CategoryID]; !ok {
		return ErrNotFound
	}
	ts := s.stamp()
	tour.ID = s.id("tours")
	tour.CreatedAt, tour.UpdatedAt = ts, ts
	cp := *tour
	cp.Images = append(models.StringList{}, tour.Images...)
	s.tours[tour.ID] = &cp
	return nil
}

func (s *InMemoryStore) tourView(t *models.Tour) *models.Tour {
	cp := *t
	cp.Images = append(models.StringList{}, t.Images...)
	if c, ok := s.cities[t.CityID]; ok {
		cp.CityName, cp.Country = c.Name, c.Country
	}
	if c, ok := s.categories[t.CategoryID]; ok {
		cp.CategoryName = c.Name
	}
	sum, n := 0, 0
	for _, r := range s.reviews {
		if r.TourID == t.ID && r.IsPublished {
			sum += r.Rating
			n++
		}
	}
	cp.ReviewCount = n
	cp.AvgRating = 0
	if n > 0 {
		cp.AvgRating = models.RoundMoney(float64(sum) / float64(n))
	}
	cp.BookingCount = 0
	for _, b := range s.bookings {
		if b.TourID == t.ID && b.Status != models.BookingCancelled {
			cp.BookingCount++
		}
	}
	return &cp
}

func (s *InMemoryStore) GetTour(ctx context.Context, id int64) (*models.Tour, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	t, ok := s.tours[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.tourView(t), nil
}

func matchTour(t *models.Tour, f models.TourFilter) bool {
	if !f.IncludeInactive && !t.IsActive {
		return false
	}
	if f.CityID != nil && t.CityID != *f.CityID {
		return false
	}
	if f.CategoryID != nil && t.CategoryID != *f.CategoryID {
		return false
	}
	if f.MinPrice != nil && t.PriceStandard < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && t.PriceStandard > *f.MaxPrice {
		return false
	}
	if f.Duration != nil && t.DurationDays != *f.Duration {
		return false
	}
	if strings.TrimSpace(f.Search) != "" &&
		!contains(t.Name, f.Search) && !contains(t.Description, f.Search) && !contains(t.CityName, f.Search) {
		return false
	}
	return true
}

func sortTours(tours []*models.Tour, key models.SortKey) {
	less := func(a, b *models.Tour) bool { return a.CreatedAt.After(b.CreatedAt) }
	switch key {
	case models.SortPriceAsc:
		less = func(a, b *models.Tour) bool { return a.PriceStandard < b.PriceStandard }
	case models.SortPriceDesc:
		less = func(a, b *models.Tour) bool { return a.PriceStandard > b.PriceStandard }
	case models.SortDurationAsc:
		less = func(a, b *models.Tour) bool { return a.DurationDays < b.DurationDays }
	case models.SortDurationDesc:
		less = func(a, b *models.Tour) bool { return a.DurationDays > b.DurationDays }
	case models.SortRating:
		less = func(a, b *models.Tour) bool { return a.AvgRating > b.AvgRating }
	case models.SortPopular:
		less = func(a, b *models.Tour) bool { return a.BookingCount > b.BookingCount }
	}
	sort.SliceStable(tours, func(i, j int) bool {
		if less(tours[i], tours[j]) {
			return true
		}
		if less(tours[j], tours[i]) {
			return false
		}
		return tours[i].ID > tours[j].ID
	})
}

func (s *InMemoryStore) ListTours(ctx context.Context, filter models.TourFilter, page models.Page) ([]*models.Tour, int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var out []*models.Tour
	for _, t := range s.tours {
		view := s.tourView(t)
		if matchTour(view, filter) {
			out = append(out, view)
		}
	}
	sortTours(out, filter.Sort)
	return paginate(out, page), len(out), nil
}

func (s *InMemoryStore) UpdateTour(ctx context.Context, id int64, patch models.TourPatch) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	t, ok := s.tours[id]
	if !ok {
		return ErrNotFound
	}
	if patch.CityID != nil {
		t.CityID = *patch.CityID
	}
	if patch.CategoryID != nil {
		t.CategoryID = *patch.CategoryID
	}
	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.DurationDays != nil {
		t.DurationDays = *patch.DurationDays
	}
	if patch.PriceStandard != nil {
		t.PriceStandard = *patch.PriceStandard
	}
	if patch.PricePremium != nil {
		v := *patch.PricePremium
		t.PricePremium = &v
	}
	if patch.MaxGuests != nil {
		t.MaxGuests = *patch.MaxGuests
	}
	if patch.IsActive != nil {
		t.IsActive = *patch.IsActive
	}
	if patch.Images != nil {
		t.Images = append(models.StringList{}, (*patch.Images)...)
	}
	t.UpdatedAt = s.stamp()
	return nil
}

func (s *InMemoryStore) DeleteTour(ctx context.Context, id int64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.tours[id]; !ok {
		return ErrNotFound
	}
	delete(s.tours, id)
	for bid, b := range s.bookings {
		if b.TourID == id {
			s.deleteBookingLocked(bid)
		}
	}
	for rid, r := range s.reviews {
		if r.TourID == id {
			delete(s.reviews, rid)
		}
	}
	return nil
}

func (s *InMemoryStore) CountOpenBookings(ctx context.Context, tourID int64) (int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	n := 0
	for _, b := range s.bookings {
		if b.TourID == tourID && (b.Status == models.BookingPending || b.Status == models.BookingConfirmed) {
			n++
		}
	}
	return n, nil
}

// ---- bookings

func (s *InMemoryStore) CreateBooking(ctx context.Context, booking *models.Booking) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.users[booking.UserID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.tours[booking.TourID]; !ok {
		return ErrNotFound
	}
	ts := s.stamp()
	booking.ID = s.id("bookings")
	booking.CreatedAt, booking.UpdatedAt = ts, ts
	cp := *booking
	s.bookings[booking.ID] = &cp
	return nil
}

func (s *InMemoryStore) bookingView(b *models.Booking) *models.Booking {
	cp := *b
	if t, ok := s.tours[b.TourID]; ok {
		cp.TourName, cp.DurationDays = t.Name, t.DurationDays
		if c, ok := s.cities[t.CityID]; ok {
			cp.CityName = c.Name
		}
	}
	if u, ok := s.users[b.UserID]; ok {
		cp.UserEmail, cp.UserName = u.Email, u.FullName()
	}
	return &cp
}

func (s *InMemoryStore) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.bookingView(b), nil
}

func matchBooking(b *models.Booking, f models.BookingFilter) bool {
	if f.Status != nil && b.Status != *f.Status {
		return false
	}
	if f.TourID != nil && b.TourID != *f.TourID {
		return false
	}
	if f.UserID != nil && b.UserID != *f.UserID {
		return false
	}
	if f.DateFrom != nil && b.StartDate.Before(f.DateFrom.Time) {
		return false
	}
	if f.DateTo != nil && b.StartDate.After(f.DateTo.Time) {
		return false
	}
	if strings.TrimSpace(f.Search) != "" &&
		!contains(b.TourName, f.Search) && !contains(b.UserEmail, f.Search) && !contains(b.UserName, f.Search) {
		return false
	}
	return true
}

func (s *InMemoryStore) ListBookings(ctx context.Context, filter models.BookingFilter, page models.Page) ([]*models.Booking, int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var out []*models.Booking
	for _, b := range s.bookings {
		view := s.bookingView(b)
		if matchBooking(view, filter) {
			out = append(out, view)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return paginate(out, page), len(out), nil
}

func (s *InMemoryStore) UpdateBooking(ctx context.Context, id int64, patch models.BookingPatch) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return ErrNotFound
	}
	if patch.Status != nil {
		b.Status = *patch.Status
	}
	if patch.Guests != nil {
		b.Guests = *patch.Guests
	}
	if patch.TotalPrice != nil {
		b.TotalPrice = *patch.TotalPrice
	}
	if patch.SpecialRequests != nil {
		v := *patch.SpecialRequests
		b.SpecialRequests = &v
	}
	b.UpdatedAt = s.stamp()
	return nil
}

func (s *InMemoryStore) deleteBookingLocked(id int64) {
	delete(s.bookings, id)
	for _, p := range s.payments {
		if p.BookingID != nil && *p.BookingID == id {
			p.BookingID = nil
		}
	}
}

func (s *InMemoryStore) DeleteBooking(ctx context.Context, id int64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.bookings[id]; !ok {
		return ErrNotFound
	}
	s.deleteBookingLocked(id)
	return nil
}

func (s *InMemoryStore) HasCompletedBooking(ctx context.Context, userID, tourID int64) (bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, b := range s.bookings {
		if b.UserID == userID && b.TourID == tourID && b.Status == models.BookingCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryStore) BookingStats(ctx context.Context) (*models.BookingStats, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	stats := &models.BookingStats{ByStatus: map[models.BookingStatus]int{}, TopTours: []models.TopTour{}}
	for _, st := range models.BookingStatuses {
		stats.ByStatus[st] = 0
	}

	perTour := map[int64]*models.TopTour{}
	var sum float64
	var open int
	for _, b := range s.bookings {
		stats.ByStatus[b.Status]++
		stats.TotalBookings++
		if b.Status == models.BookingCancelled {
			continue
		}
		sum += b.TotalPrice
		open++
		tt, ok := perTour[b.TourID]
		if !ok {
			tt = &models.TopTour{TourID: b.TourID}
			if t, ok := s.tours[b.TourID]; ok {
				tt.Name = t.Name
			}
			perTour[b.TourID] = tt
		}
		tt.Bookings++
		tt.Revenue += b.TotalPrice
	}
	if open > 0 {
		stats.AverageBookingValue = models.RoundMoney(sum / float64(open))
	}
	for _, p := range s.payments {
		if p.Status == models.PaymentCompleted {
			stats.TotalRevenue += p.Amount
		}
	}
	stats.TotalRevenue = models.RoundMoney(stats.TotalRevenue)

	for _, tt := range perTour {
		tt.Revenue = models.RoundMoney(tt.Revenue)
		stats.TopTours = append(stats.TopTours, *tt)
	}
	sort.Slice(stats.TopTours, func(i, j int) bool {
		a, b := stats.TopTours[i], stats.TopTours[j]
		if a.Bookings != b.Bookings {
			return a.Bookings > b.Bookings
		}
		if a.Revenue != b.Revenue {
			return a.Revenue > b.Revenue
		}
		return a.TourID < b.TourID
	})
	if len(stats.TopTours) > 5 {
		stats.TopTours = stats.TopTours[:5]
	}
	return stats, nil
}

// ---- payments

// RecordPayment holds the store lock across the check and both writes,
// which gives the same all-or-nothing result as the MySQL transaction.
func (s *InMemoryStore) RecordPayment(ctx context.Context, bookingID int64, payment *models.Payment) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	b, ok := s.bookings[bookingID]
	if !ok {
		return ErrNotFound
	}
	if b.PaymentID != nil {
		return ErrAlreadyPaid
	}
	if b.Status.Closed() {
		return ErrBookingClosed
	}

	ts := s.stamp()
	payment.ID = s.id("payments")
	payment.Amount = b.TotalPrice
	payment.Status = models.PaymentCompleted
	bid := bookingID
	payment.BookingID = &bid
	payment.CreatedAt, payment.UpdatedAt = ts, ts

	cp := *payment
	s.payments[payment.ID] = &cp

	pid := payment.ID
	b.PaymentID = &pid
	b.Status = models.BookingConfirmed
	b.UpdatedAt = ts
	return nil
}

func (s *InMemoryStore) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	p, ok := s.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *InMemoryStore) GetPaymentByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var found *models.Payment
	for _, p := range s.payments {
		if p.TransactionID != nil && *p.TransactionID == transactionID {
			if found == nil || p.ID > found.ID {
				found = p
			}
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	cp := *found
	return &cp, nil
}

func (s *InMemoryStore) ListPayments(ctx context.Context, filter models.PaymentFilter, page models.Page) ([]*models.Payment, int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var out []*models.Payment
	for _, p := range s.payments {
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		if filter.Method != nil && p.Method != *filter.Method {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return paginate(out, page), len(out), nil
}

func (s *InMemoryStore) UpdatePaymentStatus(ctx context.Context, id int64, status models.PaymentStatus) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	p, ok := s.payments[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = status
	p.UpdatedAt = s.stamp()
	return nil
}

// ---- reviews

func (s *InMemoryStore) CreateReview(ctx context.Context, review *models.Review) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.tours[review.TourID]; !ok {
		return ErrNotFound
	}
	for _, r := range s.reviews {
		if r.UserID == review.UserID && r.TourID == review.TourID {
			return ErrDuplicate
		}
	}
	ts := s.stamp()
	review.ID = s.id("reviews")
	review.CreatedAt, review.UpdatedAt = ts, ts
	cp := *review
	s.reviews[review.ID] = &cp
	return nil
}

func (s *InMemoryStore) reviewView(r *models.Review) *models.Review {
	cp := *r
	if u, ok := s.users[r.UserID]; ok {
		cp.UserName = u.FullName()
	}
	if t, ok := s.tours[r.TourID]; ok {
		cp.TourName = t.Name
	}
	return &cp
}

func (s *InMemoryStore) GetReview(ctx context.Context, id int64) (*models.Review, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	r, ok := s.reviews[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.reviewView(r), nil
}

func (s *InMemoryStore) FindReview(ctx context.Context, userID, tourID int64) (*models.Review, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, r := range s.reviews {
		if r.UserID == userID && r.TourID == tourID {
			return s.reviewView(r), nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) ListReviews(ctx context.Context, filter models.ReviewFilter, page models.Page) ([]*models.Review, int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var out []*models.Review
	for _, r := range s.reviews {
		if filter.TourID != nil && r.TourID != *filter.TourID {
			continue
		}
		if filter.UserID != nil && r.UserID != *filter.UserID {
			continue
		}
		if filter.Rating != nil && r.Rating != *filter.Rating {
			continue
		}
		if filter.IsPublished != nil && r.IsPublished != *filter.IsPublished {
			continue
		}
		out = append(out, s.reviewView(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return paginate(out, page), len(out), nil
}

func (s *InMemoryStore) UpdateReview(ctx context.Context, id int64, patch models.ReviewPatch) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	r, ok := s.reviews[id]
	if !ok {
		return ErrNotFound
	}
	if patch.Rating != nil {
		r.Rating = *patch.Rating
	}
	if patch.Comment != nil {
		v := *patch.Comment
		r.Comment = &v
	}
	if patch.IsPublished != nil {
		r.IsPublished = *patch.IsPublished
	}
	r.UpdatedAt = s.stamp()
	return nil
}

func (s *InMemoryStore) DeleteReview(ctx context.Context, id int64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.reviews[id]; !ok {
		return ErrNotFound
	}
	delete(s.reviews, id)
	return nil
}
