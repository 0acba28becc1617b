package storage

import (
	"strings"

	"tour-booking/internal/models"
)

// whereClause collects AND-ed conditions. Absent filters add nothing.
type whereClause struct {
	conds []string
	args  []interface{}
}

func (w *whereClause) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *whereClause) SQL() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func (w *whereClause) Args() []interface{} {
	return w.args
}

// setClause collects the assignments of an UPDATE statement
type setClause struct {
	cols []string
	args []interface{}
}

func (s *setClause) set(col string, v interface{}) {
	s.cols = append(s.cols, col+" = ?")
	s.args = append(s.args, v)
}

func (s *setClause) Empty() bool {
	return len(s.cols) == 0
}

func (s *setClause) SQL() string {
	return strings.Join(s.cols, ", ")
}

func (s *setClause) Args() []interface{} {
	return s.args
}

func setIf[T any](s *setClause, col string, v *T) {
	if v != nil {
		s.set(col, *v)
	}
}

// likePattern escapes LIKE wildcards in user input
func likePattern(search string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(search)) + "%"
}

func limitOffset(p models.Page) (string, []interface{}) {
	if p.Limit <= 0 {
		return "", nil
	}
	return " LIMIT ? OFFSET ?", []interface{}{p.Limit, p.Offset()}
}

func tourWhere(f models.TourFilter) *whereClause {
	w := &whereClause{}
	if !f.IncludeInactive {
		w.add("t.is_active = 1")
	}
	if f.CityID != nil {
		w.add("t.city_id = ?", *f.CityID)
	}
	if f.CategoryID != nil {
		w.add("t.category_id = ?", *f.CategoryID)
	}
	if f.MinPrice != nil {
		w.add("t.price_standard >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		w.add("t.price_standard <= ?", *f.MaxPrice)
	}
	if f.Duration != nil {
		w.add("t.duration_days = ?", *f.Duration)
	}
	if strings.TrimSpace(f.Search) != "" {
		p := likePattern(f.Search)
		w.add("(t.name LIKE ? OR t.description LIKE ? OR c.name LIKE ?)", p, p, p)
	}
	return w
}

func tourOrderBy(sort models.SortKey) string {
	switch sort {
	case models.SortPriceAsc:
		return " ORDER BY t.price_standard ASC, t.id DESC"
	case models.SortPriceDesc:
		return " ORDER BY t.price_standard DESC, t.id DESC"
	case models.SortDurationAsc:
		return " ORDER BY t.duration_days ASC, t.id DESC"
	case models.SortDurationDesc:
		return " ORDER BY t.duration_days DESC, t.id DESC"
	case models.SortRating:
		return " ORDER BY avg_rating DESC, t.id DESC"
	case models.SortPopular:
		return " ORDER BY booking_count DESC, t.id DESC"
	default:
		return " ORDER BY t.created_at DESC, t.id DESC"
	}
}

func tourSet(p models.TourPatch) *setClause {
	s := &setClause{}
	setIf(s, "city_id", p.CityID)
	setIf(s, "category_id", p.CategoryID)
	setIf(s, "name", p.Name)
	setIf(s, "description", p.Description)
	setIf(s, "duration_days", p.DurationDays)
	setIf(s, "price_standard", p.PriceStandard)
	setIf(s, "price_premium", p.PricePremium)
	setIf(s, "max_guests", p.MaxGuests)
	setIf(s, "is_active", p.IsActive)
	setIf(s, "images", p.Images)
	return s
}

func bookingWhere(f models.BookingFilter) *whereClause {
	w := &whereClause{}
	if f.Status != nil {
		w.add("b.status = ?", string(*f.Status))
	}
	if f.TourID != nil {
		w.add("b.tour_id = ?", *f.TourID)
	}
	if f.UserID != nil {
		w.add("b.user_id = ?", *f.UserID)
	}
	if f.DateFrom != nil {
		w.add("b.start_date >= ?", f.DateFrom.String())
	}
	if f.DateTo != nil {
		w.add("b.start_date <= ?", f.DateTo.String())
	}
	if strings.TrimSpace(f.Search) != "" {
		p := likePattern(f.Search)
		w.add("(t.name LIKE ? OR u.email LIKE ? OR CONCAT(u.first_name, ' ', u.last_name) LIKE ?)", p, p, p)
	}
	return w
}

func bookingSet(p models.BookingPatch) *setClause {
	s := &setClause{}
	if p.Status != nil {
		s.set("status", string(*p.Status))
	}
	setIf(s, "guests", p.Guests)
	setIf(s, "total_price", p.TotalPrice)
	setIf(s, "special_requests", p.SpecialRequests)
	return s
}

func paymentWhere(f models.PaymentFilter) *whereClause {
	w := &whereClause{}
	if f.Status != nil {
		w.add("status = ?", string(*f.Status))
	}
	if f.Method != nil {
		w.add("method = ?", string(*f.Method))
	}
	return w
}

func reviewWhere(f models.ReviewFilter) *whereClause {
	w := &whereClause{}
	if f.TourID != nil {
		w.add("r.tour_id = ?", *f.TourID)
	}
	if f.UserID != nil {
		w.add("r.user_id = ?", *f.UserID)
	}
	if f.Rating != nil {
		w.add("r.rating = ?", *f.Rating)
	}
	if f.IsPublished != nil {
		w.add("r.is_published = ?", *f.IsPublished)
	}
	return w
}

func reviewSet(p models.ReviewPatch) *setClause {
	s := &setClause{}
	setIf(s, "rating", p.Rating)
	setIf(s, "comment", p.Comment)
	setIf(s, "is_published", p.IsPublished)
	return s
}

func userWhere(f models.UserFilter) *whereClause {
	w := &whereClause{}
	if f.Role != nil {
		w.add("role = ?", string(*f.Role))
	}
	if strings.TrimSpace(f.Search) != "" {
		p := likePattern(f.Search)
		w.add("(email LIKE ? OR first_name LIKE ? OR last_name LIKE ?)", p, p, p)
	}
	return w
}

func userSet(p models.UserPatch) *setClause {
	s := &setClause{}
	setIf(s, "first_name", p.FirstName)
	setIf(s, "last_name", p.LastName)
	setIf(s, "phone", p.Phone)
	if p.Role != nil {
		s.set("role", string(*p.Role))
	}
	setIf(s, "password_hash", p.PasswordHash)
	return s
}

// nameWhere filters cities and categories by a search over the given columns
func nameWhere(f models.NameFilter, cols ...string) *whereClause {
	w := &whereClause{}
	if strings.TrimSpace(f.Search) == "" {
		return w
	}
	p := likePattern(f.Search)
	conds := make([]string, len(cols))
	args := make([]interface{}, len(cols))
	for i, col := range cols {
		conds[i] = col + " LIKE ?"
		args[i] = p
	}
	w.add("("+strings.Join(conds, " OR ")+")", args...)
	return w
}

func citySet(p models.CityPatch) *setClause {
	s := &setClause{}
	setIf(s, "name", p.Name)
	setIf(s, "country", p.Country)
	setIf(s, "description", p.Description)
	setIf(s, "image_url", p.ImageURL)
	return s
}

func categorySet(p models.CategoryPatch) *setClause {
	s := &setClause{}
	setIf(s, "name", p.Name)
	setIf(s, "description", p.Description)
	setIf(s, "icon", p.Icon)
	return s
}
