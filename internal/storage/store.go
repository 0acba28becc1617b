package storage

import (
	"context"
	"errors"

	"github.com/go-sql-driver/mysql"

	"tour-booking/internal/models"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicate     = errors.New("duplicate entry")
	ErrReferenced    = errors.New("record is referenced by other records")
	ErrAlreadyPaid   = errors.New("booking already has a payment")
	ErrBookingClosed = errors.New("booking is cancelled or completed")
)

// MySQL server error numbers surfaced by the driver
const (
	mysqlDuplicateEntry   = 1062
	mysqlRowIsReferenced  = 1451
	mysqlNoReferencedRow  = 1452
	mysqlRowIsReferenced2 = 1217
)

type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context, filter models.UserFilter, page models.Page) ([]*models.User, int, error)
	UpdateUser(ctx context.Context, id int64, patch models.UserPatch) error
	DeleteUser(ctx context.Context, id int64) error

	CreateCity(ctx context.Context, city *models.City) error
	GetCity(ctx context.Context, id int64) (*models.City, error)
	ListCities(ctx context.Context, filter models.NameFilter, page models.Page) ([]*models.City, int, error)
	UpdateCity(ctx context.Context, id int64, patch models.CityPatch) error
	DeleteCity(ctx context.Context, id int64) error

	CreateCategory(ctx context.Context, category *models.Category) error
	GetCategory(ctx context.Context, id int64) (*models.Category, error)
	ListCategories(ctx context.Context, filter models.NameFilter, page models.Page) ([]*models.Category, int, error)
	UpdateCategory(ctx context.Context, id int64, patch models.CategoryPatch) error
	DeleteCategory(ctx context.Context, id int64) error

	CreateTour(ctx context.Context, tour *models.Tour) error
	GetTour(ctx context.Context, id int64) (*models.Tour, error)
	ListTours(ctx context.Context, filter models.TourFilter, page models.Page) ([]*models.Tour, int, error)
	UpdateTour(ctx context.Context, id int64, patch models.TourPatch) error
	DeleteTour(ctx context.Context, id int64) error
	CountOpenBookings(ctx context.Context, tourID int64) (int, error)

	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	ListBookings(ctx context.Context, filter models.BookingFilter, page models.Page) ([]*models.Booking, int, error)
	UpdateBooking(ctx context.Context, id int64, patch models.BookingPatch) error
	DeleteBooking(ctx context.Context, id int64) error
	HasCompletedBooking(ctx context.Context, userID, tourID int64) (bool, error)
	BookingStats(ctx context.Context) (*models.BookingStats, error)

	// RecordPayment atomically inserts a completed payment for the booking,
	// attaches it and confirms the booking. payment.Amount is taken from the
	// locked booking row.
	RecordPayment(ctx context.Context, bookingID int64, payment *models.Payment) error
	GetPayment(ctx context.Context, id int64) (*models.Payment, error)
	GetPaymentByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	ListPayments(ctx context.Context, filter models.PaymentFilter, page models.Page) ([]*models.Payment, int, error)
	UpdatePaymentStatus(ctx context.Context, id int64, status models.PaymentStatus) error

	CreateReview(ctx context.Context, review *models.Review) error
	GetReview(ctx context.Context, id int64) (*models.Review, error)
	FindReview(ctx context.Context, userID, tourID int64) (*models.Review, error)
	ListReviews(ctx context.Context, filter models.ReviewFilter, page models.Page) ([]*models.Review, int, error)
	UpdateReview(ctx context.Context, id int64, patch models.ReviewPatch) error
	DeleteReview(ctx context.Context, id int64) error

	HealthCheck(ctx context.Context) error
	Close() error
}

// IsDuplicate reports a unique key violation from either store
func IsDuplicate(err error) bool {
	if errors.Is(err, ErrDuplicate) {
		return true
	}
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// IsReferenced reports a delete blocked by a foreign key
func IsReferenced(err error) bool {
	if errors.Is(err, ErrReferenced) {
		return true
	}
	var me *mysql.MySQLError
	return errors.As(err, &me) && (me.Number == mysqlRowIsReferenced || me.Number == mysqlRowIsReferenced2)
}

// IsMissingReference reports an insert/update pointing at a row that does not exist
func IsMissingReference(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlNoReferencedRow
}
