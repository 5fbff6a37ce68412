package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/model"
)

// BusinessRepository reads the business documents owned by the external
// owner workflow. The scheduling engine never mutates them.
type BusinessRepository struct {
	db db.DB
}

func NewBusinessRepository(database db.DB) *BusinessRepository {
	return &BusinessRepository{db: database}
}

// Get loads the business with its working hours, service catalogue and
// schedule settings. Missing business surfaces as pgx.ErrNoRows.
func (r *BusinessRepository) Get(ctx context.Context, q db.Querier, businessID string) (model.Business, error) {
	var b model.Business
	err := q.QueryRow(ctx, `
		SELECT id::text, name, auto_approve, allow_cancellation, cancellation_time_limit_hours
		FROM businesses
		WHERE id = $1
	`, businessID).Scan(
		&b.ID,
		&b.Name,
		&b.Settings.AutoApprove,
		&b.Settings.AllowCancellation,
		&b.Settings.CancellationTimeLimitHrs,
	)
	if err != nil {
		return model.Business{}, err
	}

	hours, err := r.hours(ctx, q, businessID)
	if err != nil {
		return model.Business{}, err
	}
	b.Hours = hours

	services, err := r.services(ctx, q, businessID)
	if err != nil {
		return model.Business{}, err
	}
	b.Services = services
	return b, nil
}

func (r *BusinessRepository) hours(ctx context.Context, q db.Querier, businessID string) (map[time.Weekday]model.DayHours, error) {
	rows, err := q.Query(ctx, `
		SELECT weekday, is_open, open_minute, close_minute
		FROM business_hours
		WHERE business_id = $1
	`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hours := make(map[time.Weekday]model.DayHours)
	for rows.Next() {
		var weekday int
		var day model.DayHours
		if err := rows.Scan(&weekday, &day.Open, &day.OpenMinute, &day.CloseMinute); err != nil {
			return nil, err
		}
		hours[time.Weekday(weekday)] = day
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return hours, nil
}

func (r *BusinessRepository) services(ctx context.Context, q db.Querier, businessID string) ([]model.Service, error) {
	rows, err := q.Query(ctx, `
		SELECT id::text, business_id::text, name, duration_minutes, price::text, position
		FROM services
		WHERE business_id = $1
		ORDER BY position ASC
	`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []model.Service
	for rows.Next() {
		var s model.Service
		var price string
		if err := rows.Scan(&s.ID, &s.BusinessID, &s.Name, &s.DurationMinutes, &price, &s.Position); err != nil {
			return nil, err
		}
		s.Price, err = decimal.NewFromString(price)
		if err != nil {
			return nil, err
		}
		services = append(services, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return services, nil
}

type CustomerRepository struct {
	db db.DB
}

func NewCustomerRepository(database db.DB) *CustomerRepository {
	return &CustomerRepository{db: database}
}

// Get reads the customer snapshot fields used for denormalization.
func (r *CustomerRepository) Get(ctx context.Context, q db.Querier, customerID string) (model.Customer, error) {
	var c model.Customer
	err := q.QueryRow(ctx, `
		SELECT id::text, name, COALESCE(phone, ''), COALESCE(email, '')
		FROM customers
		WHERE id = $1
	`, customerID).Scan(&c.ID, &c.Name, &c.Phone, &c.Email)
	if err != nil {
		return model.Customer{}, err
	}
	return c, nil
}
