package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/AlekSi/pointer"
	"github.com/jmoiron/sqlx"

	"github.com/gratefultolord/loan_intake_bot/internal/customer"
)

type customerRow struct {
	CustomerID       string          `db:"customer_id"`
	Name             string          `db:"name"`
	Mobile           sql.NullString  `db:"mobile"`
	PreapprovedLimit sql.NullFloat64 `db:"preapproved_limit"`
}

func (r customerRow) toCustomer() customer.Customer {
	c := customer.Customer{
		ID:     r.CustomerID,
		Name:   r.Name,
		Mobile: r.Mobile.String,
	}

	if r.PreapprovedLimit.Valid {
		c.PreapprovedLimit = pointer.ToFloat64(r.PreapprovedLimit.Float64)
	}

	return c
}

// CustomerRepository is the Postgres-backed customer directory.
type CustomerRepository struct {
	db *sqlx.DB
}

func NewCustomerRepository(db *sqlx.DB) *CustomerRepository {
	return &CustomerRepository{
		db: db,
	}
}

// List returns the directory in insertion order so first-match resolution is stable.
func (r *CustomerRepository) List(ctx context.Context) ([]customer.Customer, error) {
	var rows []customerRow

	err := r.db.SelectContext(ctx, &rows, `
	    SELECT customer_id, name, mobile, preapproved_limit
		FROM customers
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("CustomerRepository.List: %w", err)
	}

	customers := make([]customer.Customer, 0, len(rows))
	for _, row := range rows {
		customers = append(customers, row.toCustomer())
	}

	return customers, nil
}

func (r *CustomerRepository) Upsert(ctx context.Context, c customer.Customer) error {
	_, err := r.db.ExecContext(ctx, `
	    INSERT INTO customers (customer_id, name, mobile, preapproved_limit)
		VALUES ($1, $2, NULLIF($3, ''), $4)
		ON CONFLICT (customer_id) DO UPDATE
		SET name = EXCLUDED.name, mobile = EXCLUDED.mobile, preapproved_limit = EXCLUDED.preapproved_limit
	`, c.ID, c.Name, c.Mobile, c.PreapprovedLimit)
	if err != nil {
		return fmt.Errorf("CustomerRepository.Upsert: %w", err)
	}

	return nil
}
