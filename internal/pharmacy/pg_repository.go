package pharmacy

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const medicineColumns = `id, name, strength, stock_quantity, minimum_stock_level,
	to_char(expiry_date, 'YYYY-MM-DD'), is_active, created_at, updated_at`

func scanMedicine(row pgx.Row) (*Medicine, error) {
	var m Medicine
	err := row.Scan(&m.ID, &m.Name, &m.Strength, &m.StockQuantity, &m.MinimumStockLevel,
		&m.ExpiryDate, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan medicine: %w", err)
	}
	return &m, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+medicineColumns+` FROM medicines WHERE id = $1`, id)
	return scanMedicine(row)
}

func (r *PgRepository) ListLowStock(ctx context.Context) ([]Medicine, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+medicineColumns+`
		FROM medicines
		WHERE is_active AND stock_quantity <= minimum_stock_level
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list low stock medicines: %w", err)
	}
	return collectMedicines(rows)
}

func (r *PgRepository) ListExpiringBetween(ctx context.Context, from, to string) ([]Medicine, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+medicineColumns+`
		FROM medicines
		WHERE is_active AND expiry_date BETWEEN $1::date AND $2::date
		ORDER BY expiry_date`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list expiring medicines: %w", err)
	}
	return collectMedicines(rows)
}

func collectMedicines(rows pgx.Rows) ([]Medicine, error) {
	defer rows.Close()
	var out []Medicine
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}
