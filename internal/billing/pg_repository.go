package billing

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

const invoiceColumns = `id, invoice_number, patient_id, total_amount, paid_amount,
	status, to_char(due_date, 'YYYY-MM-DD'), created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.PatientID, &inv.TotalAmount,
		&inv.PaidAmount, &inv.Status, &inv.DueDate, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan invoice: %w", err)
	}
	return &inv, nil
}

func (r *PgRepository) Create(ctx context.Context, inv *Invoice) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO invoices (id, invoice_number, patient_id, total_amount, paid_amount, status, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7::date)
		RETURNING `+invoiceColumns,
		inv.ID, inv.InvoiceNumber, inv.PatientID, inv.TotalAmount, inv.PaidAmount,
		inv.Status, inv.DueDate,
	)
	saved, err := scanInvoice(row)
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	*inv = *saved
	return nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	return scanInvoice(row)
}

func (r *PgRepository) GetByNumber(ctx context.Context, number string) (*Invoice, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE invoice_number = $1`, number)
	return scanInvoice(row)
}

func (r *PgRepository) Update(ctx context.Context, inv *Invoice) error {
	row := r.pool.QueryRow(ctx, `
		UPDATE invoices
		SET paid_amount = $2, status = $3, due_date = $4::date, updated_at = now()
		WHERE id = $1
		RETURNING `+invoiceColumns,
		inv.ID, inv.PaidAmount, inv.Status, inv.DueDate,
	)
	saved, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("update invoice: %w", err)
	}
	*inv = *saved
	return nil
}

func (r *PgRepository) ListPayableDueBefore(ctx context.Context, date string) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE status IN ('sent', 'partially_paid') AND due_date < $1::date
		ORDER BY due_date`, date)
	if err != nil {
		return nil, fmt.Errorf("list payable invoices: %w", err)
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}
