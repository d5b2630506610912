package purchasing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/PPA-BE/Orders-At-Peak/internal/platform/db"
)

// Postgres error codes mapped to ErrNotFound.
const (
	pgForeignKeyViolation = "23503"
	pgInvalidTextRep      = "22P02"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	CreatePO(ctx context.Context, po PurchaseOrder) error
	InsertLineItem(ctx context.Context, item LineItem) error
	SetPONumber(ctx context.Context, id, number string) error
	UpdateStatus(ctx context.Context, id, status string) error
	MarkPaid(ctx context.Context, id string, at time.Time) error
	InsertPayment(ctx context.Context, payment Payment) (int64, error)
	GetReconciliation(ctx context.Context, id string) (Reconciliation, error)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const listSummariesSQL = `
SELECT
	po.id::text,
	po.created_at,
	po.created_by,
	po.department,
	po.vendor_name,
	po.subtotal::text,
	po.tax::text,
	po.total::text,
	po.status,
	po.paid_at,
	po.po_number,
	po.meta,
	COUNT(poi.id)::int AS line_items,
	COALESCE(payments.paid_total, 0)::text AS paid_total,
	GREATEST(0, po.total - COALESCE(payments.paid_total, 0))::text AS remaining
FROM purchase_orders po
LEFT JOIN purchase_order_items poi ON po.id = poi.po_id
LEFT JOIN (
	SELECT po_id, SUM(amount) AS paid_total
	FROM po_payments
	GROUP BY po_id
) AS payments ON po.id = payments.po_id
GROUP BY po.id, payments.paid_total
ORDER BY po.created_at DESC, po.id DESC
LIMIT $1 OFFSET $2`

// ListSummaries returns one page of the aggregation query.
func (r *Repository) ListSummaries(ctx context.Context, limit, offset int) ([]Summary, error) {
	rows, err := r.pool.Query(ctx, listSummariesSQL, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Summary
	for rows.Next() {
		var (
			s                                                Summary
			subtotal, tax, total, paidTotal, remainingAmount string
		)
		if err := rows.Scan(&s.ID, &s.CreatedAt, &s.CreatedBy, &s.Department, &s.VendorName,
			&subtotal, &tax, &total, &s.Status, &s.PaidAt, &s.PONumber, &s.Meta,
			&s.LineItems, &paidTotal, &remainingAmount); err != nil {
			return nil, err
		}
		if err := parseNumerics(
			numeric{subtotal, &s.Subtotal},
			numeric{tax, &s.Tax},
			numeric{total, &s.Total},
			numeric{paidTotal, &s.PaidTotal},
			numeric{remainingAmount, &s.Remaining},
		); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CountPOs returns the unpaginated number of purchase orders.
func (r *Repository) CountPOs(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*)::int FROM purchase_orders`).Scan(&count)
	return count, err
}

// GetPO returns a purchase order with its items and payments.
func (r *Repository) GetPO(ctx context.Context, id string) (PurchaseOrder, []LineItem, []Payment, error) {
	var (
		po                   PurchaseOrder
		subtotal, tax, total string
		orderDate            *time.Time
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, created_at, created_by, created_by_email, department, vendor_name, vendor,
			currency, order_date, subtotal::text, tax::text, total::text, status, paid_at, po_number, meta
		FROM purchase_orders WHERE id = $1`, id).
		Scan(&po.ID, &po.CreatedAt, &po.CreatedBy, &po.CreatedByEmail, &po.Department, &po.VendorName, &po.Vendor,
			&po.Currency, &orderDate, &subtotal, &tax, &total, &po.Status, &po.PaidAt, &po.PONumber, &po.Meta)
	if err != nil {
		return PurchaseOrder{}, nil, nil, mapError(err)
	}
	if orderDate != nil {
		po.OrderDate = *orderDate
	}
	if err := parseNumerics(numeric{subtotal, &po.Subtotal}, numeric{tax, &po.Tax}, numeric{total, &po.Total}); err != nil {
		return PurchaseOrder{}, nil, nil, err
	}
	items, err := r.listItems(ctx, id)
	if err != nil {
		return PurchaseOrder{}, nil, nil, err
	}
	payments, err := r.listPayments(ctx, id)
	if err != nil {
		return PurchaseOrder{}, nil, nil, err
	}
	return po, items, payments, nil
}

func (r *Repository) listItems(ctx context.Context, poID string) ([]LineItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, po_id::text, line_no, supplier_item, peak_part, part_number, description, qty::text, unit_price::text, uom
		FROM purchase_order_items WHERE po_id = $1 ORDER BY line_no, id`, poID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LineItem
	for rows.Next() {
		var (
			it         LineItem
			qty, price string
		)
		if err := rows.Scan(&it.ID, &it.POID, &it.LineNo, &it.SupplierItem, &it.PeakPart, &it.PartNumber,
			&it.Description, &qty, &price, &it.UOM); err != nil {
			return nil, err
		}
		if err := parseNumerics(numeric{qty, &it.Qty}, numeric{price, &it.UnitPrice}); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *Repository) listPayments(ctx context.Context, poID string) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, po_id::text, amount::text, method, note, recorded_at, recorded_by
		FROM po_payments WHERE po_id = $1 ORDER BY recorded_at, id`, poID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var payments []Payment
	for rows.Next() {
		var (
			p      Payment
			amount string
		)
		if err := rows.Scan(&p.ID, &p.POID, &amount, &p.Method, &p.Note, &p.RecordedAt, &p.RecordedBy); err != nil {
			return nil, err
		}
		if err := parseNumerics(numeric{amount, &p.Amount}); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// GetReconciliation sums payments for one PO.
func (r *Repository) GetReconciliation(ctx context.Context, id string) (Reconciliation, error) {
	return getReconciliation(ctx, r.pool, id)
}

func getReconciliation(ctx context.Context, q rowQuerier, id string) (Reconciliation, error) {
	var (
		rec         Reconciliation
		total, paid string
	)
	err := q.QueryRow(ctx, `
		SELECT po.id::text, po.status, po.paid_at, po.total::text, COALESCE(SUM(p.amount), 0)::text
		FROM purchase_orders po
		LEFT JOIN po_payments p ON p.po_id = po.id
		WHERE po.id = $1
		GROUP BY po.id`, id).Scan(&rec.ID, &rec.Status, &rec.PaidAt, &total, &paid)
	if err != nil {
		return Reconciliation{}, mapError(err)
	}
	if err := parseNumerics(numeric{total, &rec.Total}, numeric{paid, &rec.PaidTotal}); err != nil {
		return Reconciliation{}, err
	}
	return rec, nil
}

func (t *txRepo) CreatePO(ctx context.Context, po PurchaseOrder) error {
	var orderDate *time.Time
	if !po.OrderDate.IsZero() {
		orderDate = &po.OrderDate
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO purchase_orders (id, created_at, created_by, created_by_email, department, vendor_name, vendor,
			currency, order_date, subtotal, tax, total, status, meta, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $2)`,
		po.ID, po.CreatedAt, po.CreatedBy, po.CreatedByEmail, po.Department, po.VendorName, po.Vendor,
		po.Currency, orderDate, po.Subtotal.String(), po.Tax.String(), po.Total.String(), po.Status, po.Meta)
	return err
}

func (t *txRepo) InsertLineItem(ctx context.Context, item LineItem) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO purchase_order_items (po_id, line_no, supplier_item, peak_part, part_number, description, qty, unit_price, uom)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		item.POID, item.LineNo, item.SupplierItem, item.PeakPart, item.PartNumber, item.Description,
		item.Qty.String(), item.UnitPrice.String(), item.UOM)
	return err
}

func (t *txRepo) SetPONumber(ctx context.Context, id, number string) error {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET po_number = NULLIF($2, ''), updated_at = NOW() WHERE id = $1`, id, number)
	return affected(tag, err)
}

func (t *txRepo) UpdateStatus(ctx context.Context, id, status string) error {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	return affected(tag, err)
}

func (t *txRepo) MarkPaid(ctx context.Context, id string, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET paid_at = $2, updated_at = NOW() WHERE id = $1`, id, at)
	return affected(tag, err)
}

func (t *txRepo) InsertPayment(ctx context.Context, payment Payment) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO po_payments (po_id, amount, method, note, recorded_at, recorded_by)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		payment.POID, payment.Amount.String(), payment.Method, payment.Note, payment.RecordedAt, payment.RecordedBy).Scan(&id)
	if err != nil {
		return 0, mapError(err)
	}
	return id, nil
}

func (t *txRepo) GetReconciliation(ctx context.Context, id string) (Reconciliation, error) {
	return getReconciliation(ctx, t.tx, id)
}

func affected(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation, pgInvalidTextRep:
			return ErrNotFound
		}
	}
	return err
}

type numeric struct {
	raw  string
	dest *decimal.Decimal
}

func parseNumerics(values ...numeric) error {
	for _, v := range values {
		d, err := decimal.NewFromString(v.raw)
		if err != nil {
			return fmt.Errorf("purchasing: parse numeric %q: %w", v.raw, err)
		}
		*v.dest = d
	}
	return nil
}
