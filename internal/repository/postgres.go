package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openclerk/backoffice/internal/domain"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so the same query code
// runs inside and outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres implements Store over a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool // nil when transaction-bound
	db   DBTX
}

var _ Store = (*Postgres)(nil)

// NewPostgres creates a PostgreSQL-backed store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, db: pool}
}

// WithTx runs fn against a transaction-bound store. Calling WithTx on a
// store that is already inside a transaction reuses it.
func (p *Postgres) WithTx(ctx context.Context, fn func(Store) error) error {
	if p.pool == nil {
		return fn(p)
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&Postgres{db: tx}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// =============================================================================
// Invoices
// =============================================================================

const invoiceColumns = `
	id, number, project_id, client_id, invoice_type,
	deposit_for_project_id, deposit_percentage, status, currency, line_items,
	subtotal, tax_amount, discount_amount, amount_total, amount_paid,
	tax_rate, discount_type, discount_value,
	late_fee_type, late_fee_rate, late_fee_amount, late_fee_applied_at, grace_period_days,
	issued_date, due_date, paid_date,
	business_name, business_email, client_name, client_email, payment_instructions, notes,
	provider_invoice_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (*domain.Invoice, error) {
	var inv domain.Invoice
	var lineItems []byte

	err := row.Scan(
		&inv.ID, &inv.Number, &inv.ProjectID, &inv.ClientID, &inv.Type,
		&inv.DepositForProjectID, &inv.DepositPercentage, &inv.Status, &inv.Currency, &lineItems,
		&inv.Subtotal, &inv.TaxAmount, &inv.DiscountAmount, &inv.AmountTotal, &inv.AmountPaid,
		&inv.TaxRate, &inv.DiscountType, &inv.DiscountValue,
		&inv.LateFeeType, &inv.LateFeeRate, &inv.LateFeeAmount, &inv.LateFeeAppliedAt, &inv.GracePeriodDays,
		&inv.IssuedDate, &inv.DueDate, &inv.PaidDate,
		&inv.BusinessName, &inv.BusinessEmail, &inv.ClientName, &inv.ClientEmail, &inv.PaymentInstructions, &inv.Notes,
		&inv.ProviderInvoiceID, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(lineItems, &inv.LineItems); err != nil {
		return nil, fmt.Errorf("decode line items for invoice %d: %w", inv.ID, err)
	}

	return &inv, nil
}

func (p *Postgres) CreateInvoice(ctx context.Context, inv *domain.Invoice) error {
	lineItems, err := json.Marshal(inv.LineItems)
	if err != nil {
		return fmt.Errorf("encode line items: %w", err)
	}

	return p.db.QueryRow(ctx, `
		INSERT INTO invoices (
			number, project_id, client_id, invoice_type,
			deposit_for_project_id, deposit_percentage, status, currency, line_items,
			subtotal, tax_amount, discount_amount, amount_total, amount_paid,
			tax_rate, discount_type, discount_value,
			late_fee_type, late_fee_rate, late_fee_amount, late_fee_applied_at, grace_period_days,
			issued_date, due_date, paid_date,
			business_name, business_email, client_name, client_email, payment_instructions, notes,
			provider_invoice_id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32
		)
		RETURNING id, created_at, updated_at`,
		inv.Number, inv.ProjectID, inv.ClientID, inv.Type,
		inv.DepositForProjectID, inv.DepositPercentage, inv.Status, inv.Currency, lineItems,
		inv.Subtotal, inv.TaxAmount, inv.DiscountAmount, inv.AmountTotal, inv.AmountPaid,
		inv.TaxRate, inv.DiscountType, inv.DiscountValue,
		inv.LateFeeType, inv.LateFeeRate, inv.LateFeeAmount, inv.LateFeeAppliedAt, inv.GracePeriodDays,
		inv.IssuedDate, inv.DueDate, inv.PaidDate,
		inv.BusinessName, inv.BusinessEmail, inv.ClientName, inv.ClientEmail, inv.PaymentInstructions, inv.Notes,
		inv.ProviderInvoiceID,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
}

func (p *Postgres) getInvoice(ctx context.Context, where string, arg any, lock bool) (*domain.Invoice, error) {
	q := `SELECT ` + invoiceColumns + ` FROM invoices WHERE ` + where
	if lock {
		q += " FOR UPDATE"
	}
	inv, err := scanInvoice(p.db.QueryRow(ctx, q, arg))
	if err != nil {
		return nil, notFound(err)
	}
	return inv, nil
}

func (p *Postgres) GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error) {
	return p.getInvoice(ctx, "id = $1", id, false)
}

func (p *Postgres) GetInvoiceForUpdate(ctx context.Context, id int64) (*domain.Invoice, error) {
	return p.getInvoice(ctx, "id = $1", id, true)
}

func (p *Postgres) GetInvoiceByNumber(ctx context.Context, number string) (*domain.Invoice, error) {
	return p.getInvoice(ctx, "number = $1", number, false)
}

func (p *Postgres) GetInvoiceByProviderID(ctx context.Context, providerInvoiceID string) (*domain.Invoice, error) {
	return p.getInvoice(ctx, "provider_invoice_id = $1", providerInvoiceID, false)
}

func (p *Postgres) UpdateInvoice(ctx context.Context, inv *domain.Invoice) error {
	lineItems, err := json.Marshal(inv.LineItems)
	if err != nil {
		return fmt.Errorf("encode line items: %w", err)
	}

	tag, err := p.db.Exec(ctx, `
		UPDATE invoices SET
			status = $2, currency = $3, line_items = $4,
			subtotal = $5, tax_amount = $6, discount_amount = $7, amount_total = $8, amount_paid = $9,
			tax_rate = $10, discount_type = $11, discount_value = $12,
			late_fee_type = $13, late_fee_rate = $14, late_fee_amount = $15, late_fee_applied_at = $16, grace_period_days = $17,
			issued_date = $18, due_date = $19, paid_date = $20,
			business_name = $21, business_email = $22, client_name = $23, client_email = $24,
			payment_instructions = $25, notes = $26, provider_invoice_id = $27,
			updated_at = now()
		WHERE id = $1`,
		inv.ID,
		inv.Status, inv.Currency, lineItems,
		inv.Subtotal, inv.TaxAmount, inv.DiscountAmount, inv.AmountTotal, inv.AmountPaid,
		inv.TaxRate, inv.DiscountType, inv.DiscountValue,
		inv.LateFeeType, inv.LateFeeRate, inv.LateFeeAmount, inv.LateFeeAppliedAt, inv.GracePeriodDays,
		inv.IssuedDate, inv.DueDate, inv.PaidDate,
		inv.BusinessName, inv.BusinessEmail, inv.ClientName, inv.ClientEmail,
		inv.PaymentInstructions, inv.Notes, inv.ProviderInvoiceID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) DeleteInvoice(ctx context.Context, id int64) error {
	tag, err := p.db.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ListInvoices(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	// Conditions are built from the typed filter; values always travel as
	// parameters.
	conds := []string{"true"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ProjectID != nil {
		conds = append(conds, "project_id = "+arg(*filter.ProjectID))
	}
	if filter.ClientID != nil {
		conds = append(conds, "client_id = "+arg(*filter.ClientID))
	}
	if filter.Status != nil {
		conds = append(conds, "status = "+arg(*filter.Status))
	}
	if len(filter.Statuses) > 0 {
		conds = append(conds, "status = ANY("+arg(filter.Statuses)+")")
	}
	if filter.Type != nil {
		conds = append(conds, "invoice_type = "+arg(*filter.Type))
	}
	if filter.Outstanding {
		conds = append(conds, "amount_total > amount_paid")
	}
	if filter.DueBefore != nil {
		conds = append(conds, "due_date IS NOT NULL AND due_date < "+arg(*filter.DueBefore))
	}

	q := `SELECT ` + invoiceColumns + ` FROM invoices WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY id`
	if filter.Limit > 0 {
		q += " LIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		q += " OFFSET " + arg(filter.Offset)
	}

	rows, err := p.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

func (p *Postgres) NextInvoiceSequence(ctx context.Context, prefix, yearMonth string) (int64, error) {
	var next int64
	err := p.db.QueryRow(ctx, `
		INSERT INTO invoice_sequences (prefix, year_month, last_value)
		VALUES ($1, $2, 1)
		ON CONFLICT (prefix, year_month)
		DO UPDATE SET last_value = invoice_sequences.last_value + 1
		RETURNING last_value`,
		prefix, yearMonth,
	).Scan(&next)
	return next, err
}

// =============================================================================
// Payment history
// =============================================================================

func (p *Postgres) CreatePaymentRecord(ctx context.Context, rec *domain.PaymentRecord) error {
	return p.db.QueryRow(ctx, `
		INSERT INTO invoice_payments (invoice_id, amount, method, reference, payment_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		rec.InvoiceID, rec.Amount, rec.Method, rec.Reference, rec.Date, rec.Notes,
	).Scan(&rec.ID, &rec.CreatedAt)
}

func (p *Postgres) ListPayments(ctx context.Context, invoiceID int64) ([]domain.PaymentRecord, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, invoice_id, amount, method, reference, payment_date, notes, created_at
		FROM invoice_payments WHERE invoice_id = $1 ORDER BY id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PaymentRecord
	for rows.Next() {
		var rec domain.PaymentRecord
		if err := rows.Scan(&rec.ID, &rec.InvoiceID, &rec.Amount, &rec.Method, &rec.Reference, &rec.Date, &rec.Notes, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// =============================================================================
// Deposit credit ledger
// =============================================================================

func (p *Postgres) CreateCredit(ctx context.Context, credit *domain.InvoiceCredit) error {
	return p.db.QueryRow(ctx, `
		INSERT INTO invoice_credits (invoice_id, deposit_invoice_id, amount, applied_at, applied_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		credit.InvoiceID, credit.DepositInvoiceID, credit.Amount, credit.AppliedAt, credit.AppliedBy,
	).Scan(&credit.ID)
}

func (p *Postgres) ListCreditsForInvoice(ctx context.Context, invoiceID int64) ([]domain.InvoiceCredit, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, invoice_id, deposit_invoice_id, amount, applied_at, applied_by
		FROM invoice_credits WHERE invoice_id = $1 ORDER BY id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.InvoiceCredit
	for rows.Next() {
		var c domain.InvoiceCredit
		if err := rows.Scan(&c.ID, &c.InvoiceID, &c.DepositInvoiceID, &c.Amount, &c.AppliedAt, &c.AppliedBy); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *Postgres) SumCreditsForDeposit(ctx context.Context, depositInvoiceID int64) (float64, error) {
	var sum float64
	err := p.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM invoice_credits WHERE deposit_invoice_id = $1`,
		depositInvoiceID,
	).Scan(&sum)
	return sum, err
}

func (p *Postgres) DeleteCreditsForInvoice(ctx context.Context, invoiceID int64) error {
	_, err := p.db.Exec(ctx, `
		DELETE FROM invoice_credits WHERE invoice_id = $1 OR deposit_invoice_id = $1`, invoiceID)
	return err
}

// =============================================================================
// Reminders
// =============================================================================

func (p *Postgres) CreateReminders(ctx context.Context, reminders []domain.InvoiceReminder) ([]domain.InvoiceReminder, error) {
	out := make([]domain.InvoiceReminder, 0, len(reminders))
	for _, r := range reminders {
		err := p.db.QueryRow(ctx, `
			INSERT INTO invoice_reminders (invoice_id, reminder_type, scheduled_date, status)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at, updated_at`,
			r.InvoiceID, r.Type, r.ScheduledDate, r.Status,
		).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (p *Postgres) ListRemindersForInvoice(ctx context.Context, invoiceID int64) ([]domain.InvoiceReminder, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, invoice_id, reminder_type, scheduled_date, status, created_at, updated_at
		FROM invoice_reminders WHERE invoice_id = $1 ORDER BY scheduled_date`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReminders(rows)
}

func collectReminders(rows pgx.Rows) ([]domain.InvoiceReminder, error) {
	var out []domain.InvoiceReminder
	for rows.Next() {
		var r domain.InvoiceReminder
		if err := rows.Scan(&r.ID, &r.InvoiceID, &r.Type, &r.ScheduledDate, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) ListDueReminders(ctx context.Context, asOf time.Time) ([]domain.DueReminder, error) {
	rows, err := p.db.Query(ctx, `
		SELECT
			r.id, r.invoice_id, r.reminder_type, r.scheduled_date, r.status, r.created_at, r.updated_at,
			`+prefixColumns("i", invoiceColumns)+`
		FROM invoice_reminders r
		JOIN invoices i ON i.id = r.invoice_id
		WHERE r.status = 'pending'
		  AND r.scheduled_date <= $1
		  AND i.status NOT IN ('paid', 'cancelled')
		ORDER BY r.scheduled_date, r.id`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DueReminder
	for rows.Next() {
		var d DueReminderRow
		if err := d.scan(rows); err != nil {
			return nil, err
		}
		out = append(out, domain.DueReminder{Reminder: d.Reminder, Invoice: d.Invoice})
	}
	return out, rows.Err()
}

// DueReminderRow scans the reminder+invoice join.
type DueReminderRow struct {
	Reminder domain.InvoiceReminder
	Invoice  domain.Invoice
}

func (d *DueReminderRow) scan(row rowScanner) error {
	var lineItems []byte
	r := &d.Reminder
	inv := &d.Invoice
	err := row.Scan(
		&r.ID, &r.InvoiceID, &r.Type, &r.ScheduledDate, &r.Status, &r.CreatedAt, &r.UpdatedAt,
		&inv.ID, &inv.Number, &inv.ProjectID, &inv.ClientID, &inv.Type,
		&inv.DepositForProjectID, &inv.DepositPercentage, &inv.Status, &inv.Currency, &lineItems,
		&inv.Subtotal, &inv.TaxAmount, &inv.DiscountAmount, &inv.AmountTotal, &inv.AmountPaid,
		&inv.TaxRate, &inv.DiscountType, &inv.DiscountValue,
		&inv.LateFeeType, &inv.LateFeeRate, &inv.LateFeeAmount, &inv.LateFeeAppliedAt, &inv.GracePeriodDays,
		&inv.IssuedDate, &inv.DueDate, &inv.PaidDate,
		&inv.BusinessName, &inv.BusinessEmail, &inv.ClientName, &inv.ClientEmail, &inv.PaymentInstructions, &inv.Notes,
		&inv.ProviderInvoiceID, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return json.Unmarshal(lineItems, &inv.LineItems)
}

func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}

func (p *Postgres) GetReminder(ctx context.Context, id int64) (*domain.InvoiceReminder, error) {
	var r domain.InvoiceReminder
	err := p.db.QueryRow(ctx, `
		SELECT id, invoice_id, reminder_type, scheduled_date, status, created_at, updated_at
		FROM invoice_reminders WHERE id = $1`, id,
	).Scan(&r.ID, &r.InvoiceID, &r.Type, &r.ScheduledDate, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (p *Postgres) UpdateReminderStatus(ctx context.Context, id int64, status domain.ReminderStatus) error {
	tag, err := p.db.Exec(ctx, `
		UPDATE invoice_reminders SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) SkipPendingReminders(ctx context.Context, invoiceID int64) error {
	_, err := p.db.Exec(ctx, `
		UPDATE invoice_reminders SET status = 'skipped', updated_at = now()
		WHERE invoice_id = $1 AND status = 'pending'`, invoiceID)
	return err
}

func (p *Postgres) DeleteRemindersForInvoice(ctx context.Context, invoiceID int64) error {
	_, err := p.db.Exec(ctx, `DELETE FROM invoice_reminders WHERE invoice_id = $1`, invoiceID)
	return err
}

// =============================================================================
// Recurring rules
// =============================================================================

func (p *Postgres) CreateRecurringRule(ctx context.Context, rule *domain.RecurringRule) error {
	lineItems, err := json.Marshal(rule.LineItems)
	if err != nil {
		return fmt.Errorf("encode line items: %w", err)
	}

	return p.db.QueryRow(ctx, `
		INSERT INTO recurring_invoices (
			project_id, client_id, frequency, day_of_week, day_of_month,
			line_items, start_date, end_date, next_generation_date, last_generated_at, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`,
		rule.ProjectID, rule.ClientID, rule.Frequency, rule.DayOfWeek, rule.DayOfMonth,
		lineItems, rule.StartDate, rule.EndDate, rule.NextGenerationDate, rule.LastGeneratedAt, rule.IsActive,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
}

const recurringColumns = `
	id, project_id, client_id, frequency, day_of_week, day_of_month,
	line_items, start_date, end_date, next_generation_date, last_generated_at, is_active,
	created_at, updated_at`

func scanRecurringRule(row rowScanner) (*domain.RecurringRule, error) {
	var rule domain.RecurringRule
	var lineItems []byte
	err := row.Scan(
		&rule.ID, &rule.ProjectID, &rule.ClientID, &rule.Frequency, &rule.DayOfWeek, &rule.DayOfMonth,
		&lineItems, &rule.StartDate, &rule.EndDate, &rule.NextGenerationDate, &rule.LastGeneratedAt, &rule.IsActive,
		&rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(lineItems, &rule.LineItems); err != nil {
		return nil, fmt.Errorf("decode line items for rule %d: %w", rule.ID, err)
	}
	return &rule, nil
}

func (p *Postgres) GetRecurringRule(ctx context.Context, id int64) (*domain.RecurringRule, error) {
	rule, err := scanRecurringRule(p.db.QueryRow(ctx,
		`SELECT `+recurringColumns+` FROM recurring_invoices WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return rule, nil
}

func (p *Postgres) UpdateRecurringRule(ctx context.Context, rule *domain.RecurringRule) error {
	lineItems, err := json.Marshal(rule.LineItems)
	if err != nil {
		return fmt.Errorf("encode line items: %w", err)
	}

	tag, err := p.db.Exec(ctx, `
		UPDATE recurring_invoices SET
			frequency = $2, day_of_week = $3, day_of_month = $4, line_items = $5,
			end_date = $6, next_generation_date = $7, last_generated_at = $8, is_active = $9,
			updated_at = now()
		WHERE id = $1`,
		rule.ID, rule.Frequency, rule.DayOfWeek, rule.DayOfMonth, lineItems,
		rule.EndDate, rule.NextGenerationDate, rule.LastGeneratedAt, rule.IsActive,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ListRecurringRules(ctx context.Context, projectID int64) ([]domain.RecurringRule, error) {
	q := `SELECT ` + recurringColumns + ` FROM recurring_invoices`
	args := []any{}
	if projectID > 0 {
		q += ` WHERE project_id = $1`
		args = append(args, projectID)
	}
	q += ` ORDER BY id`

	rows, err := p.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecurringRules(rows)
}

func (p *Postgres) ListDueRecurringRules(ctx context.Context, asOf time.Time) ([]domain.RecurringRule, error) {
	rows, err := p.db.Query(ctx, `
		SELECT `+recurringColumns+` FROM recurring_invoices
		WHERE is_active AND next_generation_date <= $1
		  AND (end_date IS NULL OR end_date >= $1)
		ORDER BY id`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecurringRules(rows)
}

func collectRecurringRules(rows pgx.Rows) ([]domain.RecurringRule, error) {
	var out []domain.RecurringRule
	for rows.Next() {
		rule, err := scanRecurringRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rule)
	}
	return out, rows.Err()
}

// =============================================================================
// Scheduled invoices
// =============================================================================

func (p *Postgres) CreateScheduledInvoice(ctx context.Context, sched *domain.ScheduledInvoice) error {
	lineItems, err := json.Marshal(sched.LineItems)
	if err != nil {
		return fmt.Errorf("encode line items: %w", err)
	}

	return p.db.QueryRow(ctx, `
		INSERT INTO scheduled_invoices (
			project_id, client_id, scheduled_date, trigger_type, line_items, status, generated_invoice_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		sched.ProjectID, sched.ClientID, sched.ScheduledDate, sched.TriggerType, lineItems, sched.Status, sched.GeneratedInvoiceID,
	).Scan(&sched.ID, &sched.CreatedAt, &sched.UpdatedAt)
}

const scheduledColumns = `
	id, project_id, client_id, scheduled_date, trigger_type, line_items, status, generated_invoice_id,
	created_at, updated_at`

func scanScheduledInvoice(row rowScanner) (*domain.ScheduledInvoice, error) {
	var sched domain.ScheduledInvoice
	var lineItems []byte
	err := row.Scan(
		&sched.ID, &sched.ProjectID, &sched.ClientID, &sched.ScheduledDate, &sched.TriggerType,
		&lineItems, &sched.Status, &sched.GeneratedInvoiceID, &sched.CreatedAt, &sched.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(lineItems, &sched.LineItems); err != nil {
		return nil, fmt.Errorf("decode line items for scheduled invoice %d: %w", sched.ID, err)
	}
	return &sched, nil
}

func (p *Postgres) GetScheduledInvoice(ctx context.Context, id int64) (*domain.ScheduledInvoice, error) {
	sched, err := scanScheduledInvoice(p.db.QueryRow(ctx,
		`SELECT `+scheduledColumns+` FROM scheduled_invoices WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return sched, nil
}

func (p *Postgres) UpdateScheduledInvoice(ctx context.Context, sched *domain.ScheduledInvoice) error {
	tag, err := p.db.Exec(ctx, `
		UPDATE scheduled_invoices SET status = $2, generated_invoice_id = $3, updated_at = now()
		WHERE id = $1`,
		sched.ID, sched.Status, sched.GeneratedInvoiceID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ListDueScheduledInvoices(ctx context.Context, asOf time.Time) ([]domain.ScheduledInvoice, error) {
	rows, err := p.db.Query(ctx, `
		SELECT `+scheduledColumns+` FROM scheduled_invoices
		WHERE status = 'pending' AND trigger_type = 'date' AND scheduled_date <= $1
		ORDER BY id`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ScheduledInvoice
	for rows.Next() {
		sched, err := scanScheduledInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sched)
	}
	return out, rows.Err()
}

// =============================================================================
// Payment terms presets
// =============================================================================

func (p *Postgres) CreatePreset(ctx context.Context, preset *domain.PaymentTermsPreset) error {
	return p.db.QueryRow(ctx, `
		INSERT INTO payment_terms_presets (
			name, days_until_due, late_fee_type, late_fee_rate, late_fee_flat_amount,
			grace_period_days, is_default
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		preset.Name, preset.DaysUntilDue, preset.LateFeeType, preset.LateFeeRate,
		preset.LateFeeFlatAmount, preset.GracePeriodDays, preset.IsDefault,
	).Scan(&preset.ID, &preset.CreatedAt, &preset.UpdatedAt)
}

const presetColumns = `
	id, name, days_until_due, late_fee_type, late_fee_rate, late_fee_flat_amount,
	grace_period_days, is_default, created_at, updated_at`

func scanPreset(row rowScanner) (*domain.PaymentTermsPreset, error) {
	var preset domain.PaymentTermsPreset
	err := row.Scan(
		&preset.ID, &preset.Name, &preset.DaysUntilDue, &preset.LateFeeType, &preset.LateFeeRate,
		&preset.LateFeeFlatAmount, &preset.GracePeriodDays, &preset.IsDefault,
		&preset.CreatedAt, &preset.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &preset, nil
}

func (p *Postgres) GetPreset(ctx context.Context, id int64) (*domain.PaymentTermsPreset, error) {
	preset, err := scanPreset(p.db.QueryRow(ctx,
		`SELECT `+presetColumns+` FROM payment_terms_presets WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return preset, nil
}

func (p *Postgres) GetDefaultPreset(ctx context.Context) (*domain.PaymentTermsPreset, error) {
	preset, err := scanPreset(p.db.QueryRow(ctx,
		`SELECT `+presetColumns+` FROM payment_terms_presets WHERE is_default LIMIT 1`))
	if err != nil {
		return nil, notFound(err)
	}
	return preset, nil
}

func (p *Postgres) ListPresets(ctx context.Context) ([]domain.PaymentTermsPreset, error) {
	rows, err := p.db.Query(ctx,
		`SELECT `+presetColumns+` FROM payment_terms_presets ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PaymentTermsPreset
	for rows.Next() {
		preset, err := scanPreset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *preset)
	}
	return out, rows.Err()
}
