package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/openclerk/backoffice/internal/domain"
)

// memoryState is the shared mutable state behind every Memory handle.
type memoryState struct {
	mu sync.Mutex

	invoices  map[int64]*domain.Invoice
	payments  map[int64]*domain.PaymentRecord
	credits   map[int64]*domain.InvoiceCredit
	reminders map[int64]*domain.InvoiceReminder
	recurring map[int64]*domain.RecurringRule
	scheduled map[int64]*domain.ScheduledInvoice
	presets   map[int64]*domain.PaymentTermsPreset
	sequences map[string]int64

	nextID int64
}

// Memory is an in-process Store used by tests. WithTx serializes all
// transactional work behind the state mutex, which is enough to exercise the
// services' locking discipline without a database.
type Memory struct {
	state *memoryState
	inTx  bool
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{state: &memoryState{
		invoices:  make(map[int64]*domain.Invoice),
		payments:  make(map[int64]*domain.PaymentRecord),
		credits:   make(map[int64]*domain.InvoiceCredit),
		reminders: make(map[int64]*domain.InvoiceReminder),
		recurring: make(map[int64]*domain.RecurringRule),
		scheduled: make(map[int64]*domain.ScheduledInvoice),
		presets:   make(map[int64]*domain.PaymentTermsPreset),
		sequences: make(map[string]int64),
	}}
}

func (m *Memory) lock() func() {
	if m.inTx {
		return func() {}
	}
	m.state.mu.Lock()
	return m.state.mu.Unlock
}

// WithTx serializes fn behind the state mutex. Rollback is not simulated;
// tests assert on behavior before the failure point.
func (m *Memory) WithTx(ctx context.Context, fn func(Store) error) error {
	if m.inTx {
		return fn(m)
	}
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	return fn(&Memory{state: m.state, inTx: true})
}

func (s *memoryState) id() int64 {
	s.nextID++
	return s.nextID
}

func copyInvoice(inv *domain.Invoice) *domain.Invoice {
	out := *inv
	out.LineItems = append([]domain.LineItem(nil), inv.LineItems...)
	return &out
}

// =============================================================================
// Invoices
// =============================================================================

func (m *Memory) CreateInvoice(ctx context.Context, inv *domain.Invoice) error {
	defer m.lock()()
	for _, existing := range m.state.invoices {
		if existing.Number == inv.Number {
			return domain.Conflict("memory.create_invoice", "invoice number already exists: "+inv.Number)
		}
	}
	inv.ID = m.state.id()
	now := time.Now()
	inv.CreatedAt = now
	inv.UpdatedAt = now
	m.state.invoices[inv.ID] = copyInvoice(inv)
	return nil
}

func (m *Memory) GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error) {
	defer m.lock()()
	inv, ok := m.state.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyInvoice(inv), nil
}

func (m *Memory) GetInvoiceForUpdate(ctx context.Context, id int64) (*domain.Invoice, error) {
	return m.GetInvoice(ctx, id)
}

func (m *Memory) GetInvoiceByNumber(ctx context.Context, number string) (*domain.Invoice, error) {
	defer m.lock()()
	for _, inv := range m.state.invoices {
		if inv.Number == number {
			return copyInvoice(inv), nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) GetInvoiceByProviderID(ctx context.Context, providerInvoiceID string) (*domain.Invoice, error) {
	defer m.lock()()
	for _, inv := range m.state.invoices {
		if inv.ProviderInvoiceID != "" && inv.ProviderInvoiceID == providerInvoiceID {
			return copyInvoice(inv), nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) UpdateInvoice(ctx context.Context, inv *domain.Invoice) error {
	defer m.lock()()
	existing, ok := m.state.invoices[inv.ID]
	if !ok {
		return ErrNotFound
	}
	inv.CreatedAt = existing.CreatedAt
	inv.UpdatedAt = time.Now()
	m.state.invoices[inv.ID] = copyInvoice(inv)
	return nil
}

func (m *Memory) DeleteInvoice(ctx context.Context, id int64) error {
	defer m.lock()()
	if _, ok := m.state.invoices[id]; !ok {
		return ErrNotFound
	}
	delete(m.state.invoices, id)
	return nil
}

func matchesFilter(inv *domain.Invoice, f domain.InvoiceFilter) bool {
	if f.ProjectID != nil && inv.ProjectID != *f.ProjectID {
		return false
	}
	if f.ClientID != nil && inv.ClientID != *f.ClientID {
		return false
	}
	if f.Status != nil && inv.Status != *f.Status {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if inv.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Type != nil && inv.Type != *f.Type {
		return false
	}
	if f.Outstanding && inv.Outstanding() <= 0 {
		return false
	}
	if f.DueBefore != nil && (inv.DueDate == nil || !inv.DueDate.Before(*f.DueBefore)) {
		return false
	}
	return true
}

func (m *Memory) ListInvoices(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	defer m.lock()()
	var out []domain.Invoice
	for _, inv := range m.state.invoices {
		if matchesFilter(inv, filter) {
			out = append(out, *copyInvoice(inv))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	if filter.Offset > 0 {
		if int(filter.Offset) >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && int(filter.Limit) < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *Memory) NextInvoiceSequence(ctx context.Context, prefix, yearMonth string) (int64, error) {
	defer m.lock()()
	key := prefix + "/" + yearMonth
	m.state.sequences[key]++
	return m.state.sequences[key], nil
}

// =============================================================================
// Payment history
// =============================================================================

func (m *Memory) CreatePaymentRecord(ctx context.Context, rec *domain.PaymentRecord) error {
	defer m.lock()()
	rec.ID = m.state.id()
	rec.CreatedAt = time.Now()
	cp := *rec
	m.state.payments[rec.ID] = &cp
	return nil
}

func (m *Memory) ListPayments(ctx context.Context, invoiceID int64) ([]domain.PaymentRecord, error) {
	defer m.lock()()
	var out []domain.PaymentRecord
	for _, rec := range m.state.payments {
		if rec.InvoiceID == invoiceID {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// Deposit credit ledger
// =============================================================================

func (m *Memory) CreateCredit(ctx context.Context, credit *domain.InvoiceCredit) error {
	defer m.lock()()
	credit.ID = m.state.id()
	cp := *credit
	m.state.credits[credit.ID] = &cp
	return nil
}

func (m *Memory) ListCreditsForInvoice(ctx context.Context, invoiceID int64) ([]domain.InvoiceCredit, error) {
	defer m.lock()()
	var out []domain.InvoiceCredit
	for _, c := range m.state.credits {
		if c.InvoiceID == invoiceID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SumCreditsForDeposit(ctx context.Context, depositInvoiceID int64) (float64, error) {
	defer m.lock()()
	var sum float64
	for _, c := range m.state.credits {
		if c.DepositInvoiceID == depositInvoiceID {
			sum += c.Amount
		}
	}
	return sum, nil
}

func (m *Memory) DeleteCreditsForInvoice(ctx context.Context, invoiceID int64) error {
	defer m.lock()()
	for id, c := range m.state.credits {
		if c.InvoiceID == invoiceID || c.DepositInvoiceID == invoiceID {
			delete(m.state.credits, id)
		}
	}
	return nil
}

// =============================================================================
// Reminders
// =============================================================================

func (m *Memory) CreateReminders(ctx context.Context, reminders []domain.InvoiceReminder) ([]domain.InvoiceReminder, error) {
	defer m.lock()()
	out := make([]domain.InvoiceReminder, 0, len(reminders))
	now := time.Now()
	for _, r := range reminders {
		r.ID = m.state.id()
		r.CreatedAt = now
		r.UpdatedAt = now
		cp := r
		m.state.reminders[r.ID] = &cp
		out = append(out, r)
	}
	return out, nil
}

func (m *Memory) ListRemindersForInvoice(ctx context.Context, invoiceID int64) ([]domain.InvoiceReminder, error) {
	defer m.lock()()
	var out []domain.InvoiceReminder
	for _, r := range m.state.reminders {
		if r.InvoiceID == invoiceID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledDate.Before(out[j].ScheduledDate) })
	return out, nil
}

func (m *Memory) ListDueReminders(ctx context.Context, asOf time.Time) ([]domain.DueReminder, error) {
	defer m.lock()()
	var out []domain.DueReminder
	for _, r := range m.state.reminders {
		if r.Status != domain.ReminderPending || r.ScheduledDate.After(asOf) {
			continue
		}
		inv, ok := m.state.invoices[r.InvoiceID]
		if !ok || inv.Status == domain.StatusPaid || inv.Status == domain.StatusCancelled {
			continue
		}
		out = append(out, domain.DueReminder{Reminder: *r, Invoice: *copyInvoice(inv)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Reminder.ScheduledDate.Equal(out[j].Reminder.ScheduledDate) {
			return out[i].Reminder.ID < out[j].Reminder.ID
		}
		return out[i].Reminder.ScheduledDate.Before(out[j].Reminder.ScheduledDate)
	})
	return out, nil
}

func (m *Memory) GetReminder(ctx context.Context, id int64) (*domain.InvoiceReminder, error) {
	defer m.lock()()
	r, ok := m.state.reminders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *Memory) UpdateReminderStatus(ctx context.Context, id int64, status domain.ReminderStatus) error {
	defer m.lock()()
	r, ok := m.state.reminders[id]
	if !ok {
		return ErrNotFound
	}
	r.Status = status
	r.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) SkipPendingReminders(ctx context.Context, invoiceID int64) error {
	defer m.lock()()
	for _, r := range m.state.reminders {
		if r.InvoiceID == invoiceID && r.Status == domain.ReminderPending {
			r.Status = domain.ReminderSkipped
			r.UpdatedAt = time.Now()
		}
	}
	return nil
}

func (m *Memory) DeleteRemindersForInvoice(ctx context.Context, invoiceID int64) error {
	defer m.lock()()
	for id, r := range m.state.reminders {
		if r.InvoiceID == invoiceID {
			delete(m.state.reminders, id)
		}
	}
	return nil
}

// =============================================================================
// Recurring rules
// =============================================================================

func copyRule(rule *domain.RecurringRule) *domain.RecurringRule {
	out := *rule
	out.LineItems = append([]domain.LineItem(nil), rule.LineItems...)
	return &out
}

func (m *Memory) CreateRecurringRule(ctx context.Context, rule *domain.RecurringRule) error {
	defer m.lock()()
	rule.ID = m.state.id()
	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	m.state.recurring[rule.ID] = copyRule(rule)
	return nil
}

func (m *Memory) GetRecurringRule(ctx context.Context, id int64) (*domain.RecurringRule, error) {
	defer m.lock()()
	rule, ok := m.state.recurring[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRule(rule), nil
}

func (m *Memory) UpdateRecurringRule(ctx context.Context, rule *domain.RecurringRule) error {
	defer m.lock()()
	existing, ok := m.state.recurring[rule.ID]
	if !ok {
		return ErrNotFound
	}
	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = time.Now()
	m.state.recurring[rule.ID] = copyRule(rule)
	return nil
}

func (m *Memory) ListRecurringRules(ctx context.Context, projectID int64) ([]domain.RecurringRule, error) {
	defer m.lock()()
	var out []domain.RecurringRule
	for _, rule := range m.state.recurring {
		if projectID > 0 && rule.ProjectID != projectID {
			continue
		}
		out = append(out, *copyRule(rule))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ListDueRecurringRules(ctx context.Context, asOf time.Time) ([]domain.RecurringRule, error) {
	defer m.lock()()
	var out []domain.RecurringRule
	for _, rule := range m.state.recurring {
		if !rule.IsActive || rule.NextGenerationDate.After(asOf) {
			continue
		}
		if rule.EndDate != nil && rule.EndDate.Before(asOf) {
			continue
		}
		out = append(out, *copyRule(rule))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// Scheduled invoices
// =============================================================================

func copyScheduled(sched *domain.ScheduledInvoice) *domain.ScheduledInvoice {
	out := *sched
	out.LineItems = append([]domain.LineItem(nil), sched.LineItems...)
	return &out
}

func (m *Memory) CreateScheduledInvoice(ctx context.Context, sched *domain.ScheduledInvoice) error {
	defer m.lock()()
	sched.ID = m.state.id()
	now := time.Now()
	sched.CreatedAt = now
	sched.UpdatedAt = now
	m.state.scheduled[sched.ID] = copyScheduled(sched)
	return nil
}

func (m *Memory) GetScheduledInvoice(ctx context.Context, id int64) (*domain.ScheduledInvoice, error) {
	defer m.lock()()
	sched, ok := m.state.scheduled[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyScheduled(sched), nil
}

func (m *Memory) UpdateScheduledInvoice(ctx context.Context, sched *domain.ScheduledInvoice) error {
	defer m.lock()()
	existing, ok := m.state.scheduled[sched.ID]
	if !ok {
		return ErrNotFound
	}
	sched.CreatedAt = existing.CreatedAt
	sched.UpdatedAt = time.Now()
	m.state.scheduled[sched.ID] = copyScheduled(sched)
	return nil
}

func (m *Memory) ListDueScheduledInvoices(ctx context.Context, asOf time.Time) ([]domain.ScheduledInvoice, error) {
	defer m.lock()()
	var out []domain.ScheduledInvoice
	for _, sched := range m.state.scheduled {
		if sched.Status != domain.ScheduledPending || sched.TriggerType != domain.TriggerDate {
			continue
		}
		if sched.ScheduledDate.After(asOf) {
			continue
		}
		out = append(out, *copyScheduled(sched))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// Payment terms presets
// =============================================================================

func (m *Memory) CreatePreset(ctx context.Context, preset *domain.PaymentTermsPreset) error {
	defer m.lock()()
	for _, existing := range m.state.presets {
		if existing.Name == preset.Name {
			return domain.Conflict("memory.create_preset", "preset name already exists: "+preset.Name)
		}
	}
	preset.ID = m.state.id()
	now := time.Now()
	preset.CreatedAt = now
	preset.UpdatedAt = now
	cp := *preset
	m.state.presets[preset.ID] = &cp
	return nil
}

func (m *Memory) GetPreset(ctx context.Context, id int64) (*domain.PaymentTermsPreset, error) {
	defer m.lock()()
	preset, ok := m.state.presets[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *preset
	return &cp, nil
}

func (m *Memory) GetDefaultPreset(ctx context.Context) (*domain.PaymentTermsPreset, error) {
	defer m.lock()()
	for _, preset := range m.state.presets {
		if preset.IsDefault {
			cp := *preset
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListPresets(ctx context.Context) ([]domain.PaymentTermsPreset, error) {
	defer m.lock()()
	var out []domain.PaymentTermsPreset
	for _, preset := range m.state.presets {
		out = append(out, *preset)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
