package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/openclerk/backoffice/internal/clock"
	"github.com/openclerk/backoffice/internal/dates"
	"github.com/openclerk/backoffice/internal/domain"
	"github.com/openclerk/backoffice/internal/repository"
	"github.com/openclerk/backoffice/internal/telemetry"
)

type generatorService struct {
	store    repository.Store
	invoices domain.InvoiceService
	clock    clock.Clock
	logger   zerolog.Logger
	metrics  *telemetry.BusinessMetrics
}

// NewGeneratorService creates the recurring/scheduled invoice generator.
func NewGeneratorService(
	store repository.Store,
	invoices domain.InvoiceService,
	clk clock.Clock,
	logger zerolog.Logger,
	metrics *telemetry.BusinessMetrics,
) domain.GeneratorService {
	return &generatorService{
		store:    store,
		invoices: invoices,
		clock:    clk,
		logger:   logger.With().Str("service", "generator").Logger(),
		metrics:  metrics,
	}
}

func validFrequency(f domain.Frequency) bool {
	switch f {
	case domain.FrequencyWeekly, domain.FrequencyMonthly, domain.FrequencyQuarterly:
		return true
	}
	return false
}

// initialGenerationDate resolves the first occurrence on or after start.
func initialGenerationDate(freq domain.Frequency, dayOfWeek, dayOfMonth *int, start time.Time) time.Time {
	start = dates.Truncate(start)

	switch freq {
	case domain.FrequencyWeekly:
		if dayOfWeek != nil {
			return dates.NextWeekday(start, time.Weekday(*dayOfWeek))
		}
	case domain.FrequencyMonthly, domain.FrequencyQuarterly:
		if dayOfMonth != nil {
			day := dates.ClampDay(start.Year(), start.Month(), *dayOfMonth)
			candidate := time.Date(start.Year(), start.Month(), day, 0, 0, 0, 0, start.Location())
			if candidate.Before(start) {
				return dates.AddMonthsClamped(start, 1, *dayOfMonth)
			}
			return candidate
		}
	}
	return start
}

// nextGenerationDate advances from the previous occurrence, never from
// "today", so a late sweep does not drift the calendar.
func nextGenerationDate(rule *domain.RecurringRule, from time.Time) time.Time {
	switch rule.Frequency {
	case domain.FrequencyWeekly:
		next := from.AddDate(0, 0, 7)
		if rule.DayOfWeek != nil {
			next = dates.NextWeekday(next, time.Weekday(*rule.DayOfWeek))
		}
		return next
	case domain.FrequencyQuarterly:
		return dates.AddMonthsClamped(from, 3, derefOr(rule.DayOfMonth, 0))
	default: // monthly
		return dates.AddMonthsClamped(from, 1, derefOr(rule.DayOfMonth, 0))
	}
}

func derefOr(p *int, fallback int) int {
	if p != nil {
		return *p
	}
	return fallback
}

func (s *generatorService) CreateRule(ctx context.Context, params domain.CreateRecurringRuleParams) (*domain.RecurringRule, error) {
	const op = "generator.create_rule"

	if err := validateParams(op, params); err != nil {
		return nil, err
	}
	if !validFrequency(params.Frequency) {
		return nil, domain.Errorf(domain.EINVALID, op, "unknown frequency: %s", params.Frequency)
	}
	if params.EndDate != nil && params.EndDate.Before(params.StartDate) {
		return nil, domain.Invalid(op, "end date precedes start date")
	}

	rule := &domain.RecurringRule{
		ProjectID:          params.ProjectID,
		ClientID:           params.ClientID,
		Frequency:          params.Frequency,
		DayOfWeek:          params.DayOfWeek,
		DayOfMonth:         params.DayOfMonth,
		LineItems:          append([]domain.LineItem(nil), params.LineItems...),
		StartDate:          dates.Truncate(params.StartDate),
		EndDate:            params.EndDate,
		NextGenerationDate: initialGenerationDate(params.Frequency, params.DayOfWeek, params.DayOfMonth, params.StartDate),
		IsActive:           true,
	}
	if err := s.store.CreateRecurringRule(ctx, rule); err != nil {
		return nil, domain.Internal(err, op, "failed to create recurring rule")
	}

	s.logger.Info().
		Int64("rule_id", rule.ID).
		Str("frequency", string(rule.Frequency)).
		Time("next_generation", rule.NextGenerationDate).
		Msg("recurring rule created")
	return rule, nil
}

func (s *generatorService) GetRule(ctx context.Context, id int64) (*domain.RecurringRule, error) {
	const op = "generator.get_rule"
	rule, err := s.store.GetRecurringRule(ctx, id)
	if err != nil {
		return nil, storeErr(err, op, "recurring rule", id)
	}
	return rule, nil
}

func (s *generatorService) ListRules(ctx context.Context, projectID int64) ([]domain.RecurringRule, error) {
	const op = "generator.list_rules"
	out, err := s.store.ListRecurringRules(ctx, projectID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list recurring rules")
	}
	return out, nil
}

func (s *generatorService) UpdateRule(ctx context.Context, id int64, params domain.UpdateRecurringRuleParams) (*domain.RecurringRule, error) {
	const op = "generator.update_rule"

	if err := validateParams(op, params); err != nil {
		return nil, err
	}

	rule, err := s.store.GetRecurringRule(ctx, id)
	if err != nil {
		return nil, storeErr(err, op, "recurring rule", id)
	}

	cadenceChanged := false
	if params.Frequency != nil {
		if !validFrequency(*params.Frequency) {
			return nil, domain.Errorf(domain.EINVALID, op, "unknown frequency: %s", *params.Frequency)
		}
		rule.Frequency = *params.Frequency
		cadenceChanged = true
	}
	if params.DayOfWeek != nil {
		rule.DayOfWeek = params.DayOfWeek
		cadenceChanged = true
	}
	if params.DayOfMonth != nil {
		rule.DayOfMonth = params.DayOfMonth
		cadenceChanged = true
	}
	if params.LineItems != nil {
		rule.LineItems = append([]domain.LineItem(nil), *params.LineItems...)
	}
	if params.EndDate != nil {
		rule.EndDate = params.EndDate
	}

	if cadenceChanged {
		rule.NextGenerationDate = initialGenerationDate(
			rule.Frequency, rule.DayOfWeek, rule.DayOfMonth, s.clock.Now())
	}

	if err := s.store.UpdateRecurringRule(ctx, rule); err != nil {
		return nil, storeErr(err, op, "recurring rule", id)
	}
	return rule, nil
}

func (s *generatorService) PauseRule(ctx context.Context, id int64) error {
	const op = "generator.pause_rule"

	rule, err := s.store.GetRecurringRule(ctx, id)
	if err != nil {
		return storeErr(err, op, "recurring rule", id)
	}
	if !rule.IsActive {
		return nil
	}
	rule.IsActive = false
	if err := s.store.UpdateRecurringRule(ctx, rule); err != nil {
		return storeErr(err, op, "recurring rule", id)
	}
	s.logger.Info().Int64("rule_id", id).Msg("recurring rule paused")
	return nil
}

func (s *generatorService) ResumeRule(ctx context.Context, id int64) error {
	const op = "generator.resume_rule"

	rule, err := s.store.GetRecurringRule(ctx, id)
	if err != nil {
		return storeErr(err, op, "recurring rule", id)
	}
	if rule.IsActive {
		return nil
	}

	// Recompute from today so a long pause never fires a backlog of
	// invoices for the skipped period.
	rule.IsActive = true
	rule.NextGenerationDate = initialGenerationDate(
		rule.Frequency, rule.DayOfWeek, rule.DayOfMonth, s.clock.Now())

	if err := s.store.UpdateRecurringRule(ctx, rule); err != nil {
		return storeErr(err, op, "recurring rule", id)
	}
	s.logger.Info().
		Int64("rule_id", id).
		Time("next_generation", rule.NextGenerationDate).
		Msg("recurring rule resumed")
	return nil
}

func (s *generatorService) Schedule(ctx context.Context, params domain.CreateScheduledInvoiceParams) (*domain.ScheduledInvoice, error) {
	const op = "generator.schedule"

	if err := validateParams(op, params); err != nil {
		return nil, err
	}
	if params.TriggerType != domain.TriggerDate && params.TriggerType != domain.TriggerMilestoneComplete {
		return nil, domain.Errorf(domain.EINVALID, op, "unknown trigger type: %s", params.TriggerType)
	}

	sched := &domain.ScheduledInvoice{
		ProjectID:     params.ProjectID,
		ClientID:      params.ClientID,
		ScheduledDate: dates.Truncate(params.ScheduledDate),
		TriggerType:   params.TriggerType,
		LineItems:     append([]domain.LineItem(nil), params.LineItems...),
		Status:        domain.ScheduledPending,
	}
	if err := s.store.CreateScheduledInvoice(ctx, sched); err != nil {
		return nil, domain.Internal(err, op, "failed to create scheduled invoice")
	}
	return sched, nil
}

func (s *generatorService) CancelScheduled(ctx context.Context, id int64) error {
	const op = "generator.cancel_scheduled"

	sched, err := s.store.GetScheduledInvoice(ctx, id)
	if err != nil {
		return storeErr(err, op, "scheduled invoice", id)
	}
	if sched.Status != domain.ScheduledPending {
		return domain.InvalidState(op, "only pending scheduled invoices can be cancelled")
	}

	sched.Status = domain.ScheduledCancelled
	if err := s.store.UpdateScheduledInvoice(ctx, sched); err != nil {
		return storeErr(err, op, "scheduled invoice", id)
	}
	return nil
}

func (s *generatorService) GenerateFromMilestone(ctx context.Context, scheduledID int64) (*domain.Invoice, error) {
	const op = "generator.generate_from_milestone"

	sched, err := s.store.GetScheduledInvoice(ctx, scheduledID)
	if err != nil {
		return nil, storeErr(err, op, "scheduled invoice", scheduledID)
	}
	if sched.TriggerType != domain.TriggerMilestoneComplete {
		return nil, domain.Invalid(op, "scheduled invoice is not milestone-triggered")
	}
	if sched.Status != domain.ScheduledPending {
		return nil, domain.InvalidState(op, "scheduled invoice is no longer pending")
	}

	inv, err := s.materialize(ctx, sched.ProjectID, sched.ClientID, sched.LineItems)
	if err != nil {
		return nil, err
	}

	sched.Status = domain.ScheduledGenerated
	sched.GeneratedInvoiceID = &inv.ID
	if err := s.store.UpdateScheduledInvoice(ctx, sched); err != nil {
		return nil, storeErr(err, op, "scheduled invoice", scheduledID)
	}

	if s.metrics != nil {
		s.metrics.ScheduledGenerated.Inc()
	}
	return inv, nil
}

// materialize turns a line-item template into a fresh draft invoice.
func (s *generatorService) materialize(ctx context.Context, projectID, clientID int64, items []domain.LineItem) (*domain.Invoice, error) {
	return s.invoices.Create(ctx, domain.CreateInvoiceParams{
		ProjectID: projectID,
		ClientID:  clientID,
		LineItems: append([]domain.LineItem(nil), items...),
	})
}

func (s *generatorService) ProcessRecurringInvoices(ctx context.Context) (domain.SweepResult, error) {
	const op = "generator.recurring_sweep"

	now := s.clock.Now()
	due, err := s.store.ListDueRecurringRules(ctx, dates.Truncate(now))
	if err != nil {
		return domain.SweepResult{}, domain.Internal(err, op, "failed to list due recurring rules")
	}

	var result domain.SweepResult
	for i := range due {
		rule := due[i]

		inv, err := s.materialize(ctx, rule.ProjectID, rule.ClientID, rule.LineItems)
		if err != nil {
			result.Failed++
			s.logger.Error().Err(err).Int64("rule_id", rule.ID).Msg("failed to generate recurring invoice")
			continue
		}

		generatedAt := now
		rule.LastGeneratedAt = &generatedAt
		rule.NextGenerationDate = nextGenerationDate(&rule, rule.NextGenerationDate)
		if err := s.store.UpdateRecurringRule(ctx, &rule); err != nil {
			result.Failed++
			s.logger.Error().Err(err).Int64("rule_id", rule.ID).Msg("failed to advance recurring rule")
			continue
		}

		result.Processed++
		s.logger.Info().
			Int64("rule_id", rule.ID).
			Int64("invoice_id", inv.ID).
			Time("next_generation", rule.NextGenerationDate).
			Msg("recurring invoice generated")
		if s.metrics != nil {
			s.metrics.RecurringGenerated.Inc()
		}
	}
	return result, nil
}

func (s *generatorService) ProcessScheduledInvoices(ctx context.Context) (domain.SweepResult, error) {
	const op = "generator.scheduled_sweep"

	due, err := s.store.ListDueScheduledInvoices(ctx, dates.Truncate(s.clock.Now()))
	if err != nil {
		return domain.SweepResult{}, domain.Internal(err, op, "failed to list due scheduled invoices")
	}

	var result domain.SweepResult
	for i := range due {
		sched := due[i]

		inv, err := s.materialize(ctx, sched.ProjectID, sched.ClientID, sched.LineItems)
		if err != nil {
			result.Failed++
			s.logger.Error().Err(err).Int64("scheduled_id", sched.ID).Msg("failed to generate scheduled invoice")
			continue
		}

		sched.Status = domain.ScheduledGenerated
		sched.GeneratedInvoiceID = &inv.ID
		if err := s.store.UpdateScheduledInvoice(ctx, &sched); err != nil {
			result.Failed++
			s.logger.Error().Err(err).Int64("scheduled_id", sched.ID).Msg("failed to finalize scheduled invoice")
			continue
		}

		result.Processed++
		if s.metrics != nil {
			s.metrics.ScheduledGenerated.Inc()
		}
	}
	return result, nil
}
