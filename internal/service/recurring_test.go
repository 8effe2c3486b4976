package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclerk/backoffice/internal/domain"
)

func TestCreateRule(t *testing.T) {
	ctx := context.Background()
	now := day(2024, time.June, 3) // a Monday

	t.Run("weekly lands on the requested weekday", func(t *testing.T) {
		f := newFixture(t, now)
		rule, err := f.svc.Generator.CreateRule(ctx, domain.CreateRecurringRuleParams{
			ProjectID: 1, ClientID: 2,
			Frequency: domain.FrequencyWeekly,
			DayOfWeek: ptr(int(time.Friday)),
			LineItems: singleItem(150),
			StartDate: now,
		})
		require.NoError(t, err)
		assert.Equal(t, day(2024, time.June, 7), rule.NextGenerationDate)
		assert.True(t, rule.IsActive)
	})

	t.Run("monthly picks the day of month", func(t *testing.T) {
		f := newFixture(t, now)
		rule, err := f.svc.Generator.CreateRule(ctx, domain.CreateRecurringRuleParams{
			ProjectID: 1, ClientID: 2,
			Frequency:  domain.FrequencyMonthly,
			DayOfMonth: ptr(1),
			LineItems:  singleItem(150),
			StartDate:  now,
		})
		require.NoError(t, err)
		// June 1 already passed, so the first occurrence is July 1.
		assert.Equal(t, day(2024, time.July, 1), rule.NextGenerationDate)
	})

	t.Run("rejects unknown frequency", func(t *testing.T) {
		f := newFixture(t, now)
		_, err := f.svc.Generator.CreateRule(ctx, domain.CreateRecurringRuleParams{
			ProjectID: 1, ClientID: 2,
			Frequency: "fortnightly",
			LineItems: singleItem(150),
			StartDate: now,
		})
		assert.True(t, domain.IsCode(err, domain.EINVALID))
	})

	t.Run("rejects end date before start", func(t *testing.T) {
		f := newFixture(t, now)
		_, err := f.svc.Generator.CreateRule(ctx, domain.CreateRecurringRuleParams{
			ProjectID: 1, ClientID: 2,
			Frequency: domain.FrequencyMonthly,
			LineItems: singleItem(150),
			StartDate: now,
			EndDate:   ptr(day(2024, time.May, 1)),
		})
		assert.True(t, domain.IsCode(err, domain.EINVALID))
	})
}

func TestProcessRecurringInvoices(t *testing.T) {
	ctx := context.Background()

	t.Run("weekly advances to the next weekday", func(t *testing.T) {
		f := newFixture(t, day(2024, time.June, 3))
		rule, err := f.svc.Generator.CreateRule(ctx, domain.CreateRecurringRuleParams{
			ProjectID: 1, ClientID: 2,
			Frequency: domain.FrequencyWeekly,
			DayOfWeek: ptr(int(time.Friday)),
			LineItems: singleItem(150),
			StartDate: day(2024, time.June, 3),
		})
		require.NoError(t, err)

		friday := f.at(day(2024, time.June, 7))
		result, err := friday.Generator.ProcessRecurringInvoices(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Processed)

		got, err := friday.Generator.GetRule(ctx, rule.ID)
		require.NoError(t, err)
		assert.Equal(t, day(2024, time.June, 14), got.NextGenerationDate)
		require.NotNil(t, got.LastGeneratedAt)

		invoices, err := friday.Invoices.List(ctx, domain.InvoiceFilter{ProjectID: ptr(int64(1))})
		require.NoError(t, err)
		require.Len(t, invoices, 1)
		assert.Equal(t, domain.StatusDraft, invoices[0].Status)
		assert.InDelta(t, 150.0, invoices[0].AmountTotal, 0.001)

		// Same-day rerun generates nothing more.
		result, err = friday.Generator.ProcessRecurringInvoices(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, result.Processed)
	})

	t.Run("monthly clamps to month length without drifting", func(t *testing.T) {
		f := newFixture(t, day(2024, time.January, 15))
		rule, err := f.svc.Generator.CreateRule(ctx, domain.CreateRecurringRuleParams{
			ProjectID: 1, ClientID: 2,
			Frequency:  domain.FrequencyMonthly,
			DayOfMonth: ptr(31),
			LineItems:  singleItem(300),
			StartDate:  day(2024, time.January, 15),
		})
		require.NoError(t, err)
		assert.Equal(t, day(2024, time.January, 31), rule.NextGenerationDate)

		jan := f.at(day(2024, time.January, 31))
		_, err = jan.Generator.ProcessRecurringInvoices(ctx)
		require.NoError(t, err)
		got, err := jan.Generator.GetRule(ctx, rule.ID)
		require.NoError(t, err)
		assert.Equal(t, day(2024, time.February, 29), got.NextGenerationDate, "leap February clamps to 29")

		feb := f.at(day(2024, time.February, 29))
		_, err = feb.Generator.ProcessRecurringInvoices(ctx)
		require.NoError(t, err)
		got, err = feb.Generator.GetRule(ctx, rule.ID)
		require.NoError(t, err)
		assert.Equal(t, day(2024, time.March, 31), got.NextGenerationDate, "March recovers the 31st")
	})

	t.Run("expired rules stop generating", func(t *testing.T) {
		f := newFixture(t, day(2024, time.June, 3))
		_, err := f.svc.Generator.CreateRule(ctx, domain.CreateRecurringRuleParams{
			ProjectID: 1, ClientID: 2,
			Frequency: domain.FrequencyWeekly,
			LineItems: singleItem(150),
			StartDate: day(2024, time.June, 3),
			EndDate:   ptr(day(2024, time.June, 30)),
		})
		require.NoError(t, err)

		july := f.at(day(2024, time.July, 8))
		result, err := july.Generator.ProcessRecurringInvoices(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, result.Processed)
	})
}

func TestPauseAndResumeRule(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, day(2024, time.June, 3))

	rule, err := f.svc.Generator.CreateRule(ctx, domain.CreateRecurringRuleParams{
		ProjectID: 1, ClientID: 2,
		Frequency: domain.FrequencyWeekly,
		DayOfWeek: ptr(int(time.Friday)),
		LineItems: singleItem(150),
		StartDate: day(2024, time.June, 3),
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Generator.PauseRule(ctx, rule.ID))

	// The pause swallows two scheduled occurrences.
	later := f.at(day(2024, time.June, 17)) // a Monday
	result, err := later.Generator.ProcessRecurringInvoices(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Processed)

	require.NoError(t, later.Generator.ResumeRule(ctx, rule.ID))

	got, err := later.Generator.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	// Resuming recomputes from today; no backlog fires.
	assert.Equal(t, day(2024, time.June, 21), got.NextGenerationDate)

	invoices, err := later.Invoices.List(ctx, domain.InvoiceFilter{ProjectID: ptr(int64(1))})
	require.NoError(t, err)
	assert.Empty(t, invoices)
}

func TestScheduledInvoices(t *testing.T) {
	ctx := context.Background()
	now := day(2024, time.June, 3)

	t.Run("date trigger fires on the scheduled day", func(t *testing.T) {
		f := newFixture(t, now)
		sched, err := f.svc.Generator.Schedule(ctx, domain.CreateScheduledInvoiceParams{
			ProjectID: 1, ClientID: 2,
			ScheduledDate: day(2024, time.June, 10),
			TriggerType:   domain.TriggerDate,
			LineItems:     singleItem(750),
		})
		require.NoError(t, err)
		assert.Equal(t, domain.ScheduledPending, sched.Status)

		early, err := f.svc.Generator.ProcessScheduledInvoices(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, early.Processed)

		later := f.at(day(2024, time.June, 10))
		result, err := later.Generator.ProcessScheduledInvoices(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Processed)

		got, err := f.store.GetScheduledInvoice(ctx, sched.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ScheduledGenerated, got.Status)
		require.NotNil(t, got.GeneratedInvoiceID)

		inv, err := later.Invoices.Get(ctx, *got.GeneratedInvoiceID)
		require.NoError(t, err)
		assert.InDelta(t, 750.0, inv.AmountTotal, 0.001)

		// Generated entries never fire twice.
		result, err = later.Generator.ProcessScheduledInvoices(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, result.Processed)
	})

	t.Run("milestone trigger fires on demand only", func(t *testing.T) {
		f := newFixture(t, now)
		sched, err := f.svc.Generator.Schedule(ctx, domain.CreateScheduledInvoiceParams{
			ProjectID: 1, ClientID: 2,
			ScheduledDate: day(2024, time.May, 1), // already past
			TriggerType:   domain.TriggerMilestoneComplete,
			LineItems:     singleItem(400),
		})
		require.NoError(t, err)

		// The date sweep ignores milestone entries even when their date is past.
		result, err := f.svc.Generator.ProcessScheduledInvoices(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, result.Processed)

		inv, err := f.svc.Generator.GenerateFromMilestone(ctx, sched.ID)
		require.NoError(t, err)
		assert.InDelta(t, 400.0, inv.AmountTotal, 0.001)

		_, err = f.svc.Generator.GenerateFromMilestone(ctx, sched.ID)
		assert.True(t, domain.IsCode(err, domain.ESTATE))
	})

	t.Run("cancel is terminal", func(t *testing.T) {
		f := newFixture(t, now)
		sched, err := f.svc.Generator.Schedule(ctx, domain.CreateScheduledInvoiceParams{
			ProjectID: 1, ClientID: 2,
			ScheduledDate: day(2024, time.June, 10),
			TriggerType:   domain.TriggerDate,
			LineItems:     singleItem(100),
		})
		require.NoError(t, err)

		require.NoError(t, f.svc.Generator.CancelScheduled(ctx, sched.ID))
		err = f.svc.Generator.CancelScheduled(ctx, sched.ID)
		assert.True(t, domain.IsCode(err, domain.ESTATE))

		later := f.at(day(2024, time.June, 10))
		result, err := later.Generator.ProcessScheduledInvoices(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, result.Processed)
	})
}
