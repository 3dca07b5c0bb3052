package replacement_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niaga-platform/service-replacement/internal/domain/replacement"
)

func completedOrder(completedAt time.Time) *replacement.Order {
	return &replacement.Order{
		ID:          42,
		Status:      replacement.StatusCompleted,
		CompletedAt: &completedAt,
		Total:       decimal.NewFromInt(300),
		CustomerID:  7,
		Items: []replacement.LineItem{
			{ID: 11, Name: "Batik shirt", Total: decimal.NewFromInt(300), Quantity: 3},
		},
	}
}

func TestChecker_NotCompletedNeverEligible(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	checker := replacement.NewChecker(0)

	for _, status := range []string{"pending", "processing", "on-hold", "cancelled", "refunded", ""} {
		order := completedOrder(now.Add(-time.Hour))
		order.Status = status

		for _, scope := range []replacement.Scope{replacement.WholeOrder(), replacement.ItemScope(11)} {
			got := checker.Check(order, scope, replacement.SubmittedFlags{}, now)
			assert.Equal(t, replacement.NotCompleted, got, "status %q scope %s", status, scope)
		}

		order.CompletedAt = nil
		assert.Equal(t, replacement.NotCompleted, checker.Check(order, replacement.WholeOrder(), replacement.SubmittedFlags{Order: true}, now))
	}
}

func TestChecker_WindowBoundary(t *testing.T) {
	completedAt := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
	checker := replacement.NewChecker(replacement.DefaultWindow)
	order := completedOrder(completedAt)

	atBoundary := completedAt.Add(604800 * time.Second)
	assert.Equal(t, replacement.Eligible, checker.Check(order, replacement.WholeOrder(), replacement.SubmittedFlags{}, atBoundary))

	oneSecondLate := atBoundary.Add(time.Second)
	assert.Equal(t, replacement.WindowExpired, checker.Check(order, replacement.WholeOrder(), replacement.SubmittedFlags{}, oneSecondLate))

	deadline, ok := checker.Deadline(order)
	require.True(t, ok)
	assert.True(t, deadline.Equal(atBoundary))
}

func TestChecker_MissingCompletionDate(t *testing.T) {
	order := completedOrder(time.Now())
	order.CompletedAt = nil

	got := replacement.NewChecker(0).Check(order, replacement.ItemScope(11), replacement.SubmittedFlags{}, time.Now())
	assert.Equal(t, replacement.WindowExpired, got)

	_, ok := replacement.NewChecker(0).Deadline(order)
	assert.False(t, ok)
}

func TestChecker_SubmittedFlags(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	order := completedOrder(now.Add(-24 * time.Hour))
	checker := replacement.NewChecker(0)

	t.Run("scope flag blocks only that scope", func(t *testing.T) {
		flags := replacement.SubmittedFlags{Scopes: map[string]bool{"11": true}}
		assert.Equal(t, replacement.AlreadySubmitted, checker.Check(order, replacement.ItemScope(11), flags, now))
		assert.Equal(t, replacement.Eligible, checker.Check(order, replacement.ItemScope(12), flags, now))
	})

	t.Run("order-wide flag blocks every scope", func(t *testing.T) {
		flags := replacement.SubmittedFlags{Order: true}
		assert.Equal(t, replacement.AlreadySubmitted, checker.Check(order, replacement.ItemScope(11), flags, now))
		assert.Equal(t, replacement.AlreadySubmitted, checker.Check(order, replacement.WholeOrder(), flags, now))
		assert.True(t, flags.Any())
	})

	t.Run("expiry wins over submitted", func(t *testing.T) {
		flags := replacement.SubmittedFlags{Order: true}
		assert.Equal(t, replacement.WindowExpired, checker.Check(order, replacement.WholeOrder(), flags, now.Add(8*24*time.Hour)))
	})

	assert.False(t, replacement.SubmittedFlags{Scopes: map[string]bool{"11": false}}.Any())
}

func TestEligibility_Code(t *testing.T) {
	assert.Equal(t, replacement.ErrorCode(""), replacement.Eligible.Code())
	assert.Equal(t, replacement.CodeOrderNotCompleted, replacement.NotCompleted.Code())
	assert.Equal(t, replacement.CodeWindowExpired, replacement.WindowExpired.Code())
	assert.Equal(t, replacement.CodeAlreadySubmitted, replacement.AlreadySubmitted.Code())
	assert.Equal(t, "window_expired", replacement.WindowExpired.String())
}
