package replacement_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niaga-platform/service-replacement/internal/domain/replacement"
)

func TestLineItem_RefundAmount(t *testing.T) {
	tests := []struct {
		name  string
		total string
		qty   int
		req   int
		want  string
	}{
		{"two of three", "300", 3, 2, "200"},
		{"all units", "300", 3, 3, "300"},
		{"single unit", "49.90", 1, 1, "49.9"},
		{"fractional unit price", "100", 3, 3, "100"},
		{"cents", "59.97", 3, 2, "39.98"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := replacement.LineItem{ID: 1, Total: decimal.RequireFromString(tt.total), Quantity: tt.qty}
			got := item.RefundAmount(tt.req)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestLineItem_UnitPrice(t *testing.T) {
	item := replacement.LineItem{Total: decimal.NewFromInt(300), Quantity: 3}
	assert.True(t, item.UnitPrice().Equal(decimal.NewFromInt(100)))

	zero := replacement.LineItem{Total: decimal.NewFromInt(50)}
	assert.True(t, zero.UnitPrice().Equal(decimal.NewFromInt(50)))
}

func TestParseScope(t *testing.T) {
	for _, raw := range []string{"", "whole", "0"} {
		scope, err := replacement.ParseScope(raw)
		require.NoError(t, err)
		assert.True(t, scope.IsWhole(), raw)
		assert.Equal(t, "whole", scope.String())
	}

	scope, err := replacement.ParseScope("123")
	require.NoError(t, err)
	assert.Equal(t, int64(123), scope.ItemID)
	assert.Equal(t, "123", scope.String())

	for _, raw := range []string{"abc", "-4", "1.5"} {
		_, err := replacement.ParseScope(raw)
		assert.ErrorIs(t, err, replacement.ErrInvalidScope, raw)
	}
}

func TestOrder_JSON(t *testing.T) {
	payload := `{"id":5,"status":"completed","date_completed":"2026-03-01T10:00:00Z","total":"300.00","customer_id":9,
		"items":[{"id":77,"name":"Sarong","total":150.5,"quantity":2}]}`

	var order replacement.Order
	require.NoError(t, json.Unmarshal([]byte(payload), &order))

	assert.Equal(t, int64(5), order.ID)
	require.NotNil(t, order.CompletedAt)
	assert.True(t, order.Total.Equal(decimal.NewFromInt(300)))

	item, ok := order.Item(77)
	require.True(t, ok)
	assert.True(t, item.Total.Equal(decimal.RequireFromString("150.5")))

	_, ok = order.Item(78)
	assert.False(t, ok)
	assert.Equal(t, "5", order.DisplayNumber())
}

func TestRequestError(t *testing.T) {
	err := replacement.NewRequestError(replacement.CodeWindowExpired, 10, replacement.ItemScope(3), nil)
	wrapped := fmt.Errorf("submit: %w", err)

	assert.ErrorIs(t, wrapped, replacement.ErrWindowExpired)
	assert.NotErrorIs(t, wrapped, replacement.ErrAlreadySubmitted)
	assert.Equal(t, replacement.CodeWindowExpired, replacement.CodeOf(wrapped))
	assert.Contains(t, err.Error(), "scope 3")

	assert.Equal(t, replacement.CodeRefundSaveFailed, replacement.CodeOf(fmt.Errorf("x: %w", replacement.ErrRefundSaveFailed)))
	assert.Equal(t, replacement.CodeInternal, replacement.CodeOf(errors.New("boom")))
	assert.Equal(t, replacement.ErrorCode(""), replacement.CodeOf(nil))

	assert.Equal(t, 409, replacement.CodeAlreadySubmitted.HTTPStatus())
	assert.Equal(t, 404, replacement.CodeOrderNotFound.HTTPStatus())
	assert.NotEmpty(t, replacement.CodeWindowExpired.Notice())
}

func TestSanitizeMessage(t *testing.T) {
	in := "  <b>Wrong size</b>\r\nplease   send <script>x</script>L\x00 \n\n"
	assert.Equal(t, "Wrong size\nplease send xL", replacement.SanitizeMessage(in))
	assert.Equal(t, "", replacement.SanitizeMessage("<p></p>"))
}

func TestMessageHTML(t *testing.T) {
	assert.Equal(t, "a &lt;b&gt; &amp; c<br>\nd", replacement.MessageHTML("a <b> & c\nd"))
}

func TestMetaKeys(t *testing.T) {
	submitted, message, quantity := replacement.MetaKeys(replacement.ItemScope(15))
	assert.Equal(t, "_replacement_request_submitted_15", submitted)
	assert.Equal(t, "_replacement_request_message_15", message)
	assert.Equal(t, "_replacement_request_quantity_15", quantity)

	submitted, _, _ = replacement.MetaKeys(replacement.WholeOrder())
	assert.Equal(t, "_replacement_request_submitted_whole", submitted)
}
