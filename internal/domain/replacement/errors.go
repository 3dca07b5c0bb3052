// Package replacement provides domain types for customer replacement requests.
package replacement

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard domain errors.
var (
	ErrOrderNotCompleted       = errors.New("order is not completed")
	ErrWindowExpired           = errors.New("replacement request period has expired")
	ErrAlreadySubmitted        = errors.New("replacement request already submitted")
	ErrOrderNotFound           = errors.New("order not found")
	ErrRefundPluginUnavailable = errors.New("refund system unavailable")
	ErrRefundSaveFailed        = errors.New("failed to save refund request")
	ErrItemNotFound            = errors.New("order item not found")
	ErrInvalidQuantity         = errors.New("invalid replacement quantity")
	ErrInvalidScope            = errors.New("invalid replacement scope")
	ErrMessageTooLong          = errors.New("replacement message too long")
)

// ErrorCode identifies a replacement request failure.
type ErrorCode string

const (
	CodeOrderNotCompleted       ErrorCode = "order_not_completed"
	CodeWindowExpired           ErrorCode = "window_expired"
	CodeAlreadySubmitted        ErrorCode = "already_submitted"
	CodeOrderNotFound           ErrorCode = "order_not_found"
	CodeRefundPluginUnavailable ErrorCode = "refund_plugin_unavailable"
	CodeRefundSaveFailed        ErrorCode = "refund_save_failed"
	CodeItemNotFound            ErrorCode = "item_not_found"
	CodeInvalidQuantity         ErrorCode = "invalid_quantity"
	CodeInvalidScope            ErrorCode = "invalid_scope"
	CodeMessageTooLong          ErrorCode = "message_too_long"
	CodeInternal                ErrorCode = "internal_error"
)

var codeErrors = map[ErrorCode]error{
	CodeOrderNotCompleted:       ErrOrderNotCompleted,
	CodeWindowExpired:           ErrWindowExpired,
	CodeAlreadySubmitted:        ErrAlreadySubmitted,
	CodeOrderNotFound:           ErrOrderNotFound,
	CodeRefundPluginUnavailable: ErrRefundPluginUnavailable,
	CodeRefundSaveFailed:        ErrRefundSaveFailed,
	CodeItemNotFound:            ErrItemNotFound,
	CodeInvalidQuantity:         ErrInvalidQuantity,
	CodeInvalidScope:            ErrInvalidScope,
	CodeMessageTooLong:          ErrMessageTooLong,
}

// String returns the string representation of the error code.
func (c ErrorCode) String() string {
	return string(c)
}

// Notice returns the customer-facing message for the code.
func (c ErrorCode) Notice() string {
	switch c {
	case CodeOrderNotCompleted:
		return "Only completed orders are eligible for a replacement request."
	case CodeWindowExpired:
		return "The replacement request period has expired."
	case CodeAlreadySubmitted:
		return "A replacement request has already been submitted for this order."
	case CodeOrderNotFound:
		return "Order not found."
	case CodeRefundPluginUnavailable, CodeRefundSaveFailed:
		return "Your replacement request has been submitted, but there was an issue creating the refund request."
	case CodeItemNotFound:
		return "The selected item does not belong to this order."
	case CodeInvalidQuantity:
		return "Please choose a valid quantity to replace."
	case CodeInvalidScope:
		return "Invalid replacement request."
	case CodeMessageTooLong:
		return "Your replacement message is too long."
	default:
		return "Something went wrong while submitting your replacement request."
	}
}

// HTTPStatus maps the code onto a response status for the JSON API.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case CodeOrderNotFound, CodeItemNotFound:
		return http.StatusNotFound
	case CodeAlreadySubmitted:
		return http.StatusConflict
	case CodeOrderNotCompleted, CodeWindowExpired:
		return http.StatusUnprocessableEntity
	case CodeInvalidQuantity, CodeInvalidScope, CodeMessageTooLong:
		return http.StatusBadRequest
	case CodeRefundPluginUnavailable, CodeRefundSaveFailed:
		return http.StatusAccepted
	default:
		return http.StatusInternalServerError
	}
}

// RequestError is a classified failure for a single (order, scope) pair.
type RequestError struct {
	Code    ErrorCode
	OrderID int64
	Scope   Scope
	Err     error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	msg := fmt.Sprintf("replacement [%s]: order %d scope %s", e.Code, e.OrderID, e.Scope)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for RequestError.
func (e *RequestError) Is(target error) bool {
	sentinel, ok := codeErrors[e.Code]
	return ok && sentinel == target
}

// NewRequestError creates a new RequestError.
func NewRequestError(code ErrorCode, orderID int64, scope Scope, err error) *RequestError {
	return &RequestError{Code: code, OrderID: orderID, Scope: scope, Err: err}
}

// CodeOf classifies err. Unknown errors map to CodeInternal.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Code
	}
	for code, sentinel := range codeErrors {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return CodeInternal
}
