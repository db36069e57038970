package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"
	"github.com/mmynk/fairshare/internal/calculator"
	"github.com/mmynk/fairshare/internal/ledger"
)

// codeOf maps ledger error classes onto Connect codes.
func codeOf(err error) connect.Code {
	switch {
	case errors.Is(err, ledger.ErrNoCaller):
		return connect.CodeUnauthenticated
	case errors.Is(err, ledger.ErrNotFound):
		return connect.CodeNotFound
	case errors.Is(err, ledger.ErrValidation):
		return connect.CodeInvalidArgument
	case errors.Is(err, ledger.ErrUnauthorized):
		return connect.CodePermissionDenied
	case errors.Is(err, ledger.ErrStateConflict):
		return connect.CodeFailedPrecondition
	case errors.Is(err, calculator.ErrPrecisionCeiling):
		return connect.CodeOutOfRange
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded
	default:
		return connect.CodeInternal
	}
}

// fail logs err under op and converts it to a Connect error.
func fail(op string, err error, attrs ...any) error {
	code := codeOf(err)
	attrs = append(attrs, "error", err)
	if code == connect.CodeInternal {
		slog.Error(op+" failed", attrs...)
	} else {
		slog.Warn(op+" rejected", append(attrs, "code", code)...)
	}
	return connect.NewError(code, err)
}
