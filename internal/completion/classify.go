package completion

import (
	"context"
	"errors"
	"net"
	"syscall"
	"time"

	"github.com/tjfontaine/polyglot-chatbot/internal/domain"
)

// classify maps a backend failure onto the error taxonomy. ctx is the
// bounded context the call ran under; once its deadline has passed every
// failure is reported as a timeout, whatever layer noticed it first.
func classify(ctx context.Context, err error, endpoint string, timeout time.Duration) *domain.Error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.ErrTimeout(timeout.Seconds()).WithEndpoint(endpoint).WithCause(err)
	}

	if derr, ok := domain.AsError(err); ok {
		return derr
	}

	if errors.Is(err, context.Canceled) {
		return domain.ErrUnknown("request cancelled").WithEndpoint(endpoint).WithCause(err)
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return domain.ErrTimeout(timeout.Seconds()).WithEndpoint(endpoint).WithCause(err)
	}

	if isUnreachable(err) {
		return domain.ErrConnection(endpoint).WithCause(err)
	}

	return domain.ErrUnknown(err.Error()).WithEndpoint(endpoint).WithCause(err)
}

func isUnreachable(err error) bool {
	switch {
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, syscall.ENETUNREACH):
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
