package server

import (
	"context"
	"net/http"
	"time"
)

// requestSlack is added to the generation timeout so the completion client
// reports its own timeout_error before the request context is cancelled.
const requestSlack = 10 * time.Second

// requestDeadline is the per-request budget for a backend whose generation
// calls are bounded by generation.
func requestDeadline(generation time.Duration) time.Duration {
	return generation + requestSlack
}

// GenerationDeadline bounds each request's context by the backend generation
// timeout plus slack and records the budget in the request log. Handlers stop
// on ctx.Done(); nothing is forcibly interrupted.
func GenerationDeadline(generation time.Duration) func(http.Handler) http.Handler {
	budget := requestDeadline(generation)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), budget)
			defer cancel()
			AddLogField(ctx, "deadline", budget.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
