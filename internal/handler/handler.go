package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"

	"github.com/Nao-Mk2/sfn-executions-today/internal/aggregator"
	"github.com/Nao-Mk2/sfn-executions-today/internal/response"
	"github.com/Nao-Mk2/sfn-executions-today/internal/window"
)

// Aggregator is what the handler needs from aggregator.Aggregator.
type Aggregator interface {
	Aggregate(ctx context.Context, w window.Window) aggregator.Result
}

// Handler answers one invocation with today's executions.
type Handler struct {
	agg         Aggregator
	offsetHours int
	multi       bool
	now         func() time.Time
	logger      *slog.Logger
}

// New creates a Handler. multi selects the per machine body shape.
func New(agg Aggregator, offsetHours int, multi bool, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{agg: agg, offsetHours: offsetHours, multi: multi, now: time.Now, logger: logger}
}

// SetClock overrides the time source.
func (h *Handler) SetClock(now func() time.Time) {
	h.now = now
}

// Handle ignores the event payload. Errors and panics escaping aggregation
// are returned as a 500 envelope, never as a Go error.
func (h *Handler) Handle(ctx context.Context, _ json.RawMessage) (env response.Envelope, _ error) {
	logger := h.logger
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		logger = logger.With("invocation_id", lc.AwsRequestID)
	}
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%v", r)
			logger.ErrorContext(ctx, "invocation panicked", "error", err)
			env = response.Failure(err)
		}
	}()

	env, err := h.run(ctx, logger)
	if err != nil {
		logger.ErrorContext(ctx, "invocation failed", "error", err)
		return response.Failure(err), nil
	}
	return env, nil
}

func (h *Handler) run(ctx context.Context, logger *slog.Logger) (response.Envelope, error) {
	w := window.ComputeToday(h.offsetHours, h.now())
	logger.InfoContext(ctx, "collecting executions", "date", w.Date(), "start", w.Start, "end", w.End)

	res := h.agg.Aggregate(ctx, w)
	logger.InfoContext(ctx, "collected executions", "date", res.Date, "total", res.Total(), "machines", len(res.Groups))

	return response.Success(res, h.multi)
}
