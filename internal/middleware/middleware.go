package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// Doer is the subset of *fasthttp.Client the API client depends on.
type Doer interface {
	Do(req *fasthttp.Request, resp *fasthttp.Response) error
	DoDeadline(req *fasthttp.Request, resp *fasthttp.Response, deadline time.Time) error
}

// RequestID logs the start and completion of every outgoing request under a
// generated request_id so the lines of one call can be correlated. Nothing is
// added to the request itself. Only the path is logged; the query carries the
// API key.
func RequestID(logger zerolog.Logger) func(Doer) Doer {
	return func(next Doer) Doer {
		return &requestLogger{next: next, logger: logger}
	}
}

type requestLogger struct {
	next   Doer
	logger zerolog.Logger
}

func (d *requestLogger) Do(req *fasthttp.Request, resp *fasthttp.Response) error {
	return d.observe(req, resp, func() error {
		return d.next.Do(req, resp)
	})
}

func (d *requestLogger) DoDeadline(req *fasthttp.Request, resp *fasthttp.Response, deadline time.Time) error {
	return d.observe(req, resp, func() error {
		return d.next.DoDeadline(req, resp, deadline)
	})
}

func (d *requestLogger) observe(req *fasthttp.Request, resp *fasthttp.Response, do func() error) error {
	start := time.Now()

	loggerWithID := d.logger.With().Str("request_id", uuid.NewString()).Logger()
	method := string(req.Header.Method())
	path := string(req.URI().Path())

	loggerWithID.Debug().
		Str("method", method).
		Str("path", path).
		Msg("request started")

	err := do()

	duration := time.Since(start)
	if err != nil {
		loggerWithID.Debug().
			Err(err).
			Str("method", method).
			Str("path", path).
			Dur("duration", duration).
			Msg("request failed")
		return err
	}

	loggerWithID.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode()).
		Int64("duration_ms", duration.Milliseconds()).
		Dur("duration", duration).
		Msg("request completed")

	return nil
}
