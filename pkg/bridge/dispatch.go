// ABOUTME: Drives synthetic requests through the host's real invocation pipeline.
// ABOUTME: Captures status/body/content-type and normalizes every failure into a result.

package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/kaladinstorm84/SwaggerMCP/pkg/host"
	"github.com/kaladinstorm84/SwaggerMCP/pkg/identity"
	"github.com/kaladinstorm84/SwaggerMCP/pkg/registry"
)

// Client closed request, per the nginx convention.
const statusClientClosedRequest = 499

// Result is the outcome of one synthetic invocation.
type Result struct {
	Success     bool
	Status      int
	Body        string
	ContentType string
}

// Config holds construction parameters for a Dispatcher.
type Config struct {
	App    *host.App
	Logger *slog.Logger

	// CallTimeout bounds one dispatch; zero means no bound beyond the
	// caller's context.
	CallTimeout time.Duration

	// ForwardHeaders is the allow-list of header names copied from the
	// originating request into the synthetic one.
	ForwardHeaders []string
}

// Dispatcher executes tool invocations against the host application. Each
// call runs in its own execution scope through the operation's genuine
// pipeline, so the host's filters, validation, and authorization execute
// exactly as for a real request.
type Dispatcher struct {
	app     *host.App
	logger  *slog.Logger
	timeout time.Duration
	forward []string
}

// NewDispatcher creates a Dispatcher over the host application.
func NewDispatcher(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		app:     cfg.App,
		logger:  logger,
		timeout: cfg.CallTimeout,
		forward: cfg.ForwardHeaders,
	}
}

// Dispatch runs one tool invocation end-to-end: open a scope, build the
// synthetic request, drive it through the host pipeline, capture the
// response, close the scope. Failures of any kind come back as a Result,
// never as a panic or error.
func (d *Dispatcher) Dispatch(ctx context.Context, tool *registry.Tool, args Args, origin *http.Request) Result {
	scope := NewScope()
	defer scope.Close()

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	ident := identity.FromContext(ctx)
	req, err := NewRequest(ctx, tool, args, scope, ident, origin, d.forward)
	if err != nil {
		return Result{
			Success:     false,
			Status:      http.StatusBadRequest,
			Body:        err.Error(),
			ContentType: "text/plain",
		}
	}

	rec := newRecorder()
	if panicked, msg := d.invoke(rec, req, tool.Operation); panicked {
		d.logger.Error("host pipeline panic",
			"tool", tool.Name,
			"correlation_id", host.CorrelationID(ctx),
			"panic", msg,
		)
		return Result{
			Success:     false,
			Status:      http.StatusInternalServerError,
			Body:        msg,
			ContentType: "text/plain",
		}
	}

	// A cancelled call discards any partial response.
	if ctxErr := ctx.Err(); ctxErr != nil {
		status := statusClientClosedRequest
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		return Result{
			Success:     false,
			Status:      status,
			Body:        ctxErr.Error(),
			ContentType: "text/plain",
		}
	}

	return Result{
		Success:     rec.status >= 200 && rec.status <= 299,
		Status:      rec.status,
		Body:        rec.body.String(),
		ContentType: rec.Header().Get("Content-Type"),
	}
}

// invoke runs the pipeline, converting any panic that escapes the host's
// own recovery into a captured message.
func (d *Dispatcher) invoke(rec *recorder, req *http.Request, op *host.Operation) (panicked bool, msg string) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			msg = fmt.Sprintf("unhandled error in host pipeline: %v", r)
		}
	}()
	d.app.Invoke(rec, req, op)
	return false, ""
}
