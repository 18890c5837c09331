// Package delivery sends a reply or notification through the first available
// of several independently configured channels.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"folio/internal/model"
)

type Method string

const (
	MethodDemo      Method = "demo"
	MethodWeb3Forms Method = "web3forms"
	MethodEmailJS   Method = "emailjs"
	MethodGmail     Method = "gmail"
	MethodClient    Method = "client"
)

// ErrAllFailed is reported when every channel, the mail client included, failed.
var ErrAllFailed = errors.New("all delivery methods failed")

// Outcome is what a channel reports on success.
type Outcome struct {
	// Partial marks a hand-off to the user's mail client rather than a delivery.
	Partial  bool
	Message  string
	Link     string
	Response string
}

// Channel is one way of getting a message out.
type Channel interface {
	Method() Method
	// Configured is a pure check over the channel's credentials.
	Configured() bool
	Attempt(ctx context.Context, req model.ReplyRequest) (Outcome, error)
}

// Result is returned to the caller of Send. Err carries every channel error
// for logging; Error is the text meant for users.
type Result struct {
	Success  bool   `json:"success"`
	Method   Method `json:"method,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
	Link     string `json:"link,omitempty"`
	Response string `json:"-"`
	Err      error  `json:"-"`
}

// Delivered reports whether the message actually left, as opposed to being
// handed to the mail client.
func (r Result) Delivered() bool { return r.Success && r.Method != MethodClient }

type Chain struct {
	channels  []Channel
	demo      bool
	demoDelay time.Duration
	timeout   time.Duration
	log       *zap.Logger
}

type Option func(*Chain)

// WithDemo replaces every channel with a simulated send that succeeds after delay.
func WithDemo(enabled bool, delay time.Duration) Option {
	return func(c *Chain) {
		c.demo = enabled
		c.demoDelay = delay
	}
}

// WithAttemptTimeout bounds each remote attempt.
func WithAttemptTimeout(d time.Duration) Option {
	return func(c *Chain) { c.timeout = d }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Chain) {
		if log != nil {
			c.log = log
		}
	}
}

// NewChain tries channels in the given order. The mail client, if used,
// belongs last.
func NewChain(channels []Channel, opts ...Option) *Chain {
	c := &Chain{
		channels:  append([]Channel(nil), channels...),
		demoDelay: 2 * time.Second,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Methods lists the configured channels in attempt order.
func (c *Chain) Methods() []Method {
	if c.demo {
		return []Method{MethodDemo}
	}
	var out []Method
	for _, ch := range c.channels {
		if ch.Configured() {
			out = append(out, ch.Method())
		}
	}
	return out
}

// Send returns the first channel success. Unconfigured channels are skipped,
// failing ones fall through to the next; nothing is retried.
func (c *Chain) Send(ctx context.Context, req model.ReplyRequest) Result {
	log := c.log.With(zap.String("to", req.To), zap.String("subject", req.Subject))
	log.Info("starting delivery", zap.Bool("demo", c.demo), zap.Int("channels", len(c.channels)))

	if c.demo {
		return c.sendDemo(ctx, req, log)
	}

	var errs error
	for _, ch := range c.channels {
		m := ch.Method()
		if !ch.Configured() {
			log.Debug("channel not configured; not attempted", zap.String("method", string(m)))
			continue
		}

		out, err := c.attempt(ctx, ch, req)
		if err != nil {
			log.Warn("delivery channel failed", zap.String("method", string(m)), zap.Error(err), zap.String("response", out.Response))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", m, err))
			continue
		}

		log.Info("delivery channel succeeded", zap.String("method", string(m)), zap.Bool("partial", out.Partial), zap.String("response", out.Response))
		return Result{
			Success:  true,
			Method:   m,
			Message:  out.Message,
			Link:     out.Link,
			Response: out.Response,
		}
	}

	log.Error("all delivery methods failed", zap.Error(errs))
	return Result{Success: false, Error: ErrAllFailed.Error(), Err: multierr.Append(ErrAllFailed, errs)}
}

func (c *Chain) attempt(ctx context.Context, ch Channel, req model.ReplyRequest) (Outcome, error) {
	if c.timeout > 0 && ch.Method() != MethodClient {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return ch.Attempt(ctx, req)
}

func (c *Chain) sendDemo(ctx context.Context, req model.ReplyRequest, log *zap.Logger) Result {
	t := time.NewTimer(c.demoDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return Result{Success: false, Error: ctx.Err().Error(), Err: ctx.Err()}
	case <-t.C:
	}
	log.Info("demo email sent",
		zap.String("from", req.FromEmail),
		zap.String("message", req.Message),
	)
	return Result{
		Success: true,
		Method:  MethodDemo,
		Message: "Demo email sent successfully! Check the log for details.",
	}
}
