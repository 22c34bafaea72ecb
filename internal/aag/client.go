package aag

import (
	"log/slog"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/sweeney/dome-weather/internal/metrics"
	"github.com/sweeney/dome-weather/internal/port"
)

// Timing defaults from the device manual and field experience.
const (
	DefaultSendDelay   = 100 * time.Millisecond
	DefaultQueryDelay  = 200 * time.Millisecond
	DefaultHibernate   = 500 * time.Millisecond
	DefaultMaxAttempts = 5

	// maxResponse bounds a single read so a chattering line cannot stall a cycle.
	maxResponse = 4096
)

// The device appends a handshake block: XON followed by 12 spaces and '0'.
var handshake = regexp.MustCompile(`^(!.*)\x11\s{12}0`)

// Client executes commands on an exclusively owned serial line.
// Not safe for concurrent use: exchanges are strictly request, wait, read.
type Client struct {
	port      port.Port
	hibernate time.Duration
	sleep     func(time.Duration)
}

// Option configures a Client.
type Option func(*Client)

// WithSleep replaces time.Sleep, for tests.
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Client) { c.sleep = sleep }
}

// WithHibernate sets the pause after a failed attempt.
func WithHibernate(d time.Duration) Option {
	return func(c *Client) { c.hibernate = d }
}

// NewClient creates a client that owns p.
func NewClient(p port.Port, opts ...Option) *Client {
	c := &Client{
		port:      p,
		hibernate: DefaultHibernate,
		sleep:     time.Sleep,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Close releases the serial line.
func (c *Client) Close() error {
	return c.port.Close()
}

// Send discards unread input, writes wire, waits delay and returns whatever
// arrived. I/O and decode failures are logged and yield "".
func (c *Client) Send(wire string, delay time.Duration) string {
	if err := c.port.ResetInputBuffer(); err != nil {
		slog.Debug("aag: clear input buffer", "error", err)
	}

	if _, err := c.port.Write([]byte(wire)); err != nil {
		slog.Debug("aag: write failed", "cmd", wire, "error", err)
		return ""
	}
	c.sleep(delay)

	raw := c.readAvailable()
	if !utf8.Valid(raw) {
		slog.Debug("aag: error reading from serial line", "cmd", wire, "bytes", len(raw))
		return ""
	}
	resp := string(raw)
	slog.Debug("aag: response", "cmd", wire, "response", resp)

	if m := handshake.FindStringSubmatch(resp); m != nil {
		return m[1]
	}
	return resp
}

func (c *Client) readAvailable() []byte {
	var out []byte
	buf := make([]byte, 256)
	for len(out) < maxResponse {
		n, err := c.port.Read(buf)
		out = append(out, buf[:n]...)
		if err != nil {
			slog.Debug("aag: read failed", "error", err)
			break
		}
		if n == 0 {
			break
		}
	}
	return out
}

// Query sends a table command until its expected pattern matches, up to
// maxAttempts times, and returns the captured groups. It returns nil when
// every attempt failed or the command is not in the table.
func (c *Client) Query(id CommandID, maxAttempts int) []string {
	return c.QueryArg(id, 0, maxAttempts)
}

// QueryArg is Query for parameterized commands.
func (c *Client) QueryArg(id CommandID, arg, maxAttempts int) []string {
	cmd, ok := Lookup(id)
	if !ok {
		slog.Warn("aag: unknown command", "cmd", string(id))
		return nil
	}
	return c.query(cmd, arg, maxAttempts)
}

func (c *Client) query(cmd Command, arg, maxAttempts int) []string {
	delay := cmd.Delay
	if delay == 0 {
		delay = DefaultQueryDelay
	}
	wire := cmd.Encode(arg)
	slog.Debug("aag: sending command", "cmd", wire, "description", cmd.Description)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp := c.Send(wire, delay)
		if m := cmd.Expect.FindStringSubmatch(resp); m != nil {
			metrics.QueryAttempts.WithLabelValues(string(cmd.ID), "ok").Inc()
			return m[1:]
		}
		metrics.QueryAttempts.WithLabelValues(string(cmd.ID), "mismatch").Inc()
		slog.Debug("aag: unexpected response", "cmd", wire, "expect", cmd.Expect.String(), "response", resp, "attempt", attempt)
		c.sleep(c.hibernate)
	}

	metrics.QueryFailures.WithLabelValues(string(cmd.ID)).Inc()
	slog.Debug("aag: query failed", "cmd", wire, "attempts", maxAttempts)
	return nil
}

// Raw resolves a wire string typed by an operator and queries it once per
// attempt. Unknown strings return nil without touching the line.
func (c *Client) Raw(wire string, maxAttempts int) []string {
	cmd, arg, ok := ParseWire(wire)
	if !ok {
		slog.Warn("aag: unknown command", "cmd", wire)
		return nil
	}
	return c.query(cmd, arg, maxAttempts)
}
