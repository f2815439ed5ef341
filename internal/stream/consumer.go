// Package stream consumes the agent backend's multiplexed WebSocket event
// stream and feeds normalized events to the engine.
//
// All frames funnel through one buffered channel drained by a single
// processing goroutine, so events for the same session are always applied in
// arrival order regardless of reconnects.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/multi-agent/chatstream/internal/events"
	"github.com/multi-agent/chatstream/pkg/logger"
	"github.com/multi-agent/chatstream/pkg/util"
)

const (
	reconnectBaseDelay = 500 * time.Millisecond
	reconnectMaxDelay  = 10 * time.Second
	handshakeTimeout   = 5 * time.Second
)

// Applier receives normalized events in arrival order.
type Applier interface {
	Apply(ev events.Event)
}

// Recorder persists selected events. Persistence is best-effort: a failed
// write is logged and never stalls the stream.
type Recorder interface {
	Record(ctx context.Context, ev events.Event) error
}

// Options tunes the consumer.
type Options struct {
	MaxRetries      int
	QueueSize       int
	ReadIdleTimeout time.Duration
	PingInterval    time.Duration
}

// Consumer owns the WebSocket connection to the agent backend.
type Consumer struct {
	id       string
	url      string
	opts     Options
	sink     Applier
	recorder Recorder

	connected atomic.Bool
}

// NewConsumer creates a stopped consumer. recorder may be nil.
func NewConsumer(url string, sink Applier, recorder Recorder, opts Options) *Consumer {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	opts.QueueSize = util.ClampInt(opts.QueueSize, 16, 65536)
	if opts.ReadIdleTimeout <= 0 {
		opts.ReadIdleTimeout = 90 * time.Second
	}
	return &Consumer{
		id:       uuid.NewString(),
		url:      url,
		opts:     opts,
		sink:     sink,
		recorder: recorder,
	}
}

// Connected reports whether a backend connection is currently up.
func (c *Consumer) Connected() bool { return c.connected.Load() }

// Start launches the connect/read loop and the processing goroutine. Both
// exit when ctx is done.
func (c *Consumer) Start(ctx context.Context) {
	frames := make(chan events.Frame, c.opts.QueueSize)
	util.SafeGo(func() { c.processLoop(ctx, frames) })
	util.SafeGo(func() {
		defer close(frames)
		c.connectLoop(ctx, frames)
	})
}

// connectLoop dials the backend and pumps frames until ctx is done or the
// retry budget is exhausted. A successful connection resets the budget.
func (c *Consumer) connectLoop(ctx context.Context, frames chan<- events.Frame) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}
		attempt++
		if attempt > 1 {
			delay := reconnectDelay(attempt)
			logger.Warn("backend stream reconnecting",
				logger.FieldURL, c.url, logger.FieldAttempt, attempt, "delay", delay.String())
			if !sleepWithContext(ctx, delay) {
				return
			}
		}
		if c.opts.MaxRetries > 0 && attempt > c.opts.MaxRetries {
			logger.Error("backend stream retries exhausted",
				logger.FieldURL, c.url, logger.FieldAttempt, attempt-1)
			return
		}

		conn, err := c.dial(ctx)
		if err != nil {
			logger.Warn("backend stream dial failed",
				logger.FieldURL, c.url, logger.FieldAttempt, attempt, logger.FieldError, err)
			continue
		}

		logger.Info("backend stream connected", logger.FieldID, c.id, logger.FieldURL, c.url)
		c.connected.Store(true)
		attempt = 0

		pingCtx, stopPing := context.WithCancel(ctx)
		util.SafeGo(func() { c.pingLoop(pingCtx, conn) })
		err = c.readFrames(ctx, conn, frames)
		stopPing()
		c.connected.Store(false)
		_ = conn.Close()

		if ctx.Err() != nil {
			return
		}
		logger.Warn("backend stream disconnected", logger.FieldURL, c.url, logger.FieldError, err)
	}
}

func (c *Consumer) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
		NetDialContext:   (&net.Dialer{Timeout: handshakeTimeout}).DialContext,
	}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, err
	}
	_ = conn.SetReadDeadline(time.Now().Add(c.opts.ReadIdleTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(c.opts.ReadIdleTimeout))
		return nil
	})
	return conn, nil
}

// readFrames decodes frames until the connection errors. Only genuine JSON
// decode failures are skippable: the websocket survives a bad payload but
// not a protocol or transport error, and gorilla makes those sticky (every
// later read returns the same error), so anything else ends the connection.
func (c *Consumer) readFrames(ctx context.Context, conn *websocket.Conn, frames chan<- events.Frame) error {
	lastSkipped := ""
	for {
		var frame events.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil {
				return err
			}
			if !isDecodeError(err) || err.Error() == lastSkipped {
				return err
			}
			lastSkipped = err.Error()
			logger.Warn("backend stream frame dropped", logger.FieldError, err)
			continue
		}
		lastSkipped = ""
		_ = conn.SetReadDeadline(time.Now().Add(c.opts.ReadIdleTimeout))

		select {
		case frames <- frame:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// isDecodeError reports whether err is a JSON decode failure from a
// delivered message, as opposed to a websocket or transport error.
func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF)
}

// processLoop is the single consumer of the frame queue.
func (c *Consumer) processLoop(ctx context.Context, frames <-chan events.Frame) {
	for frame := range frames {
		ev := events.Normalize(frame)
		if ev.Kind == events.KindUnknown || ev.SessionID == "" {
			continue
		}
		c.sink.Apply(ev)
		if c.recorder != nil && recordable(ev.Kind) {
			if err := c.recorder.Record(ctx, ev); err != nil {
				logger.Warn("event persistence failed",
					logger.FieldSessionID, ev.SessionID,
					logger.FieldEventType, string(ev.Kind),
					logger.FieldError, err)
			}
		}
	}
}

// recordable reports whether an event kind is worth persisting. Deltas are
// transient; only complete messages and turn boundaries go to storage.
func recordable(kind events.Kind) bool {
	return kind == events.KindUserMessage || kind == events.KindAssistantTurnEnd
}

func (c *Consumer) pingLoop(ctx context.Context, conn *websocket.Conn) {
	interval := c.opts.PingInterval
	if interval <= 0 {
		interval = 20 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(5 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

func reconnectDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	delay := reconnectBaseDelay
	for i := 2; i < attempt; i++ {
		delay *= 2
		if delay >= reconnectMaxDelay {
			return reconnectMaxDelay
		}
	}
	return delay
}

func sleepWithContext(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return true
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
