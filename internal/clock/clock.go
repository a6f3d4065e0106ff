// Package clock serves the live digital clock.
//
// The server never loops on its own: each open clock page holds one
// WebSocket, and the push loop for that socket ends as soon as the page
// goes away or the Clock is stopped.
package clock

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Layouts used for the two lines of the clock face.
const (
	TimeLayout = "15:04:05"
	DateLayout = "Monday, January 02, 2006"
)

const writeWait = 5 * time.Second

// Tick is one update of the clock face.
type Tick struct {
	Time string `json:"time"`
	Date string `json:"date"`
}

// NewTick formats t for display.
func NewTick(t time.Time) Tick {
	return Tick{
		Time: t.Format(TimeLayout),
		Date: t.Format(DateLayout),
	}
}

// Clock pushes ticks to connected clock pages.
type Clock struct {
	interval time.Duration
	upgrader websocket.Upgrader

	// Now is the time source; tests replace it.
	Now func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New returns a Clock that pushes one tick per interval.
func New(interval time.Duration) *Clock {
	ctx, cancel := context.WithCancel(context.Background())
	return &Clock{
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  256,
			WriteBufferSize: 256,
		},
		Now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Current returns the tick for this instant.
func (c *Clock) Current() Tick {
	return NewTick(c.Now())
}

// Stream handles GET /clock/stream. It upgrades the request to a
// WebSocket and writes a JSON Tick right away and then once per interval.
func (c *Clock) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		slog.Warn("clock upgrade failed", slog.String("error", err.Error()))
		return
	}

	c.wg.Add(1)
	defer c.wg.Done()
	defer conn.Close()

	// The page never sends anything; reading only notices the close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(c.Current()); err != nil {
			slog.Debug("clock stream closed", slog.String("error", err.Error()))
			return
		}

		select {
		case <-gone:
			return
		case <-c.ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		case <-ticker.C:
		}
	}
}

// Stop ends every open stream and waits for their loops to return.
func (c *Clock) Stop() {
	c.cancel()
	c.wg.Wait()
}
