// Package agw registers our callsign with the local Direwolf AGW port.
// Registration is what lets the TNC accept frames from us and, more
// usefully here, lets the operator see at a glance whether the local
// radio side is alive at all. Packet delivery itself goes out over
// APRS-IS; the AGW link is presence only.
package agw

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ki9ng/PawPrint/internal/state"
	"github.com/ki9ng/PawPrint/pkg/aprs"
	"github.com/ki9ng/PawPrint/pkg/config"
)

const (
	headerLen      = 36
	kindOffset     = 4
	callFromOffset = 8

	dialTimeout    = 5 * time.Second
	retryDelay     = 30 * time.Second
	keepaliveEvery = 60 * time.Second
)

// Client keeps a registered AGW connection alive and mirrors its health
// into the shared state.
type Client struct {
	cfg    *config.Config
	st     *state.State
	logger *log.Logger
}

func NewClient(cfg *config.Config, st *state.State, logger *log.Logger) *Client {
	return &Client{cfg: cfg, st: st, logger: logger}
}

// registrationFrame builds the fixed-size 'X' frame that registers a
// callsign with the AGW engine.
func registrationFrame(callsign string) []byte {
	frame := make([]byte, headerLen)
	frame[kindOffset] = 'X'
	copy(frame[callFromOffset:callFromOffset+10], aprs.NormalizeCall(callsign))
	return frame
}

func (c *Client) addr() string {
	return net.JoinHostPort(c.cfg.AGW.Host, strconv.Itoa(c.cfg.AGW.Port))
}

// Run maintains the registration until ctx ends, reconnecting on the
// same fixed delay the feed uses. Disabled config means Run returns
// immediately.
func (c *Client) Run(ctx context.Context) {
	if !c.cfg.AGW.Enabled {
		return
	}
	for {
		if err := c.runOnce(ctx); err != nil && ctx.Err() == nil {
			c.logger.Warn("AGW link down", "addr", c.addr(), "err", err)
		}
		c.st.SetAGWConnected(false)

		select {
		case <-ctx.Done():
			return
		case <-time.After(retryDelay):
		}
	}
}

func (c *Client) runOnce(ctx context.Context) error {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", c.addr())
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if _, err := conn.Write(registrationFrame(c.cfg.Station.Callsign)); err != nil {
		return fmt.Errorf("write registration: %w", err)
	}

	c.logger.Info("Registered with AGW port", "addr", c.addr(), "callsign", c.cfg.Station.Callsign)
	c.st.SetAGWConnected(true)

	// Drain whatever the engine sends back. EOF or a read error is how
	// we learn Direwolf went away; periodic re-registration doubles as
	// a keepalive probe.
	buf := make([]byte, 4096)
	regen := time.NewTicker(keepaliveEvery)
	defer regen.Stop()
	readErr := make(chan error, 1)
	go func() {
		for {
			if _, err := conn.Read(buf); err != nil {
				readErr <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			if err == io.EOF {
				return fmt.Errorf("connection closed by AGW engine")
			}
			return err
		case <-regen.C:
			if _, err := conn.Write(registrationFrame(c.cfg.Station.Callsign)); err != nil {
				return fmt.Errorf("keepalive registration: %w", err)
			}
		}
	}
}
