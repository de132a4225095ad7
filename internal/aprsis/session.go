// Package aprsis maintains the connection to an APRS-IS tier-2 server:
// a persistent filtered inbound feed that reconnects forever, plus an
// outbound path that prefers the live feed socket and falls back to a
// short-lived connection when the feed is down.
package aprsis

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ki9ng/PawPrint/internal/engine"
	"github.com/ki9ng/PawPrint/pkg/aprs"
	"github.com/ki9ng/PawPrint/pkg/config"
)

const (
	dialTimeout  = 15 * time.Second
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second

	// filterCheckInterval spaces out the opportunistic subscription
	// checks done from the read loop.
	filterCheckInterval = 30 * time.Second
)

// Session runs the inbound feed. Create one with NewSession, attach its
// Sender to the engine, then call Run.
type Session struct {
	cfg    *config.Config
	eng    *engine.Engine
	live   *liveConn
	logger *log.Logger
}

func NewSession(cfg *config.Config, eng *engine.Engine, logger *log.Logger) *Session {
	return &Session{
		cfg:    cfg,
		eng:    eng,
		live:   &liveConn{},
		logger: logger,
	}
}

func (s *Session) addr() string {
	return net.JoinHostPort(s.cfg.APRSIS.Host, strconv.Itoa(s.cfg.APRSIS.Port))
}

// Run connects, reads, and reconnects until ctx ends. Every failure is
// followed by the same fixed delay; the feed never gives up and never
// backs off further than that.
func (s *Session) Run(ctx context.Context) {
	delay := s.cfg.APRSIS.ReconnectDelay()
	if delay <= 0 {
		delay = 30 * time.Second
	}

	for {
		if err := s.runOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("Feed connection lost", "addr", s.addr(), "err", err)
		}
		s.eng.State().SetFeedConnected(false)
		s.eng.PublishStatus()

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (s *Session) runOnce(ctx context.Context) error {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", s.addr())
	if err != nil {
		return err
	}
	defer conn.Close()
	defer s.live.clear(conn)

	// Close the socket when ctx ends so the blocking read returns.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	r := bufio.NewReader(conn)

	// Server banner arrives before login.
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	banner, err := r.ReadString('\n')
	if err != nil {
		return err
	}
	s.logger.Info("Feed connected", "addr", s.addr(), "server", strings.TrimSpace(banner))

	// The login filter centers on our own position when we have one,
	// otherwise on the configured center. The center is not recorded
	// here: the first in-session check will push and confirm it.
	lat, lon := s.cfg.APRSIS.FilterCenterLat, s.cfg.APRSIS.FilterCenterLon
	if pos, ok := s.eng.State().OwnPosition(); ok {
		lat, lon = pos.Lat, pos.Lon
	}
	login := aprs.FormatLogin(s.cfg.Station.Callsign, s.cfg.Station.Passcode,
		config.Version, lat, lon, s.eng.State().FilterRadius())
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := conn.Write([]byte(login + "\r\n")); err != nil {
		return err
	}

	s.live.set(conn)
	s.eng.State().SetFeedConnected(true)
	s.eng.PublishStatus()

	lastCheck := time.Now()
	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		line, err := r.ReadString('\n')
		if err != nil {
			return err
		}
		line = strings.TrimRight(line, "\r\n")

		if strings.HasPrefix(line, "#") {
			s.logServerLine(line)
		} else if line != "" {
			s.eng.HandleLine(line)
		}

		if time.Since(lastCheck) >= filterCheckInterval {
			lastCheck = time.Now()
			s.eng.CheckFilter()
		}
	}
}

// logServerLine surfaces the login verification result; other server
// chatter stays at debug.
func (s *Session) logServerLine(line string) {
	switch {
	case strings.Contains(line, " verified"):
		s.logger.Info("Login verified, transmit enabled")
	case strings.Contains(line, "unverified"):
		s.logger.Warn("Login unverified, feed is receive-only")
	default:
		s.logger.Debug("Server", "line", line)
	}
}

// Sender returns the outbound path bound to this session's live socket.
func (s *Session) Sender() *Sender {
	return NewSender(s.cfg, s.live, s.logger)
}
