package aprsis

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/ki9ng/PawPrint/pkg/aprs"
	"github.com/ki9ng/PawPrint/pkg/config"
)

// Sender is the outbound packet path. Packets go out over the live feed
// socket when one exists; otherwise a short-lived connection is opened
// just for the one packet. A rate limiter keeps a burst of operator
// sends from flooding the network.
type Sender struct {
	cfg     *config.Config
	live    *liveConn
	limiter *rate.Limiter
	logger  *log.Logger
}

func NewSender(cfg *config.Config, live *liveConn, logger *log.Logger) *Sender {
	return &Sender{
		cfg:  cfg,
		live: live,
		// One packet per 2 seconds sustained, short bursts allowed.
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 3),
		logger:  logger,
	}
}

// SendPacket transmits one TNC2 packet line.
func (s *Sender) SendPacket(packet string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if conn := s.live.get(); conn != nil {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if _, err := conn.Write([]byte(packet + "\r\n")); err == nil {
			s.logger.Info("Packet sent on live feed", "packet", packet)
			return nil
		}
		// The feed socket is dying; its read loop will notice and
		// reconnect. Fall through to the ephemeral path for this packet.
		s.logger.Warn("Live socket write failed, using ephemeral connection")
	}

	return s.sendEphemeral(packet)
}

// sendEphemeral opens a connection, logs in without a filter, waits for
// the login response, writes the packet, and closes.
func (s *Sender) sendEphemeral(packet string) error {
	addr := net.JoinHostPort(s.cfg.APRSIS.Host, strconv.Itoa(s.cfg.APRSIS.Port))
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	if _, err := r.ReadString('\n'); err != nil {
		return fmt.Errorf("read banner: %w", err)
	}

	login := aprs.FormatLogin(s.cfg.Station.Callsign, s.cfg.Station.Passcode,
		config.Version, 0, 0, 0)
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := conn.Write([]byte(login + "\r\n")); err != nil {
		return fmt.Errorf("write login: %w", err)
	}

	// The server must process the login before it accepts traffic.
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	resp, err := r.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read login response: %w", err)
	}
	if strings.Contains(resp, "unverified") {
		s.logger.Warn("Sending on an unverified login; the server will drop it")
	}

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := conn.Write([]byte(packet + "\r\n")); err != nil {
		return fmt.Errorf("write packet: %w", err)
	}
	s.logger.Info("Packet sent on ephemeral connection", "packet", packet)
	return nil
}

// PushFilter re-centers the feed subscription in-session. It needs the
// live socket; with the feed down there is no subscription to move.
func (s *Sender) PushFilter(lat, lon, radiusKM float64) error {
	conn := s.live.get()
	if conn == nil {
		return fmt.Errorf("feed not connected")
	}
	line := aprs.FormatFilter(lat, lon, radiusKM)
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := conn.Write([]byte(line + "\r\n")); err != nil {
		return fmt.Errorf("write filter: %w", err)
	}
	s.logger.Info("Subscription moved", "filter", strings.TrimPrefix(line, "#"))
	return nil
}
