package aprsis

import (
	"net"
	"sync"
)

// liveConn holds the current feed socket so the outbound path can reuse
// it. The lock only ever guards the pointer swap, never any I/O.
type liveConn struct {
	mu   sync.Mutex
	conn net.Conn
}

func (l *liveConn) get() net.Conn {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn
}

func (l *liveConn) set(c net.Conn) {
	l.mu.Lock()
	l.conn = c
	l.mu.Unlock()
}

// clear drops the reference only if it still points at c, so a session
// that reconnected quickly never clears its own fresh socket.
func (l *liveConn) clear(c net.Conn) {
	l.mu.Lock()
	if l.conn == c {
		l.conn = nil
	}
	l.mu.Unlock()
}
