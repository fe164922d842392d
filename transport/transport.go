// Package transport supplies the concrete smtp.ByteStream implementation a
// real caller dials: a net.Conn, optionally upgraded to TLS in place for
// STARTTLS, writing multi-segment bodies with a single net.Buffers syscall
// instead of one WriteSingle call per segment.
package transport

import (
	"context"
	"crypto/tls"
	"net"
	"time"
)

// Conn wraps a net.Conn as an smtp.ByteStream.
type Conn struct {
	net.Conn
}

// New wraps an already-established net.Conn.
func New(conn net.Conn) *Conn {
	return &Conn{Conn: conn}
}

// Dial connects to addr ("host:port") and wraps the resulting TCP
// connection. ctx governs the dial only — once Dial returns, cancelling ctx
// has no further effect; use net.Conn.SetDeadline for per-call timeouts on
// the returned Conn, the idiomatic Go substitute for the async
// cancellation a non-blocking runtime would offer here.
func Dial(ctx context.Context, addr string) (*Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// DialTimeout is a convenience wrapper around Dial for callers that don't
// otherwise need a context.
func DialTimeout(addr string, timeout time.Duration) (*Conn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return Dial(ctx, addr)
}

// WriteSingle writes every byte of buf.
func (c *Conn) WriteSingle(buf []byte) error {
	_, err := c.Conn.Write(buf)
	return err
}

// WriteMulti writes every slice in bufs with a single net.Buffers call,
// which issues one writev(2) syscall on platforms that support it instead
// of one write(2) per slice — the vectored write this package exists to
// give Session's dot-stuffed body segments and trailing data terminator.
func (c *Conn) WriteMulti(bufs [][]byte) error {
	nb := make(net.Buffers, len(bufs))
	copy(nb, bufs)
	_, err := nb.WriteTo(c.Conn)
	return err
}

// UpgradeTLS performs the client side of a TLS handshake over conn and
// returns a new Conn wrapping the result. Call this after Session.StartTLS
// returns successfully, using the net.Conn retrieved from the Session via
// IntoInner; build a fresh Session over the returned Conn afterward.
func UpgradeTLS(conn net.Conn, config *tls.Config) (*Conn, error) {
	tlsConn := tls.Client(conn, config)
	if err := tlsConn.HandshakeContext(context.Background()); err != nil {
		return nil, err
	}
	return New(tlsConn), nil
}
