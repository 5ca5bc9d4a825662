// Package tcp implements transport.Network as a JSON-line broadcast bus
// over net.Listen/net.Dial: every envelope sent by one connection is
// delivered to every other connected endpoint. Grounded on the teacher's
// internal/broker/service.go connection-handling (accept loop, one
// goroutine per connection, JSON encoder/decoder pair, mutex-protected
// connection set), trimmed from its full topic/pipe JSON-RPC surface
// down to the single send/receive contract transport.Network specifies.
package tcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/tenzoki/actorrt/envelope"
	"github.com/tenzoki/actorrt/transport"
)

const inboxCapacity = 64

// Server listens on a TCP address and broadcasts every envelope it
// receives from one connection to every other connected endpoint. It is
// the "join a Network" side for remote processes: a process hosting the
// server also joins it in-process via Server.Join, and every other
// process dials in with Dial.
type Server struct {
	lg       *zap.Logger
	listener net.Listener

	mu    sync.RWMutex
	conns map[*conn]struct{}
}

// Listen starts a Server on addr (e.g. ":7711").
func Listen(addr string, lg *zap.Logger) (*Server, error) {
	if lg == nil {
		lg = zap.NewNop()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tcp transport: listen %s: %w", addr, err)
	}
	s := &Server{lg: lg, listener: ln, conns: make(map[*conn]struct{})}
	go s.acceptLoop()
	return s, nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string { return s.listener.Addr().String() }

func (s *Server) acceptLoop() {
	for {
		nc, err := s.listener.Accept()
		if err != nil {
			return // listener closed
		}
		c := newConn(nc.RemoteAddr().String(), s.broadcast, s.drop)
		c.netConn = nc
		c.enc = json.NewEncoder(nc)
		c.dec = json.NewDecoder(nc)
		s.mu.Lock()
		s.conns[c] = struct{}{}
		s.mu.Unlock()
		go c.readLoop(s.lg)
	}
}

// Join returns an in-process endpoint on this server's broadcast bus
// (used when the hosting process also wants to participate, not just
// relay between remote dialers).
func (s *Server) Join() (transport.Endpoint, error) {
	c := newConn(fmt.Sprintf("local-%p", new(int)), s.broadcast, s.drop)
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
	return c, nil
}

// Close shuts the listener and every connection down.
func (s *Server) Close() error {
	err := s.listener.Close()
	s.mu.Lock()
	conns := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.conns = nil
	s.mu.Unlock()
	for _, c := range conns {
		c.closeLocal()
		if c.netConn != nil {
			_ = c.netConn.Close()
		}
	}
	return err
}

func (s *Server) broadcast(from *conn, env *envelope.Envelope) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var wireEnv *envelope.Envelope
	for c := range s.conns {
		if c == from {
			continue
		}
		if c.enc == nil {
			c.deliverOrDrop(env) // in-process join: share the envelope as-is
			continue
		}
		if wireEnv == nil {
			we, err := env.AsWire()
			if err != nil {
				s.lg.Debug("tcp transport: cannot relay to remote connection", zap.Error(err))
				return
			}
			wireEnv = we
		}
		if err := c.enc.Encode(wireEnv); err != nil {
			s.lg.Debug("tcp transport: encode failed", zap.Error(err))
		}
	}
}

func (s *Server) drop(c *conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

// Dial connects to a remote Server's TCP address and returns an endpoint
// on its broadcast bus.
func Dial(addr string, lg *zap.Logger) (transport.Endpoint, error) {
	if lg == nil {
		lg = zap.NewNop()
	}
	nc, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tcp transport: dial %s: %w", addr, err)
	}
	c := &conn{
		addr:    transport.Address(nc.LocalAddr().String()),
		netConn: nc,
		enc:     json.NewEncoder(nc),
		dec:     json.NewDecoder(nc),
		inbox:   make(chan *envelope.Envelope, inboxCapacity),
	}
	go c.readLoop(lg)
	return c, nil
}

// conn is both the server-side per-connection record and the
// transport.Endpoint returned to a dialer.
type conn struct {
	addr      transport.Address
	netConn   net.Conn
	enc       *json.Encoder
	dec       *json.Decoder
	inbox     chan *envelope.Envelope
	closeOnce sync.Once

	broadcast func(*conn, *envelope.Envelope)
	drop      func(*conn)
}

func newConn(addr string, broadcast func(*conn, *envelope.Envelope), drop func(*conn)) *conn {
	return &conn{
		addr:      transport.Address(addr),
		inbox:     make(chan *envelope.Envelope, inboxCapacity),
		broadcast: broadcast,
		drop:      drop,
	}
}

func (c *conn) Address() transport.Address { return c.addr }

func (c *conn) Send(env *envelope.Envelope) error {
	if c.broadcast != nil {
		c.broadcast(c, env)
		return nil
	}
	if c.enc == nil {
		return transport.ErrClosed
	}
	wireEnv, err := env.AsWire()
	if err != nil {
		return err
	}
	return c.enc.Encode(wireEnv)
}

func (c *conn) Receive(ctx context.Context) (*envelope.Envelope, error) {
	select {
	case env, ok := <-c.inbox:
		if !ok {
			return nil, transport.ErrClosed
		}
		return env, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *conn) Close() error {
	c.closeLocal()
	if c.drop != nil {
		c.drop(c)
	}
	if c.netConn != nil {
		return c.netConn.Close()
	}
	return nil
}

func (c *conn) closeLocal() {
	c.closeOnce.Do(func() { close(c.inbox) })
}

func (c *conn) deliverOrDrop(env *envelope.Envelope) {
	select {
	case c.inbox <- env:
	default:
	}
}

func (c *conn) readLoop(lg *zap.Logger) {
	defer func() {
		if c.drop != nil {
			c.drop(c)
		}
		c.closeLocal()
	}()
	if c.dec == nil {
		return
	}
	for {
		var env envelope.Envelope
		if err := c.dec.Decode(&env); err != nil {
			lg.Debug("tcp transport: connection ended", zap.Error(err))
			return
		}
		if c.broadcast != nil {
			c.broadcast(c, &env)
		} else {
			c.deliverOrDrop(&env)
		}
	}
}
