// Package ws implements transport.Network as a broadcast bus over
// WebSocket connections, using github.com/gorilla/websocket. Grounded on
// the example pack's agent-swarm web dashboard (pkg/web/server.go),
// which upgrades HTTP connections to full-duplex WebSocket frames for
// its own event stream; here the same upgrade pattern carries envelopes
// instead of dashboard events.
package ws

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tenzoki/actorrt/envelope"
	"github.com/tenzoki/actorrt/transport"
)

const inboxCapacity = 64

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// Server hosts a WebSocket endpoint (via Handler) and broadcasts every
// envelope received from one connection to every other connected
// endpoint.
type Server struct {
	lg *zap.Logger

	mu    sync.RWMutex
	conns map[*conn]struct{}
	next  int
}

// NewServer returns an empty, open Server. Wire Handler into an
// http.ServeMux to accept connections.
func NewServer(lg *zap.Logger) *Server {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Server{lg: lg, conns: make(map[*conn]struct{})}
}

// Handler upgrades an incoming HTTP request to a WebSocket connection
// and joins it to the broadcast bus.
func (s *Server) Handler(w http.ResponseWriter, r *http.Request) {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.lg.Debug("ws transport: upgrade failed", zap.Error(err))
		return
	}
	s.mu.Lock()
	s.next++
	addr := fmt.Sprintf("ws-%d", s.next)
	s.mu.Unlock()

	c := &conn{
		addr:      transport.Address(addr),
		wsConn:    wsConn,
		inbox:     make(chan *envelope.Envelope, inboxCapacity),
		broadcast: s.broadcast,
		drop:      s.drop,
	}
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
	go c.readLoop(s.lg)
}

// Join returns an in-process endpoint on this server's broadcast bus,
// for a host process that wants to participate without a real socket.
func (s *Server) Join() (transport.Endpoint, error) {
	s.mu.Lock()
	s.next++
	addr := fmt.Sprintf("ws-local-%d", s.next)
	c := &conn{
		addr:      transport.Address(addr),
		inbox:     make(chan *envelope.Envelope, inboxCapacity),
		broadcast: s.broadcast,
		drop:      s.drop,
	}
	s.conns[c] = struct{}{}
	s.mu.Unlock()
	return c, nil
}

// Close closes every connected socket.
func (s *Server) Close() error {
	s.mu.Lock()
	conns := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.conns = nil
	s.mu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
	return nil
}

func (s *Server) broadcast(from *conn, env *envelope.Envelope) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var wireEnv *envelope.Envelope
	for c := range s.conns {
		if c == from {
			continue
		}
		if c.wsConn == nil {
			c.deliverOrDrop(env)
			continue
		}
		if wireEnv == nil {
			we, err := env.AsWire()
			if err != nil {
				s.lg.Debug("ws transport: cannot relay to socket", zap.Error(err))
				return
			}
			wireEnv = we
		}
		if err := c.wsConn.WriteJSON(wireEnv); err != nil {
			s.lg.Debug("ws transport: write failed", zap.Error(err))
		}
	}
}

func (s *Server) drop(c *conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

// Dial connects to a remote Server's WebSocket endpoint.
func Dial(url string, lg *zap.Logger) (transport.Endpoint, error) {
	if lg == nil {
		lg = zap.NewNop()
	}
	wsConn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("ws transport: dial %s: %w", url, err)
	}
	c := &conn{
		addr:   transport.Address(url),
		wsConn: wsConn,
		inbox:  make(chan *envelope.Envelope, inboxCapacity),
	}
	go c.readLoop(lg)
	return c, nil
}

type conn struct {
	addr      transport.Address
	wsConn    *websocket.Conn
	inbox     chan *envelope.Envelope
	closeOnce sync.Once

	broadcast func(*conn, *envelope.Envelope)
	drop      func(*conn)
}

func (c *conn) Address() transport.Address { return c.addr }

func (c *conn) Send(env *envelope.Envelope) error {
	if c.broadcast != nil {
		c.broadcast(c, env)
		return nil
	}
	if c.wsConn == nil {
		return transport.ErrClosed
	}
	wireEnv, err := env.AsWire()
	if err != nil {
		return err
	}
	return c.wsConn.WriteJSON(wireEnv)
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
	if c.wsConn != nil {
		return c.wsConn.Close()
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
	if c.wsConn == nil {
		return
	}
	for {
		var env envelope.Envelope
		if err := c.wsConn.ReadJSON(&env); err != nil {
			lg.Debug("ws transport: connection ended", zap.Error(err))
			return
		}
		if c.broadcast != nil {
			c.broadcast(c, &env)
		} else {
			c.deliverOrDrop(&env)
		}
	}
}
