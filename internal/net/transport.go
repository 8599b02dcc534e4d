package net

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"WhiteboardServer/internal/metrics"
	"WhiteboardServer/internal/protocol"
	"WhiteboardServer/internal/state"
)

// DefaultPort is the TCP port clients connect to unless configured otherwise.
const DefaultPort = 4444

// Options tunes connection handling. Zero values fall back to defaults.
type Options struct {
	MaxLineBytes int
	OutboxSize   int
	WriteTimeout time.Duration
	Board        state.BoardOptions
}

func (o Options) withDefaults() Options {
	if o.MaxLineBytes <= 0 {
		o.MaxLineBytes = 64 * 1024
	}
	if o.OutboxSize <= 0 {
		o.OutboxSize = 256
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	return o
}

// PeerManager tracks every live connection by user id.
type PeerManager struct {
	peers map[int]*Peer
	mu    sync.RWMutex
}

// NewPeerManager creates an empty registry.
func NewPeerManager() *PeerManager {
	return &PeerManager{
		peers: make(map[int]*Peer),
	}
}

// Add registers peer under its user id.
func (pm *PeerManager) Add(peer *Peer) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.peers[peer.userID] = peer
}

// Remove unregisters peer. It reports false if peer was not registered.
func (pm *PeerManager) Remove(peer *Peer) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.peers[peer.userID] != peer {
		return false
	}
	delete(pm.peers, peer.userID)
	return true
}

// SendTo queues msg for one user. It reports whether the user is connected.
func (pm *PeerManager) SendTo(userID int, msg string) bool {
	pm.mu.RLock()
	p, ok := pm.peers[userID]
	pm.mu.RUnlock()
	if ok {
		p.Send(msg)
	}
	return ok
}

// Deliver queues msg for each listed user that is still connected and
// returns how many were found.
func (pm *PeerManager) Deliver(msg string, userIDs []int) int {
	n := 0
	for _, id := range userIDs {
		if pm.SendTo(id, msg) {
			n++
		}
	}
	return n
}

// SendAll queues msg for every connection.
func (pm *PeerManager) SendAll(msg string) int {
	peers := pm.snapshot()
	for _, p := range peers {
		p.Send(msg)
	}
	return len(peers)
}

// Count returns the number of registered connections.
func (pm *PeerManager) Count() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return len(pm.peers)
}

// CloseAll closes every registered peer.
func (pm *PeerManager) CloseAll() {
	for _, p := range pm.snapshot() {
		p.Close()
	}
}

func (pm *PeerManager) snapshot() []*Peer {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	out := make([]*Peer, 0, len(pm.peers))
	for _, p := range pm.peers {
		out = append(out, p)
	}
	return out
}

// Server accepts client connections and runs a Peer for each one.
type Server struct {
	store   *state.Store
	handler *protocol.Handler
	peers   *PeerManager
	opts    Options
	log     *zap.Logger
	metrics *metrics.Metrics

	// deliverMu orders handling plus outbox delivery across connections.
	deliverMu sync.Mutex

	mu       sync.Mutex
	listener net.Listener
	closed   bool
	wg       sync.WaitGroup
}

// NewServer builds a server over store. m may be nil.
func NewServer(store *state.Store, opts Options, log *zap.Logger, m *metrics.Metrics) *Server {
	opts = opts.withDefaults()
	return &Server{
		store:   store,
		handler: protocol.NewHandler(store, opts.Board),
		peers:   NewPeerManager(),
		opts:    opts,
		log:     log,
		metrics: m,
	}
}

// Listen binds the TCP address.
func (s *Server) Listen(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", addr)
	}
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
	s.log.Info("whiteboard server listening", zap.String("addr", l.Addr().String()))
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Peers returns the live connection registry.
func (s *Server) Peers() *PeerManager { return s.peers }

// Serve accepts connections until ctx is done or Shutdown is called. It
// returns nil on a clean stop.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()
	if l == nil {
		return errors.New("serve called before listen")
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			s.Shutdown()
		case <-stop:
		}
	}()

	var backoff time.Duration
	for {
		conn, err := l.Accept()
		if err != nil {
			if s.isClosed() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else if backoff *= 2; backoff > time.Second {
				backoff = time.Second
			}
			s.log.Warn("accept failed", zap.Error(err), zap.Duration("retry_in", backoff))
			time.Sleep(backoff)
			continue
		}
		backoff = 0
		s.accept(conn)
	}
}

func (s *Server) accept(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		_ = conn.Close()
		return
	}

	userID := s.store.AddUser("")
	p := newPeer(s, conn, userID)
	p.Send(protocol.Welcome(userID))
	s.peers.Add(p)
	s.metrics.ConnectionOpened()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		p.run()
	}()
}

func (s *Server) unregister(p *Peer) {
	if s.peers.Remove(p) {
		s.metrics.ConnectionClosed()
	}
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Shutdown stops accepting, closes every connection and waits until each
// one has logged its user out.
func (s *Server) Shutdown() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		if s.listener != nil {
			_ = s.listener.Close()
		}
	}
	s.mu.Unlock()

	s.peers.CloseAll()
	s.wg.Wait()
	s.log.Info("whiteboard server stopped")
}
