package net

import (
	"bufio"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"WhiteboardServer/internal/protocol"
)

// Peer is one connected client. Its read loop runs requests through the
// handler; a writer goroutine drains the outbox to the socket.
type Peer struct {
	userID  int
	session string
	conn    net.Conn
	outbox  chan string
	server  *Server
	log     *zap.Logger

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func newPeer(s *Server, conn net.Conn, userID int) *Peer {
	session := uuid.New().String()
	return &Peer{
		userID:  userID,
		session: session,
		conn:    conn,
		outbox:  make(chan string, s.opts.OutboxSize),
		server:  s,
		done:    make(chan struct{}),
		log: s.log.With(
			zap.Int("user_id", userID),
			zap.String("session", session),
			zap.String("remote", conn.RemoteAddr().String()),
		),
	}
}

// UserID returns the id of the user bound to this connection.
func (p *Peer) UserID() int { return p.userID }

// Send queues msg without blocking. A full outbox closes the connection.
// Sending to a closed peer does nothing.
func (p *Peer) Send(msg string) {
	select {
	case <-p.done:
		return
	default:
	}
	select {
	case p.outbox <- msg:
	default:
		p.log.Warn("outbox full, closing slow connection", zap.Int("outbox", cap(p.outbox)))
		p.server.metrics.SlowConsumer()
		p.Close()
	}
}

// Close stops the peer. Blocked reads return at once; queued messages are
// still flushed before the socket is closed.
func (p *Peer) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
		_ = p.conn.SetReadDeadline(time.Now())
	})
}

// run owns the connection until it ends. The welcome line must already be
// queued.
func (p *Peer) run() {
	p.wg.Add(1)
	go p.writeLoop()

	p.log.Info("client connected")

	loggedOut := p.readLoop()
	if !loggedOut {
		p.process(func() protocol.Result { return p.server.handler.Logout(p.userID) })
	}

	p.server.unregister(p)
	p.Close()
	p.wg.Wait()
	if err := p.conn.Close(); err != nil {
		p.log.Debug("close connection", zap.Error(err))
	}
	p.log.Info("client disconnected", zap.Bool("logout", loggedOut))
}

// errLineTooLong marks a request line over the configured limit. The line
// is discarded and the connection stays open.
var errLineTooLong = errors.New("line too long")

// readLoop reports whether the client logged out explicitly.
func (p *Peer) readLoop() bool {
	r := bufio.NewReaderSize(p.conn, p.server.opts.MaxLineBytes+1)

	for {
		line, err := readLine(r)
		if err == errLineTooLong {
			p.log.Debug("ignoring overlong line", zap.Int("limit", p.server.opts.MaxLineBytes))
			p.server.metrics.Request("unknown", "ignored")
			continue
		}
		if err != nil {
			select {
			case <-p.done:
			default:
				if err != io.EOF {
					p.log.Debug("read ended", zap.Error(err))
				}
			}
			return false
		}

		res := p.process(func() protocol.Result { return p.server.handler.Handle(line, p.userID) })
		p.record(line, res)
		if res.Close {
			return true
		}
	}
}

// readLine returns the next line without its terminator. A line that does
// not fit in r's buffer is skipped up to its newline and reported as
// errLineTooLong. A final line without a newline is still returned.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadSlice('\n')
	if err == bufio.ErrBufferFull {
		for err == bufio.ErrBufferFull {
			_, err = r.ReadSlice('\n')
		}
		if err != nil {
			return "", err
		}
		return "", errLineTooLong
	}
	if err != nil && (err != io.EOF || len(line) == 0) {
		return "", err
	}
	return strings.TrimRight(string(line), "\r\n"), nil
}

// process runs a request and queues everything it produces under the
// server's delivery lock, so outboxes fill in the same order the store
// changed: a joiner gets board_lines before any later draw, and every member
// sees draws in history order. Send never blocks while the lock is held.
func (p *Peer) process(handle func() protocol.Result) protocol.Result {
	p.server.deliverMu.Lock()
	defer p.server.deliverMu.Unlock()

	res := handle()
	p.dispatch(res)
	return res
}

// dispatch delivers broadcasts before the direct reply.
func (p *Peer) dispatch(res protocol.Result) {
	for _, b := range res.Broadcasts {
		var n int
		if b.All {
			n = p.server.peers.SendAll(b.Message)
		} else {
			n = p.server.peers.Deliver(b.Message, b.Recipients)
		}
		p.server.metrics.Broadcast(n)
	}
	if res.Reply != "" {
		p.Send(res.Reply)
	}
}

func (p *Peer) record(line string, res protocol.Result) {
	command := protocol.CommandOf(line)
	switch {
	case res.Reply == "" && res.Err != nil:
		p.log.Debug("ignoring malformed line", zap.String("line", line), zap.Error(res.Err))
		p.server.metrics.Request(command, "ignored")
	case res.Err != nil:
		p.log.Debug("request failed", zap.String("command", command), zap.Error(res.Err))
		p.server.metrics.Request(command, "failed")
	default:
		p.server.metrics.Request(command, "ok")
	}
}

func (p *Peer) writeLoop() {
	defer p.wg.Done()
	w := bufio.NewWriter(p.conn)

	for {
		select {
		case msg := <-p.outbox:
			if err := p.write(w, msg); err != nil {
				p.log.Debug("write failed", zap.Error(err))
				p.Close()
				return
			}
		case <-p.done:
			p.flushOutbox(w)
			return
		}
	}
}

func (p *Peer) flushOutbox(w *bufio.Writer) {
	for {
		select {
		case msg := <-p.outbox:
			if err := p.write(w, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

// write buffers msg and flushes once nothing else is queued.
func (p *Peer) write(w *bufio.Writer, msg string) error {
	_ = p.conn.SetWriteDeadline(time.Now().Add(p.server.opts.WriteTimeout))
	if _, err := w.WriteString(msg); err != nil {
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		return err
	}
	if len(p.outbox) > 0 {
		return nil
	}
	return w.Flush()
}
