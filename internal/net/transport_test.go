package net

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"WhiteboardServer/internal/client"
	"WhiteboardServer/internal/protocol"
	"WhiteboardServer/internal/state"
)

func startServer(t *testing.T, opts Options) (*Server, *state.Store) {
	t.Helper()
	store := state.NewStore()
	s := NewServer(store, opts, zap.NewNop(), nil)
	require.NoError(t, s.Listen("127.0.0.1:0"))

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- s.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		s.Shutdown()
		assert.NoError(t, <-served)
	})
	return s, store
}

func dial(t *testing.T, s *Server) *client.Client {
	t.Helper()
	c, err := client.Dial(context.Background(), s.Addr().String(), 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func expectLines(t *testing.T, c *client.Client, want ...string) {
	t.Helper()
	for _, w := range want {
		got, err := c.NextLine()
		require.NoError(t, err, "waiting for %q", w)
		assert.Equal(t, w, got)
	}
}

func send(t *testing.T, c *client.Client, line string) {
	t.Helper()
	require.NoError(t, c.Send(line))
}

func TestDrawAndJoinScenario(t *testing.T) {
	s, _ := startServer(t, Options{})
	a := dial(t, s)
	b := dial(t, s)
	assert.Equal(t, 0, a.UserID)
	assert.Equal(t, 1, b.UserID)

	send(t, a, "create_board Room")
	expectLines(t, a, "board_ids 0", "done")
	expectLines(t, b, "board_ids 0")

	send(t, a, "req_draw 30 60 90 210 15 125 255 0 10")
	expectLines(t, a, "draw 30 60 90 210 15.000000 125 255 0 10", "done")

	send(t, b, "join_board_id 0")
	expectLines(t, b,
		"users_for_board_id 0 User0 User1",
		"board_lines 30 60 90 210 15.000000 125 255 0 10",
	)
	expectLines(t, a, "users_for_board_id 0 User0 User1")
}

func TestRenameScenario(t *testing.T) {
	s, _ := startServer(t, Options{})
	a := dial(t, s)
	b := dial(t, s)

	send(t, a, "create_board Room")
	expectLines(t, a, "board_ids 0", "done")
	expectLines(t, b, "board_ids 0")
	send(t, b, "join_board_id 0")
	expectLines(t, b, "users_for_board_id 0 User0 User1", "board_lines")
	expectLines(t, a, "users_for_board_id 0 User0 User1")

	send(t, b, "set_username Bob")
	expectLines(t, b, "users_for_board_id 0 User0 Bob", "done")
	expectLines(t, a, "users_for_board_id 0 User0 Bob")

	send(t, a, "set_username Bob")
	expectLines(t, a, "users_for_board_id 0 Bob(1) Bob", "done")
	expectLines(t, b, "users_for_board_id 0 Bob(1) Bob")
}

func TestMalformedLineKeepsConnection(t *testing.T) {
	s, _ := startServer(t, Options{})
	a := dial(t, s)

	send(t, a, "dance")
	send(t, a, "join_board_id nope")
	send(t, a, "get_board_ids")
	expectLines(t, a, "board_ids")
}

func TestDisconnectIsImplicitLogout(t *testing.T) {
	s, store := startServer(t, Options{})
	a := dial(t, s)
	b := dial(t, s)

	send(t, a, "create_board Room")
	expectLines(t, a, "board_ids 0", "done")
	expectLines(t, b, "board_ids 0")
	send(t, b, "join_board_id 0")
	expectLines(t, b, "users_for_board_id 0 User0 User1", "board_lines")

	require.NoError(t, a.Close())
	expectLines(t, b, "users_for_board_id 0 User1")

	require.Eventually(t, func() bool {
		return store.Stats().Users == 1 && s.Peers().Count() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestExplicitLogout(t *testing.T) {
	s, store := startServer(t, Options{})
	a := dial(t, s)
	b := dial(t, s)

	send(t, a, "create_board Room")
	expectLines(t, a, "board_ids 0", "done")
	expectLines(t, b, "board_ids 0")
	send(t, b, "join_board_id 0")
	expectLines(t, b, "users_for_board_id 0 User0 User1", "board_lines")

	require.NoError(t, a.Logout())
	expectLines(t, b, "users_for_board_id 0 User1")

	// A second notification would mean the logout ran twice.
	send(t, b, "get_board_ids")
	expectLines(t, b, "board_ids 0")
	assert.Equal(t, 1, store.Stats().Users)
}

func TestJoinerSeesHistoryInStoreOrder(t *testing.T) {
	s, store := startServer(t, Options{})
	a := dial(t, s)
	b := dial(t, s)

	send(t, a, "create_board Room")
	expectLines(t, a, "board_ids 0", "done")
	expectLines(t, b, "board_ids 0")
	send(t, b, "join_board_id 0")
	expectLines(t, b, "users_for_board_id 0 User0 User1", "board_lines")
	expectLines(t, a, "users_for_board_id 0 User0 User1")

	const perClient = 20
	var wg sync.WaitGroup
	for i, c := range []*client.Client{a, b} {
		wg.Add(1)
		go func(offset int, c *client.Client) {
			defer wg.Done()
			for n := 0; n < perClient; n++ {
				_ = c.Send(fmt.Sprintf("req_draw %d %d 0 0 1 0 0 0 255", offset, n))
			}
		}(i*1000, c)
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		return store.Stats().Strokes == 2*perClient
	}, 2*time.Second, 10*time.Millisecond)

	history, err := store.StrokesForBoard(0)
	require.NoError(t, err)

	c := dial(t, s)
	send(t, c, "join_board_id 0")
	resp, err := c.Await(protocol.RespBoardLines)
	require.NoError(t, err)
	assert.Equal(t, history, resp.Strokes)

	// Each drawer's own strokes keep their send order.
	last := map[int]int{0: -1, 1000: -1}
	for _, st := range resp.Strokes {
		assert.Greater(t, st.Y1, last[st.X1])
		last[st.X1] = st.Y1
	}
}

func TestShutdownLogsEveryoneOut(t *testing.T) {
	s, store := startServer(t, Options{})
	for i := 0; i < 3; i++ {
		dial(t, s)
	}
	require.Eventually(t, func() bool { return s.Peers().Count() == 3 }, time.Second, 5*time.Millisecond)

	s.Shutdown()
	assert.Equal(t, 0, store.Stats().Users)
	assert.Equal(t, 0, s.Peers().Count())

	_, err := client.Dial(context.Background(), s.Addr().String(), 500*time.Millisecond)
	assert.Error(t, err)
}

func TestOverlongLineIsIgnored(t *testing.T) {
	s, store := startServer(t, Options{MaxLineBytes: 64})
	a := dial(t, s)

	send(t, a, "set_username "+strings.Repeat("x", 200))
	send(t, a, "set_username Bob")
	expectLines(t, a, "done")

	name, err := store.UserName(a.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Bob", name)
	assert.Equal(t, 1, store.Stats().Users)
}

func TestReadLine(t *testing.T) {
	r := bufio.NewReaderSize(strings.NewReader(
		"get_board_ids\r\n"+strings.Repeat("y", 40)+"\nleave_board\nlogout"), 16)

	line, err := readLine(r)
	require.NoError(t, err)
	assert.Equal(t, "get_board_ids", line)

	_, err = readLine(r)
	assert.Equal(t, errLineTooLong, err)

	line, err = readLine(r)
	require.NoError(t, err)
	assert.Equal(t, "leave_board", line)

	line, err = readLine(r)
	require.NoError(t, err)
	assert.Equal(t, "logout", line)

	_, err = readLine(r)
	assert.Equal(t, io.EOF, err)
}

// collectDraws reads until n draw lines have arrived, skipping other kinds.
func collectDraws(t *testing.T, c *client.Client, n int) []state.Stroke {
	t.Helper()
	out := make([]state.Stroke, 0, n)
	for len(out) < n {
		resp, err := c.Next()
		require.NoError(t, err, "after %d of %d draws", len(out), n)
		if resp.Kind == protocol.RespDraw {
			out = append(out, resp.Strokes...)
		}
	}
	return out
}

func floodDraws(wg *sync.WaitGroup, c *client.Client, offset, count int) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		for n := 0; n < count; n++ {
			_ = c.Send(fmt.Sprintf("req_draw %d %d 0 0 1 0 0 0 255", offset, n))
		}
	}()
}

func TestJoinDuringDrawingKeepsHistoryBeforeLiveStrokes(t *testing.T) {
	s, store := startServer(t, Options{OutboxSize: 4096})
	creator := dial(t, s)
	send(t, creator, "create_board Room")
	expectLines(t, creator, "board_ids 0", "done")

	var drawers []*client.Client
	for i := 0; i < 2; i++ {
		d := dial(t, s)
		send(t, d, "join_board_id 0")
		_, err := d.Await(protocol.RespBoardLines)
		require.NoError(t, err)
		drawers = append(drawers, d)
	}

	const perDrawer = 150
	var wg sync.WaitGroup
	for i, d := range drawers {
		floodDraws(&wg, d, i*1000, perDrawer)
	}

	type joined struct {
		c       *client.Client
		history []state.Stroke
	}
	var joiners []joined
	for i := 0; i < 6; i++ {
		j := dial(t, s)
		send(t, j, "join_board_id 0")

		first, err := j.NextLine()
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(first, "users_for_board_id 0 "), "joiner %d got %q first", i, first)

		resp, err := j.Next()
		require.NoError(t, err)
		require.Equal(t, protocol.RespBoardLines, resp.Kind, "joiner %d", i)
		joiners = append(joiners, joined{c: j, history: resp.Strokes})
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		return store.Stats().Strokes == 2*perDrawer
	}, 5*time.Second, 10*time.Millisecond)
	want, err := store.StrokesForBoard(0)
	require.NoError(t, err)

	for i, j := range joiners {
		got := append(j.history, collectDraws(t, j.c, len(want)-len(j.history))...)
		assert.Equal(t, want, got, "joiner %d", i)
	}
}

func TestObserversSeeDrawsInHistoryOrder(t *testing.T) {
	s, store := startServer(t, Options{OutboxSize: 4096})
	clients := make([]*client.Client, 4)
	for i := range clients {
		clients[i] = dial(t, s)
	}
	send(t, clients[0], "create_board Room")
	for _, c := range clients {
		_, err := c.Await(protocol.RespBoardIDs)
		require.NoError(t, err)
	}
	for _, c := range clients[1:] {
		send(t, c, "join_board_id 0")
		_, err := c.Await(protocol.RespBoardLines)
		require.NoError(t, err)
	}

	const perDrawer = 100
	var wg sync.WaitGroup
	floodDraws(&wg, clients[2], 0, perDrawer)
	floodDraws(&wg, clients[3], 1000, perDrawer)
	wg.Wait()

	require.Eventually(t, func() bool {
		return store.Stats().Strokes == 2*perDrawer
	}, 5*time.Second, 10*time.Millisecond)
	want, err := store.StrokesForBoard(0)
	require.NoError(t, err)

	first := collectDraws(t, clients[0], len(want))
	second := collectDraws(t, clients[1], len(want))
	assert.Equal(t, want, first)
	assert.Equal(t, first, second)
}

func TestFullOutboxClosesPeer(t *testing.T) {
	s := NewServer(state.NewStore(), Options{OutboxSize: 2}, zap.NewNop(), nil)
	server, remote := net.Pipe()
	defer remote.Close()
	defer server.Close()

	p := newPeer(s, server, 0)
	p.Send("one")
	p.Send("two")
	p.Send("three")

	select {
	case <-p.done:
	default:
		t.Fatal("peer should be closed after overflowing its outbox")
	}
	assert.Len(t, p.outbox, 2)

	// Sends after close are dropped.
	p.Send("four")
	assert.Len(t, p.outbox, 2)
}

func TestPeerManagerDeliver(t *testing.T) {
	s := NewServer(state.NewStore(), Options{OutboxSize: 4}, zap.NewNop(), nil)
	pm := NewPeerManager()

	var peers []*Peer
	for id := 0; id < 3; id++ {
		server, remote := net.Pipe()
		t.Cleanup(func() { server.Close(); remote.Close() })
		p := newPeer(s, server, id)
		pm.Add(p)
		peers = append(peers, p)
	}

	assert.Equal(t, 2, pm.Deliver("hi", []int{0, 2, 9}))
	assert.Equal(t, 3, pm.SendAll("all"))
	assert.False(t, pm.SendTo(9, "nobody"))
	assert.Equal(t, []string{"hi", "all"}, drain(peers[0]))
	assert.Equal(t, []string{"all"}, drain(peers[1]))

	assert.True(t, pm.Remove(peers[1]))
	assert.False(t, pm.Remove(peers[1]))
	assert.Equal(t, 2, pm.Count())
}

func drain(p *Peer) []string {
	var out []string
	for {
		select {
		case m := <-p.outbox:
			out = append(out, m)
		default:
			return out
		}
	}
}
