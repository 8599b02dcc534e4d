// Package client speaks the whiteboard line protocol from the client side.
package client

import (
	"bufio"
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"

	"WhiteboardServer/internal/protocol"
)

// Client is one connection to a whiteboard server. Send may be called from
// several goroutines; Next must be called from one goroutine at a time.
type Client struct {
	UserID int

	conn    net.Conn
	scanner *bufio.Scanner
	mu      sync.Mutex
	timeout time.Duration
}

// Dial connects to addr and waits for the welcome line. timeout bounds every
// later read and write; zero means no limit.
func Dial(ctx context.Context, addr string, timeout time.Duration) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", addr)
	}

	c := &Client{
		conn:    conn,
		scanner: bufio.NewScanner(conn),
		timeout: timeout,
	}
	c.scanner.Buffer(make([]byte, 0, 4096), 16*1024*1024)

	resp, err := c.Next()
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "read welcome")
	}
	if resp.Kind != protocol.RespWelcome {
		conn.Close()
		return nil, errors.Errorf("expected welcome, got %q", resp.Kind)
	}
	c.UserID = resp.UserID
	return c, nil
}

// Send writes one request line.
func (c *Client) Send(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	}
	_, err := c.conn.Write([]byte(line + "\n"))
	return errors.Wrap(err, "send")
}

// NextLine reads one raw line from the server.
func (c *Client) NextLine() (string, error) {
	if c.timeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.timeout))
	}
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return "", errors.Wrap(err, "read")
		}
		return "", errors.Wrap(net.ErrClosed, "server closed the connection")
	}
	return c.scanner.Text(), nil
}

// Next reads and parses one line from the server.
func (c *Client) Next() (protocol.Response, error) {
	line, err := c.NextLine()
	if err != nil {
		return protocol.Response{}, err
	}
	return protocol.ParseResponse(line)
}

// Await reads until a response of the given kind arrives, dropping others.
func (c *Client) Await(kind string) (protocol.Response, error) {
	for {
		resp, err := c.Next()
		if err != nil {
			return protocol.Response{}, err
		}
		if resp.Kind == kind {
			return resp, nil
		}
	}
}

// BoardIDs asks for the list of boards.
func (c *Client) BoardIDs() ([]int, error) {
	if err := c.Send(protocol.GetBoardIDs()); err != nil {
		return nil, err
	}
	resp, err := c.Await(protocol.RespBoardIDs)
	return resp.IDs, err
}

// UsersForBoard asks for the member names of a board.
func (c *Client) UsersForBoard(boardID int) ([]string, error) {
	if err := c.Send(protocol.GetUsersForBoard(boardID)); err != nil {
		return nil, err
	}
	for {
		resp, err := c.Next()
		if err != nil {
			return nil, err
		}
		switch {
		case resp.Kind == protocol.RespFailed:
			return nil, errors.Errorf("board %d not found", boardID)
		case resp.Kind == protocol.RespUsersForBoard && resp.BoardID == boardID:
			return resp.Names, nil
		}
	}
}

// Logout ends the session and closes the connection.
func (c *Client) Logout() error {
	if err := c.Send(protocol.Logout()); err != nil {
		c.conn.Close()
		return err
	}
	_, err := c.Await(protocol.RespLoggedOut)
	if cerr := c.conn.Close(); err == nil {
		err = cerr
	}
	return err
}

// Close drops the connection without logging out.
func (c *Client) Close() error {
	return c.conn.Close()
}
