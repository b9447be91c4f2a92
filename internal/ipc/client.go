package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"
)

const (
	dialTimeout  = 2 * time.Second
	replyTimeout = 5 * time.Second
)

// Client subscribes to the daemon's event stream.
type Client struct {
	conn    net.Conn
	scanner *bufio.Scanner
}

// Dial connects to the broadcast server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		return nil, err
	}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	return &Client{conn: conn, scanner: scanner}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// ReadEvent blocks until the next event arrives. It returns io.EOF once the
// server closes the connection.
func (c *Client) ReadEvent() (Event, error) {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return Decode(c.scanner.Bytes())
}

// Snapshot reads events until the state snapshot the server sends on
// connect arrives.
func (c *Client) Snapshot() (StateEvent, error) {
	event, err := c.waitFor(EventState)
	if err != nil {
		return StateEvent{}, err
	}
	return event.(StateEvent), nil
}

// Status requests a fresh state document. Live events that arrive before
// the reply are skipped.
func (c *Client) Status() (StateEvent, error) {
	if err := c.send(CommandStatus); err != nil {
		return StateEvent{}, err
	}
	event, err := c.waitForReply(EventState)
	if err != nil {
		return StateEvent{}, err
	}
	return event.(StateEvent), nil
}

// History requests the most recent completed transcriptions. Live events
// that arrive before the reply are skipped.
func (c *Client) History() (HistoryEvent, error) {
	if err := c.send(CommandHistory); err != nil {
		return HistoryEvent{}, err
	}
	event, err := c.waitForReply(EventHistory)
	if err != nil {
		return HistoryEvent{}, err
	}
	return event.(HistoryEvent), nil
}

func (c *Client) send(command string) error {
	line, err := json.Marshal(CommandRequest{Command: command})
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}
	line = append(line, '\n')
	if err := c.conn.SetWriteDeadline(time.Now().Add(replyTimeout)); err != nil {
		return err
	}
	defer c.conn.SetWriteDeadline(time.Time{})
	if _, err := c.conn.Write(line); err != nil {
		return fmt.Errorf("send %s command: %w", command, err)
	}
	return nil
}

func (c *Client) waitFor(name string) (Event, error) {
	for {
		event, err := c.ReadEvent()
		if err != nil {
			return nil, err
		}
		if event.EventName() == name {
			return event, nil
		}
	}
}

func (c *Client) waitForReply(name string) (Event, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(replyTimeout)); err != nil {
		return nil, err
	}
	defer c.conn.SetReadDeadline(time.Time{})
	event, err := c.waitFor(name)
	if err != nil {
		return nil, fmt.Errorf("await %s reply: %w", name, err)
	}
	return event, nil
}
