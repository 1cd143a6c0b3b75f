package remote

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sudorandom/screenshot-automator/pkg/capture"
)

// Client requests captures from a Server.
type Client struct {
	conn *websocket.Conn
}

// Dial connects to url, for example ws://127.0.0.1:7878/capture.
func Dial(ctx context.Context, url string) (*Client, error) {
	c, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &Client{conn: c}, nil
}

// DialRetry keeps dialing with exponential backoff until it connects or ctx
// is done.
func DialRetry(ctx context.Context, url string, maxBackoff time.Duration) (*Client, error) {
	backoff := 250 * time.Millisecond
	for {
		c, err := Dial(ctx, url)
		if err == nil {
			return c, nil
		}
		log.Printf("Dial error: %v. Retrying in %v...", err, backoff)
		select {
		case <-ctx.Done():
			return nil, errors.Join(ctx.Err(), err)
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// Capture requests one capture and waits for its result.
func (c *Client) Capture(ctx context.Context, kind capture.TriggerKind) (Response, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetReadDeadline(deadline)
		defer func() {
			_ = c.conn.SetReadDeadline(time.Time{})
		}()
	}
	if err := c.conn.WriteJSON(Request{Kind: kind.String()}); err != nil {
		return Response{}, fmt.Errorf("send request: %w", err)
	}
	var resp Response
	if err := c.conn.ReadJSON(&resp); err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	return resp, nil
}

// Close sends a close frame and closes the connection.
func (c *Client) Close() error {
	err := c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	if cerr := c.conn.Close(); err == nil {
		err = cerr
	}
	return err
}
