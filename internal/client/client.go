package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"quizbot-service/internal/quiz"
	httptransport "quizbot-service/internal/transport/http"
)

// Client connects a Session to the /ws endpoint.
type Client struct {
	conn    *websocket.Conn
	session *Session
	out     io.Writer
}

// Dial opens the chat stream. server is the base websocket URL, e.g. ws://localhost:8080.
func Dial(ctx context.Context, server, chatID, token string, out io.Writer) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(server, "/") + "/ws")
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	q := u.Query()
	q.Set("chat_id", chatID)
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s", u.Host, resp.Status)
		}
		return nil, fmt.Errorf("dial %s: %w", u.Host, err)
	}
	return &Client{conn: conn, session: NewSession(out), out: out}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

type inbound struct {
	typ string
	raw json.RawMessage
	err error
}

// Run pumps frames and typed lines through the session until in reaches EOF,
// the server closes the stream or ctx is done.
func (c *Client) Run(ctx context.Context, in io.Reader) error {
	frames := make(chan inbound)
	go func() {
		defer close(frames)
		for {
			var f struct {
				Type    string          `json:"type"`
				Payload json.RawMessage `json:"payload"`
			}
			if err := c.conn.ReadJSON(&f); err != nil {
				select {
				case frames <- inbound{err: err}:
				case <-ctx.Done():
				}
				return
			}
			select {
			case frames <- inbound{typ: f.Type, raw: f.Payload}:
			case <-ctx.Done():
				return
			}
		}
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-frames:
			if !ok {
				return nil
			}
			if f.err != nil {
				if websocket.IsCloseError(f.err, websocket.CloseNormalClosure) {
					return nil
				}
				return fmt.Errorf("read frame: %w", f.err)
			}
			if err := c.dispatch(f.typ, f.raw); err != nil {
				log.Printf("[Client.Run] %s frame: %v", f.typ, err)
			}
		case line, ok := <-lines:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return nil
			}
			text, send := c.session.Input(line)
			if !send {
				continue
			}
			err := c.conn.WriteJSON(httptransport.Outbound{
				Type:    httptransport.EventMessage,
				Payload: httptransport.ContentPayload{Content: text},
			})
			if err != nil {
				return fmt.Errorf("send: %w", err)
			}
		}
	}
}

func (c *Client) dispatch(typ string, raw json.RawMessage) error {
	switch typ {
	case httptransport.EventHistory:
		var views []httptransport.MessageView
		if err := json.Unmarshal(raw, &views); err != nil {
			return err
		}
		c.session.History(views)
	case httptransport.EventMessage:
		var v httptransport.MessageView
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		c.session.Message(v)
	case httptransport.EventState:
		var st quiz.SessionState
		if err := json.Unmarshal(raw, &st); err != nil {
			return err
		}
		c.session.State(st)
	case httptransport.EventError:
		var e struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(raw, &e); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "error: %s\n", e.Message)
	}
	return nil
}
