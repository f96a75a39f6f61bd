package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jask/bodhiwallet/internal/logging"
	"github.com/jask/bodhiwallet/internal/market"
)

const (
	subprotocol      = "graphql-ws"
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
)

// Message types of the graphql-ws protocol.
const (
	gqlConnectionInit      = "connection_init"
	gqlConnectionAck       = "connection_ack"
	gqlConnectionError     = "connection_error"
	gqlConnectionKeepAlive = "ka"
	gqlConnectionTerminate = "connection_terminate"
	gqlStart               = "start"
	gqlStop                = "stop"
	gqlData                = "data"
	gqlError               = "error"
	gqlComplete            = "complete"
)

// ErrSubscriptionClosed is returned when the server completes a
// subscription.
var ErrSubscriptionClosed = errors.New("subscription closed by server")

var onSyncInfoSubscription = `subscription OnSyncInfo {
	onSyncInfo {` + syncInfoFields + `
	}
}`

type wsMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type startPayload struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type dataPayload struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Subscriber streams GraphQL subscriptions over a websocket.
type Subscriber struct {
	log    *logging.Logger
	url    string
	dialer *websocket.Dialer
}

func NewSubscriber(log *logging.Logger, url string) *Subscriber {
	return &Subscriber{
		log: log.Named("subscriptions"),
		url: url,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
			Subprotocols:     []string{subprotocol},
		},
	}
}

// SyncInfo subscribes to sync info updates and calls fn for each one until
// ctx is cancelled, the server completes the subscription or the connection
// fails. Cancellation returns ctx.Err().
func (s *Subscriber) SyncInfo(ctx context.Context, fn func(market.SyncInfo)) error {
	return s.subscribe(ctx, onSyncInfoSubscription, func(data json.RawMessage) error {
		var payload struct {
			OnSyncInfo market.SyncInfo `json:"onSyncInfo"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("decode onSyncInfo: %w", err)
		}
		fn(payload.OnSyncInfo)
		return nil
	})
}

func (s *Subscriber) subscribe(ctx context.Context, query string, handle func(json.RawMessage) error) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	defer conn.Close()

	// Unblock ReadJSON when the caller gives up.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	if err := s.write(conn, wsMessage{Type: gqlConnectionInit, Payload: json.RawMessage(`{}`)}); err != nil {
		return ctxErr(ctx, err)
	}
	if err := awaitAck(conn); err != nil {
		return ctxErr(ctx, err)
	}

	id := uuid.NewString()
	start, err := json.Marshal(startPayload{Query: query})
	if err != nil {
		return err
	}
	if err := s.write(conn, wsMessage{ID: id, Type: gqlStart, Payload: start}); err != nil {
		return ctxErr(ctx, err)
	}
	s.log.Debug("subscription started", zap.String("id", id))

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				s.stop(conn, id)
				return ctx.Err()
			}
			return fmt.Errorf("read: %w", err)
		}
		switch msg.Type {
		case gqlConnectionKeepAlive:
		case gqlData:
			if msg.ID != id {
				continue
			}
			var p dataPayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				return fmt.Errorf("decode data payload: %w", err)
			}
			if len(p.Errors) > 0 {
				return fmt.Errorf("subscription error: %s", p.Errors[0].Message)
			}
			if err := handle(p.Data); err != nil {
				return err
			}
		case gqlError, gqlConnectionError:
			return fmt.Errorf("subscription error: %s", string(msg.Payload))
		case gqlComplete:
			return ErrSubscriptionClosed
		default:
			s.log.Debug("ignoring message", zap.String("type", msg.Type))
		}
	}
}

func (s *Subscriber) write(conn *websocket.Conn, msg wsMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}

// stop is best effort; the connection is usually already closed.
func (s *Subscriber) stop(conn *websocket.Conn, id string) {
	_ = s.write(conn, wsMessage{ID: id, Type: gqlStop})
	_ = s.write(conn, wsMessage{Type: gqlConnectionTerminate})
}

func awaitAck(conn *websocket.Conn) error {
	if err := conn.SetReadDeadline(time.Now().Add(handshakeTimeout)); err != nil {
		return err
	}
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("await ack: %w", err)
		}
		switch msg.Type {
		case gqlConnectionAck:
			return conn.SetReadDeadline(time.Time{})
		case gqlConnectionKeepAlive:
		case gqlConnectionError:
			return fmt.Errorf("connection rejected: %s", string(msg.Payload))
		default:
			return fmt.Errorf("unexpected %q before connection_ack", msg.Type)
		}
	}
}

func ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
