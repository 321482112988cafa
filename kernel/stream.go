package kernel

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// ErrAlreadyUnsubscribed is returned by Unsubscribe after the first call.
// Callers tearing a view down twice should treat it as a no-op.
var ErrAlreadyUnsubscribed = errors.New("already unsubscribed")

// Subscription is a handle to an active connections feed.
type Subscription interface {
	// Unsubscribe stops delivery and releases the underlying socket.
	Unsubscribe() error
}

// Stream subscribes to the kernel's connections feed, a websocket that
// delivers the full current connection set as JSON frames. Reconnect and
// backoff are the caller's concern; a Stream represents a single attachment.
type Stream struct {
	wsURL  string
	secret string
	dialer *websocket.Dialer
	logger *log.Logger
}

// NewStream prepares a stream against the controller base URL
// (e.g. "http://127.0.0.1:9090").
func NewStream(controller, secret string, logger *log.Logger) (*Stream, error) {
	u, err := url.Parse(controller)
	if err != nil {
		return nil, fmt.Errorf("invalid controller URL: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("invalid controller URL scheme %q", u.Scheme)
	}
	u.Path = "/connections"
	return &Stream{
		wsURL:  u.String(),
		secret: secret,
		dialer: websocket.DefaultDialer,
		logger: logger,
	}, nil
}

// Subscribe dials the feed and delivers every frame to handler from a single
// goroutine, in arrival order, until the subscription is cancelled or the
// peer goes away. Handler calls never overlap.
func (s *Stream) Subscribe(handler func(frame []byte)) (Subscription, error) {
	hdr := http.Header{}
	if s.secret != "" {
		hdr.Set("Authorization", "Bearer "+s.secret)
	}
	conn, _, err := s.dialer.Dial(s.wsURL, hdr)
	if err != nil {
		return nil, fmt.Errorf("dial connections feed: %w", err)
	}

	sub := &streamSub{conn: conn}
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if !sub.cancelled() {
					s.logger.Warn("connections feed interrupted", "err", err)
				}
				return
			}
			handler(data)
		}
	}()
	return sub, nil
}

type streamSub struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed bool
}

func (s *streamSub) Unsubscribe() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrAlreadyUnsubscribed
	}
	s.closed = true
	return s.conn.Close()
}

func (s *streamSub) cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
