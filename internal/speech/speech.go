// ABOUTME: Dictation through a websocket transcription endpoint.
// ABOUTME: Streams final transcript fragments to a callback and appends them to an input buffer.
package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ErrUnavailable is returned when no transcription endpoint is configured.
var ErrUnavailable = errors.New("speech recognition is not available")

// CaptureFailure reports a transcription session that could not start or broke off.
type CaptureFailure struct {
	Err error
}

func (e *CaptureFailure) Error() string {
	return "speech capture failed: " + e.Err.Error()
}

func (e *CaptureFailure) Unwrap() error { return e.Err }

// Transcript is one message from the transcription endpoint.
type Transcript struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// Capture connects to a transcription endpoint.
type Capture struct {
	url    string
	dialer *websocket.Dialer
	log    zerolog.Logger
}

// New creates a capture for url. An empty url yields an unavailable capture.
func New(url string, log zerolog.Logger) *Capture {
	return &Capture{
		url: strings.TrimSpace(url),
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		log: log.With().Str("component", "speech").Logger(),
	}
}

// Available reports whether dictation can be offered.
func (c *Capture) Available() bool {
	return c != nil && c.url != ""
}

// Listen streams transcripts until ctx ends or the endpoint closes the session.
// onFinal receives each non-empty final fragment; interim fragments are dropped.
// A cancelled ctx or a normal close returns nil.
func (c *Capture) Listen(ctx context.Context, onFinal func(string)) error {
	if !c.Available() {
		return ErrUnavailable
	}

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return &CaptureFailure{Err: fmt.Errorf("websocket dial failed: %w", err)}
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-stop:
		}
	}()

	c.log.Debug().Str("url", c.url).Msg("dictation started")
	for {
		var msg Transcript
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug().Msg("dictation stopped")
				return nil
			}
			return &CaptureFailure{Err: err}
		}
		if !msg.Final {
			continue
		}
		if text := strings.TrimSpace(msg.Text); text != "" {
			onFinal(text)
		}
	}
}

// Append adds a transcript fragment to the input buffer, separated by one space.
func Append(buffer, fragment string) string {
	fragment = strings.TrimSpace(fragment)
	switch {
	case fragment == "":
		return buffer
	case buffer == "":
		return fragment
	default:
		return buffer + " " + fragment
	}
}
