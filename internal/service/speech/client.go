// Package speech renders reply text to audio over a streaming websocket
// TTS endpoint and stores the result as a servable asset.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Config carries the synthesis endpoint and credentials.
type Config struct {
	Endpoint    string
	AppID       string
	AccessToken string
	// DefaultVoice is used when a persona names no voice of its own.
	DefaultVoice string
	Speed        float32
	Volume       float32
	Timeout      time.Duration
}

// Client is a websocket TTS client. One synthesis call opens one
// connection; there is no pooling and no retry.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer
}

// NewClient builds a Client from the supplied config.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.Timeout,
		},
	}
}

type synthesisRequest struct {
	RequestID string  `json:"requestId"`
	Voice     string  `json:"voice"`
	Text      string  `json:"text"`
	Format    string  `json:"format"`
	Speed     float32 `json:"speed,omitempty"`
	Volume    float32 `json:"volume,omitempty"`
}

type serverFrame struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Final   bool   `json:"final"`
}

// Synthesize renders text with the named voice and returns the complete
// MP3 payload. Audio arrives as binary frames; JSON control frames carry
// errors and the final marker.
func (c *Client) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("synthesis text is empty")
	}

	voice := voiceID
	if voice == "" {
		voice = c.cfg.DefaultVoice
	}

	header := http.Header{}
	header.Set("X-Api-App-Key", c.cfg.AppID)
	header.Set("X-Api-Access-Key", c.cfg.AccessToken)
	header.Set("X-Api-Connect-Id", uuid.NewString())

	conn, _, err := c.dialer.DialContext(ctx, c.cfg.Endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("connect to TTS endpoint: %w", err)
	}
	defer conn.Close()

	req := synthesisRequest{
		RequestID: uuid.NewString(),
		Voice:     voice,
		Text:      text,
		Format:    "mp3",
		Speed:     c.cfg.Speed,
		Volume:    c.cfg.Volume,
	}
	if err := conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("send synthesis request: %w", err)
	}

	deadline := time.Now().Add(c.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)

	var audio bytes.Buffer
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("read synthesis response: %w", err)
		}

		switch msgType {
		case websocket.BinaryMessage:
			audio.Write(data)
		case websocket.TextMessage:
			var frame serverFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				return nil, fmt.Errorf("decode control frame: %w", err)
			}
			if frame.Code != 0 {
				return nil, fmt.Errorf("TTS server error %d: %s", frame.Code, frame.Message)
			}
			if frame.Final {
				if audio.Len() == 0 {
					return nil, fmt.Errorf("TTS returned no audio")
				}
				return audio.Bytes(), nil
			}
		}
	}
}
