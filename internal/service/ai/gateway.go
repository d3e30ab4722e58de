package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout reports that an external call exceeded its configured
// deadline. The caller treats it like any other failure of that call.
var ErrTimeout = errors.New("external call timed out")

// ErrVoiceUnavailable reports that no synthesis backend is configured.
var ErrVoiceUnavailable = errors.New("voice synthesis unavailable")

// TextGenerator produces one reply for an assembled context.
type TextGenerator interface {
	Generate(ctx context.Context, pc PromptContext) (string, error)
}

// VoiceSynthesizer renders text to audio bytes for a named voice.
type VoiceSynthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// AudioStore persists synthesized audio and returns a reference the
// caller can hand to the client.
type AudioStore interface {
	Save(audio []byte) (string, error)
}

// GatewayOptions configure per-call deadlines.
type GatewayOptions struct {
	TextTimeout  time.Duration
	VoiceTimeout time.Duration
}

// Gateway fronts the two external capabilities with per-call timeouts
// and normalized errors. It never retries; retry policy belongs to the
// caller so no billable call happens twice unannounced.
type Gateway struct {
	text   TextGenerator
	voice  VoiceSynthesizer
	assets AudioStore

	textTimeout  time.Duration
	voiceTimeout time.Duration
}

// NewGateway builds a Gateway. voice and assets may be nil when no
// synthesis backend is configured; SynthesizeVoice then reports
// ErrVoiceUnavailable.
func NewGateway(text TextGenerator, voice VoiceSynthesizer, assets AudioStore, opts GatewayOptions) *Gateway {
	if opts.TextTimeout <= 0 {
		opts.TextTimeout = 30 * time.Second
	}
	if opts.VoiceTimeout <= 0 {
		opts.VoiceTimeout = 30 * time.Second
	}
	return &Gateway{
		text:         text,
		voice:        voice,
		assets:       assets,
		textTimeout:  opts.TextTimeout,
		voiceTimeout: opts.VoiceTimeout,
	}
}

// GenerateText runs the context through the text model, bounded by the
// configured timeout. Caller cancellation is passed through unchanged so
// the caller can distinguish it from a provider timeout.
func (g *Gateway) GenerateText(ctx context.Context, pc PromptContext) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.textTimeout)
	defer cancel()

	reply, err := g.text.Generate(callCtx, pc)
	if err != nil {
		return "", g.normalize(ctx, "generate text", err)
	}
	return reply, nil
}

// SynthesizeVoice renders the reply to audio and stores it, returning
// the asset reference.
func (g *Gateway) SynthesizeVoice(ctx context.Context, text, voiceID string) (string, error) {
	if g.voice == nil || g.assets == nil {
		return "", ErrVoiceUnavailable
	}

	callCtx, cancel := context.WithTimeout(ctx, g.voiceTimeout)
	defer cancel()

	audio, err := g.voice.Synthesize(callCtx, text, voiceID)
	if err != nil {
		return "", g.normalize(ctx, "synthesize voice", err)
	}

	ref, err := g.assets.Save(audio)
	if err != nil {
		return "", fmt.Errorf("store audio: %w", err)
	}
	return ref, nil
}

// normalize maps a per-call deadline to ErrTimeout while preserving
// cancellation of the caller's own context.
func (g *Gateway) normalize(parent context.Context, op string, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	}
	return fmt.Errorf("%s: %w", op, err)
}
