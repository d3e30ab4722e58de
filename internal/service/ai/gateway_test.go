package ai_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ytakeda/execpersona/backend/internal/service/ai"
)

type blockingGenerator struct{}

func (blockingGenerator) Generate(ctx context.Context, _ ai.PromptContext) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

type fixedSynthesizer struct {
	audio []byte
	err   error
}

func (s fixedSynthesizer) Synthesize(context.Context, string, string) ([]byte, error) {
	return s.audio, s.err
}

type recordingAssets struct {
	saved []byte
}

func (a *recordingAssets) Save(audio []byte) (string, error) {
	a.saved = audio
	return "/api/files/voices/voice_test.mp3", nil
}

func TestGenerateTextTimeout(t *testing.T) {
	g := ai.NewGateway(blockingGenerator{}, nil, nil, ai.GatewayOptions{TextTimeout: 10 * time.Millisecond})

	_, err := g.GenerateText(context.Background(), ai.PromptContext{Query: "hi"})
	if !errors.Is(err, ai.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestGenerateTextCallerCancellation(t *testing.T) {
	g := ai.NewGateway(blockingGenerator{}, nil, nil, ai.GatewayOptions{TextTimeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := g.GenerateText(ctx, ai.PromptContext{Query: "hi"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("caller cancellation must pass through, got %v", err)
	}
	if errors.Is(err, ai.ErrTimeout) {
		t.Fatal("cancellation must not be reported as a provider timeout")
	}
}

func TestSynthesizeVoiceUnconfigured(t *testing.T) {
	g := ai.NewGateway(blockingGenerator{}, nil, nil, ai.GatewayOptions{})

	_, err := g.SynthesizeVoice(context.Background(), "hello", "voice-1")
	if !errors.Is(err, ai.ErrVoiceUnavailable) {
		t.Fatalf("expected ErrVoiceUnavailable, got %v", err)
	}
}

func TestSynthesizeVoiceStoresAudio(t *testing.T) {
	assets := &recordingAssets{}
	g := ai.NewGateway(blockingGenerator{}, fixedSynthesizer{audio: []byte("mp3!")}, assets, ai.GatewayOptions{})

	ref, err := g.SynthesizeVoice(context.Background(), "hello", "voice-1")
	if err != nil {
		t.Fatalf("SynthesizeVoice: %v", err)
	}
	if ref != "/api/files/voices/voice_test.mp3" {
		t.Fatalf("unexpected ref %q", ref)
	}
	if string(assets.saved) != "mp3!" {
		t.Fatalf("audio not stored: %q", assets.saved)
	}
}

func TestSynthesizeVoiceFailure(t *testing.T) {
	assets := &recordingAssets{}
	g := ai.NewGateway(blockingGenerator{}, fixedSynthesizer{err: errors.New("server busy")}, assets, ai.GatewayOptions{})

	_, err := g.SynthesizeVoice(context.Background(), "hello", "voice-1")
	if err == nil {
		t.Fatal("expected error")
	}
	if assets.saved != nil {
		t.Fatal("failed synthesis must not store audio")
	}
}
