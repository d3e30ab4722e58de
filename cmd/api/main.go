package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ytakeda/execpersona/backend/internal/config"
	"github.com/ytakeda/execpersona/backend/internal/handler"
	"github.com/ytakeda/execpersona/backend/internal/model/persona"
	aiService "github.com/ytakeda/execpersona/backend/internal/service/ai"
	chatService "github.com/ytakeda/execpersona/backend/internal/service/chat"
	"github.com/ytakeda/execpersona/backend/internal/service/ratelimit"
	"github.com/ytakeda/execpersona/backend/internal/service/speech"
	"github.com/ytakeda/execpersona/backend/internal/storage/memory"
	"github.com/ytakeda/execpersona/backend/internal/storage/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	personaStore := persona.NewMemoryStore(persona.Seed())

	var store chatService.Store
	if cfg.Chat.DataDir != "" {
		sqlStore, err := sqlite.New(cfg.Chat.DataDir)
		if err != nil {
			log.Fatalf("failed to open conversation store: %v", err)
		}
		defer sqlStore.Close()
		store = sqlStore
		log.Printf("conversation store: sqlite under %s", cfg.Chat.DataDir)
	} else {
		store = memory.New()
		log.Println("conversation store: in-memory (set CHAT_DATA_DIR for persistence)")
	}

	limiter := ratelimit.New(ratelimit.Options{
		Limit:         cfg.Chat.RateLimit,
		Window:        cfg.Chat.RateWindow,
		SweepInterval: 5 * time.Minute,
	})
	defer limiter.Close()

	var textGen aiService.TextGenerator = aiService.NoModel{}
	if cfg.AI.Enabled() {
		chatModel, err := cfg.AI.NewChatModel(ctx)
		if err != nil {
			log.Fatalf("failed to create chat model: %v", err)
		}
		textModel, err := aiService.NewTextModel(ctx, chatModel)
		if err != nil {
			log.Fatalf("failed to build text model: %v", err)
		}
		textGen = textModel
		log.Println("text generation initialized")
	} else {
		log.Println("model credentials not configured, replies will use the fallback text")
	}

	var voiceClient aiService.VoiceSynthesizer
	var assetStore aiService.AudioStore
	if cfg.Speech.Enabled {
		voiceClient = speech.NewClient(speech.Config{
			Endpoint:     cfg.Speech.Endpoint,
			AppID:        cfg.Speech.AppID,
			AccessToken:  cfg.Speech.AccessToken,
			DefaultVoice: cfg.Speech.DefaultVoice,
			Speed:        cfg.Speech.Speed,
			Volume:       cfg.Speech.Volume,
			Timeout:      cfg.Speech.Timeout,
		})

		voiceDir := cfg.Chat.DataDir
		if voiceDir == "" {
			voiceDir = "data"
		}
		assetStore, err = speech.NewAssetStore(filepath.Join(voiceDir, "voices"), "/api/files/voices/")
		if err != nil {
			log.Fatalf("failed to prepare voice asset store: %v", err)
		}
		log.Println("voice synthesis initialized")
	} else {
		log.Println("speech credentials not configured, replies will be text only")
	}

	gateway := aiService.NewGateway(textGen, voiceClient, assetStore, aiService.GatewayOptions{
		TextTimeout:  cfg.AI.Timeout,
		VoiceTimeout: cfg.Speech.Timeout,
	})

	assembler := aiService.NewAssembler(aiService.AssemblerOptions{
		HistoryWindow: cfg.Chat.HistoryWindow,
		CharBudget:    cfg.Chat.ContextBudget,
	})

	registry := chatService.NewRegistry(store)
	orchestrator := chatService.NewOrchestrator(limiter, personaStore, registry, store, assembler, gateway, chatService.OrchestratorOptions{
		HistoryWindow: cfg.Chat.HistoryWindow,
	})

	router := handler.NewRouter(personaStore, orchestrator)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("persona chat backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
