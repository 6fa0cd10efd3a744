// voiceloop serves a voice chat session: browser capture and playback
// bridged over WebSocket, transcripts submitted to a remote agent, the
// reply spoken back. State is pushed to every connected client.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/voiceloop/voiceloop/internal/config"
	"github.com/voiceloop/voiceloop/internal/log"
	"github.com/voiceloop/voiceloop/pkg/agent"
	"github.com/voiceloop/voiceloop/pkg/capture"
	"github.com/voiceloop/voiceloop/pkg/history"
	"github.com/voiceloop/voiceloop/pkg/playback"
	"github.com/voiceloop/voiceloop/pkg/recognition"
	"github.com/voiceloop/voiceloop/pkg/session"
	"github.com/voiceloop/voiceloop/pkg/synthesis"
	"github.com/voiceloop/voiceloop/pkg/web"
)

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	port := cli.StringP("port", "p", "", "Listen port (overrides PORT)")
	logLevel := cli.StringP("log", "l", "", "Log level: debug, info, warn, error")
	agentURL := cli.String("agent-url", "", "Agent endpoint (overrides AGENT_URL)")
	voiceLoop := cli.Bool("voice-loop", false, "Re-arm listening after each reply")
	mockAgent := cli.Bool("mock-agent", false, "Echo agent for offline development")
	cli.Parse()

	godotenv.Load(*envFile)

	cfg := config.FromEnv()
	if *port != "" {
		cfg.Port = *port
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *agentURL != "" {
		cfg.AgentURL = *agentURL
	}
	if *voiceLoop {
		cfg.VoiceLoop = true
	}

	log.Init(cfg.LogLevel)

	if !*mockAgent {
		if err := cfg.Validate(); err != nil {
			log.Error("invalid configuration", "error", err)
			os.Exit(1)
		}
	}

	if err := run(cfg, *mockAgent); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, mockAgent bool) error {
	store, err := history.NewJSONStore(cfg.HistoryPath)
	if err != nil {
		return err
	}

	// Recognition: a streaming STT service when configured, otherwise the
	// browser's capability relayed over the voice socket.
	var (
		rec       recognition.Recognizer
		recBridge *recognition.Bridge
	)
	if cfg.STTURL != "" {
		rec = recognition.NewRemote(cfg.STTURL, recognition.WithRemoteLocale(cfg.Locale))
		log.Info("recognition via remote STT", "url", cfg.STTURL)
	} else {
		recBridge = recognition.NewBridge()
		rec = recBridge
	}

	synthBridge := synthesis.NewBridge()

	cap, err := capture.New(rec)
	if err != nil {
		return err
	}
	play := playback.New(synthBridge, playback.WithLocale(cfg.Locale))

	var submitter agent.Submitter
	if mockAgent {
		submitter = agent.NewMock()
		log.Warn("using mock agent, replies are echoes")
	} else {
		submitter, err = agent.NewClient(
			agent.WithURL(cfg.AgentURL),
			agent.WithAPIKey(cfg.AgentAPIKey),
			agent.WithTimeout(cfg.SubmitTimeout),
		)
		if err != nil {
			return err
		}
	}

	opts := []session.Option{
		session.WithHistory(store),
		session.WithSubmitTimeout(cfg.SubmitTimeout),
	}
	if cfg.VoiceLoop {
		opts = append(opts, session.WithVoiceLoop())
	}
	sess := session.New(cap, play, submitter, opts...)
	defer sess.Close()

	link := web.NewVoiceLink(recBridge, synthBridge)
	srv := web.NewServer(cfg.Port, sess, store, link)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	log.Info("voiceloop up", "session", sess.SessionID(), "port", cfg.Port, "voice_loop", cfg.VoiceLoop)

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		return srv.Shutdown()
	case err := <-errCh:
		return err
	}
}
