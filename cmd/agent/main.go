package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/livekit/protocol/logger"

	"github.com/rapidxai/outbound-caller/internal/agents"
	"github.com/rapidxai/outbound-caller/internal/callconfig"
	"github.com/rapidxai/outbound-caller/internal/livekitclient"
	"github.com/rapidxai/outbound-caller/libs/config"
)

// agent runs a single call job in an existing room, without the dispatch
// server. Useful against a LiveKit dev server.
func main() {
	var (
		room     string
		metadata string
		phone    string
	)
	flag.StringVar(&room, "room", "", "room to join")
	flag.StringVar(&metadata, "metadata", "", "job metadata JSON")
	flag.StringVar(&phone, "phone", "", "number to dial; shorthand for -metadata '{\"phone_number\":...}'")
	flag.Parse()

	if room == "" {
		fmt.Fprintln(os.Stderr, "room required: -room <name>")
		os.Exit(2)
	}
	if metadata == "" && phone != "" {
		b, _ := json.Marshal(map[string]string{callconfig.KeyPhoneNumber: phone})
		metadata = string(b)
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	logger.InitFromConfig(&logger.Config{Level: cfg.LogLevel, JSON: cfg.LogJSON}, "outbound-caller-agent")
	log := logger.GetLogger()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		cancel(fmt.Errorf("signal %s", sig))
	}()

	lk := cfg.LiveKit
	worker := &agents.Worker{
		Entry: &agents.Entrypoint{
			Config:  cfg,
			SIP:     livekitclient.NewSIPGateway(lk.URL, lk.APIKey, lk.APISecret),
			Journal: agents.NewJournal(nil, nil, log),
			Log:     log,
		},
		Rooms:    &livekitclient.Connector{URL: lk.URL, APIKey: lk.APIKey, APISecret: lk.APISecret, Log: log},
		Identity: cfg.AgentIdentity,
		Log:      log,
	}

	shutdown := func(reason string) { cancel(errors.New(reason)) }
	if err := worker.Run(ctx, agents.Job{ID: "cli", Room: room, Metadata: metadata}, shutdown); err != nil {
		log.Errorw("call failed", err, "room", room)
		os.Exit(1)
	}
	log.Infow("call ended", "room", room, "reason", context.Cause(ctx))
}
