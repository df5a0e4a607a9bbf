package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/livekit/protocol/logger"

	"github.com/rapidxai/outbound-caller/internal/agentmgr"
	"github.com/rapidxai/outbound-caller/internal/agents"
	"github.com/rapidxai/outbound-caller/internal/events"
	"github.com/rapidxai/outbound-caller/internal/livekitclient"
	"github.com/rapidxai/outbound-caller/libs/config"
	"github.com/rapidxai/outbound-caller/libs/store"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		logger.GetLogger().Errorw("loading config", err)
		os.Exit(1)
	}
	logger.InitFromConfig(&logger.Config{Level: cfg.LogLevel, JSON: cfg.LogJSON}, "outbound-caller")
	log := logger.GetLogger()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Infow("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	var st *store.Store
	if cfg.DatabasePath != "" {
		st, err = store.Open(cfg.DatabasePath)
		if err != nil {
			log.Errorw("open db", err, "path", cfg.DatabasePath)
			os.Exit(1)
		}
		defer st.Close()
	}

	var pub events.Publisher = events.Nop{}
	if cfg.MQTT.Broker != "" {
		mp, err := events.NewMQTTPublisher(events.MQTTOptions{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			QoS:      1,
		})
		if err != nil {
			log.Errorw("connecting to MQTT", err, "broker", cfg.MQTT.Broker)
			os.Exit(1)
		}
		log.Infow("connected to MQTT broker", "broker", cfg.MQTT.Broker)
		pub = mp
	}
	defer pub.Close()

	journal := agents.NewJournal(st, events.NewEmitter(pub, cfg.MQTT.TopicPrefix), log)
	lk := cfg.LiveKit
	worker := &agents.Worker{
		Entry: &agents.Entrypoint{
			Config:  cfg,
			SIP:     livekitclient.NewSIPGateway(lk.URL, lk.APIKey, lk.APISecret),
			Journal: journal,
			Log:     log,
		},
		Rooms:    &livekitclient.Connector{URL: lk.URL, APIKey: lk.APIKey, APISecret: lk.APISecret, Log: log},
		Identity: cfg.AgentIdentity,
		Log:      log,
	}

	rooms := livekitclient.NewRooms(lk.URL, lk.APIKey, lk.APISecret)
	mgr := agentmgr.New(worker, func(job agents.Job, reason string) {
		endCtx, endCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer endCancel()
		journal.CallEnded(endCtx, job.Room, reason)
		// drops any telephony leg still in the room
		if err := rooms.Delete(endCtx, job.Room); err != nil {
			log.Debugw("delete room", "room", job.Room, "error", err)
		}
	}, log)

	srv := &server{
		rooms:   rooms,
		jobs:    mgr,
		journal: journal,
		webhook: rooms.ReceiveWebhook,
		log:     log,
		jobCtx:  ctx,
	}
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infow("http server listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("http server failed", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warnw("http shutdown", err)
	}
	mgr.StopAll("server shutdown")
	log.Infow("shutdown complete")
}
