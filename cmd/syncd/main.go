package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"dandori/sync/internal/api"
	"dandori/sync/internal/config"
	"dandori/sync/internal/masterdata"
	"dandori/sync/internal/projectmaster"
	"dandori/sync/internal/realtime"
	"dandori/sync/internal/sync"
)

func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	apiClient := api.New(cfg.APIBaseURL)
	masterClient := projectmaster.New(cfg.APIBaseURL)
	masters := masterdata.New(cfg.APIBaseURL)
	if err := masters.Refresh(ctx); err != nil {
		log.Printf("WARNING: master data unavailable (will retry on demand): %v", err)
	}

	var notifiers []sync.Notifier
	var broadcast *realtime.Broadcast
	if strings.TrimSpace(cfg.RedisURL) != "" {
		var err error
		broadcast, err = realtime.NewBroadcast(cfg.RedisURL, cfg.BroadcastChannel, logger)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer broadcast.Close()
		notifiers = append(notifiers, broadcast)
	}

	var feed *realtime.ChangeFeed
	if strings.TrimSpace(cfg.ChangeFeedURL) != "" {
		feed = realtime.NewChangeFeed(cfg.ChangeFeedURL, cfg.ChangeFeedNotifiesSelf, logger)
	}

	localBus := realtime.NewLocalBus()
	if feed == nil || !feed.NotifiesSelf() {
		notifiers = append(notifiers, localBus)
	}

	engine := sync.NewEngine(sync.Options{
		API:         apiClient,
		Masters:     masterClient,
		Notifiers:   notifiers,
		Logger:      logger,
		EmployeeID:  cfg.EmployeeID,
		SettleDelay: cfg.SettleDelay,
		CreateDelay: cfg.CreateDelay,
		MaxGateHold: cfg.MaxGateHold,
	})

	// Load the current month before wiring channels.
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	if err := engine.FetchRange(ctx, start, end); err != nil {
		log.Fatalf("initial range fetch failed: %v", err)
	}

	if feed != nil {
		go feed.Run(ctx)
		go engine.Pump(ctx, feed.Events())
	}
	if broadcast != nil {
		go broadcast.Run(ctx)
		go engine.Pump(ctx, broadcast.Events())
	}
	busEvents, unsubscribe := localBus.Subscribe()
	defer unsubscribe()
	go engine.Pump(ctx, busEvents)

	poller := realtime.NewPoller(cfg.PollInterval)
	go poller.Run(ctx)
	go engine.Pump(ctx, poller.Events())

	log.Printf("dandori syncd running, window %s..%s",
		start.Format("2006-01-02"), end.Format("2006-01-02"))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutting down")
	cancel()
}
