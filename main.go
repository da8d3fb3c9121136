package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"go.uber.org/zap"

	"fieldops/fieldtrack/auth"
	"fieldops/fieldtrack/channel"
	"fieldops/fieldtrack/config"
	"fieldops/fieldtrack/feed"
	"fieldops/fieldtrack/poll"
	"fieldops/fieldtrack/render"
	"fieldops/fieldtrack/tracking"
	"fieldops/fieldtrack/web"
)

// Functionality:
//   INPUT
//     Feed client    - REST snapshots: active users, active sessions, per-date routes, form markers
//     Channel client - redis pub/sub push: broadcast tracking topic plus one per-user live topic
//   DOES STUFF
//     Tracking store - merges snapshots and push events into the live collections
//     Scheduler      - re-polls the focused user's route while the viewed date is today
//     Render adapter - projects store state onto a canvas or native map backend

type cleanupFunc func() error

// channelStatus adapts the optional channel client for the web server's
// connectivity indicator. A nil client reads as disconnected.
type channelStatus struct {
	c *channel.Client
}

func (s channelStatus) Connected() bool {
	return s.c != nil && s.c.Connected()
}

// canvasSink avoids handing the canvas a typed-nil sink when the web server
// is disabled.
func canvasSink(hub *web.FrameHub) render.FrameSink {
	if hub == nil {
		return nil
	}
	return hub
}

func recoverFunc(logger *zap.Logger) {
	if r := recover(); r != nil {
		logger.Error("Recovered from panic",
			zap.Any("message", r),
			zap.String("stack", string(debug.Stack())),
		)
	}
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup logger.
	logger := config.MustGetLogger()
	defer func(logger *zap.SugaredLogger) {
		_ = logger.Sync()
	}(logger)

	logger.Infof("Build version %v", config.BuildVersion)

	// Recovery.
	defer recoverFunc(logger.Desugar())

	// Cleanup functions.
	var cleanupFuncs []cleanupFunc

	// Credential provider backed by the token cache file.
	credentials, err := auth.NewProvider(logger, &config.AppCfg.AuthConfig)
	if err != nil {
		logger.Fatalf("Failed to setup credential provider: %v", err)
	}
	logger.Info("Credential provider created")

	// Feed client for REST snapshots.
	feedClient, err := feed.NewClient(logger, &config.AppCfg.APIConfig, credentials)
	if err != nil {
		logger.Fatalf("Failed to setup feed client: %v", err)
	}
	logger.Info("Feed client created")

	// Tracking store.
	store, err := tracking.NewStore(logger)
	if err != nil {
		logger.Fatalf("Failed to setup tracking store: %v", err)
	}
	logger.Info("Tracking store created")

	refresher, err := tracking.NewRefresher(logger, feedClient, store)
	if err != nil {
		logger.Fatalf("Failed to setup refresher: %v", err)
	}

	// Push channel. A broken broker leaves us on polling alone.
	var channelClient *channel.Client
	rdb, err := channel.NewRedisClient(ctx, &config.AppCfg.ChannelConfig)
	if err != nil {
		logger.Errorf("Push channel unavailable, continuing with polling only: %v", err)
	} else {
		channelClient, err = channel.NewClient(logger, rdb, store)
		if err != nil {
			logger.Fatalf("Failed to setup channel client: %v", err)
		}
		if err := channelClient.Connect(ctx); err != nil {
			logger.Errorf("Failed to open push subscriptions: %v", err)
		}
		cleanupFuncs = append(cleanupFuncs, func() error {
			channelClient.Disconnect()
			return rdb.Close()
		})
	}

	// Polling scheduler for the focused user. It stays idle until a selection
	// arms it.
	scheduler, err := poll.NewScheduler(logger, &config.AppCfg.PollConfig, refresher, store)
	if err != nil {
		logger.Fatalf("Failed to setup scheduler: %v", err)
	}
	cleanupFuncs = append(cleanupFuncs, func() error {
		scheduler.Stop()
		return nil
	})

	// Selection lifecycle. A nil channel client leaves live tracking off and
	// polling carries the selection alone.
	var live tracking.LiveTracker
	if channelClient != nil {
		live = channelClient
	}
	selector, err := tracking.NewSelector(ctx, logger, store, refresher, live, scheduler)
	if err != nil {
		logger.Fatalf("Failed to setup selector: %v", err)
	}

	// Web server plus render backend. The canvas backend streams frames over
	// the web server's websocket; the native backend waits for a map engine.
	var srv *http.Server
	var hub *web.FrameHub
	if config.AppCfg.WebConfig.WebEnabled {
		srv, hub = web.NewServer(logger, store, channelStatus{channelClient}, selector, feedClient)
	}

	var backend render.Backend
	switch config.AppCfg.RenderConfig.Backend {
	case "canvas":
		backend = render.NewCanvas(logger, canvasSink(hub))
	default:
		backend = render.NewNative(logger, &config.AppCfg.RenderConfig, nil, nil)
	}

	adapter, err := render.NewAdapter(logger, backend, store)
	if err != nil {
		logger.Fatalf("Failed to setup render adapter: %v", err)
	}
	store.RegisterChangeReceivers(adapter)
	logger.Infof("Render adapter created with %s backend", config.AppCfg.RenderConfig.Backend)

	// Initial snapshots.
	refresher.RefreshSnapshots(ctx)
	logger.Info("Initial snapshots loaded")

	// Web server start.
	if srv != nil {
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatalln("Error starting web server:", err)
			}
			logger.Info("Web server quit")
		}()
		logger.Info("Web server started")

		cleanupFuncs = append(cleanupFuncs, func() error {
			ctxSrv, cancelSrv := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelSrv()
			if err := srv.Shutdown(ctxSrv); err != nil {
				return fmt.Errorf("error shutting down web server: %w", err)
			}
			return nil
		})
	}

	// Capture SIGINT and SIGTERM to shut down gracefully.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info("Signal received, shutting down...")

	// Clean up and exit.
	failure := false
	for _, f := range cleanupFuncs {
		if err := f(); err != nil {
			logger.Errorf("Error during cleanup: %v", err)
			failure = true
		}
	}
	if failure {
		os.Exit(1)
	}
}
