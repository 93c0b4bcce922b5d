package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-remote/internal/bus"
	"github.com/edumarques81/stellar-remote/internal/config"
	"github.com/edumarques81/stellar-remote/internal/controller"
	"github.com/edumarques81/stellar-remote/internal/domain/artwork"
	"github.com/edumarques81/stellar-remote/internal/domain/backend"
	"github.com/edumarques81/stellar-remote/internal/domain/model"
	"github.com/edumarques81/stellar-remote/internal/infra/cache"
	"github.com/edumarques81/stellar-remote/internal/infra/eventsource"
	"github.com/edumarques81/stellar-remote/internal/infra/jsonrpc"
	"github.com/edumarques81/stellar-remote/internal/infra/mopidy"
	"github.com/edumarques81/stellar-remote/internal/scheduler"
	"github.com/edumarques81/stellar-remote/internal/transport/socketio"
	"github.com/edumarques81/stellar-remote/internal/version"
)

const shutdownTimeout = 5 * time.Second

// loadSettings reads the settings file and applies the command line flags on
// top of it, now and on every reload.
func loadSettings(f *flags) (*config.Settings, error) {
	initial, err := config.Load(f.config)
	if err != nil {
		return nil, err
	}

	settings := config.New(f.config, initial)
	settings.SetOverride(func(s *config.Snapshot) {
		if f.port != "" {
			s.Listen = ":" + f.port
		}
		if f.mopidyURL != "" {
			s.MopidyURL = f.mopidyURL
		}
	})
	if err := settings.Get().Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

func serve(ctx context.Context, f *flags) error {
	log.Info().Msg("========================================")
	log.Info().Msg(version.GetInfo().String())
	log.Info().Msg("========================================")

	settings, err := loadSettings(f)
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	cfg := settings.Get()
	log.Info().Str("mopidy", cfg.MopidyURL).Str("settings", settings.Path()).Msg("Settings loaded")

	wsURL, err := eventsource.WebSocketURL(cfg.MopidyURL)
	if err != nil {
		return fmt.Errorf("event url: %w", err)
	}

	exec := model.NewExecutor()
	m := model.New(exec)
	disp := bus.NewDispatcher()

	rpc := jsonrpc.NewClient(cfg.MopidyURL, jsonrpc.WithTimeout(cfg.RPCTimeout))
	defer rpc.Close()

	env := controller.Env{
		Core:     mopidy.NewCore(rpc, cfg.LookupSliceSize),
		Model:    m,
		Sender:   disp,
		Backends: backend.NewRegistry(backend.Defaults(), backend.ParseKinds(cfg.DisabledBackends)...),
	}

	index := cache.NewDB(cfg.CacheDB)
	if err := index.Open(); err != nil {
		return fmt.Errorf("image index: %w", err)
	}
	defer index.Close()

	downloader, err := artwork.NewDownloader(cfg.MopidyURL, artwork.DefaultRate)
	if err != nil {
		return fmt.Errorf("image downloader: %w", err)
	}
	defer downloader.Close()

	store, err := artwork.NewStore(index, downloader, artwork.NewThumbnailer(cfg.ImageDir, artwork.ThumbLarge))
	if err != nil {
		return fmt.Errorf("image store: %w", err)
	}
	images := artwork.NewWorker(store, artwork.DefaultWorkers, controller.Announce(disp))

	tracker := controller.NewTimeTracker(env,
		controller.WithSyncThreshold(cfg.SyncInterval),
		controller.WithSyncTimeout(cfg.SyncTimeout),
	)

	bridge, err := socketio.NewServer(m, disp, socketio.Options{MaxExternalClients: cfg.MaxExternalClients})
	if err != nil {
		return fmt.Errorf("socket.io server: %w", err)
	}
	defer bridge.Close()

	// Registration order is delivery order; the bridge comes last so that it
	// sees the results of the controllers.
	consumers := []bus.Consumer{
		controller.NewConnection(env),
		controller.NewPlayback(env, cfg.HistorySize),
		controller.NewMixer(env),
		controller.NewTracklist(env),
		controller.NewLibrary(env, cfg.PreloadAlbumTracks),
		controller.NewPlaylists(env),
		controller.NewArtists(env),
		controller.NewImages(env, store, images),
		tracker,
		bridge,
	}
	for _, c := range consumers {
		if err := disp.Register(c); err != nil {
			return fmt.Errorf("register %s: %w", c.Name(), err)
		}
	}

	listener := eventsource.NewListener(wsURL, disp, eventsource.WithRetryDelay(cfg.RetryDelay))

	sched := scheduler.New(disp, m.Connected.Get)
	if err := sched.Reschedule(cfg.RefreshSchedule); err != nil {
		return fmt.Errorf("refresh schedule: %w", err)
	}

	settings.Forward(disp)
	settings.Subscribe(func(s config.Snapshot) {
		listener.SetRetryDelay(s.RetryDelay)
		if err := sched.Reschedule(s.RefreshSchedule); err != nil {
			log.Warn().Err(err).Msg("Keeping previous refresh schedule")
		}
		if s.Listen != cfg.Listen || s.MopidyURL != cfg.MopidyURL {
			log.Warn().Msg("Listen address and Mopidy URL changes apply after restart")
		}
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Str("component", name).Msg("Component stopped")
			}
		}()
	}
	run("executor", exec.Run)
	run("dispatcher", disp.Run)
	run("listener", listener.Run)
	run("images", func(ctx context.Context) error {
		images.Run(ctx)
		return nil
	})
	run("time_tracker", tracker.Run)
	run("scheduler", sched.Run)
	run("settings", func(ctx context.Context) error {
		return settings.Watch(ctx, config.DefaultDebounce)
	})

	srv := &http.Server{
		Addr: cfg.Listen,
		Handler: newMux(routes{
			socket:   bridge,
			model:    m,
			stats:    index,
			images:   store,
			imageDir: cfg.ImageDir,
		}),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down...")

		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	log.Info().Str("addr", cfg.Listen).Msg("Server listening")
	err = srv.ListenAndServe()
	cancel()
	wg.Wait()

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	log.Info().Msg("Server stopped")
	return nil
}
