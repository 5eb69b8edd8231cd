// Package app boots the process in one of its three roles: authoritative
// server, headless singleplayer, or forwarding client.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	server "merlo/server"
	"merlo/server/internal/anim"
	"merlo/server/internal/config"
	"merlo/server/internal/input"
	servernet "merlo/server/internal/net"
	"merlo/server/internal/net/client"
	"merlo/server/internal/physics"
	"merlo/server/internal/sim"
	"merlo/server/internal/sim/vec"
	"merlo/server/internal/telemetry"
)

// Options parameterize a run.
type Options struct {
	ConfigPath string

	// Devices for local-input roles. Nil devices are skipped.
	Keyboard input.Keyboard
	Gamepad  input.Gamepad
	Mouse    input.Mouse
}

// Run loads configuration and blocks in the configured role until the
// context ends or the role's work fails.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	zlog := newLogger(cfg.LogLevel)
	logger := telemetry.WrapZerolog(zlog)
	zlog.Info().Str("role", string(cfg.Role)).Int("tickRate", cfg.TickRate).Msg("starting")

	switch cfg.Role {
	case sim.RoleServer:
		return runServer(ctx, cfg, logger)
	case sim.RoleSingleplayer:
		return runSingleplayer(ctx, cfg, logger, opts)
	case sim.RoleClient:
		return runClient(ctx, cfg, logger, opts)
	default:
		return fmt.Errorf("unsupported role %q", cfg.Role)
	}
}

func newLogger(level string) zerolog.Logger {
	parsed := zerolog.InfoLevel
	switch strings.ToUpper(level) {
	case "DEBUG":
		parsed = zerolog.DebugLevel
	case "WARN":
		parsed = zerolog.WarnLevel
	case "ERROR":
		parsed = zerolog.ErrorLevel
	case "TRACE":
		parsed = zerolog.TraceLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	return zerolog.New(writer).Level(parsed).With().Timestamp().Logger()
}

func runServer(ctx context.Context, cfg config.Config, logger telemetry.Logger) error {
	hub := server.NewHub(server.HubConfig{
		TickRate:         cfg.TickRate,
		CatchupMaxTicks:  cfg.CatchupMaxTicks,
		CommandCapacity:  cfg.CommandCapacity,
		PerActorLimit:    cfg.PerActorLimit,
		KeyframeInterval: cfg.KeyframeIntervalTicks,
		HeartbeatTimeout: cfg.HeartbeatTimeout,
		Tuning:           cfg.SimTuning(),
		Logger:           logger,
		Metrics:          telemetry.NewCounters(),
	})
	for _, doodad := range cfg.Doodads {
		hub.AddDoodad(doodad.Snapshot())
	}

	stop := make(chan struct{})
	go hub.RunSimulation(stop)
	defer close(stop)

	handler := servernet.NewHTTPHandler(hub, servernet.HTTPHandlerConfig{Logger: logger})
	srv := &http.Server{Addr: cfg.ListenAddr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Printf("listening on %s", cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// runSingleplayer owns a local authoritative simulation fed directly by the
// local devices, with no network surface.
func runSingleplayer(ctx context.Context, cfg config.Config, logger telemetry.Logger, opts Options) error {
	world := physics.NewWorld(0)
	world.AddGround(0)

	deps := sim.Deps{Logger: logger, Metrics: telemetry.NewCounters(), Clock: telemetry.SystemClock{}}
	core := sim.NewCore(sim.RoleSingleplayer, world, cfg.SimTuning(), deps)
	for _, doodad := range cfg.Doodads {
		core.AddDoodad(doodad.Snapshot())
	}

	const playerID = "local"
	if err := core.SpawnCharacter(playerID, vec.Vec3{Y: 1.5}); err != nil {
		return err
	}

	collector := input.NewCollector(opts.Keyboard, opts.Gamepad, opts.Mouse)
	classifier := anim.NewClassifier(&anim.LogPlayer{Name: playerID, Logger: logger})
	classifier.Start()

	loop := sim.NewLoop(core, sim.LoopConfig{
		TickRate:        cfg.TickRate,
		CatchupMaxTicks: cfg.CatchupMaxTicks,
		CommandCapacity: cfg.CommandCapacity,
		PerActorLimit:   cfg.PerActorLimit,
	}, deps, sim.LoopHooks{
		Prepare: func(tick sim.LoopTickContext) {
			for _, action := range collector.Poll() {
				core.Apply([]sim.Command{{
					ActorID:    playerID,
					OriginTick: tick.Tick,
					IssuedAt:   tick.Now,
					Action:     action,
				}})
			}
		},
		AfterStep: func(result sim.LoopStepResult) {
			for _, player := range result.Snapshot.Players {
				if player.ID == playerID {
					classifier.Update(anim.ClassifyState(player.State))
				}
			}
		},
	})

	stop := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(stop)
	}()
	loop.Run(stop)
	return ctx.Err()
}

// runClient joins a remote server and forwards local input instead of
// integrating it.
func runClient(ctx context.Context, cfg config.Config, logger telemetry.Logger, opts Options) error {
	peer := client.New(client.Config{
		ServerURL: cfg.ServerURL,
		Logger:    logger,
		Animations: func(playerID string) anim.Player {
			return &anim.LogPlayer{Name: playerID, Logger: logger}
		},
	})
	if err := peer.Join(ctx); err != nil {
		return err
	}
	defer peer.Close()
	logger.Printf("joined as %s", peer.PlayerID())

	collector := input.NewCollector(opts.Keyboard, opts.Gamepad, opts.Mouse)

	go func() {
		heartbeat := time.NewTicker(cfg.HeartbeatInterval)
		defer heartbeat.Stop()
		poll := time.NewTicker(time.Second / time.Duration(cfg.TickRate))
		defer poll.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				if err := peer.SendHeartbeat(); err != nil {
					logger.Printf("heartbeat failed: %v", err)
					return
				}
			case <-poll.C:
				for _, action := range collector.Poll() {
					if err := peer.Send(action); err != nil {
						logger.Printf("send failed: %v", err)
						return
					}
				}
			}
		}
	}()

	return peer.Run(ctx)
}
