// Command bridge mirrors vehicles from a SUMO traffic simulation into two
// spatially partitioned CARLA worlds in lockstep.
//
// Usage: bridge <config.json>
//
// Exit codes: 0 on clean shutdown (including interrupt), 1 on any runtime
// failure, 2 on usage errors.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dualcarla/bridge/internal/bridge"
	"github.com/dualcarla/bridge/internal/config"
	"github.com/dualcarla/bridge/internal/influx"
	"github.com/dualcarla/bridge/internal/journal"
	"github.com/dualcarla/bridge/internal/logging"
	"github.com/dualcarla/bridge/internal/model"
	"github.com/dualcarla/bridge/internal/monitor"
	"github.com/dualcarla/bridge/internal/registry"
	"github.com/dualcarla/bridge/internal/sumo/traci"
	"github.com/dualcarla/bridge/internal/telemetry"
	"github.com/dualcarla/bridge/internal/transform"
	"github.com/dualcarla/bridge/internal/world"
	"github.com/dualcarla/bridge/internal/world/wsadapter"
	"github.com/dualcarla/bridge/internal/zone"
	"github.com/dualcarla/bridge/pkg/core"
)

// set at build time via ldflags
var (
	Version   = "0.0.1"
	BuildDate = "unknown"
)

const (
	exitOK    = 0
	exitFatal = 1
	exitUsage = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <config.json>\n", filepath.Base(os.Args[0]))
		return exitUsage
	}

	if err := config.Load(os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "bridge: %v\n", err)
		return exitFatal
	}

	sessionStart := time.Now()
	log := setupLogging(sessionStart)
	log.Info().Str("version", Version).Str("buildDate", BuildDate).Msg("Bridge starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sumoCfg := config.GetSumoConfig()
	engine, err := traci.Dial(sumoCfg.Host, sumoCfg.Port, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to traffic simulation")
		return exitFatal
	}

	zoneCfg := config.GetZoneConfig()
	transformer, err := buildTransformer(sumoCfg, zoneCfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to calibrate coordinate transform")
		engine.Close()
		return exitFatal
	}

	worldCfgs := config.GetWorldConfigs()
	var handles [2]*world.Handle
	for i, wc := range worldCfgs {
		srv, err := wsadapter.Dial(wc.Host, wc.Port, log)
		if err != nil {
			connErr := &world.ConnectError{Name: wc.Name, Err: err}
			log.Error().Err(connErr).Msg("Failed to connect to target world")
			teardownWorlds(handles[:i])
			engine.Close()
			return exitFatal
		}
		h, err := world.New(core.Worlds[i], wc.Name, srv, sumoCfg.StepLength, log)
		if err != nil {
			log.Error().Err(err).Msg("Failed to prepare target world")
			srv.Close()
			teardownWorlds(handles[:i])
			engine.Close()
			return exitFatal
		}
		handles[i] = h
	}

	jb, err := journal.NewBackend(config.GetJournalConfig(), log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open run journal")
		teardownWorlds(handles[:])
		engine.Close()
		return exitFatal
	}
	calCfg := config.GetCalibrationConfig()
	runRecord := &model.Run{
		StartTime:  sessionStart.UTC(),
		StepLength: sumoCfg.StepLength,
		Scheme:     calCfg.Scheme,
		ZoneAxis:   zoneCfg.Axis,
		ZoneStart:  zoneCfg.Start,
		ZoneEnd:    zoneCfg.End,
		WorldNames: model.JSONStrings([]string{worldCfgs[0].Name, worldCfgs[1].Name}),
	}
	if err := jb.StartRun(runRecord); err != nil {
		log.Error().Err(err).Msg("Failed to start run journal")
		jb.Close()
		teardownWorlds(handles[:])
		engine.Close()
		return exitFatal
	}

	metrics, err := telemetry.New()
	if err != nil {
		log.Warn().Err(err).Msg("Telemetry instruments unavailable")
	}

	reg := registry.New()
	stats := &monitor.Stats{}

	var influxMgr *influx.Manager
	var mon *monitor.Service
	influxCfg := config.GetInfluxConfig()
	if influxCfg.Enabled {
		backupPath := filepath.Join(config.GetString("logsDir"), "influx_backup.gz")
		influxMgr = influx.NewManager(influxCfg, backupPath, log)
		if err := influxMgr.Connect(); err != nil {
			log.Warn().Err(err).Msg("Step monitor disabled")
			influxMgr = nil
		} else {
			mon = monitor.NewService(monitor.Dependencies{
				Influx:   influxMgr,
				Journal:  jb,
				Registry: reg,
				Stats:    stats,
				Interval: influxCfg.Interval,
				Logger:   log,
			})
			mon.Start()
		}
	}

	syncer := bridge.New(bridge.Config{
		Engine:      engine,
		Worlds:      handles,
		Transformer: transformer,
		Classifier:  zone.NewClassifier(zoneCfg),
		Registry:    reg,
		Journal:     jb,
		Metrics:     metrics,
		Stats:       stats,
		Logger:      log,
	})

	runErr := syncer.Run(ctx)

	if mon != nil {
		mon.Stop()
	}
	if err := jb.EndRun(syncer.Steps()); err != nil {
		log.Error().Err(err).Msg("Failed to finalize run journal")
	}
	jb.Close()
	syncer.Close()
	if influxMgr != nil {
		influxMgr.Close()
	}

	if runErr != nil {
		log.Error().Err(runErr).Msg("Bridge failed")
		return exitFatal
	}
	log.Info().Uint64("steps", syncer.Steps()).Msg("Bridge exited cleanly")
	return exitOK
}

// setupLogging builds the session logger: console, per-session log file and
// the optional Graylog sink.
func setupLogging(sessionStart time.Time) zerolog.Logger {
	logsDir := config.GetString("logsDir")
	var fileWriter io.Writer
	if err := os.MkdirAll(logsDir, 0755); err == nil {
		if f, err := os.Create(logging.LogFilePath(logsDir, sessionStart)); err == nil {
			fileWriter = f
		}
	}

	graylogAddr := ""
	if gl := config.GetGraylogConfig(); gl.Enabled {
		graylogAddr = gl.Address
	}

	return logging.Setup(logging.Options{
		Level:          config.GetString("logLevel"),
		File:           fileWriter,
		GraylogAddress: graylogAddr,
	})
}

// buildTransformer calibrates the source-to-target transform. Both schemes
// read their calibration from the network file; TraCI has no retrieval
// variable for the net offset. The offset scheme tolerates a missing file,
// the boundary scheme requires it.
func buildTransformer(sumoCfg config.SumoConfig, zoneCfg config.ZoneConfig, log zerolog.Logger) (transform.Transformer, error) {
	calCfg := config.GetCalibrationConfig()

	if calCfg.Scheme == "boundary" {
		conv, orig, err := transform.ReadNetBoundaries(sumoCfg.NetFile)
		if err != nil {
			return transform.Transformer{}, err
		}
		return transform.NewBoundary(conv, orig, zoneCfg.ZOffset, calCfg.ProjectGeoBoundary)
	}

	ox, oy := 0.0, 0.0
	if sumoCfg.NetFile != "" {
		var err error
		if ox, oy, err = transform.ReadNetOffset(sumoCfg.NetFile); err != nil {
			log.Warn().Err(err).Msg("Could not read net offset, assuming (0, 0)")
			ox, oy = 0, 0
		}
	} else {
		log.Warn().Msg("sumo.netFile not configured, assuming net offset (0, 0)")
	}
	return transform.NewOffset(ox, oy, zoneCfg.ZOffset), nil
}

func teardownWorlds(handles []*world.Handle) {
	for _, h := range handles {
		if h != nil {
			h.Close()
		}
	}
}
