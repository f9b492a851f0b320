package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/kamview/cmd"
	"github.com/smazurov/kamview/internal/app"
	"github.com/smazurov/kamview/internal/config"
	"github.com/smazurov/kamview/internal/devices"
	"github.com/smazurov/kamview/internal/events"
	"github.com/smazurov/kamview/internal/logging"
	"github.com/smazurov/kamview/internal/metrics"
	"github.com/smazurov/kamview/internal/viewer"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Device settings
	Device string `help:"Preferred device at startup (path or stable ID)" short:"d" default:"" toml:"device.preferred" env:"DEVICE_PREFERRED"`

	// Capture settings
	CaptureDir string `help:"Directory for saved captures (empty resolves the Pictures folder)" default:"" toml:"capture.dir" env:"CAPTURE_DIR"`

	// Presets settings
	PresetsFile string `help:"Control presets file" default:"presets.toml" toml:"presets.file" env:"PRESETS_FILE"`

	// Metrics settings
	MetricsAddr string `help:"Prometheus listen address (empty disables the endpoint)" default:"" toml:"metrics.addr" env:"METRICS_ADDR"`

	// Logging settings
	LoggingLevel    string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat   string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingDevices  string `help:"Devices logging level" default:"info" toml:"logging.devices" env:"LOGGING_DEVICES"`
	LoggingCamera   string `help:"Camera session logging level" default:"info" toml:"logging.camera" env:"LOGGING_CAMERA"`
	LoggingControls string `help:"Controls logging level" default:"info" toml:"logging.controls" env:"LOGGING_CONTROLS"`
	LoggingFrame    string `help:"Frame pipeline logging level" default:"info" toml:"logging.frame" env:"LOGGING_FRAME"`
	LoggingCapture  string `help:"Capture logging level" default:"info" toml:"logging.capture" env:"LOGGING_CAPTURE"`
	LoggingApp      string `help:"App loop logging level" default:"info" toml:"logging.app" env:"LOGGING_APP"`
}

func main() {
	// Create Huma CLI
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, nil); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		// Initialize logging system
		loggingConfig := logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"devices":  opts.LoggingDevices,
				"camera":   opts.LoggingCamera,
				"controls": opts.LoggingControls,
				"frame":    opts.LoggingFrame,
				"capture":  opts.LoggingCapture,
				"app":      opts.LoggingApp,
			},
		}
		logging.Initialize(loggingConfig)

		logger := logging.GetLogger("main")

		// Load control presets
		presets := config.NewPresetManager(opts.PresetsFile)
		if loadErr := presets.Load(); loadErr != nil {
			logger.Warn("Failed to load presets", "file", opts.PresetsFile, "error", loadErr)
		}

		// Hot-reload presets on external edits
		presetsWatcher := config.NewConfigWatcher(
			opts.PresetsFile,
			config.LoadPresetsFile,
			logging.GetLogger("config"),
		)
		presetsWatcher.OnReload(func(cfg *config.PresetsConfig) {
			presets.Replace(cfg)
			logger.Info("Reloaded presets", "file", opts.PresetsFile)
		})

		// Create event bus for in-process event handling
		eventBus := events.New()

		detector := devices.NewDetector()
		controller := app.New(detector, eventBus, app.Options{
			CaptureDir: opts.CaptureDir,
			Presets:    presets,
		})

		// Hotplug monitor feeds device list updates into the tick loop
		monitor := devices.NewMonitor(detector, controller.UpdateDevices)

		ui := viewer.New(controller, eventBus)

		ctx, cancel := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			if startErr := controller.Start(); startErr != nil {
				logger.Error("Failed to start", "error", startErr)
				os.Exit(1)
			}

			if monErr := monitor.Start(ctx); monErr != nil {
				logger.Warn("Device hotplug monitoring disabled", "error", monErr)
			}

			// Non-fatal: presets still work, just without hot reload
			if watchErr := presetsWatcher.Start(); watchErr != nil {
				logger.Warn("Presets hot reload disabled", "error", watchErr)
			}

			if opts.MetricsAddr != "" {
				go func() {
					if srvErr := metrics.Serve(ctx, opts.MetricsAddr); srvErr != nil {
						logger.Warn("Metrics endpoint stopped", "error", srvErr)
					}
				}()
			}

			// Queue the preferred device; the first tick picks it up.
			if opts.Device != "" {
				path, resolveErr := devices.ResolveDevicePath(opts.Device)
				if resolveErr != nil {
					logger.Warn("Preferred device not found", "device", opts.Device, "error", resolveErr)
				} else {
					eventBus.Publish(events.SelectDeviceEvent{DevicePath: path, DeviceID: opts.Device})
				}
			}

			logger.Info("Starting viewer", "capture_dir", controller.CaptureDir())
			if runErr := viewer.Run(ui); runErr != nil {
				logger.Error("Viewer exited with error", "error", runErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			cancel()
			if stopErr := presetsWatcher.Stop(); stopErr != nil {
				logger.Warn("Error stopping presets watcher", "error", stopErr)
			}
			if stopErr := monitor.Stop(); stopErr != nil {
				logger.Warn("Error stopping device monitor", "error", stopErr)
			}
			if closeErr := controller.Close(); closeErr != nil {
				logger.Warn("Error closing controller", "error", closeErr)
			}
		})
	})

	// Add devices command
	cli.Root().AddCommand(cmd.CreateDevicesCmd())

	// Add snapshot command
	cli.Root().AddCommand(cmd.CreateSnapshotCmd())

	// Add version command
	cli.Root().AddCommand(cmd.CreateVersionCmd())

	// Run the CLI
	cli.Run()
}
