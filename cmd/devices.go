package cmd

import (
	"fmt"
	"os"

	"github.com/smazurov/kamview/internal/devices"
	"github.com/smazurov/kamview/internal/logging"
	"github.com/spf13/cobra"
)

// CreateDevicesCmd creates the devices command.
func CreateDevicesCmd() *cobra.Command {
	var usableOnly bool
	var logJSON bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List capture devices",
		Long: `Enumerates video capture devices and probes each one for usability. ` +
			`A device is usable when it accepts an MJPG format and can start streaming.`,
		Run: func(_ *cobra.Command, _ []string) {
			initCommandLogging(logJSON)
			logger := logging.GetLogger("devices")

			detector := devices.NewDetector()
			list, err := detector.FindDevices()
			if err != nil {
				logger.Error("Device enumeration failed", "error", err)
				os.Exit(1)
			}

			for _, dev := range list {
				if usableOnly && !dev.Usable {
					continue
				}
				state := "usable"
				if !dev.Usable {
					state = "unusable"
				}
				fmt.Printf("%-14s %-9s %s", dev.DevicePath, state, dev.Label())
				if dev.DeviceID != "" {
					fmt.Printf("  [%s]", dev.DeviceID)
				}
				fmt.Println()
			}
		},
	}

	cmd.Flags().BoolVar(&usableOnly, "usable-only", false, "Only list devices that passed the usability probe")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Use JSON log format")

	return cmd
}

// initCommandLogging sets up minimal logging for standalone subcommands.
func initCommandLogging(logJSON bool) {
	loggingConfig := logging.Config{
		Level:  "info",
		Format: "text",
	}
	if logJSON {
		loggingConfig.Format = "json"
	}
	logging.Initialize(loggingConfig)
}
