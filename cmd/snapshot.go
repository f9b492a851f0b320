package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/smazurov/kamview/internal/camera"
	"github.com/smazurov/kamview/internal/capture"
	"github.com/smazurov/kamview/internal/devices"
	"github.com/smazurov/kamview/internal/frame"
	"github.com/smazurov/kamview/internal/logging"
	"github.com/smazurov/kamview/pkg/linuxav/v4l2"
	"github.com/spf13/cobra"
)

// snapshotDeadline bounds how long the command waits for the sensor to
// deliver a decodable frame. Cameras often need a few frames to settle
// exposure after the stream starts.
const snapshotDeadline = 5 * time.Second

// CreateSnapshotCmd creates the snapshot command.
func CreateSnapshotCmd() *cobra.Command {
	var outputDir string
	var warmupFrames int
	var logJSON bool

	cmd := &cobra.Command{
		Use:   "snapshot [device]",
		Short: "Capture a single frame to disk",
		Long: `Opens a capture device, grabs one MJPG frame, and writes it to the ` +
			`captures directory using the same img_N naming the viewer uses. ` +
			`Without a device argument the first usable device is picked.`,
		Args: cobra.MaximumNArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			initCommandLogging(logJSON)
			logger := logging.GetLogger("capture")

			path, err := resolveSnapshotDevice(args)
			if err != nil {
				logger.Error("No device to capture from", "error", err)
				os.Exit(1)
			}

			session, err := camera.Open(path)
			if err != nil {
				logger.Error("Failed to open device", "device", path, "error", err)
				os.Exit(1)
			}
			defer func() { _ = session.Close() }()

			data, err := grabFrame(session, warmupFrames)
			if err != nil {
				logger.Error("Failed to capture frame", "device", path, "error", err)
				os.Exit(1)
			}

			saver := capture.NewSaver(outputDir)
			saved, err := saver.Save(data)
			if err != nil {
				logger.Error("Failed to save capture", "error", err)
				os.Exit(1)
			}

			fmt.Println(saved)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for the capture (empty resolves the Pictures folder)")
	cmd.Flags().IntVar(&warmupFrames, "warmup", 5, "Frames to discard before capturing, letting exposure settle")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Use JSON log format")

	return cmd
}

// resolveSnapshotDevice picks the target device: the argument as-is, or
// the first usable device when no argument was given.
func resolveSnapshotDevice(args []string) (string, error) {
	if len(args) == 1 {
		return devices.ResolveDevicePath(args[0])
	}

	usable, err := devices.NewDetector().UsableDevices()
	if err != nil {
		return "", err
	}
	return usable[0].DevicePath, nil
}

// grabFrame streams until it gets warmup+1 decodable frames and returns
// the last one's compressed bytes.
func grabFrame(session camera.Session, warmup int) ([]byte, error) {
	pipeline := frame.NewPipeline(session)
	deadline := time.Now().Add(snapshotDeadline)

	got := 0
	for time.Now().Before(deadline) {
		_, err := pipeline.Tick()
		switch {
		case err == nil:
			got++
			if got > warmup {
				return pipeline.Raw(), nil
			}
		case errors.Is(err, v4l2.ErrNoFrame):
			// Device is slow to start, keep waiting.
		default:
			// Broken frame, skip it.
		}
	}
	return nil, fmt.Errorf("no decodable frame within %s", snapshotDeadline)
}
