// Package capture writes camera frames to the user's Pictures folder.
// Files are named img_0.jpg, img_1.jpg, ... and existing files are
// never overwritten.
package capture

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/smazurov/kamview/internal/logging"
)

// Subfolder is created under the resolved pictures directory.
const Subfolder = "kamview"

// Saver writes captured frames to disk.
type Saver struct {
	dir    string
	logger *slog.Logger
}

// NewSaver creates a saver writing into dir. An empty dir resolves the
// platform pictures directory.
func NewSaver(dir string) *Saver {
	if dir == "" {
		dir = filepath.Join(ResolveDir(), Subfolder)
	}
	return &Saver{
		dir:    dir,
		logger: logging.GetLogger("capture"),
	}
}

// Dir returns the directory captures are written to.
func (s *Saver) Dir() string {
	return s.dir
}

// Save writes one frame, picking the first unused img_N name. The file
// is created exclusively so a concurrent writer can never be clobbered.
func (s *Saver) Save(data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create capture directory: %w", err)
	}

	for n := 0; ; n++ {
		path := filepath.Join(s.dir, fmt.Sprintf("img_%d.jpg", n))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create capture file: %w", err)
		}

		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(path)
			return "", fmt.Errorf("failed to write capture: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to close capture: %w", err)
		}

		s.logger.Info("Capture saved", "path", path, "bytes", len(data))
		return path, nil
	}
}

// ResolveDir finds the base directory for captures: the configured
// pictures directory first, then ~/Pictures, then the working
// directory.
func ResolveDir() string {
	if dir := picturesDir(); dir != "" {
		return dir
	}

	if home, err := os.UserHomeDir(); err == nil {
		pictures := filepath.Join(home, "Pictures")
		if info, err := os.Stat(pictures); err == nil && info.IsDir() {
			return pictures
		}
	}

	return "."
}

// picturesDir reads the XDG user-dirs config for the pictures folder.
// Returns "" when unset or unreadable.
func picturesDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	data, err := os.ReadFile(filepath.Join(home, ".config", "user-dirs.dirs"))
	if err != nil {
		return ""
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "XDG_PICTURES_DIR=") {
			continue
		}
		value := strings.Trim(strings.TrimPrefix(line, "XDG_PICTURES_DIR="), `"`)
		value = strings.ReplaceAll(value, "$HOME", home)
		if info, err := os.Stat(value); err == nil && info.IsDir() {
			return value
		}
	}

	return ""
}
