package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// ControlPreset is a named snapshot of camera control values for one
// device. Integer and boolean controls are stored by value; menu
// controls are stored by item label since their values cannot be read
// back from hardware.
type ControlPreset struct {
	Name   string `toml:"name" json:"name"`
	Device string `toml:"device" json:"device"` // Stable device identifier

	Values         map[string]int32  `toml:"values,omitempty" json:"values,omitempty"`
	MenuSelections map[string]string `toml:"menu_selections,omitempty" json:"menu_selections,omitempty"`

	CreatedAt time.Time `toml:"created_at" json:"created_at"`
	UpdatedAt time.Time `toml:"updated_at" json:"updated_at"`
}

// PresetsConfig is the on-disk shape of the presets file.
type PresetsConfig struct {
	Version int                      `toml:"version" json:"version"`
	Presets map[string]ControlPreset `toml:"presets" json:"presets"`
}

// PresetManager manages saved control presets. Safe for concurrent
// use; the file watcher replaces the config from its own goroutine
// while the tick loop reads it.
type PresetManager struct {
	configPath string

	mu     sync.RWMutex
	config *PresetsConfig
}

// NewPresetManager creates a preset manager backed by the given file.
func NewPresetManager(configPath string) *PresetManager {
	if configPath == "" {
		configPath = "presets.toml"
	}

	return &PresetManager{
		configPath: configPath,
		config: &PresetsConfig{
			Version: 1,
			Presets: make(map[string]ControlPreset),
		},
	}
}

// LoadPresetsFile reads and parses a presets file. A missing file
// yields an empty config. Used directly and as the file watcher loader.
func LoadPresetsFile(path string) (*PresetsConfig, error) {
	cfg := &PresetsConfig{
		Version: 1,
		Presets: make(map[string]ControlPreset),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read presets: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse presets: %w", err)
	}

	if cfg.Presets == nil {
		cfg.Presets = make(map[string]ControlPreset)
	}
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	return cfg, nil
}

// Load loads the presets from file. A missing file is not an error.
func (pm *PresetManager) Load() error {
	cfg, err := LoadPresetsFile(pm.configPath)
	if err != nil {
		return err
	}

	pm.mu.Lock()
	pm.config = cfg
	pm.mu.Unlock()
	return nil
}

// Replace swaps in an externally loaded config. Wired to the file
// watcher for hot reload.
func (pm *PresetManager) Replace(cfg *PresetsConfig) {
	if cfg == nil {
		return
	}
	if cfg.Presets == nil {
		cfg.Presets = make(map[string]ControlPreset)
	}

	pm.mu.Lock()
	pm.config = cfg
	pm.mu.Unlock()
}

// Save writes the presets to file.
func (pm *PresetManager) Save() error {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.persist()
}

// persist writes the current config to disk. Caller holds the lock.
func (pm *PresetManager) persist() error {
	dir := filepath.Dir(pm.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(pm.config)
	if err != nil {
		return fmt.Errorf("failed to marshal presets: %w", err)
	}

	if err := os.WriteFile(pm.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write presets: %w", err)
	}

	return nil
}

// SetPreset adds or replaces a preset.
func (pm *PresetManager) SetPreset(preset ControlPreset) error {
	if preset.Name == "" {
		return fmt.Errorf("preset name cannot be empty")
	}
	if preset.Device == "" {
		return fmt.Errorf("device identifier cannot be empty")
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()

	now := time.Now()
	if existing, exists := pm.config.Presets[preset.Name]; exists {
		preset.CreatedAt = existing.CreatedAt
	}
	if preset.CreatedAt.IsZero() {
		preset.CreatedAt = now
	}
	preset.UpdatedAt = now

	pm.config.Presets[preset.Name] = preset
	return pm.persist()
}

// RemovePreset deletes a preset by name.
func (pm *PresetManager) RemovePreset(name string) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if _, exists := pm.config.Presets[name]; !exists {
		return fmt.Errorf("preset %s not found", name)
	}

	delete(pm.config.Presets, name)
	return pm.persist()
}

// GetPreset retrieves a preset by name.
func (pm *PresetManager) GetPreset(name string) (ControlPreset, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	preset, exists := pm.config.Presets[name]
	return preset, exists
}

// PresetsForDevice returns all presets saved for the given stable device
// identifier.
func (pm *PresetManager) PresetsForDevice(deviceID string) []ControlPreset {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	var presets []ControlPreset
	for _, preset := range pm.config.Presets {
		if preset.Device == deviceID {
			presets = append(presets, preset)
		}
	}
	return presets
}
