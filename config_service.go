package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"assetedge/config"
)

// ConfigProvider defines the read side of configuration access.
type ConfigProvider interface {
	GetConfig() (config.Config, error)
}

// ConfigPersister defines the write side of configuration access.
type ConfigPersister interface {
	SaveConfig(cfg config.Config) error
}

// ConfigService owns loading and saving the application configuration.
// Implements ConfigProvider and ConfigPersister.
type ConfigService struct {
	storageDir string
	logger     func(string)
	callbacks  []func(config.Config)
	mu         sync.RWMutex
}

// NewConfigService creates a new ConfigService instance
func NewConfigService(logger func(string)) *ConfigService {
	return &ConfigService{
		logger:    logger,
		callbacks: make([]func(config.Config), 0),
	}
}

func (cs *ConfigService) log(msg string) {
	if cs.logger != nil {
		cs.logger(msg)
	}
}

// Initialize ensures the storage directory exists.
func (cs *ConfigService) Initialize(ctx context.Context) error {
	dir, err := cs.GetStorageDir()
	if err != nil {
		return WrapError("config", "Initialize", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return WrapError("config", "Initialize", fmt.Errorf("failed to create storage dir: %w", err))
	}
	cs.log(fmt.Sprintf("ConfigService initialized, storage dir: %s", dir))
	return nil
}

// GetStorageDir returns the storage directory path (~/AssetEdge by default).
func (cs *ConfigService) GetStorageDir() (string, error) {
	cs.mu.RLock()
	sd := cs.storageDir
	cs.mu.RUnlock()

	if sd != "" {
		return sd, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", WrapError("config", "GetStorageDir", err)
	}
	return filepath.Join(home, "AssetEdge"), nil
}

// SetStorageDir overrides the storage directory (mainly for tests).
func (cs *ConfigService) SetStorageDir(dir string) {
	cs.mu.Lock()
	cs.storageDir = dir
	cs.mu.Unlock()
}

func (cs *ConfigService) configPath() (string, error) {
	dir, err := cs.GetStorageDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// GetConfig loads the configuration from disk, applying defaults. A missing
// file is not an error: a default config is returned.
func (cs *ConfigService) GetConfig() (config.Config, error) {
	var cfg config.Config

	path, err := cs.configPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.Defaults()
			return cfg, nil
		}
		return cfg, WrapError("config", "GetConfig", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, WrapError("config", "GetConfig", fmt.Errorf("failed to parse config: %w", err))
	}
	cfg.Defaults()
	return cfg, nil
}

// SaveConfig writes the configuration to disk and notifies subscribers.
func (cs *ConfigService) SaveConfig(cfg config.Config) error {
	path, err := cs.configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return WrapError("config", "SaveConfig", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return WrapError("config", "SaveConfig", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return WrapError("config", "SaveConfig", err)
	}

	cs.mu.RLock()
	callbacks := make([]func(config.Config), len(cs.callbacks))
	copy(callbacks, cs.callbacks)
	cs.mu.RUnlock()

	for _, cb := range callbacks {
		cb(cfg)
	}
	return nil
}

// OnConfigChanged registers a callback invoked after each successful save.
func (cs *ConfigService) OnConfigChanged(callback func(config.Config)) {
	cs.mu.Lock()
	cs.callbacks = append(cs.callbacks, callback)
	cs.mu.Unlock()
}
