package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	FnDefaultCreateAppHomeDirAndGetConfigFilePath = createAppHomeDirAndGetConfigFile
	FnDefaultSafeWriteViaTemp                     = SafeWriteViaTemp
)

// createAppHomeDirAndGetConfigFile creates a directory in the user's home directory for the app's
// state files. It returns the full path to the named file inside that directory.
func createAppHomeDirAndGetConfigFile(fileName string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	appDir := filepath.Join(homeDir, AppHomeDir)

	// MkdirAll is idempotent, so concurrent callers with different files are safe.
	if err := os.MkdirAll(appDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create app directory: %v", err)
	}

	return filepath.Join(appDir, fileName), nil
}

// SafeWriteViaTemp writes data to a temporary file and renames it over the target
// so a crash mid-write never leaves a truncated file behind.
func SafeWriteViaTemp(filePath string, data string) error {
	tempPath := filePath + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %v", err)
	}
	defer file.Close()

	_, err = file.WriteString(data)
	if err != nil {
		return fmt.Errorf("failed to write data: %v", err)
	}

	err = file.Sync()
	if err != nil {
		return fmt.Errorf("failed to sync temp file: %v", err)
	}

	err = os.Rename(tempPath, filePath)
	if err != nil {
		return fmt.Errorf("failed to rename file: %v", err)
	}

	return nil
}

// GetConfig reads a yaml file of any type T from the app home dir. A missing file
// is not an error; the zero value of T is returned instead.
func GetConfig[T any](mu *sync.Mutex, fileName string, newInstance func() T) (T, error) {
	mu.Lock()
	defer mu.Unlock()

	var zero T

	filePath, err := FnDefaultCreateAppHomeDirAndGetConfigFilePath(fileName)
	if err != nil {
		return zero, fmt.Errorf("failed to create home directory: %w", err)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return zero, nil
		}
		return zero, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := newInstance()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return zero, fmt.Errorf("error unmarshalling config: %w", err)
	}
	return cfg, nil
}

// SetConfig validates, marshals, and writes a yaml file of any type T to the app home dir.
func SetConfig[T any](
	mu *sync.Mutex,
	fileName string,
	validate func(v T) error, // caller-supplied validation logic
	updateInMemory func(v T), // callback to update in-memory state
	configValue T,
) error {
	mu.Lock()
	defer mu.Unlock()

	filePath, err := FnDefaultCreateAppHomeDirAndGetConfigFilePath(fileName)
	if err != nil {
		return fmt.Errorf("failed to create home directory: %w", err)
	}

	if validate != nil {
		if err := validate(configValue); err != nil {
			return err
		}
	}

	data, err := yaml.Marshal(configValue)
	if err != nil {
		return fmt.Errorf("error marshalling config: %w", err)
	}

	if updateInMemory != nil {
		updateInMemory(configValue)
	}

	if err := FnDefaultSafeWriteViaTemp(filePath, string(data)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
