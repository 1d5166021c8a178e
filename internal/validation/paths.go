package validation

import (
	"os"
	"path/filepath"
)

// PathHandler resolves pixl's file locations through a FilePathValidator.
type PathHandler struct {
	validator *FilePathValidator
}

func NewSecurePathHandler() *PathHandler {
	return &PathHandler{validator: NewFilePathValidator()}
}

func NewPermissivePathHandler() *PathHandler {
	return &PathHandler{validator: NewPermissiveFilePathValidator()}
}

// GetSecureConfigPath returns a validated configuration path, defaulting
// to ~/.config/pixl/config.toml.
func (ph *PathHandler) GetSecureConfigPath(userPath string) (string, error) {
	if userPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		userPath = filepath.Join(home, ".config", "pixl", "config.toml")
	}
	return ph.validator.ValidateFile(userPath)
}

// GetSecureLogPath returns a validated log file path and makes sure its
// directory exists. The default is ~/.pixl/pixl.log.
func (ph *PathHandler) GetSecureLogPath(userPath string) (string, error) {
	if userPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		userPath = filepath.Join(home, ".pixl", "pixl.log")
	}

	path, err := ph.validator.ValidateFile(userPath)
	if err != nil {
		return "", err
	}
	if _, err := ph.validator.ValidateDirectory(filepath.Dir(path), true); err != nil {
		return "", err
	}
	return path, nil
}
