package media

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/pders01/pixl/internal/config"
	"github.com/pders01/pixl/internal/debuglog"
	"github.com/pders01/pixl/internal/validation"
)

// Launcher opens image and page URLs in external applications.
type Launcher struct {
	imageViewer   string
	defaultOpener string
	registry      *PlayerRegistry
	detector      *TypeDetector
	urls          *validation.URLValidator
	start         func(*exec.Cmd) error
}

func NewLauncher(cfg *config.Config) *Launcher {
	registry, err := NewPlayerRegistry(UserPlayersPath())
	if err != nil {
		// Continue with basic functionality if player definitions can't be loaded
		registry = &PlayerRegistry{players: make(map[string]PlayerDefinition), goos: runtime.GOOS}
	}

	detector, err := NewTypeDetector()
	if err != nil {
		detector = &TypeDetector{config: &TypesConfig{}}
	}

	defaultOpener := cfg.Media.DefaultOpener
	if defaultOpener == "" {
		defaultOpener = detector.GetDefaultOpener()
	}

	var players config.MediaPlayers
	switch runtime.GOOS {
	case "darwin":
		players = cfg.Media.Darwin
	case "linux":
		players = cfg.Media.Linux
	case "windows":
		players = cfg.Media.Windows
	default:
		players = cfg.Media.Linux
	}

	l := &Launcher{
		defaultOpener: defaultOpener,
		registry:      registry,
		detector:      detector,
		urls:          validation.NewURLValidator(),
		start:         startDetached,
	}
	l.imageViewer = l.pickViewer(players.Image)

	return l
}

// pickViewer returns the first installed viewer able to load remote URLs.
func (l *Launcher) pickViewer(candidates []string) string {
	for _, name := range candidates {
		if def, ok := l.registry.Definition(name); ok && !def.Remote {
			continue
		}
		if l.registry.IsPlayerAvailable(name) {
			return name
		}
	}
	return ""
}

// Open validates url and hands it to the matching application.
func (l *Launcher) Open(url string) error {
	if err := l.urls.ValidateImageURL(url); err != nil {
		return fmt.Errorf("refusing to open: %w", err)
	}

	kind := l.detector.DetectType(url)

	playerName := l.defaultOpener
	if kind == TypeImage && l.imageViewer != "" {
		playerName = l.imageViewer
	}
	if playerName == "" {
		return fmt.Errorf("no application found to open URL")
	}

	lookup := kind
	if lookup == TypeUnknown {
		lookup = TypePage
	}
	cmd, err := l.registry.GetCommand(playerName, lookup, url)
	if err != nil {
		cmd = l.registry.command(playerName, url)
	}

	debuglog.WithFields(map[string]interface{}{
		"component": "media",
		"type":      kind.String(),
		"player":    playerName,
	}).Infof("opening %s", url)

	if err := l.start(cmd); err != nil {
		return fmt.Errorf("failed to start %s: %w", playerName, err)
	}
	return nil
}

// ImageViewer reports the viewer chosen for images, empty when the
// default opener is used.
func (l *Launcher) ImageViewer() string {
	return l.imageViewer
}

// startDetached starts GUI applications without waiting on them.
func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}
