package media

import (
	_ "embed"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/pelletier/go-toml/v2"

	"github.com/pders01/pixl/internal/debuglog"
)

//go:embed players.toml
var playersTOML []byte

// PlayerDefinition defines how a viewer should be invoked
type PlayerDefinition struct {
	Description string   `toml:"description"`
	Platforms   []string `toml:"platforms"`

	// Remote viewers accept http(s) URLs directly.
	Remote bool            `toml:"remote"`
	Image  *TypeArgsConfig `toml:"image,omitempty"`
	Page   *TypeArgsConfig `toml:"page,omitempty"`
}

// TypeArgsConfig holds the arguments for one URL type
type TypeArgsConfig struct {
	Args        []string `toml:"args,omitempty"`
	ArgsDarwin  []string `toml:"args_darwin,omitempty"`
	ArgsLinux   []string `toml:"args_linux,omitempty"`
	ArgsWindows []string `toml:"args_windows,omitempty"`
}

// PlayersConfig holds all player definitions
type PlayersConfig struct {
	Players map[string]PlayerDefinition `toml:"players"`
}

// PlayerRegistry manages player definitions
type PlayerRegistry struct {
	players map[string]PlayerDefinition
	goos    string
}

// UserPlayersPath is where custom player definitions are read from.
func UserPlayersPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "pixl", "players.toml")
}

// NewPlayerRegistry creates a registry from the embedded TOML, merged with
// any definitions found at extraPaths.
func NewPlayerRegistry(extraPaths ...string) (*PlayerRegistry, error) {
	var config PlayersConfig
	if err := toml.Unmarshal(playersTOML, &config); err != nil {
		return nil, fmt.Errorf("parsing players.toml: %w", err)
	}
	if config.Players == nil {
		config.Players = make(map[string]PlayerDefinition)
	}

	registry := &PlayerRegistry{
		players: config.Players,
		goos:    runtime.GOOS,
	}
	registry.loadUserConfig(extraPaths...)

	return registry, nil
}

// loadUserConfig merges user definitions over the built-in ones.
func (r *PlayerRegistry) loadUserConfig(paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var userConfig PlayersConfig
		if err := toml.Unmarshal(data, &userConfig); err != nil {
			debuglog.Warnf("media: ignoring %s: %v", path, err)
			continue
		}
		for name, def := range userConfig.Players {
			r.players[name] = def
		}
	}
}

// Definition returns the named player, if known.
func (r *PlayerRegistry) Definition(name string) (PlayerDefinition, bool) {
	def, ok := r.players[name]
	return def, ok
}

// GetCommand builds the command for a specific player and URL type
func (r *PlayerRegistry) GetCommand(playerName string, t Type, url string) (*exec.Cmd, error) {
	player, exists := r.players[playerName]
	if !exists {
		return r.command(playerName, url), nil
	}

	supportsPlatform := false
	for _, p := range player.Platforms {
		if p == r.goos {
			supportsPlatform = true
			break
		}
	}
	if !supportsPlatform {
		return nil, fmt.Errorf("%s not supported on %s", playerName, r.goos)
	}

	var config *TypeArgsConfig
	switch t {
	case TypeImage:
		config = player.Image
	case TypePage:
		config = player.Page
	}
	if config == nil {
		return nil, fmt.Errorf("%s doesn't support %s URLs", playerName, t)
	}

	args := append(r.getArgs(config), url)
	return r.command(playerName, args...), nil
}

// command wraps shell builtins so they can be exec'd.
func (r *PlayerRegistry) command(name string, args ...string) *exec.Cmd {
	if name == "start" && r.goos == "windows" {
		return exec.Command("cmd", append([]string{"/c", "start", ""}, args...)...)
	}
	return exec.Command(name, args...)
}

// getArgs returns the appropriate args for the current platform
func (r *PlayerRegistry) getArgs(config *TypeArgsConfig) []string {
	if config == nil {
		return nil
	}

	var platform []string
	switch r.goos {
	case "darwin":
		platform = config.ArgsDarwin
	case "linux":
		platform = config.ArgsLinux
	case "windows":
		platform = config.ArgsWindows
	}
	if len(platform) > 0 {
		return append([]string(nil), platform...)
	}
	return append([]string(nil), config.Args...)
}

// IsPlayerAvailable checks if a player is installed
func (r *PlayerRegistry) IsPlayerAvailable(playerName string) bool {
	_, err := exec.LookPath(playerName)
	return err == nil
}

// FindAvailablePlayer finds the first available player from a list
func (r *PlayerRegistry) FindAvailablePlayer(players []string) string {
	for _, player := range players {
		if r.IsPlayerAvailable(player) {
			return player
		}
	}
	return ""
}
