package media

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlayerRegistry_Embedded(t *testing.T) {
	r, err := NewPlayerRegistry()
	require.NoError(t, err)

	for _, name := range []string{"feh", "sxiv", "xdg-open", "open", "start"} {
		_, ok := r.Definition(name)
		assert.True(t, ok, name)
	}

	feh, _ := r.Definition("feh")
	assert.True(t, feh.Remote)
	require.NotNil(t, feh.Image)
	assert.Contains(t, feh.Image.Args, "--scale-down")

	sxiv, _ := r.Definition("sxiv")
	assert.False(t, sxiv.Remote)
}

func TestNewPlayerRegistry_UserOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "players.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[players.feh]
description = "custom feh"
platforms = ["linux"]
remote = true
[players.feh.image]
args = ["--fullscreen"]

[players.nsxiv]
description = "added"
platforms = ["linux"]
[players.nsxiv.image]
args = []
`), 0o644))

	broken := filepath.Join(dir, "broken.toml")
	require.NoError(t, os.WriteFile(broken, []byte("[players"), 0o644))

	r, err := NewPlayerRegistry(path, broken, filepath.Join(dir, "missing.toml"), "")
	require.NoError(t, err)

	feh, _ := r.Definition("feh")
	assert.Equal(t, "custom feh", feh.Description)
	assert.Equal(t, []string{"--fullscreen"}, feh.Image.Args)

	_, ok := r.Definition("nsxiv")
	assert.True(t, ok)
	_, ok = r.Definition("xdg-open")
	assert.True(t, ok, "built-ins survive the merge")
}

func TestPlayerRegistry_GetCommand(t *testing.T) {
	r := &PlayerRegistry{
		goos: "linux",
		players: map[string]PlayerDefinition{
			"feh": {
				Platforms: []string{"linux"},
				Image: &TypeArgsConfig{
					Args:      []string{"--generic"},
					ArgsLinux: []string{"--scale-down", "--auto-zoom"},
				},
			},
			"open": {
				Platforms: []string{"darwin"},
				Image:     &TypeArgsConfig{},
			},
		},
	}

	tests := []struct {
		name     string
		player   string
		kind     Type
		wantArgs []string
		wantErr  bool
	}{
		{name: "platform args win", player: "feh", kind: TypeImage, wantArgs: []string{"feh", "--scale-down", "--auto-zoom", "u"}},
		{name: "unsupported type", player: "feh", kind: TypePage, wantErr: true},
		{name: "unsupported platform", player: "open", kind: TypeImage, wantErr: true},
		{name: "undefined player", player: "viewer", kind: TypeImage, wantArgs: []string{"viewer", "u"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := r.GetCommand(tt.player, tt.kind, "u")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantArgs, cmd.Args)
		})
	}
}

func TestPlayerRegistry_GetArgsDoesNotAlias(t *testing.T) {
	cfg := &TypeArgsConfig{Args: []string{"-a"}}
	r := &PlayerRegistry{goos: "linux"}

	args := r.getArgs(cfg)
	args[0] = "mutated"
	assert.Equal(t, "-a", cfg.Args[0])
	assert.Nil(t, r.getArgs(nil))
}

func TestPlayerRegistry_WindowsStart(t *testing.T) {
	r := &PlayerRegistry{goos: "windows", players: map[string]PlayerDefinition{}}
	cmd, err := r.GetCommand("start", TypeImage, "https://cdn.pixabay.com/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, []string{"cmd", "/c", "start", "", "https://cdn.pixabay.com/a.jpg"}, cmd.Args)
}

func TestPlayerRegistry_FindAvailablePlayer(t *testing.T) {
	r := &PlayerRegistry{players: map[string]PlayerDefinition{}}
	assert.Equal(t, "sh", r.FindAvailablePlayer([]string{"definitely-not-installed", "sh"}))
	assert.Equal(t, "", r.FindAvailablePlayer([]string{"definitely-not-installed"}))
	assert.True(t, r.IsPlayerAvailable("sh"))
}
