package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pders01/pixl/internal/config"
	"github.com/pders01/pixl/internal/debuglog"
	"github.com/pders01/pixl/internal/provider"
	"github.com/pders01/pixl/internal/tui"
	"github.com/pders01/pixl/internal/validation"
)

// Version is the version of the application, set at build time
var Version = "dev"

type rootOptions struct {
	configPath string
	query      string
	logLevel   string
	logFile    string
	quiet      bool
	preview    bool
	allowLocal bool
}

func main() {
	if err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(Version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "pixl [query]",
		Short: "Search Pixabay images from the terminal",
		Long: `pixl searches a Pixabay-compatible image API and shows the results as a
paged gallery. Open an image for details, preview it inline on terminals
that support graphics, or hand it to an external viewer.

The API key is read from the config file or the PIXABAY_API_KEY
environment variable (a .env file in the working directory is honored).`,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.query == "" && len(args) > 0 {
				opts.query = strings.Join(args, " ")
			}
			return run(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	flags.StringVarP(&opts.query, "query", "q", "", "Search for this right away")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error, off (overrides config)")
	flags.StringVar(&opts.logFile, "log-file", "", "Log file path (overrides config)")
	flags.BoolVar(&opts.quiet, "quiet", false, "Skip startup banner")
	flags.BoolVar(&opts.preview, "preview", false, "Show inline image previews in the detail view")
	flags.BoolVar(&opts.allowLocal, "allow-local", false, "Allow a plain-http or local provider URL")
	_ = flags.MarkHidden("allow-local")

	cmd.AddCommand(newVersionCmd(), newGenerateConfigCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n", tui.AppName, Version)
			fmt.Println("Terminal image search")
			fmt.Println("github.com/pders01/pixl")
		},
	}
}

func newGenerateConfigCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "generate-config",
		Short: "Write the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath(output)
			if err != nil {
				return err
			}
			if err := config.GenerateDefaultConfig(path); err != nil {
				return fmt.Errorf("failed to generate config: %w", err)
			}
			fmt.Printf("Generated default configuration at: %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Where to write the file (default ~/.config/pixl/config.toml)")
	return cmd
}

func run(ctx context.Context, opts *rootOptions) error {
	if !opts.quiet {
		tui.ShowBanner(Version)
	}

	cfg, err := prepare(opts)
	if err != nil {
		return err
	}
	defer debuglog.Close()

	client := provider.NewClient(cfg.Provider)
	app, err := tui.NewApp(cfg, client, tui.WithInitialQuery(opts.query))
	if err != nil {
		return err
	}

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}
	return nil
}

// prepare loads and checks everything the UI needs before it starts.
func prepare(opts *rootOptions) (*config.Config, error) {
	configPath := ""
	if opts.configPath != "" {
		p, err := resolveConfigPath(opts.configPath)
		if err != nil {
			return nil, err
		}
		configPath = p
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.logFile != "" {
		cfg.Log.File = opts.logFile
	}
	if opts.preview {
		cfg.UI.InlinePreview = true
	}

	if err := setupLogging(cfg.Log, opts.logFile != ""); err != nil {
		return nil, err
	}

	urls := validation.NewURLValidator()
	if opts.allowLocal {
		urls = validation.NewPermissiveURLValidator()
	}
	baseURL, err := urls.ValidateAndNormalize(cfg.Provider.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid provider base_url %q: %w", cfg.Provider.BaseURL, err)
	}
	cfg.Provider.BaseURL = baseURL

	if strings.TrimSpace(cfg.Provider.APIKey) == "" {
		return nil, fmt.Errorf("no API key configured: set provider.api_key or %s", config.APIKeyEnv)
	}

	debuglog.WithFields(map[string]interface{}{
		"version":  Version,
		"base_url": cfg.Provider.BaseURL,
		"per_page": cfg.Provider.PerPage,
		"preview":  cfg.UI.InlinePreview,
	}).Infof("pixl starting")
	return cfg, nil
}

func setupLogging(lc config.LogConfig, explicitFile bool) error {
	level := debuglog.ParseLogLevel(lc.Level)
	if level == debuglog.LevelOff {
		return debuglog.Setup(debuglog.LevelOff)
	}

	paths := validation.NewSecurePathHandler()
	if explicitFile {
		paths = validation.NewPermissivePathHandler()
	}
	logPath, err := paths.GetSecureLogPath(lc.File)
	if err != nil {
		return fmt.Errorf("invalid log file: %w", err)
	}
	if err := debuglog.Setup(level, logPath); err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	return nil
}

// resolveConfigPath validates a user-given config location, or returns the
// default one when path is empty.
func resolveConfigPath(path string) (string, error) {
	if path == "" {
		return validation.NewSecurePathHandler().GetSecureConfigPath("")
	}
	p, err := validation.NewPermissivePathHandler().GetSecureConfigPath(path)
	if err != nil {
		return "", fmt.Errorf("invalid config path: %w", err)
	}
	return p, nil
}
