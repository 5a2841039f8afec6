// Package cmd holds the pistonlauncher command tree
package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/go-pistonlauncher/pkg/config"
	"github.com/go-pistonlauncher/pkg/decompress"
	"github.com/go-pistonlauncher/pkg/download"
	"github.com/go-pistonlauncher/pkg/engine"
	"github.com/go-pistonlauncher/pkg/manifest"
	"github.com/go-pistonlauncher/pkg/marker"
	"github.com/go-pistonlauncher/pkg/progress"
	"github.com/go-pistonlauncher/pkg/tree"
	"github.com/go-pistonlauncher/pkg/utils"
)

// BooleanFlags are the flags main normalizes so "--raw false" means "--raw=false"
var BooleanFlags = []string{
	"raw",
	"follow-redirects",
	"keep-failed-files",
	"debug",
	"verbose",
	"log-json",
	"no-progress",
	"yes",
	"lzma",
}

// skipSettings marks commands that must not read or create the settings file
const skipSettings = "skip-settings"

// app carries flag values and the state built from them for one invocation
type app struct {
	cfg    *config.Config
	logger *utils.Logger
	client *download.Client

	settingsPath    string
	installRoot     string
	preferRaw       bool
	lzmaMemCap      int
	indexURL        string
	product         string
	manifestFile    string
	version         string
	maxRetries      int
	retryDelay      int
	followRedirects bool
	keepFailedFiles bool
	authUser        string
	authPassword    string
	userAgent       string
	headers         utils.MultiValueHeader
	debug           bool
	verbose         bool
	logJSON         bool
	logFile         string
	noProgress      bool
}

// NewRootCmd builds a fresh command tree
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "pistonlauncher",
		Short:         "Install, verify and uninstall Minecraft Dungeons from the official manifests",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				a.logger.Close()
			}
		},
	}

	defaults := config.NewConfig()
	pf := root.PersistentFlags()
	pf.StringVar(&a.settingsPath, "settings", defaults.SettingsPath, "Settings file (.json, .yaml or .plist); created with defaults if missing")
	pf.StringVar(&a.installRoot, "root", defaults.InstallRoot, "Game directory (overrides game_dir)")
	pf.BoolVar(&a.preferRaw, "raw", false, "Download uncompressed files (overrides download_raw)")
	pf.IntVar(&a.lzmaMemCap, "lzma-mem-cap", defaults.LZMAMemCapMiB, "LZMA decompression memory cap in MiB, 0 = unbounded (overrides lzma_mem_cap)")
	pf.StringVar(&a.indexURL, "index-url", defaults.IndexURL, "Version index URL")
	pf.StringVar(&a.product, "product", defaults.Product, "Product key in the version index")
	pf.StringVar(&a.manifestFile, "manifest", "", "Use a local manifest file instead of the version index")
	pf.StringVar(&a.version, "manifest-version", "", "Version recorded for --manifest (default: file name)")
	pf.IntVar(&a.maxRetries, "max-retries", defaults.MaxRetries, "Maximum number of retries per download")
	pf.IntVar(&a.retryDelay, "retry-delay", defaults.RetryDelay, "Delay between retries in seconds")
	pf.BoolVar(&a.followRedirects, "follow-redirects", defaults.FollowRedirects, "Follow HTTP redirects")
	pf.BoolVar(&a.keepFailedFiles, "keep-failed-files", false, "Keep partially downloaded files for troubleshooting")
	pf.StringVar(&a.authUser, "http-auth-user", "", "HTTP Basic Auth username")
	pf.StringVar(&a.authPassword, "http-auth-password", "", "HTTP Basic Auth password")
	pf.StringVar(&a.userAgent, "user-agent", "", "User-Agent header (default: "+download.DefaultUserAgent+")")
	pf.Var(&a.headers, "header", "Extra request header in Name=Value form (repeatable)")
	pf.BoolVar(&a.debug, "debug", false, "Enable debug logging")
	pf.BoolVar(&a.verbose, "verbose", false, "Enable verbose logging")
	pf.BoolVar(&a.logJSON, "log-json", false, "Log JSON lines instead of console text")
	pf.StringVar(&a.logFile, "log-file", "", "Also write logs to this file")
	pf.BoolVar(&a.noProgress, "no-progress", false, "Log progress instead of drawing a progress line")

	root.AddCommand(
		newInstallCmd(a),
		newVerifyCmd(a),
		newUninstallCmd(a),
		newStatusCmd(a),
		newSettingsCmd(a),
		newManifestCmd(a),
	)
	return root
}

// setup builds the config and logger. Precedence: defaults, then the
// settings file, then flags that were set explicitly.
func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	cfg.SettingsPath = a.settingsPath
	settingsCreated := false
	if cmd.Annotations[skipSettings] == "" {
		settings, created, err := config.LoadSettings(cfg.SettingsPath)
		if err != nil {
			return err
		}
		cfg.ApplySettings(settings)
		settingsCreated = created
	}

	if flags.Changed("root") {
		cfg.InstallRoot = a.installRoot
	}
	if flags.Changed("raw") {
		cfg.PreferRaw = a.preferRaw
	}
	if flags.Changed("lzma-mem-cap") {
		cfg.LZMAMemCapMiB = a.lzmaMemCap
	}
	cfg.IndexURL = a.indexURL
	cfg.Product = a.product
	cfg.ManifestFile = a.manifestFile
	cfg.Version = a.version
	cfg.MaxRetries = a.maxRetries
	cfg.RetryDelay = a.retryDelay
	cfg.FollowRedirects = a.followRedirects
	cfg.KeepFailedFiles = a.keepFailedFiles
	cfg.HTTPAuthUser = a.authUser
	cfg.HTTPAuthPassword = a.authPassword
	cfg.UserAgent = a.userAgent
	for name, value := range a.headers.Headers {
		cfg.HTTPHeaders[name] = value
	}
	cfg.Debug = a.debug
	cfg.Verbose = a.verbose
	cfg.LogJSON = a.logJSON
	cfg.LogFilePath = a.logFile

	opts := utils.LoggerOptions{
		Debug:   cfg.Debug,
		Verbose: cfg.Verbose,
		JSON:    cfg.LogJSON,
		Writer:  cmd.ErrOrStderr(),
	}
	if cfg.LogFilePath != "" {
		logger, err := utils.NewLoggerWithFile(opts, cfg.LogFilePath)
		if err != nil {
			return err
		}
		a.logger = logger
	} else {
		a.logger = utils.NewLoggerWithOptions(opts)
	}

	if settingsCreated {
		a.logger.Info("Created settings file %s with defaults", cfg.SettingsPath)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	if cfg.Debug {
		snapshot := cfg.RedactedForLogging()
		keys := make([]string, 0, len(snapshot))
		for k := range snapshot {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		a.logger.Debug("Effective configuration:")
		for _, k := range keys {
			a.logger.Debug("  %s: %v", k, snapshot[k])
		}
	}
	return nil
}

func (a *app) newClient() *download.Client {
	cfg := a.cfg
	client := download.NewClientWithAuth(a.logger, cfg.HTTPAuthUser, cfg.HTTPAuthPassword, cfg.HTTPHeaders)
	client.SetFollowRedirects(cfg.FollowRedirects)
	client.SetRetryDefaults(cfg.MaxRetries, cfg.RetryDelay)
	client.SetKeepFailedFiles(cfg.KeepFailedFiles)
	if cfg.UserAgent != "" {
		client.SetUserAgent(cfg.UserAgent)
	}
	return client
}

func (a *app) source(client *download.Client) manifest.Source {
	cfg := a.cfg
	if cfg.ManifestFile != "" {
		return &manifest.FileSource{Path: cfg.ManifestFile, Version: cfg.Version, Product: cfg.Product}
	}
	return &manifest.RemoteSource{Fetcher: client, IndexURL: cfg.IndexURL, Product: cfg.Product, Logger: a.logger}
}

func (a *app) journal() *marker.Journal {
	return marker.NewJournal(filepath.Dir(a.cfg.SettingsPath))
}

func (a *app) engineOptions(reporter progress.Reporter) engine.Options {
	client := a.newClient()
	a.client = client
	return engine.Options{
		Root:         a.cfg.InstallRoot,
		Source:       a.source(client),
		Fetcher:      client,
		Decompressor: decompress.New(a.cfg.DecompressChunkSizeBytes(), a.logger),
		Tree:         tree.Options{PreferRaw: a.cfg.PreferRaw},
		Reporter:     reporter,
		Journal:      a.journal(),
		Logger:       a.logger,
	}
}

// confirm asks a yes/no question on the command's streams
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	var answer string
	if _, err := fmt.Fscanln(in, &answer); err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
