package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harrison/assetkeeper/internal/backup"
	"github.com/harrison/assetkeeper/internal/config"
	"github.com/harrison/assetkeeper/internal/fsys"
	"github.com/harrison/assetkeeper/internal/history"
	"github.com/harrison/assetkeeper/internal/logger"
	"github.com/harrison/assetkeeper/internal/organize"
	"github.com/harrison/assetkeeper/internal/project"
	"github.com/harrison/assetkeeper/internal/scancache"
	"github.com/harrison/assetkeeper/internal/scene"
)

// sceneContainer reads scene documents. Tests replace it to feed plain
// byte streams instead of compound files.
var sceneContainer scene.Container = scene.OLEContainer{}

// session holds everything one command invocation needs.
type session struct {
	cfg     *config.Config
	home    string
	fs      *fsys.FS
	log     *multiLogger
	console *logger.ConsoleLogger
	fileLog *logger.FileLogger
	cache   *scancache.Store
	backups *backup.Store
	history *history.Log
	svc     *project.Service
}

// sessionOptions selects the optional parts of a session.
type sessionOptions struct {
	fileLog bool
	flags   config.Flags
}

// loadConfig resolves the configuration for projectDir: the --config file
// or <projectDir>/.assetkeeper/config.yaml, then the environment, then flags.
func loadConfig(cmd *cobra.Command, projectDir string, flags config.Flags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	configPath, _ := cmd.Flags().GetString("config")
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.LoadConfigFromDir(projectDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	cfg.ApplyEnv()

	if cmd.Flags().Changed("log-level") {
		level, _ := cmd.Flags().GetString("log-level")
		flags.LogLevel = &level
	}
	if cmd.Flags().Changed("log-dir") {
		dir, _ := cmd.Flags().GetString("log-dir")
		flags.LogDir = &dir
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		debug := "debug"
		flags.LogLevel = &debug
	}
	cfg.MergeWithFlags(flags)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func openSession(cmd *cobra.Command, projectDir string, opts sessionOptions) (*session, error) {
	cfg, err := loadConfig(cmd, projectDir, opts.flags)
	if err != nil {
		return nil, err
	}
	home, err := config.GetHome()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve home directory: %w", err)
	}

	// JSON output owns stdout, log lines move to stderr.
	logOut := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		logOut = cmd.ErrOrStderr()
	}

	s := &session{cfg: cfg, home: home, fs: fsys.NewOS()}
	s.console = logger.NewConsoleLogger(logOut, cfg.LogLevel)
	s.log = &multiLogger{loggers: []logger.Logger{s.console}}

	if opts.fileLog {
		s.fileLog, err = logger.NewFileLogger(cfg.LogDirectory(home), cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to create file logger: %w", err)
		}
		s.log.loggers = append(s.log.loggers, s.fileLog)
		s.log.LogDebug("run log: " + s.fileLog.RunFile())
	}

	scannerOpts := []scene.Option{
		scene.WithContainer(sceneContainer),
		scene.WithDocumentExtensions(cfg.Scan.DocumentExtensions),
	}
	if cfg.Scan.Cache {
		s.cache, err = scancache.NewStore(cfg.CachePath(home))
		if err != nil {
			s.log.LogWarn(fmt.Sprintf("scan cache disabled: %v", err))
		} else {
			scannerOpts = append(scannerOpts, scene.WithCache(s.cache))
		}
	}

	svcOpts := []project.Option{
		project.WithScanner(scene.NewScanner(s.fs, scannerOpts...)),
		project.WithSink(s.log),
		project.WithLogger(s.log),
	}
	var restorer history.Restorer
	if cfg.Backup.Enabled {
		s.backups = backup.NewStore(s.fs, cfg.Backup.Dir, s.log)
		restorer = s.backups
		svcOpts = append(svcOpts, project.WithBackups(s.backups))
	}
	s.history = history.Open(s.fs, cfg.HistoryPath(home), restorer, s.log)
	svcOpts = append(svcOpts, project.WithHistory(s.history))

	s.svc = project.NewService(s.fs, project.Options{
		Organize:           organizeOptions(cfg),
		Recursive:          cfg.Scan.Recursive,
		DocumentExtensions: cfg.Scan.DocumentExtensions,
		RetentionDays:      cfg.Backup.RetentionDays,
	}, svcOpts...)
	return s, nil
}

// Close releases the scan cache and the run log.
func (s *session) Close() error {
	var firstErr error
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			firstErr = err
		}
	}
	if s.fileLog != nil {
		if err := s.fileLog.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func organizeOptions(cfg *config.Config) organize.Options {
	return organize.Options{
		LinkedFolder:      cfg.Folders.Linked,
		UnusedFolder:      cfg.Folders.Unused,
		ConsolidateLinked: cfg.Organize.ConsolidateLinked,
		RelocateUnused:    cfg.Organize.RelocateUnused,
		CopyInsteadOfMove: cfg.Organize.CopyInsteadOfMove,
		DeleteDuplicates:  cfg.Organize.DeleteDuplicates,
		FullHash:          cfg.Organize.FullHash,
		CheckIntegrity:    cfg.Organize.CheckIntegrity,
		PruneEmpty:        cfg.Organize.PruneEmpty,
	}
}

// targetPaths resolves the analysis target and optional root to absolute
// paths and returns the directory whose config applies.
func targetPaths(target, root string) (string, string, string, error) {
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return "", "", "", fmt.Errorf("resolve target path: %w", err)
	}
	info, err := os.Stat(absTarget)
	if err != nil {
		return "", "", "", fmt.Errorf("target not found: %s", absTarget)
	}

	var absRoot string
	if root != "" {
		if absRoot, err = filepath.Abs(root); err != nil {
			return "", "", "", fmt.Errorf("resolve root path: %w", err)
		}
	}

	projectDir := absRoot
	if projectDir == "" {
		projectDir = absTarget
		if !info.IsDir() {
			projectDir = filepath.Dir(absTarget)
		}
	}
	return absTarget, absRoot, projectDir, nil
}

// workingDir is the config directory for commands without a target.
func workingDir() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
