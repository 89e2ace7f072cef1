package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/puli/installer/internal/config"
	"github.com/puli/installer/internal/installer"
	"github.com/puli/installer/internal/logx"
	"github.com/puli/installer/internal/paths"
)

var (
	installDir      string
	installFilename string
	installVersion  string
	installUnstable bool
	installCAFile   string
	installInsecure bool
)

func newInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Fetch the version catalog and install the selected release",
		RunE:  runInstall,
	}

	cmd.Flags().StringVar(&installDir, "install-dir", "", "Directory to install into (default current directory)")
	cmd.Flags().StringVar(&installFilename, "filename", "", "Name of the installed file (default "+installer.DefaultFilename+")")
	cmd.Flags().StringVar(&installVersion, "version", "", "Install this exact version instead of the most recent stable")
	cmd.Flags().BoolVar(&installUnstable, "unstable", false, "Accept pre-release versions when selecting the most recent")
	cmd.Flags().StringVar(&installCAFile, "cafile", "", "Trust anchor file or directory for TLS verification")
	cmd.Flags().BoolVar(&installInsecure, "insecure", false, "Disable TLS certificate verification")

	return cmd
}

func runInstall(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	home, err := paths.ResolveHome()
	if err != nil {
		return &exitError{code: 2, msg: err.Error()}
	}

	// An explicitly named defaults file must exist; only the implicit
	// per-user file is optional.
	var cfg config.Config
	if configPath != "" {
		cfg, err = config.LoadRequired(configPath)
	} else {
		cfg, err = config.Load(home.ConfigFile())
	}
	if err != nil {
		return &exitError{code: 2, msg: err.Error()}
	}
	opts := mergeOptions(cmd, cfg)
	beQuiet := quiet || cfg.Quiet

	glog, gcloser, logErr := logx.New(home)
	if gcloser != nil {
		defer gcloser.Close()
	}
	logf := func(format string, v ...any) {
		if glog != nil {
			glog.Printf(format, v...)
		}
	}
	if logErr != nil {
		// Installation proceeds without a log file.
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", logErr)
	}
	logf("install started (dir=%q version=%q unstable=%t)", opts.InstallDir, opts.Version, opts.Unstable)

	reporter := newConsoleReporter(cmd.ErrOrStderr(), beQuiet, logf)

	result := installer.New(opts, reporter).Run(ctx)
	logf("install finished: %s (version=%q path=%q err=%v)", result.Status, result.Version, result.Path, result.Err)

	if result.Status != installer.StatusOK {
		msg := result.Status.String()
		if result.Err != nil {
			msg = fmt.Sprintf("%s: %v", msg, result.Err)
		}
		return &exitError{code: result.Status.ExitCode(), msg: msg}
	}

	reporter.Success("Installed Puli %s to %s", result.Version, result.Path)
	return nil
}

// mergeOptions overlays changed flags on top of the defaults file. A flag the
// user set always wins, even when set to its zero value.
func mergeOptions(cmd *cobra.Command, cfg config.Config) installer.Options {
	opts := installer.Options{
		InstallDir:      cfg.InstallDir,
		Filename:        cfg.Filename,
		Version:         cfg.Version,
		Unstable:        cfg.Unstable,
		CAFile:          cfg.CAFile,
		InsecureSkipTLS: cfg.Insecure,
	}

	flags := cmd.Flags()
	if flags.Changed("install-dir") {
		opts.InstallDir = installDir
	}
	if flags.Changed("filename") {
		opts.Filename = installFilename
	}
	if flags.Changed("version") {
		opts.Version = installVersion
	}
	if flags.Changed("unstable") {
		opts.Unstable = installUnstable
	}
	if flags.Changed("cafile") {
		opts.CAFile = installCAFile
	}
	if flags.Changed("insecure") {
		opts.InsecureSkipTLS = installInsecure
	}

	// An explicit version pin overrides a stability preference from the file.
	if flags.Changed("version") && !flags.Changed("unstable") {
		opts.Unstable = false
	}
	return opts
}
