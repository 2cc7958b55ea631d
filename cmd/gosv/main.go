// Command gosv is a process supervisor: it reads a TOML configuration
// file describing a set of programs, launches and monitors them, and
// reconciles their state against the file again on every SIGHUP.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gosv-project/gosv/internal/config"
	"github.com/gosv-project/gosv/internal/logging"
	"github.com/gosv-project/gosv/internal/supervisor"
	"github.com/gosv-project/gosv/internal/tui"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configFlag = flag.String("config", "", "path to the configuration file (overrides the positional argument)")
		noTUI      = flag.Bool("no-tui", false, "run headless, without the interactive terminal display")
		logLevel   = flag.String("log-level", "info", "initial log level (trace, debug, info, warn, error)")
	)
	flag.Parse()

	path := config.DefaultPath
	if flag.NArg() > 0 {
		path = flag.Arg(0)
	}
	if *configFlag != "" {
		path = *configFlag
	}

	logger, handle, err := logging.New(os.Stderr, *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gosv: invalid log level %q: %v\n", *logLevel, err)
		return 1
	}

	file, err := config.Load(path)
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("loading configuration")
		return 1
	}

	progLogger := logging.ProgramLogger{Handle: handle}
	levelAdapter := supervisor.NewLevelHandleAdapter(handle)

	cfg := supervisor.NewConfig(file, levelAdapter, progLogger)

	var screen supervisor.TUI
	if *noTUI || !tui.IsInteractive() {
		screen = tui.Headless{}
	} else {
		app, err := tui.New()
		if err != nil {
			logger.Error().Err(err).Msg("starting terminal display")
			return 1
		}
		screen = app
	}

	loop := supervisor.NewLoop(cfg, screen, progLogger, path)
	loop.ListenForReload()
	defer loop.Stop()

	if err := loop.Run(); err != nil {
		logger.Error().Err(err).Msg("supervisor loop exited")
		return 1
	}
	return 0
}
