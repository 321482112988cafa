package cmd

import (
	"flag"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/lmikael/conntop/config"
	"github.com/lmikael/conntop/engine"
	"github.com/lmikael/conntop/kernel"
	"github.com/lmikael/conntop/ui"
)

// Version is set at build time via ldflags.
var Version = "0.3.0"

func printUsage() {
	fmt.Fprintf(os.Stderr, `conntop v%s - live connection console for a proxy kernel

Usage:
  conntop [OPTIONS]

Options:
  -controller URL   External controller base URL (default: from config,
                    http://127.0.0.1:9090)
  -secret TOKEN     Controller API secret
  -ruleset NAME     Rule set that [a]dd-rule writes to (default: from config)
  -log FILE         Append logs to FILE (default: discarded while the TUI runs)
  -version          Print version and exit

Keys:
  space     pause / resume the feed
  tab       toggle live / closed view
  /         filter by host keyword (enter to apply, esc to cancel)
  s / r     cycle sort column / reverse direction
  x         close selected connection
  X         close all live connections
  a         add selected connection to the rule set
  C         clear the closed set
  j/k       move selection
  q         quit

Config: %s
`, Version, config.Path())
}

// Run parses flags and starts the application.
func Run() error {
	cfg := config.Load()

	controller := flag.String("controller", cfg.Controller, "controller base URL")
	secret := flag.String("secret", cfg.Secret, "controller API secret")
	ruleSet := flag.String("ruleset", cfg.RuleSet, "target rule set for add-rule")
	logFile := flag.String("log", cfg.LogFile, "log file path")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		fmt.Printf("conntop v%s\n", Version)
		return nil
	}

	// The TUI owns the terminal; logs go to a file or nowhere.
	logOut := io.Writer(io.Discard)
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger := log.New(logOut)

	client, err := kernel.NewClient(*controller, *secret, logger)
	if err != nil {
		return err
	}
	stream, err := kernel.NewStream(*controller, *secret, logger)
	if err != nil {
		return err
	}

	session := engine.NewSession(logger)
	session.SetSort(cfg.SortKey, cfg.SortDesc)
	if err := session.Attach(stream); err != nil {
		return fmt.Errorf("subscribe to %s: %w", *controller, err)
	}
	defer session.Close()

	dispatcher := engine.NewDispatcher(client, client, session.Ledger(), logger)
	cols := engine.ColumnsByKeys(cfg.Columns)
	if len(cols) == 0 {
		cols = engine.Columns()
	}

	app := ui.New(session, dispatcher, cols, *ruleSet, cfg.SortKey, cfg.SortDesc)
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("ui error: %w", err)
	}
	return nil
}
