// Copyright 2026 The Mentionserve Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the mention completion server and CLI [DBG]
application.

mentionserve provides entity-mention autocomplete for free-text CRM notes:
trigger characters (@ stakeholder, # deal, + account) open a mention, the
engine resolves ranked candidates from a trie-indexed entity directory, and
accepted mentions are committed into the text and tracked as linked
entities. It can operate as a MessagePack IPC server for integration with
editor hosts, or as a CLI application for testing and debugging.

# Usage

Start the server with default settings:

	mentionserve

Use a custom data directory and enable debug mode:

	mentionserve -data /path/to/snapshots -d

Run in CLI mode for interactive testing:

	mentionserve -c -limit 5

The data directory should contain entity snapshot files named
entities_0001.bin, entities_0002.bin, etc. (msgpack, see pkg/directory).
When no snapshots exist the builtin demo directory is loaded so the CLI
stays usable out of the box.

# Configuration

Runtime configuration is managed through a TOML file:

	[engine]
	debounce_ms = 100
	resolve_timeout_ms = 5000
	max_candidates = 8
	max_query = 60

	[triggers]
	stakeholder = "@"
	deal = "#"
	account = "+"

The config file is automatically created with defaults if it doesn't exist.
Server mode reloads configuration periodically without restart.

# IPC Protocol

The server communicates via MessagePack over stdin/stdout; see pkg/server
for the message catalogue. A suggest round trip:

	{"id": "req1", "op": "suggest", "x": "met with @Sar", "c": 14}
	{"id": "req1", "ok": true, "cand": [{"n": "Sarah Martinez", "r": 1}], "g": "ah Martinez"}

# CLI Mode

CLI mode provides an interactive interface for testing and debugging the
scan/resolve/commit cycle with human-readable, color-highlighted output.
New features should be exercised here before relying on server mode.
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/microwavekid/mentionserve/internal/cli"
	"github.com/microwavekid/mentionserve/internal/logger"
	"github.com/microwavekid/mentionserve/internal/utils"
	"github.com/microwavekid/mentionserve/pkg/config"
	"github.com/microwavekid/mentionserve/pkg/directory"
	"github.com/microwavekid/mentionserve/pkg/server"
)

const (
	Version = "0.3.0-beta"
	AppName = "mentionserve"
)

// sigHandler is a simple handler for OS signals to exit normally.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

// main calls other packages to initialize the server or CLI inputs.
// main() does not implement logic for them and only manages the flow.
func main() {
	sigHandler()
	defaultConfig := config.DefaultConfig()

	showVersion := flag.Bool("version", false, "Show current version")
	dataDir := flag.String("data", defaultConfig.Directory.DataDir, "Directory containing entity snapshot files")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	limit := flag.Int("limit", defaultConfig.CLI.DefaultLimit, "Number of candidates to return")
	noFilter := flag.Bool("no-filter", defaultConfig.CLI.NoFilter, "Disable query filtering (DBG only) - resolves raw queries (numbers, symbols, etc)")
	configFlag := flag.String("config", "", "Custom config file path")
	rebuildConfig := flag.Bool("rebuild-config", false, "Recreate config.toml with defaults at the default location")

	flag.Parse()

	if *showVersion {
		banner := logger.NewWithConfig("", log.InfoLevel, false, false, log.TextFormatter)

		styles := log.DefaultStyles()
		styles.Values["version"] = lipgloss.NewStyle().Bold(true).
			Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})
		banner.SetStyles(styles)

		banner.Print("")
		banner.Print("[ mentionserve ] entity-mention autocomplete for CRM notes")
		banner.Print("", "version", Version)
		banner.Print("")
		banner.Print("use -h or --help to see available options")
		os.Exit(0)
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	pathResolver, err := utils.NewPathResolver()
	if err != nil {
		log.Fatalf("Failed to initialize path resolver: %v", err)
	}
	log.Debugf("Running from: %s", pathResolver.GetExecutablePath())

	if *rebuildConfig {
		if err := config.RebuildConfigFile(); err != nil {
			log.Fatalf("Failed to rebuild config: %v", err)
		}
		path, _ := config.GetDefaultConfigPath()
		fmt.Printf("Rebuilt default config at %s\n", path)
		os.Exit(0)
	}

	requestedConfig := *configFlag
	if requestedConfig == "" {
		// resolve a writable default location before the priority load
		if path, perr := pathResolver.GetConfigPath("config.toml"); perr == nil && utils.FileExists(path) {
			requestedConfig = path
		}
	}
	appConfig, configPath, err := config.LoadConfigWithPriority(requestedConfig)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(configPath))

	resolvedDataDir, err := pathResolver.GetDataDir(*dataDir)
	if err != nil {
		log.Fatalf("Failed to resolve data dir: (%v)", err)
	}
	log.Debugf("Using data dir at: %s", resolvedDataDir)

	dir := directory.New(
		directory.WithMaxResults(appConfig.Engine.MaxCandidates),
		directory.WithRecentSize(appConfig.Directory.RecentSize),
	)
	loaded, err := dir.LoadDir(resolvedDataDir)
	if err != nil {
		log.Fatalf("Failed to load entity snapshots: %v", err)
	}
	if loaded == 0 {
		log.Warn("No entity snapshots found, using builtin demo directory...")
		dir = directory.Builtin(
			directory.WithMaxResults(appConfig.Engine.MaxCandidates),
			directory.WithRecentSize(appConfig.Directory.RecentSize),
		)
	}
	log.Debugf("Directory ready with %d entities", dir.Len())

	// CLI is mainly used for testing and dbg purposes.
	// Any new features or changes should be tested in CLI mode first.
	if *cliMode {
		log.SetReportTimestamp(false)
		log.Debug("Input info:",
			"limit", *limit,
			"noFilter", *noFilter)

		inputHandler := cli.NewInputHandler(dir, appConfig.TriggerSet(), *limit,
			appConfig.CLI.ShowConfidence, *noFilter, appConfig.ResolveTimeout())
		if err := inputHandler.Start(); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		return
	}

	log.Debug("spawning IPC")
	srv := server.NewServer(dir, appConfig, configPath)

	showStartupInfo(resolvedDataDir, dir.Len())

	if err := srv.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(dataDir string, entityCount int) {
	pid := os.Getpid()
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	println("==============")
	println(" mentionserve ")
	println("==============")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", pid)
	log.Info("init: OK")
	log.Infof("data dir: ( %s )", dataDir)
	log.Infof("entities: [ %d ]", entityCount)
	log.Info("status: ready")
	println("==============")
	println("Press Ctrl+C to exit")

	log.SetLevel(currentLevel)
}
