// Package main provides surfd, the pair-browsing daemon. It launches a
// browser instance, exposes the viewer streaming endpoint and keeps both
// alive until the process is told to stop.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/entrhq/surf/pkg/browser"
	"github.com/entrhq/surf/pkg/cdp"
	"github.com/entrhq/surf/pkg/config"
	"github.com/entrhq/surf/pkg/logging"
	"github.com/entrhq/surf/pkg/stream"
)

const version = "0.1.0"

type flags struct {
	configPath  string
	addr        string
	engine      string
	headless    bool
	userDataDir string
	url         string
	showVersion bool
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "path to config file (default ~/.surf/config.json)")
	flag.StringVar(&f.addr, "addr", "", "streaming listen address (overrides config)")
	flag.StringVar(&f.engine, "engine", "", "browser engine: chromium, firefox or webkit (overrides config)")
	flag.BoolVar(&f.headless, "headless", true, "run the browser headless")
	flag.StringVar(&f.userDataDir, "user-data-dir", "", "profile directory for persistent mode (overrides config)")
	flag.StringVar(&f.url, "url", "", "initial URL to open")
	flag.BoolVar(&f.showVersion, "version", false, "print version and exit")
	flag.Parse()
	return f
}

func main() {
	f := parseFlags()
	if f.showVersion {
		fmt.Printf("surfd v%s\n", version)
		return
	}

	if err := run(f); err != nil {
		log.Fatalf("surfd: %v", err)
	}
}

func run(f flags) error {
	configPath := f.configPath
	if configPath == "" {
		var err error
		configPath, err = config.DefaultPath()
		if err != nil {
			return err
		}
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Flags override file configuration
	if f.addr != "" {
		cfg.Stream.Addr = f.addr
	}
	if f.engine != "" {
		cfg.Browser.Engine = f.engine
	}
	if f.userDataDir != "" {
		cfg.Browser.UserDataDir = f.userDataDir
	}
	cfg.Browser.Headless = f.headless

	logger, logErr := logging.NewLogger("surfd")
	if logErr != nil {
		log.Printf("file logging unavailable: %v", logErr)
	}
	defer logger.Close()

	manager := browser.NewManager()
	if err := manager.Launch(browser.LaunchOptions{
		Engine:   browser.Engine(cfg.Browser.Engine),
		Headless: cfg.Browser.Headless,
		Viewport: &browser.Viewport{
			Width:  cfg.Browser.ViewportWidth,
			Height: cfg.Browser.ViewportHeight,
		},
		ExecutablePath: cfg.Browser.ExecutablePath,
		UserDataDir:    cfg.Browser.UserDataDir,
	}); err != nil {
		return fmt.Errorf("launch failed: %w", err)
	}
	defer manager.Close()

	sessions := cdp.NewSessionManager(manager)
	manager.RegisterCleanup(sessions.Close)

	if f.url != "" {
		page, err := manager.ActivePage()
		if err != nil {
			return err
		}
		if _, err := page.Goto(f.url); err != nil {
			logger.Warnf("initial navigation failed: %v", err)
		}
	}

	server := stream.NewServer(sessions, stream.Options{
		Addr: cfg.Stream.Addr,
		Capture: cdp.CaptureOptions{
			Quality:       cfg.Stream.Quality,
			EveryNthFrame: cfg.Stream.EveryNthFrame,
			MaxWidth:      cfg.Stream.MaxWidth,
			MaxHeight:     cfg.Stream.MaxHeight,
		},
	})

	// The streaming endpoint only works on chromium; on other engines the
	// daemon still runs for automation callers, just without pair browsing.
	if browser.Engine(cfg.Browser.Engine).SupportsCDP() {
		if err := server.Start(); err != nil {
			logger.Errorf("stream server failed to start: %v", err)
			return err
		}
		defer server.Stop()
		logger.Infof("streaming on %s", server.Addr())
	} else {
		logger.Warnf("engine %s has no debug protocol, streaming disabled", cfg.Browser.Engine)
	}

	logger.Infof("surfd v%s running (engine=%s, session=%s)", version, cfg.Browser.Engine, logger.SessionID())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Infof("shutting down")
	return nil
}
