package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"stenokb/internal/app"
	"stenokb/internal/config"
	"stenokb/internal/keyboard"
	"stenokb/internal/keymap"
	"stenokb/internal/machine"
	"stenokb/internal/netclient"
	"stenokb/internal/strokelog"
)

func main() {
	program := filepath.Base(os.Args[0])
	opts, err := config.ParseCLI(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}
	if opts.ShowHelp {
		config.Usage(os.Stderr, program)
		return
	}

	cfg, err := loadConfigWithFallback(opts)
	if err != nil {
		fmt.Printf("[main] %v\n", err)
		os.Exit(1)
	}
	config.ApplyCLI(&cfg, opts)

	km := keymap.Default()
	if cfg.KeymapPath != "" {
		km, err = keymap.Load(cfg.KeymapPath)
		if err != nil {
			fmt.Printf("[main] %v\n", err)
			os.Exit(1)
		}
	}

	var strokes app.StrokeLog
	if cfg.StrokeLogPath != "" {
		store, err := strokelog.Open(cfg.StrokeLogPath)
		if err != nil {
			fmt.Printf("[main] %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		strokes = store
	}

	var doer netclient.Doer
	if cfg.ForwardEndpoint != "" {
		httpClient, transport := netclient.New(cfg)
		defer transport.CloseIdleConnections()
		doer = httpClient
	}

	corrector := keyboard.Corrector(keyboard.NewSystemKeySimulator(cfg.DEBUG), cfg.DEBUG)
	application, err := app.New(cfg, doer, strokes, corrector)
	if err != nil {
		fmt.Printf("[main] %v\n", err)
		os.Exit(1)
	}
	application.Start()
	defer application.Close()

	kb := machine.NewKeyboard(km, machine.Options{
		Arpeggiate: cfg.Arpeggiate,
		OnStroke:   application.HandleStroke,
		OnState:    application.HandleState,
		Debug:      cfg.DEBUG,
	})
	application.AttachMachine(kb)
	kb.SetSuppression(cfg.Suppress)
	if err := kb.Start(); err != nil {
		fmt.Printf("[main] failed to start keyboard: %v\n", err)
		os.Exit(1)
	}
	defer kb.Stop()

	if cfg.KeymapPath != "" && cfg.WatchKeymap {
		w, err := keymap.Watch(cfg.KeymapPath, keymap.DefaultDebounce, func(next *keymap.Keymap, err error) {
			if err != nil {
				fmt.Printf("[keymap] reload failed, keeping current keymap: %v\n", err)
				return
			}
			kb.SetKeymap(next)
			fmt.Printf("[keymap] reloaded %s\n", cfg.KeymapPath)
		})
		if err != nil {
			fmt.Printf("[main] keymap watch disabled: %v\n", err)
		} else {
			defer w.Close()
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	fmt.Println("[main] ready. Chord on the keyboard to write steno. Ctrl+C to exit.")
	<-sigCh
	fmt.Println("[main] exiting")
}

func loadConfigWithFallback(opts config.CLIOptions) (config.Config, error) {
	if opts.ConfigPath != "" {
		return config.Load(opts.ConfigPath)
	}
	if _, err := os.Stat("config.json"); err == nil {
		return config.Load("config.json")
	} else if os.IsNotExist(err) {
		if !opts.AnyOverrideSet() {
			if err := config.SaveDefault("config.json"); err != nil {
				return config.Config{}, fmt.Errorf("failed create default config: %w", err)
			}
			fmt.Println("[main] default config.json created.")
		}
		return config.Default(), nil
	} else {
		return config.Config{}, fmt.Errorf("stat config.json failed: %w", err)
	}
}
