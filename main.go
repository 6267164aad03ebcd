/*
Runs one of the testbed demos on top of the framecore engine. The demo and
window come from a TOML config; -demo overrides the configured demo.
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/framecore/engine"
	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/testbed"
)

func main() {
	configPath := flag.String("config", "assets/framecore.toml", "path to the TOML configuration")
	demo := flag.String("demo", "", "demo to run (cube or spectrum), overrides the config")
	flag.Parse()

	if err := run(*configPath, *demo); err != nil {
		core.LogError("%+v", err)
		os.Exit(1)
	}
}

func run(configPath, demo string) error {
	config, err := engine.LoadApplicationConfig(configPath)
	if err != nil {
		return err
	}
	if demo != "" {
		config.Demo = demo
	}

	tb, err := testbed.NewTestGame(config)
	if err != nil {
		return err
	}

	e, err := engine.New(tb.Game)
	if err != nil {
		return err
	}
	defer func() {
		if err := e.Shutdown(); err != nil {
			core.LogWarn("shutdown: %v", err)
		}
	}()

	if err := e.Initialize(); err != nil {
		return err
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer signal.Stop(sigCh)

	go func() {
		if _, ok := <-sigCh; ok {
			e.Stop()
		}
	}()

	return e.Run()
}
