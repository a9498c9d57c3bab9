// Command tttclient plays tic-tac-toe against a running tttserver in the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"mini-ttt/client"
	"mini-ttt/config"
	"mini-ttt/daemon"
	"mini-ttt/loadbalance"
	"mini-ttt/logger"
	"mini-ttt/registry"
	"mini-ttt/ui"
	"os"
	"strconv"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.ParseClientConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		return err
	}

	// The terminal belongs to the board, so logs go to a file or nowhere
	log := logger.Discard()
	var closer io.Closer = io.NopCloser(nil)
	if cfg.LogFile != "" {
		if log, closer, err = logger.Open(cfg.LogFile, logger.ParseLevel(cfg.LogLevel)); err != nil {
			return err
		}
	}
	defer closer.Close()

	id := cfg.ID
	if id == 0 {
		id = os.Getpid()
	}
	opts := client.Options{
		Name:            cfg.Name,
		Rendezvous:      cfg.Rendezvous,
		ChannelDir:      cfg.ChannelDir,
		ID:              id,
		Mark:            cfg.ClientMark(),
		ConnectTimeout:  cfg.ConnectTimeout,
		ResponseTimeout: cfg.ResponseTimeout,
		Logger:          log,
	}
	if len(cfg.EtcdEndpoints) > 0 {
		reg, err := registry.NewEtcdRegistry(cfg.EtcdEndpoints)
		if err != nil {
			return fmt.Errorf("connect etcd: %w", err)
		}
		defer reg.Close()
		bal, err := loadbalance.ByName(cfg.Balancer, strconv.Itoa(id))
		if err != nil {
			return err
		}
		opts.Registry = reg
		opts.Balancer = bal
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	c, err := client.Dial(ctx, opts)
	cancel()
	if errors.Is(err, client.ErrServerNotRunning) {
		return errors.New("tttserver does not seem to be running. Please start the service.")
	}
	if err != nil {
		return err
	}
	defer c.Close()

	model := ui.NewModel(c, cfg.ClientMark())
	p := tea.NewProgram(model, tea.WithAltScreen())

	// ctrl+c arrives as a key in raw mode; these come from outside the terminal
	stop := daemon.NotifyTermination(context.Background(), func(os.Signal) {
		p.Quit()
	}, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)
	defer stop()

	if _, err := p.Run(); err != nil {
		return err
	}
	if errors.Is(model.Err(), client.ErrServerGone) {
		return errors.New("the server ended the game")
	}
	return model.Err()
}
