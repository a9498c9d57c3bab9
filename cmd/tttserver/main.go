// Command tttserver runs the tic-tac-toe server. By default it detaches from the
// terminal; -daemon=false keeps it in the foreground.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"mini-ttt/config"
	"mini-ttt/daemon"
	"mini-ttt/logger"
	"mini-ttt/registry"
	"mini-ttt/server"
	"os"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "tttserver:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.ParseServerConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		return err
	}

	if cfg.Daemon && !daemon.IsDetached() {
		// The detached child has no terminal to complain to, so check here first
		if err := server.RendezvousInUse(cfg.Rendezvous, cfg.PidFile); err != nil {
			return err
		}
		parent, err := daemon.Detach()
		if err != nil {
			return err
		}
		if parent {
			fmt.Printf("tttserver started in the background, rendezvous %s\n", cfg.Rendezvous)
			return nil
		}
	}

	log, closer, err := openLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	opts := server.Options{
		Name:               cfg.Name,
		Rendezvous:         cfg.Rendezvous,
		PidFile:            cfg.PidFile,
		ReplyRetries:       cfg.ReplyRetries,
		ReplyBackoff:       cfg.ReplyBackoff,
		SessionIdleTimeout: cfg.SessionIdleTimeout,
		HandshakeRate:      cfg.HandshakeRate,
		HandshakeBurst:     cfg.HandshakeBurst,
		MoveRate:           cfg.MoveRate,
		MoveBurst:          cfg.MoveBurst,
		RegistryTTL:        cfg.RegistryTTL,
		Weight:             cfg.Weight,
		Logger:             log,
	}
	if len(cfg.EtcdEndpoints) > 0 {
		reg, err := registry.NewEtcdRegistry(cfg.EtcdEndpoints)
		if err != nil {
			return fmt.Errorf("connect etcd: %w", err)
		}
		defer reg.Close()
		opts.Registry = reg
	}

	svr := server.NewServer(opts)
	stop := daemon.NotifyTermination(context.Background(), func(sig os.Signal) {
		log.Info("signal received, shutting down", "signal", sig.String())
		if err := svr.Shutdown(cfg.ShutdownTimeout); err != nil {
			log.Warn("shutdown", "error", err)
		}
	})
	defer stop()

	err = svr.Serve(context.Background())
	if errors.Is(err, server.ErrRendezvousExists) {
		log.Error("cannot start", "error", err)
	}
	return err
}

// openLogger logs to the configured file, to stderr in the foreground, and
// nowhere when detached without a file.
func openLogger(cfg config.ServerConfig) (*logger.Logger, io.Closer, error) {
	level := logger.ParseLevel(cfg.LogLevel)
	if cfg.LogFile == "" && daemon.IsDetached() {
		return logger.Discard(), io.NopCloser(nil), nil
	}
	return logger.Open(cfg.LogFile, level)
}
