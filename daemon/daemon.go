// Package daemon detaches the server from its terminal and turns termination
// signals into an orderly shutdown.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
)

// EnvDetached marks the re-executed child so it does not detach again.
const EnvDetached = "TTT_DETACHED"

// TerminationSignals end the server. SIGQUIT is included so a stray ^\ from the
// terminal that started it still cleans up the rendezvous.
var TerminationSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT}

// IsDetached reports whether this process is the detached child.
func IsDetached() bool {
	return os.Getenv(EnvDetached) == "1"
}

// Detach re-executes the running binary with the same arguments in a new session,
// with stdio on /dev/null and / as working directory. In the parent it returns
// parent=true and the caller should exit; in the child it returns parent=false.
// Relative paths in the arguments must be resolved before calling Detach.
func Detach() (parent bool, err error) {
	if IsDetached() {
		return false, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return false, fmt.Errorf("detach: %w", err)
	}
	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Env = append(os.Environ(), EnvDetached+"=1")
	cmd.Dir = "/"
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return false, fmt.Errorf("detach: %w", err)
	}
	return true, cmd.Process.Release()
}

// NotifyTermination calls fn once, from its own goroutine, on the first of sigs
// (TerminationSignals when none are given). The returned stop function releases the
// handler; after it returns fn is never called.
func NotifyTermination(ctx context.Context, fn func(os.Signal), sigs ...os.Signal) (stop func()) {
	if len(sigs) == 0 {
		sigs = TerminationSignals
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case sig := <-ch:
			fn(sig)
		case <-ctx.Done():
		}
	}()

	return func() {
		signal.Stop(ch)
		cancel()
		<-done
	}
}
