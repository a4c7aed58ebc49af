package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nightlyone/lockfile"
	"github.com/spf13/pflag"

	"floatwatch/internal/app"
)

func main() {
	cfgPath := pflag.String("config", "./config.yaml", "path to config file (json or yaml)")
	lockPath := pflag.String("lock", "./floatwatch.lock", "lock file that keeps a second instance from starting")
	stopTimeout := pflag.Duration("stop-timeout", 10*time.Second, "upper bound for graceful shutdown")
	pflag.Parse()

	if err := run(*cfgPath, *lockPath, *stopTimeout); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run(cfgPath, lockPath string, stopTimeout time.Duration) error {
	abs, err := filepath.Abs(lockPath)
	if err != nil {
		return fmt.Errorf("could not resolve lock path %q: %w", lockPath, err)
	}
	flock, err := lockfile.New(abs)
	if err != nil {
		return fmt.Errorf("could not create lock file %q: %w", abs, err)
	}
	if err := flock.TryLock(); err != nil {
		return fmt.Errorf("could not get lock on file %q (already running?): %w", abs, err)
	}
	defer flock.Unlock()

	a, err := app.New(cfgPath)
	if err != nil {
		return err
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.Start(ctx); err != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
		defer stopCancel()
		_ = a.Stop(stopCtx, app.StopFatalError)
		return fmt.Errorf("start: %w", err)
	}

	var reason app.StopReason
	select {
	case s := <-sigs:
		switch s {
		case os.Interrupt:
			reason = app.StopSIGINT
		case syscall.SIGTERM:
			reason = app.StopSIGTERM
		default:
			reason = app.StopUnknown
		}
	case <-a.Done():
		reason = app.StopFatalError
	}
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()
	stopErr := a.Stop(stopCtx, reason)
	if err := a.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return stopErr
}
