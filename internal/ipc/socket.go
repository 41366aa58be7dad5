package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// ErrAlreadyRunning means another process already owns the control socket.
var ErrAlreadyRunning = errors.New("drai session already running")

const (
	DefaultProbeTimeout = 150 * time.Millisecond
	DefaultRetries      = 2
)

// RuntimeSocketPath returns $XDG_RUNTIME_DIR/drai.sock.
func RuntimeSocketPath() (string, error) {
	runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if runtimeDir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(runtimeDir, "drai.sock"), nil
}

// Acquire listens on path, replacing a stale socket left by a dead owner.
// onStale runs after each stale socket is removed.
func Acquire(
	ctx context.Context,
	path string,
	probeTimeout time.Duration,
	retries int,
	onStale func(context.Context) error,
) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure runtime socket dir: %w", err)
	}

	for attempt := 0; ; attempt++ {
		listener, err := listenOwner(path)
		if err == nil || !isAddrInUse(err) {
			return listener, err
		}
		if err := clearStale(ctx, path, probeTimeout); err != nil {
			return nil, err
		}
		if onStale != nil {
			_ = onStale(ctx)
		}
		if attempt >= retries {
			break
		}
		if err := backoff(ctx, attempt); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("failed to acquire socket %s after %d retries", path, retries)
}

// listenOwner binds path and restricts it to the current user.
func listenOwner(path string) (net.Listener, error) {
	listener, err := net.Listen("unix", path)
	if err != nil {
		if isAddrInUse(err) {
			return nil, err
		}
		return nil, fmt.Errorf("listen unix %s: %w", path, err)
	}
	_ = os.Chmod(path, 0o600)
	return listener, nil
}

// clearStale removes path only when nothing answers on it. A live owner
// yields ErrAlreadyRunning and an inconclusive probe leaves the file alone.
func clearStale(ctx context.Context, path string, probeTimeout time.Duration) error {
	alive, err := Probe(ctx, path, probeTimeout)
	if alive {
		return ErrAlreadyRunning
	}
	if err != nil {
		return fmt.Errorf("probe existing socket %s: %w", path, err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket %s: %w", path, err)
	}
	return nil
}

func backoff(ctx context.Context, attempt int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(25*(attempt+1)) * time.Millisecond):
		return nil
	}
}

func isAddrInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}
