//go:build linux

package system

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// WatchKeys reads every evdev device under /dev/input and runs the bound
// action for each key press until ctx is done. Without input devices it logs
// and returns.
func WatchKeys(ctx context.Context, l logger, bindings KeyBindings) {
	if len(bindings) == 0 {
		return
	}
	tvSize := binary.Size(unix.Timeval{})

	paths, err := filepath.Glob("/dev/input/event*")
	if err != nil || len(paths) == 0 {
		if l != nil {
			l.Infof("input", "no evdev devices found")
		}
		return
	}

	for _, path := range paths {
		go watchDevice(ctx, l, path, tvSize, bindings)
	}
}

func watchDevice(ctx context.Context, l logger, path string, tvSize int, bindings KeyBindings) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return
	}
	f := os.NewFile(uintptr(fd), path)
	defer func() {
		_ = f.Close()
	}()

	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		pollFds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		if _, err := unix.Poll(pollFds, 250); err != nil {
			if err == unix.EINTR {
				continue
			}
			// Device went away.
			return
		}
		if pollFds[0].Revents&unix.POLLIN == 0 {
			continue
		}

		n, err := unix.Read(fd, buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			return
		}
		for _, code := range keyPresses(buf[:n], tvSize) {
			action, ok := bindings[code]
			if !ok {
				continue
			}
			if l != nil {
				l.Infof("input", "key %d pressed", code)
			}
			action()
		}
	}
}
