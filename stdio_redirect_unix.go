//go:build unix

package main

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// redirectStdIO points fd 1 and 2 at path so runtime panics land in the file
// even while the console shows the framebuffer.
func redirectStdIO(path string) error {
	if path == "" {
		return nil
	}
	f, err := openStdIOLog(path)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, fd := range []int{unix.Stdout, unix.Stderr} {
		if err := unix.Dup2(int(f.Fd()), fd); err != nil {
			return fmt.Errorf("dup2 onto fd %d: %w", fd, err)
		}
	}
	return nil
}

// openStdIOLog opens path for appending and marks the start of a session.
func openStdIOLog(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(f, "---- interlace pid %d started %s ----\n", os.Getpid(), time.Now().Format(time.RFC3339))
	return f, nil
}
