package server

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrAlreadyRunning is returned by Acquire when another live daemon owns the
// PID file.
var ErrAlreadyRunning = errors.New("daemon already running")

// PIDFile manages the PID file for the server
type PIDFile struct {
	path string
}

// NewPIDFile creates a PID file manager at path, creating its directory
func NewPIDFile(path string) (*PIDFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create PID directory: %w", err)
	}
	return &PIDFile{path: path}, nil
}

func (p *PIDFile) Path() string { return p.path }

// Acquire writes the current PID unless a running process already owns the
// file. A stale file left by a dead process is replaced.
func (p *PIDFile) Acquire() error {
	pid, err := p.Read()
	if err != nil {
		return err
	}
	if pid > 0 && pid != os.Getpid() && isRunning(pid) {
		return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
	}
	return p.write()
}

// write writes the current process PID to the PID file
func (p *PIDFile) write() error {
	pid := os.Getpid()
	return os.WriteFile(p.path, []byte(strconv.Itoa(pid)), 0644)
}

// Read reads the PID from the PID file. A missing file reads as 0.
func (p *PIDFile) Read() (int, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in file: %w", err)
	}

	return pid, nil
}

// Remove removes the PID file
func (p *PIDFile) Remove() error {
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// Running returns the PID of the live daemon owning the file, or 0.
func (p *PIDFile) Running() (int, error) {
	pid, err := p.Read()
	if err != nil || pid == 0 {
		return 0, err
	}
	if !isRunning(pid) {
		return 0, nil
	}
	return pid, nil
}

// isRunning checks if a process with the given PID is running
func isRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// On Unix systems, FindProcess always succeeds, so we need to check if the process actually exists
	err = process.Signal(syscall.Signal(0))
	return err == nil
}

// KillProcess attempts to stop the process with the given PID
func KillProcess(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process: %w", err)
	}

	// First try SIGTERM for graceful shutdown
	if err := process.Signal(syscall.SIGTERM); err != nil {
		// If SIGTERM fails, force kill with SIGKILL
		if err := process.Kill(); err != nil {
			return fmt.Errorf("failed to kill process: %w", err)
		}
	}

	return nil
}
