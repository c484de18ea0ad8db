package gateways

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// CommandExecutor runs external programs such as the build orchestrator
type CommandExecutor struct {
	defaultTimeout time.Duration
	progressOut    io.Writer
}

// NewCommandExecutor creates a new command executor.
// Spinners are drawn on progressOut; pass nil to disable them.
func NewCommandExecutor(progressOut io.Writer) *CommandExecutor {
	return &CommandExecutor{
		defaultTimeout: 0,
		progressOut:    progressOut,
	}
}

// CommandConfig contains configuration for running one program
type CommandConfig struct {
	Name        string
	Args        []string
	WorkingDir  string
	Env         map[string]string
	Timeout     time.Duration
	Description string
	Stream      io.Writer // receives combined output as it is produced
}

// ExecuteResult contains the result of a command execution
type ExecuteResult struct {
	Success  bool
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	Error    error
}

// Combined returns stdout followed by stderr
func (r *ExecuteResult) Combined() string {
	return r.Stdout + r.Stderr
}

// StderrTail returns at most the last n lines of stderr
func (r *ExecuteResult) StderrTail(n int) string {
	lines := strings.Split(strings.TrimRight(r.Stderr, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// Execute runs a program with the given configuration
func (ce *CommandExecutor) Execute(ctx context.Context, config CommandConfig) *ExecuteResult {
	startTime := time.Now()
	result := &ExecuteResult{}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = ce.defaultTimeout
	}

	execCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	//nolint:gosec // G204: Program and arguments come from the formula
	cmd := exec.CommandContext(execCtx, config.Name, config.Args...)

	if config.WorkingDir != "" {
		cmd.Dir = config.WorkingDir
	}

	env := os.Environ()
	for key, value := range config.Env {
		env = append(env, fmt.Sprintf("%s=%s", key, value))
	}
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	if config.Stream != nil {
		// exec copies stdout and stderr from separate goroutines
		stream := &lockedWriter{w: config.Stream}
		cmd.Stdout = io.MultiWriter(&stdout, stream)
		cmd.Stderr = io.MultiWriter(&stderr, stream)
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	// Spin only when nothing else is writing to the terminal
	var stopSpinner func()
	if config.Stream == nil && ce.progressOut != nil && config.Description != "" {
		stopSpinner = ce.startSpinner(config.Description)
	}

	err := cmd.Run()
	if stopSpinner != nil {
		stopSpinner()
	}
	result.Duration = time.Since(startTime)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if err != nil {
		result.Error = err
		var exitErr *exec.ExitError
		//nolint:gocritic // ifElseChain: checking different error types, not suitable for switch
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			result.Error = fmt.Errorf("%s timed out after %v", config.Name, timeout)
			result.ExitCode = -1
		} else if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
		return result
	}

	result.Success = true
	result.ExitCode = 0
	return result
}

// startSpinner draws an indeterminate progress bar until the returned func is called
func (ce *CommandExecutor) startSpinner(description string) func() {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(ce.progressOut),
		progressbar.OptionSetDescription(description),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSpinnerType(10),
		progressbar.OptionThrottle(200*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
		_ = bar.Finish()
	}
}

// RunSmokeTest runs an installed binary and returns its combined output.
// The output is returned even when the program fails.
func (ce *CommandExecutor) RunSmokeTest(ctx context.Context, binary string, args []string, timeout time.Duration) (string, error) {
	result := ce.Execute(ctx, CommandConfig{
		Name:    binary,
		Args:    args,
		Timeout: timeout,
	})
	if !result.Success {
		return result.Combined(), fmt.Errorf("%s %s (exit %d): %w",
			binary, strings.Join(args, " "), result.ExitCode, result.Error)
	}
	return result.Combined(), nil
}

// lockedWriter serializes writes to w
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
