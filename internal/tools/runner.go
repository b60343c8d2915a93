package tools

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"
)

// ErrToolNotFound is returned when the binary cannot be resolved at run time.
// The availability probe is advisory, so every adapter must expect this.
var ErrToolNotFound = errors.New("tool not found")

// ToolResult contains the result of a tool execution
type ToolResult struct {
	Stdout   []byte
	Stderr   string
	ExitCode int
}

// Lines returns the non-empty stdout lines.
func (r *ToolResult) Lines() []string {
	if r == nil {
		return nil
	}
	return splitLines(r.Stdout)
}

// RunTool executes a tool binary with the given arguments and returns the result.
// It handles concurrent pipe reading to prevent buffer deadlocks and enforces
// context timeout with proper subprocess cleanup.
func RunTool(ctx context.Context, binary string, args ...string) (*ToolResult, error) {
	return RunToolWithInput(ctx, nil, binary, args...)
}

// RunToolWithInput is RunTool with input written to the process stdin one
// entry per line. A partial result is returned alongside cancellation and
// exit-code errors so callers can salvage output written before the failure.
func RunToolWithInput(ctx context.Context, input []string, binary string, args ...string) (*ToolResult, error) {
	cmd := exec.CommandContext(ctx, binary, args...)

	// Set WaitDelay for subprocess cleanup after context cancellation
	cmd.WaitDelay = 5 * time.Second

	var stdinPipe io.WriteCloser
	if input != nil {
		var err error
		stdinPipe, err = cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
		}
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", binary, ErrToolNotFound)
		}
		return nil, fmt.Errorf("failed to start command: %w", err)
	}

	if stdinPipe != nil {
		go func() {
			defer stdinPipe.Close()
			for _, line := range input {
				fmt.Fprintln(stdinPipe, line)
			}
		}()
	}

	var stdoutBuf bytes.Buffer
	var stderrBuf bytes.Buffer

	stdoutDone := make(chan error, 1)
	stderrDone := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(stdoutPipe)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			stdoutBuf.Write(scanner.Bytes())
			stdoutBuf.WriteByte('\n')
		}
		stdoutDone <- scanner.Err()
	}()

	go func() {
		_, err := io.Copy(&stderrBuf, stderrPipe)
		stderrDone <- err
	}()

	<-stdoutDone
	<-stderrDone

	err = cmd.Wait()

	result := &ToolResult{
		Stdout:   stdoutBuf.Bytes(),
		Stderr:   stderrBuf.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
	}

	if err != nil {
		if ctx.Err() != nil {
			return result, fmt.Errorf("command cancelled: %w", ctx.Err())
		}
		return result, fmt.Errorf("command failed with exit code %d: %w", result.ExitCode, err)
	}

	return result, nil
}

// splitLines returns trimmed, non-empty lines of data.
func splitLines(data []byte) []string {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		lines = append(lines, string(line))
	}
	return lines
}
