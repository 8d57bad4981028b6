package dcm2niix

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/sandily/bidskit/internal/services"
)

// FilenameFormat is the converter output naming the series parser expects.
const FilenameFormat = "%n--%d--%q--%s"

// Converter turns one raw directory into converted series.
type Converter interface {
	Convert(ctx context.Context, rawDir, workDir string) (Result, error)
}

// Result summarizes one converter invocation.
type Result struct {
	Converted int
	Warnings  []string
	Duration  time.Duration
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onLine func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithCompression toggles gzip output ("-z y").
func WithCompression(enabled bool) Option {
	return func(c *Client) {
		c.compress = enabled
	}
}

// Client wraps dcm2niix CLI interactions.
type Client struct {
	binary   string
	timeout  time.Duration
	compress bool
	exec     Executor
}

// New constructs a dcm2niix client.
func New(binary string, timeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("dcm2niix binary required")
	}
	client := &Client{
		binary:   binary,
		timeout:  time.Duration(timeoutSeconds) * time.Second,
		compress: true,
		exec:     commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Binary returns the configured executable.
func (c *Client) Binary() string {
	return c.binary
}

// Args returns the argument list used to convert rawDir into workDir.
func (c *Client) Args(rawDir, workDir string) []string {
	compress := "n"
	if c.compress {
		compress = "y"
	}
	return []string{"-b", "y", "-z", compress, "-f", FilenameFormat, "-o", workDir, rawDir}
}

// Convert runs the converter. The working directory is created if needed.
func (c *Client) Convert(ctx context.Context, rawDir, workDir string) (Result, error) {
	if rawDir == "" || workDir == "" {
		return Result{}, services.Wrap(services.ErrValidation, "convert", "dcm2niix", "raw and working directories required", nil)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "convert", "dcm2niix", "create working directory "+workDir, err)
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var (
		mu     sync.Mutex
		result Result
	)
	start := time.Now()
	err := c.exec.Run(runCtx, c.binary, c.Args(rawDir, workDir), func(line string) {
		kind, text := classifyLine(line)
		mu.Lock()
		defer mu.Unlock()
		switch kind {
		case lineConverted:
			result.Converted++
		case lineWarning:
			result.Warnings = append(result.Warnings, text)
		}
	})
	result.Duration = time.Since(start)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return result, services.Wrap(services.ErrExternalTool, "convert", "dcm2niix",
				fmt.Sprintf("converter timed out after %s", c.timeout), err)
		}
		return result, services.Wrap(services.ErrExternalTool, "convert", "dcm2niix", "converter failed for "+rawDir, err)
	}
	return result, nil
}

type lineKind int

const (
	lineOther lineKind = iota
	lineConverted
	lineWarning
)

func classifyLine(line string) (lineKind, string) {
	line = strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(line, "Convert "):
		return lineConverted, line
	case strings.HasPrefix(line, "Warning:"), strings.HasPrefix(line, "Error:"):
		return lineWarning, line
	default:
		return lineOther, line
	}
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if onLine != nil {
				onLine(scanner.Text())
			}
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
