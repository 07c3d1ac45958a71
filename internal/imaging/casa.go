package imaging

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// CASA runs the CASA imaging application as a subprocess, one task per call.
// Each call is rendered into a short Python script in the work directory and
// executed with the non-interactive flags; the engine's stdout and stderr are
// streamed line-by-line into the logger.
type CASA struct {
	binPath string
	workDir string
	logger  *slog.Logger
}

// WithLogger sets the logger for engine output.
func WithLogger(logger *slog.Logger) func(*CASA) {
	return func(c *CASA) {
		c.logger = logger.With(slog.String("engine", Runtime))
	}
}

// WithRuntimePath overrides the PATH lookup with an explicit executable.
func WithRuntimePath(path string) func(*CASA) {
	return func(c *CASA) {
		c.binPath = path
	}
}

// NewCASA creates an engine writing its scripts and logs under workDir.
func NewCASA(workDir string, options ...func(*CASA)) (*CASA, error) {
	c := CASA{
		workDir: workDir,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}
	for _, option := range options {
		option(&c)
	}

	if c.binPath == "" {
		binPath, err := FindRuntime(Runtime)
		if err != nil {
			return nil, err
		}
		c.binPath = binPath
	}
	return &c, nil
}

// Clean implements Engine.
func (c *CASA) Clean(ctx context.Context, p CleanParams) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid clean parameters: %w", err)
	}
	name := "tclean_" + filepath.Base(p.ImageName)
	return c.run(ctx, name, p.Script())
}

// ExportFITS implements Engine.
func (c *CASA) ExportFITS(ctx context.Context, imageName, fitsName string, dropStokes bool) error {
	name := "exportfits_" + filepath.Base(imageName)
	return c.run(ctx, name, exportScript(imageName, fitsName, dropStokes))
}

// ImportFITS implements Engine.
func (c *CASA) ImportFITS(ctx context.Context, fitsName, imageName string) error {
	name := "importfits_" + filepath.Base(imageName)
	return c.run(ctx, name, importScript(fitsName, imageName))
}

// run writes the task script to the work directory and executes one engine
// invocation over it.
func (c *CASA) run(ctx context.Context, name, script string) error {
	scriptPath := filepath.Join(c.workDir, name+".py")
	if err := os.WriteFile(scriptPath, []byte(script+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing engine script: %w", err)
	}

	cmd := exec.CommandContext(ctx, c.binPath, "--nogui", "--nologger", "--agg", "-c", scriptPath)
	cmd.Dir = c.workDir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("creating stderr pipe: %w", err)
	}

	if err = cmd.Start(); err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}

	logger := c.logger.With(slog.String("task", name))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.stream(stdout, func(line string) { logger.Debug(line) })
	}()
	go func() {
		defer wg.Done()
		c.stream(stderr, func(line string) { logger.Warn(fmt.Sprintf("%s >> %s", Runtime, line)) })
	}()
	wg.Wait()

	if err = cmd.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("engine task %s exited with error: %w", name, err)
	}
	return ctx.Err()
}

func (c *CASA) stream(r io.Reader, emit func(string)) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		emit(line)
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, fs.ErrClosed) {
		c.logger.Warn(fmt.Sprintf("error reading engine output: %s", err.Error()))
	}
}
