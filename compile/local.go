// Copyright © 2024 The ELPS authors

package compile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// waitDelay bounds how long a killed engine may hold its output pipes.
const waitDelay = 2 * time.Second

// LocalBackend runs the typesetting engine as a subprocess.
type LocalBackend struct {
	cfg      Config
	log      *logrus.Entry
	lookPath func(string) (string, error)
}

var _ Backend = (*LocalBackend)(nil)

// NewLocalBackend returns a backend running executables on this machine.  A
// nil log discards output.
func NewLocalBackend(cfg Config, log *logrus.Entry) *LocalBackend {
	if log == nil {
		log = discardLogger()
	}
	return &LocalBackend{
		cfg:      cfg,
		log:      log,
		lookPath: exec.LookPath,
	}
}

// Resolve locates the engine executable and returns it with the arguments
// that select the ConTeXt runner.
func (b *LocalBackend) Resolve() (string, []string, error) {
	if exe := b.cfg.Executable; exe != "" {
		if strings.ContainsRune(exe, filepath.Separator) || strings.ContainsRune(exe, '/') {
			info, err := os.Stat(exe)
			if err != nil || info.IsDir() {
				return "", nil, fmt.Errorf("%w: %s", ErrExecutableNotFound, exe)
			}
			return exe, runnerArgs(exe), nil
		}
		path, err := b.lookPath(exe)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %s", ErrExecutableNotFound, exe)
		}
		return path, runnerArgs(path), nil
	}
	for _, name := range DefaultExecutables {
		path, err := b.lookPath(name)
		if err == nil {
			return path, runnerArgs(path), nil
		}
	}
	return "", nil, fmt.Errorf("%w: %s", ErrExecutableNotFound, strings.Join(DefaultExecutables, ", "))
}

// runnerArgs returns the arguments needed before the engine arguments.  The
// generic mtxrun driver must be told to run the context script.
func runnerArgs(exe string) []string {
	base := strings.TrimSuffix(filepath.Base(exe), filepath.Ext(exe))
	if base == "mtxrun" {
		return []string{"--script", "context"}
	}
	return nil
}

// Compile implements Backend.
func (b *LocalBackend) Compile(ctx context.Context, req Request) *Result {
	job := JobName(req.URI)
	log := b.log.WithFields(logrus.Fields{"uri": req.URI, "job": job})

	exe, prefix, err := b.Resolve()
	if err != nil {
		log.WithError(err).Warn("Unable to locate typesetting engine")
		return Failed("", err)
	}
	log.WithField("executable", exe).Debug("Resolved typesetting engine")

	dir, err := os.MkdirTemp("", "ctxengine-")
	if err != nil {
		log.WithError(err).Warn("Unable to create working directory")
		return Failed("", fmt.Errorf("create working directory: %w", err))
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.WithError(err).Warn("Unable to remove working directory")
		}
	}()

	input := job + ".tex"
	if err := os.WriteFile(filepath.Join(dir, input), []byte(req.Text), 0o600); err != nil {
		return Failed("", fmt.Errorf("write document: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, b.cfg.timeout())
	defer cancel()

	args := append(append(append([]string(nil), prefix...), b.cfg.args()...), input)
	cmd := exec.CommandContext(ctx, exe, args...) //nolint:gosec // configured engine
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.WaitDelay = waitDelay
	killProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		log.WithError(err).Warn("Unable to launch typesetting engine")
		return Failed("", launchError(exe, err))
	}
	waitErr := cmd.Wait()

	res := &Result{Log: out.String()}
	res.Errors, res.Warnings = NewScraper(input, req.Text).Scrape(res.Log)

	switch ctxErr := ctx.Err(); {
	case errors.Is(ctxErr, context.DeadlineExceeded):
		log.WithField("timeout", b.cfg.timeout()).Warn("Typesetting engine timed out")
		res.Errors = append(res.Errors, synthetic(fmt.Errorf("%w after %v", ErrTimeout, b.cfg.timeout())))
		return res
	case errors.Is(ctxErr, context.Canceled):
		log.Info("Compilation canceled")
		res.Errors = append(res.Errors, synthetic(ErrCanceled))
		return res
	}

	signaled := false
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		// An exit code of -1 means the process was terminated by a signal.
		signaled = exitErr.ExitCode() == -1
	} else if waitErr != nil {
		log.WithError(waitErr).Warn("Typesetting engine did not complete")
		res.Errors = append(res.Errors, synthetic(fmt.Errorf("engine did not complete: %w", waitErr)))
		return res
	}
	if signaled {
		log.WithField("state", exitErr.String()).Warn("Typesetting engine crashed")
		res.Errors = append(res.Errors, synthetic(fmt.Errorf("engine terminated: %s", exitErr)))
		return res
	}

	artifact := filepath.Join(dir, job+".pdf")
	if _, err := os.Stat(artifact); err == nil {
		path, err := b.keepArtifact(artifact, job)
		if err != nil {
			log.WithError(err).Warn("Unable to store artifact")
			res.Errors = append(res.Errors, synthetic(fmt.Errorf("store artifact: %w", err)))
		} else {
			res.PDFPath = path
		}
	}
	res.Success = res.PDFPath != "" && len(res.Errors) == 0
	log.WithFields(logrus.Fields{
		"success":  res.Success,
		"errors":   len(res.Errors),
		"warnings": len(res.Warnings),
	}).Info("Compilation finished")
	return res
}

// keepArtifact moves an artifact out of the working directory, which is
// removed when compilation ends.
func (b *LocalBackend) keepArtifact(artifact, job string) (string, error) {
	dir := b.cfg.outputDir()
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", err
	}
	dst := filepath.Join(dir, job+".pdf")
	if err := moveFile(artifact, dst); err != nil {
		return "", err
	}
	return dst, nil
}

func launchError(exe string, err error) error {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrExecutableNotFound, exe)
	}
	return fmt.Errorf("unable to launch %s: %w", exe, err)
}
