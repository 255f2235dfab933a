package spleeter

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"stemsplit/internal/engine"

	"github.com/google/uuid"
)

type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

type Option func(*Engine)

func WithRunner(runner Runner) Option {
	return func(e *Engine) {
		if runner != nil {
			e.runner = runner
		}
	}
}

type Engine struct {
	bin     string
	param   string
	workDir string
	runner  Runner
}

func New(bin, param, workDir string, opts ...Option) *Engine {
	workDir = strings.TrimSpace(workDir)
	if workDir == "" {
		workDir = os.TempDir()
	}

	e := &Engine{
		bin:     strings.TrimSpace(bin),
		param:   strings.TrimSpace(param),
		workDir: workDir,
		runner:  execRunner{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *Engine) Name() string { return "spleeter" }

func (e *Engine) Check(_ context.Context) error {
	if _, err := exec.LookPath(e.bin); err != nil {
		return fmt.Errorf("spleeter binary not available: %w", err)
	}
	return nil
}

func (e *Engine) Separate(ctx context.Context, req engine.Request) (engine.Stems, error) {
	jobDir := filepath.Join(e.workDir, "stemsplit-"+uuid.NewString())
	if err := os.MkdirAll(jobDir, 0o700); err != nil {
		return engine.Stems{}, fmt.Errorf("create job dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(jobDir) }()

	inputPath := filepath.Join(jobDir, "input"+inputExt(req.Ext))
	if err := os.WriteFile(inputPath, req.Audio, 0o600); err != nil {
		return engine.Stems{}, fmt.Errorf("write input file: %w", err)
	}

	stemsDir := filepath.Join(jobDir, "stems")
	if err := os.Mkdir(stemsDir, 0o700); err != nil {
		return engine.Stems{}, fmt.Errorf("create stems dir: %w", err)
	}

	// Splitting is lengthy; bail out before starting if the caller is gone.
	if err := ctx.Err(); err != nil {
		return engine.Stems{}, fmt.Errorf("spleeter aborted: %w", err)
	}

	args := []string{"separate", "-p", e.param, "-o", stemsDir, "-c", "mp3", "-b", "320k", "-f", "{instrument}.mp3", inputPath}
	output, err := e.runner.Run(ctx, jobDir, e.bin, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return engine.Stems{}, fmt.Errorf("spleeter aborted: %w", ctxErr)
		}
		return engine.Stems{}, &engine.Error{
			Engine: e.Name(),
			Detail: truncateOutput(string(output)),
			Err:    err,
		}
	}

	stems, err := collectStems(stemsDir)
	if err != nil {
		return engine.Stems{}, &engine.Error{Engine: e.Name(), Detail: err.Error(), Err: err}
	}
	return stems, nil
}

func collectStems(dir string) (engine.Stems, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return engine.Stems{}, fmt.Errorf("read stems dir: %w", err)
	}

	paths := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		paths[stem] = filepath.Join(dir, name)
	}

	vocals, err := readStem(paths, "vocals")
	if err != nil {
		return engine.Stems{}, err
	}
	accompaniment, err := readStem(paths, "accompaniment")
	if err != nil {
		return engine.Stems{}, err
	}
	return engine.Stems{Vocals: vocals, Accompaniment: accompaniment}, nil
}

func readStem(paths map[string]string, stem string) ([]byte, error) {
	path, ok := paths[stem]
	if !ok {
		return nil, fmt.Errorf("engine produced no %s stem", stem)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s stem: %w", stem, err)
	}
	return data, nil
}

func inputExt(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext == "" {
		return ".bin"
	}
	if !strings.HasPrefix(ext, ".") {
		return "." + ext
	}
	return ext
}

func truncateOutput(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= 4096 {
		return s
	}
	return s[:4096] + "..."
}
