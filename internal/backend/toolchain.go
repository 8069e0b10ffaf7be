package backend

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"go.ember.dev/internal/config"
	"go.ember.dev/pkg"
)

// Toolchain drives the external LLVM static compiler and the system linker.
type Toolchain struct {
	LLC      string
	Linker   string
	Target   string
	Optimize bool
}

func NewToolchain(c *config.Config) *Toolchain {
	return &Toolchain{
		LLC:      c.LLC,
		Linker:   c.Linker,
		Target:   c.Target,
		Optimize: c.Optimize,
	}
}

func (t *Toolchain) llcArgs(fileType string) []string {
	args := []string{"-filetype=" + fileType, "-o", "-"}
	if t.Optimize {
		args = append(args, "-O2")
	} else {
		args = append(args, "-O0")
	}

	if t.Target != "" {
		args = append(args, "-mtriple="+t.Target)
	}

	return args
}

// EmitAssembly compiles textual IR to assembly for the configured target.
func (t *Toolchain) EmitAssembly(ctx context.Context, ir []byte) ([]byte, error) {
	return t.run(ctx, ir, t.LLC, t.llcArgs("asm")...)
}

// EmitObject compiles textual IR to an object file image.
func (t *Toolchain) EmitObject(ctx context.Context, ir []byte) ([]byte, error) {
	return t.run(ctx, ir, t.LLC, t.llcArgs("obj")...)
}

func (t *Toolchain) Link(ctx context.Context, objectPath, outputPath string) error {
	_, err := t.run(ctx, nil, t.Linker, objectPath, "-o", outputPath)
	return err
}

func (t *Toolchain) run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, errors.Wrapf(err, "%s: %s", name, msg)
		}
		return nil, errors.Wrap(err, name)
	}

	return stdout.Bytes(), nil
}

// Build turns a Module into the requested kind of output at path.
func (t *Toolchain) Build(ctx context.Context, m *ember.Module, emit config.Emit, path string) error {
	ir, err := EmitTextIR(m)
	if err != nil {
		return err
	}

	var out []byte
	switch emit {
	case config.EmitIR:
		out = ir
	case config.EmitAsm:
		out, err = t.EmitAssembly(ctx, ir)
	case config.EmitObj:
		out, err = t.EmitObject(ctx, ir)
	case config.EmitExec:
		return t.buildExecutable(ctx, ir, path)
	default:
		return errors.Errorf("unknown output kind %q", emit)
	}

	if err != nil {
		return err
	}

	return errors.Wrap(os.WriteFile(path, out, 0o644), "writing output")
}

func (t *Toolchain) buildExecutable(ctx context.Context, ir []byte, path string) error {
	obj, err := t.EmitObject(ctx, ir)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp("", "ember-*.o")
	if err != nil {
		return errors.Wrap(err, "creating object file")
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(obj); err != nil {
		f.Close()
		return errors.Wrap(err, "writing object file")
	}

	if err := f.Close(); err != nil {
		return errors.Wrap(err, "writing object file")
	}

	return t.Link(ctx, f.Name(), path)
}
