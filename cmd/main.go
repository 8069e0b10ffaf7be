package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/ComedicChimera/olive"
	"github.com/kr/pretty"
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"go.ember.dev/internal/backend"
	"go.ember.dev/internal/config"
	"go.ember.dev/internal/report"
	"go.ember.dev/pkg"
)

const Version = "0.1.0"

func main() {
	os.Exit(execute())
}

func execute() int {
	cli := olive.NewCLI("ember", "ember compiles ember source files", true)
	cli.AddSelectorArg("loglevel", "ll", "the compiler log level", false,
		[]string{"silent", "error", "warning", "verbose", "debug"})

	buildCmd := cli.AddSubcommand("build", "compile source files", true)
	buildCmd.AddPrimaryArg("source", "the source file to compile", false)
	buildCmd.AddStringArg("output", "o", "the output path", false)
	buildCmd.AddSelectorArg("emit", "e", "the kind of output to produce", false, []string{"ir", "asm", "obj", "exec"})
	buildCmd.AddSelectorArg("policy", "p", "keep going after an error or stop", false, []string{"collect", "abort"})
	buildCmd.AddStringArg("config", "c", "the configuration file to use", false)
	buildCmd.AddStringArg("target", "t", "the target triple", false)
	buildCmd.AddFlag("optimize", "O", "enable optimizations")
	buildCmd.AddFlag("no-color", "nc", "disable colored output")
	buildCmd.AddFlag("dump-ast", "da", "print the syntax tree instead of compiling")

	cli.AddSubcommand("version", "print the ember version", false)

	result, err := olive.ParseArgs(cli, os.Args)
	if err != nil {
		report.NewReporter(os.Stderr, report.LogLevelError, true).Error("CLI Usage Error", err)
		return 2
	}

	subcmdName, subResult, _ := result.Subcommand()
	switch subcmdName {
	case "build":
		loglevel, _ := result.Arguments["loglevel"].(string)
		return execBuildCommand(subResult, loglevel)
	case "version":
		fmt.Println("ember", Version)
	}

	return 0
}

// buildOptions are the command line values of the build subcommand. Empty
// values were not given and leave the configuration untouched.
type buildOptions struct {
	config   string
	source   string
	output   string
	emit     string
	policy   string
	target   string
	loglevel string
	optimize bool
	noColor  bool
}

func optionsFrom(result *olive.ArgParseResult, loglevel string) buildOptions {
	opts := buildOptions{
		loglevel: loglevel,
		optimize: result.HasFlag("optimize"),
		noColor:  result.HasFlag("no-color"),
	}

	opts.source, _ = result.PrimaryArg()
	opts.config, _ = result.Arguments["config"].(string)
	opts.output, _ = result.Arguments["output"].(string)
	opts.emit, _ = result.Arguments["emit"].(string)
	opts.policy, _ = result.Arguments["policy"].(string)
	opts.target, _ = result.Arguments["target"].(string)

	return opts
}

// buildConfig layers the command line over the configuration file, which is
// itself layered over the defaults.
func buildConfig(opts buildOptions) (*config.Config, error) {
	cfg := config.Default()

	path, explicit := opts.config, opts.config != ""
	if !explicit {
		path = config.DefaultFileName
	}

	if _, err := os.Stat(path); err == nil || explicit {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	if opts.source != "" {
		cfg.Sources = []string{opts.source}
	}
	if opts.output != "" {
		cfg.Output = opts.output
	}
	if opts.emit != "" {
		cfg.Emit = config.Emit(opts.emit)
	}
	if opts.policy != "" {
		cfg.Policy = opts.policy
	}
	if opts.target != "" {
		cfg.Target = opts.target
	}
	if opts.loglevel != "" {
		cfg.LogLevel = opts.loglevel
	}
	if opts.optimize {
		cfg.Optimize = true
	}
	if opts.noColor {
		cfg.Color = false
	}

	if len(cfg.Sources) == 0 {
		return nil, pkgerrors.New("no source files to build")
	}

	return cfg, cfg.Validate()
}

func execBuildCommand(result *olive.ArgParseResult, loglevel string) int {
	cfg, err := buildConfig(optionsFrom(result, loglevel))
	if err != nil {
		report.NewReporter(os.Stderr, report.LogLevelError, true).Error("Config Error", err)
		return 2
	}

	level, _ := report.ParseLogLevel(cfg.LogLevel)
	policy, _ := ember.ParsePolicy(cfg.Policy)

	reporter := report.NewReporter(os.Stdout, level, cfg.Color)
	compiler := ember.NewCompiler(reporter, policy)
	toolchain := backend.NewToolchain(cfg)
	dumpAST := result.HasFlag("dump-ast")

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	if dumpAST {
		g.SetLimit(1)
	}

	// Every unit gets its own diagnostics, so one failing unit does not stop
	// the others.
	for _, source := range cfg.Sources {
		source := source
		g.Go(func() error {
			err := buildUnit(context.Background(), compiler, toolchain, reporter, cfg, source, dumpAST)

			var compileErrs ember.ErrorList
			if err != nil && !errors.As(err, &compileErrs) {
				reporter.Error("Build Error", err)
			}
			return err
		})
	}

	err = g.Wait()
	reporter.Summary(err == nil)

	if err != nil {
		return 1
	}

	return 0
}

func buildUnit(ctx context.Context, c *ember.Compiler, t *backend.Toolchain, r *report.Reporter,
	cfg *config.Config, source string, dumpAST bool) error {
	data, err := os.ReadFile(source)
	if err != nil {
		return pkgerrors.Wrapf(err, "reading %s", source)
	}

	r.AddSource(source, string(data))

	if dumpAST {
		ast, err := c.Parse(source, string(data))
		fmt.Printf("%# v\n", pretty.Formatter(ast))
		return err
	}

	mod, err := c.Compile(source, string(data))
	if err != nil {
		return err
	}

	return pkgerrors.Wrapf(t.Build(ctx, mod, cfg.Emit, cfg.OutputPath(source)), "building %s", source)
}
