package ember

import (
	"fmt"
	"io"
)

// Compiler runs the front end on one source text at a time. It holds no
// state between units, so independent units may be compiled by separate
// goroutines sharing one Compiler as long as the Logger is safe for that.
type Compiler struct {
	logger Logger
	policy Policy
}

func NewCompiler(logger Logger, policy Policy) *Compiler {
	return &Compiler{
		logger: logger,
		policy: policy,
	}
}

// Compile lexes, parses and generates a unit. The returned error is an
// ErrorList holding every error reported for the unit.
func (c *Compiler) Compile(path, source string) (*Module, error) {
	diags := NewDiagnostics(path, c.logger, c.policy)

	ast := c.parse(source, diags)
	if diags.HasErrors() {
		return nil, diags.Err()
	}

	mod := NewModule(path)
	definePrelude(mod)

	return NewGenerator(mod, diags).Generate(ast)
}

func (c *Compiler) CompileFromReader(path string, reader io.Reader) (*Module, error) {
	source, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return c.Compile(path, string(source))
}

// Parse only runs the lexer and the parser.
func (c *Compiler) Parse(path, source string) (*AST, error) {
	diags := NewDiagnostics(path, c.logger, c.policy)

	ast := c.parse(source, diags)
	return ast, diags.Err()
}

func (c *Compiler) parse(source string, diags *Diagnostics) *AST {
	return Parse(Lex(source, diags), diags)
}
