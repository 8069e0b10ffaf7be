package ember

import (
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	diags []Diagnostic
}

func (l *recordingLogger) Log(d Diagnostic) {
	l.diags = append(l.diags, d)
}

const helloProgram = `
fn main() -> int {
    let msg = "hi\n";
    let i = 0;
    putchar(*msg);
    putchar(*(msg + 1));
    return i;
}
`

func TestCompile(t *testing.T) {
	logger := &recordingLogger{}
	mod, err := NewCompiler(logger, PolicyCollect).Compile("hello.em", helloProgram)
	require.NoError(t, err)

	var info []string
	for _, d := range logger.diags {
		if d.Severity == SeverityInfo {
			info = append(info, d.String())
		}
	}
	assert.Equal(t, []string{"hello.em: info: generated 7 functions and 1 globals"}, info)

	assert.Equal(t, "hello.em", mod.Name)

	main := mod.Function("main")
	require.NotNil(t, main)
	assert.True(t, main.Defined)
	assert.True(t, strings.HasPrefix(main.Body[len(main.Body)-1].String(), "ret int %t"))

	// Prelude functions stay declarations
	assert.False(t, mod.Function("putchar").Defined)
	assert.NotNil(t, mod.Global(".str.1"))
}

func TestCompileErrors(t *testing.T) {
	logger := &recordingLogger{}
	_, err := NewCompiler(logger, PolicyCollect).Compile("bad.em", "fn main() { x; y = 1.5; }")

	var list ErrorList
	require.True(t, errors.As(err, &list))
	require.Len(t, list, 2)
	assert.Equal(t, "bad.em:1:13: error: undefined identifier: x", list[0].String())
	assert.Equal(t, "bad.em:1:13: error: undefined identifier: x (and 1 more errors)", err.Error())

	// Every diagnostic reaches the logger, not only errors
	assert.GreaterOrEqual(t, len(logger.diags), 2)
}

func TestCompileStopsAfterSyntaxErrors(t *testing.T) {
	_, err := NewCompiler(nil, PolicyCollect).Compile("bad.em", "fn main() { x = ; undefined; }")

	var list ErrorList
	require.True(t, errors.As(err, &list))
	require.Len(t, list, 1)
	assert.Contains(t, list[0].Message, "expected expression")
}

func TestCompileFromReader(t *testing.T) {
	c := NewCompiler(nil, PolicyCollect)

	mod, err := c.CompileFromReader("hello.em", strings.NewReader(helloProgram))
	require.NoError(t, err)
	assert.NotNil(t, mod.Function("main"))

	readErr := errors.New("disk on fire")
	_, err = c.CompileFromReader("hello.em", iotest.ErrReader(readErr))
	assert.True(t, errors.Is(err, readErr))
	assert.EqualError(t, err, "reading hello.em: disk on fire")
}

func TestCompilerParse(t *testing.T) {
	c := NewCompiler(nil, PolicyCollect)

	ast, err := c.Parse("p.em", "let x = 1; fn f() {}")
	require.NoError(t, err)
	assert.Equal(t, "p.em", ast.Filename)
	assert.Len(t, ast.Statements, 2)

	_, err = c.Parse("p.em", "let = 1;")
	assert.Error(t, err)
}

func TestDiagnostics(t *testing.T) {
	logger := &recordingLogger{}
	diags := NewDiagnostics("unit.em", logger, PolicyCollect)

	diags.Debugf("starting")
	diags.Infof("%d units", 2)
	diags.Warnf(Location{Line: 2, Column: 1}, "careful")
	assert.False(t, diags.HasErrors())
	assert.NoError(t, diags.Err())

	diags.ReportError(&UndefinedError{Loc: Location{Line: 3, Column: 4}, What: "identifier", Name: "x"})
	assert.True(t, diags.HasErrors())
	assert.False(t, diags.Halted())

	diags.ReportError(errors.New("plain"))
	diags.ReportError(internalErrorf(Location{Line: 5, Column: 1}, "oops"))
	assert.True(t, diags.Halted())

	assert.Equal(t, []string{
		"unit.em: debug: starting",
		"unit.em: info: 2 units",
		"unit.em:2:1: warning: careful",
		"unit.em:3:4: error: undefined identifier: x",
		"unit.em: error: plain",
		"unit.em:5:1: fatal: internal compiler error: oops",
	}, diagStrings(logger.diags))

	var list ErrorList
	require.True(t, errors.As(diags.Err(), &list))
	assert.Len(t, list, 3)
}

func TestDiagnosticsAbortPolicy(t *testing.T) {
	diags := NewDiagnostics("unit.em", nil, PolicyAbort)

	diags.Warnf(Location{}, "careful")
	assert.False(t, diags.Halted())

	diags.Errorf(Location{}, "bad")
	assert.True(t, diags.Halted())
}

func TestParsePolicy(t *testing.T) {
	cases := []struct {
		data   string
		expect Policy
		fail   bool
	}{
		{"", PolicyCollect, false},
		{"collect", PolicyCollect, false},
		{"abort", PolicyAbort, false},
		{"panic", PolicyCollect, true},
	}

	for _, c := range cases {
		policy, err := ParsePolicy(c.data)

		assert.Equal(t, c.expect, policy, c.data)
		assert.Equal(t, c.fail, err != nil, c.data)
	}
}

func diagStrings(diags []Diagnostic) []string {
	out := make([]string, len(diags))
	for i, d := range diags {
		out[i] = d.String()
	}

	return out
}
