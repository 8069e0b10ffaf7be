package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ember.dev/internal/config"
	"go.ember.dev/pkg"
)

const program = `
let counter: long = 0;
let greeting = "hi\n";
void* anything = &counter;

fn scale(x: int, f: double) -> double {
    return x * f;
}

fn main() -> int {
    let p: char* = greeting;
    putchar(*(p + 1));
    counter = counter + 1;
    let half: float = scale(3, 0.5);
    bool b = half;
    return b;
}
`

func compile(t *testing.T, data string) *ember.Module {
	mod, err := ember.NewCompiler(nil, ember.PolicyCollect).Compile("test.em", data)
	require.NoError(t, err)

	return mod
}

func TestLower(t *testing.T) {
	mod, err := Lower(compile(t, program))
	require.NoError(t, err)

	assert.Equal(t, "test.em", mod.SourceFilename)

	var names []string
	for _, f := range mod.Funcs {
		names = append(names, f.Name())
	}
	assert.Equal(t, []string{"putchar", "getchar", "exit", "abort", "malloc", "free", "scale", "main"}, names)

	for _, f := range mod.Funcs {
		switch f.Name() {
		case "scale", "main":
			assert.Len(t, f.Blocks, 1, f.Name())
			assert.NotNil(t, f.Blocks[0].Term, f.Name())
		default:
			assert.Empty(t, f.Blocks, f.Name())
		}
	}

	var str, counter bool
	for _, g := range mod.Globals {
		switch g.Name() {
		case ".str.1":
			str = true
			assert.True(t, g.Immutable)
			assert.True(t, g.ContentType.Equal(types.NewArray(4, types.I8)))
		case "counter":
			counter = true
			assert.False(t, g.Immutable)
			assert.True(t, g.ContentType.Equal(types.I64))
		}
	}
	assert.True(t, str)
	assert.True(t, counter)
}

func TestEmitTextIR(t *testing.T) {
	out, err := EmitTextIR(compile(t, program))
	require.NoError(t, err)

	text := string(out)
	for _, want := range []string{
		"define double @scale(i32 %x, double %f)",
		"define i32 @main()",
		"declare i32 @putchar(",
		"@counter = global i64 0",
		"private constant [4 x i8]",
		"alloca i32",
		"sitofp i32",
		"fmul double",
		"getelementptr i8, i8*",
		"fptrunc double",
		"fcmp une float",
		"zext i1",
		"bitcast (i64* @counter to i8*)",
		"ret i32",
	} {
		assert.Contains(t, text, want)
	}
}

func TestLowerUnknownGlobal(t *testing.T) {
	mod := ember.NewModule("test.em")
	ghost := &ember.Global{Name: "ghost", Type: ember.Int}
	mod.NewGlobal("p", ember.PointerTo(ember.Int), &ember.GlobalAddr{Global: ghost})

	_, err := Lower(mod)
	assert.EqualError(t, err, "unknown global ghost")
}

func TestBuildIR(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.ll")
	tc := NewToolchain(config.Default())

	require.NoError(t, tc.Build(context.Background(), compile(t, program), config.EmitIR, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "define i32 @main()")

	err = tc.Build(context.Background(), compile(t, program), config.Emit("wasm"), path)
	assert.EqualError(t, err, `unknown output kind "wasm"`)
}

func TestToolchainArgs(t *testing.T) {
	tc := &Toolchain{LLC: "llc"}
	assert.Equal(t, []string{"-filetype=obj", "-o", "-", "-O0"}, tc.llcArgs("obj"))

	tc.Optimize = true
	tc.Target = "x86_64-pc-linux-gnu"
	assert.Equal(t, []string{"-filetype=asm", "-o", "-", "-O2", "-mtriple=x86_64-pc-linux-gnu"}, tc.llcArgs("asm"))
}

func TestToolchainMissingProgram(t *testing.T) {
	tc := &Toolchain{LLC: "ember-no-such-llc"}

	_, err := tc.EmitObject(context.Background(), []byte("; empty"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ember-no-such-llc")
}
