package ember

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ember.dev/internal/test"
)

// generate compiles a syntactically valid program and returns the module
// even when generation fails, so that tests can inspect what was emitted.
func generate(t testing.TB, data string, policy Policy) (*Module, *Diagnostics, error) {
	diags := NewDiagnostics("testing", nil, policy)
	ast := Parse(Lex(data, diags), diags)
	require.False(t, diags.HasErrors(), "%v", diags.Err())

	mod := NewModule("testing")
	definePrelude(mod)

	_, err := NewGenerator(mod, diags).Generate(ast)
	return mod, diags, err
}

func body(fn *Function) []string {
	out := make([]string, len(fn.Body))
	for i, inst := range fn.Body {
		out[i] = inst.String()
	}

	return out
}

func messages(diags *Diagnostics, sev Severity) []string {
	var out []string
	for _, d := range diags.All() {
		if d.Severity == sev {
			out = append(out, d.Message)
		}
	}

	return out
}

func TestGeneratorPromotion(t *testing.T) {
	mod, _, err := generate(t, "fn f(a: int, b: float) -> float { return a + b; }", PolicyCollect)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"%s1 = alloca int",
		"store int %a, int* %s1",
		"%s2 = alloca float",
		"store float %b, float* %s2",
		"%t1 = load int, int* %s1",
		"%t2 = load float, float* %s2",
		"%t3 = sitofp int %t1 to float",
		"%t4 = add float %t3, float %t2",
		"ret float %t4",
	}, body(mod.Function("f")))
}

func TestGeneratorNoPromotionForEqualTypes(t *testing.T) {
	mod, _, err := generate(t, "fn g(a: char, b: char) -> char { return a + b; }", PolicyCollect)
	require.NoError(t, err)

	for _, inst := range mod.Function("g").Body {
		_, isConvert := inst.(*Convert)
		assert.False(t, isConvert, inst.String())
	}
}

func TestGeneratorPointerArithmetic(t *testing.T) {
	cases := []struct {
		data   string
		expect []string
	}{
		{
			"fn h(p: long*, i: int) -> long* { return p + i; }",
			[]string{
				"%t1 = load long*, long** %s1",
				"%t2 = load int, int* %s2",
				"%t3 = sext int %t2 to long",
				"%t4 = offset long* %t1, long %t3 x 8",
				"ret long* %t4",
			},
		},
		{
			"fn h(p: short*, i: long) -> short* { return i + p; }",
			[]string{
				"%t1 = load long, long* %s2",
				"%t2 = load short*, short** %s1",
				"%t3 = offset short* %t2, long %t1 x 2",
				"ret short* %t3",
			},
		},
		{
			"fn h(p: int*, i: long) -> int* { return p - i; }",
			[]string{
				"%t1 = load int*, int** %s1",
				"%t2 = load long, long* %s2",
				"%t3 = sub long 0, long %t2",
				"%t4 = offset int* %t1, long %t3 x 4",
				"ret int* %t4",
			},
		},
		{
			"fn h(p: double*, i: long) -> double { return *(p + 1); }",
			[]string{
				"%t1 = load double*, double** %s1",
				"%t2 = offset double* %t1, long 1 x 8",
				"%t3 = load double, double* %t2",
				"ret double %t3",
			},
		},
	}

	for _, c := range cases {
		mod, _, err := generate(t, c.data, PolicyCollect)
		require.NoError(t, err, c.data)

		// Skip the parameter slots
		assert.Equal(t, c.expect, body(mod.Function("h"))[4:], c.data)
	}
}

func TestGeneratorIllegalOperationsEmitNothing(t *testing.T) {
	mod, diags, err := generate(t, "fn k(p: int*, q: int*) { p + q; let x = 1; }", PolicyCollect)
	require.Error(t, err)

	assert.Equal(t, []string{"undefined operation: 'int*' + 'int*'"}, messages(diags, SeverityError))
	assert.Equal(t, []string{
		"%s1 = alloca int*",
		"store int* %p, int** %s1",
		"%s2 = alloca int*",
		"store int* %q, int** %s2",
		"%s3 = alloca int",
		"store int 1, int* %s3",
		"ret void",
	}, body(mod.Function("k")))
}

func TestGeneratorFailedStatementDropsStrings(t *testing.T) {
	mod, _, err := generate(t, `
		let s: int = "top";
		fn f(p: int*, q: int*) { "dead" + (p + q); let ok = "kept"; }
	`, PolicyCollect)
	require.Error(t, err)

	var names []string
	for _, g := range mod.Globals {
		names = append(names, g.Name)
	}
	assert.Equal(t, []string{".str.3"}, names)
	assert.Equal(t, &StringConst{Value: "kept"}, mod.Global(".str.3").Init)
}

func TestGeneratorFloatToBool(t *testing.T) {
	mod, _, err := generate(t, `
		bool folded = 0.5;
		bool zero = 0.0;
		fn f() -> bool { double d = 0.5; bool b = d; return b; }
	`, PolicyCollect)
	require.NoError(t, err)

	// Folding and the runtime conversion both treat any nonzero value as true
	assert.Equal(t, &IntConst{Typ: Bool, Value: 1}, mod.Global("folded").Init)
	assert.Equal(t, &IntConst{Typ: Bool, Value: 0}, mod.Global("zero").Init)
	assert.Equal(t, []string{
		"%s1 = alloca double",
		"store double 0.5, double* %s1",
		"%t1 = load double, double* %s1",
		"%t2 = fptobool double %t1 to bool",
		"%s2 = alloca bool",
		"store bool %t2, bool* %s2",
		"%t3 = load bool, bool* %s2",
		"ret bool %t3",
	}, body(mod.Function("f")))
}

func TestGeneratorErrors(t *testing.T) {
	cases := []struct {
		data   string
		expect string
	}{
		{"fn a() { let x = 1; }\nfn b() -> int { return x; }", "undefined identifier: x"},
		{"fn a() { let x = 1; let x = 2; }", "redefinition of variable x"},
		{"fn a(x: int, x: int) {}", "redefinition of parameter x"},
		{"let g = 1; let g = 2;", "redefinition of variable g"},
		{"fn f() {}\nfn f() {}", "redefinition of function f"},
		{"fn f(a: int);\nfn f(a: long) {}", "conflicting declaration of f: fn(long) -> void, previously fn(int) -> void"},
		{"let f = 1; fn f();", "redefinition of symbol f"},
		{"fn f(); let f = 1;", "redefinition of symbol f"},
		{"fn f(p: int*, q: int*) { p - q; }", "pointer difference is not supported"},
		{"fn f(p: int*) { 1 - p; }", "undefined operation: 'int' - 'int*'"},
		{"fn f(p: int*) { p * 2; }", "undefined operation: 'int*' * 'int'"},
		{"fn f(p: int*) { p + 1.5; }", "undefined operation: 'int*' + 'double'"},
		{"fn f(p: void*) { p + 1; }", "arithmetic on a void pointer"},
		{"fn f(x: int) { *x; }", "cannot dereference non-pointer type int"},
		{"fn f(p: void*) { *p; }", "cannot dereference a void pointer"},
		{"fn f() { 1 = 2; }", "expression is not addressable"},
		{"fn f(p: int*) { let x: double = p; }", "cannot convert 'int*' to 'double'"},
		{"fn f() { nope(); }", "undefined function: nope"},
		{"fn g(x: int);\nfn f() { g(1, 2); }", "g expects 1 arguments, got 2"},
		{"fn g();\nfn f() -> int { return g(); }", "void value used in an expression"},
		{"fn f() -> int { return; }", "missing return value in function f returning int"},
		{"fn f() { return 1; }", "void function f cannot return a value"},
		{"fn f() { let x; }", "cannot infer the type of x without an initializer"},
		{"fn f() { void x; }", "variable x declared void"},
		{"fn f(v: void) {}", "parameter v declared void"},
		{"let a = 1; let b = a;", "initializer is not a constant expression"},
		{"let a = putchar(1);", "initializer is not a constant expression"},
		{"let a = 1 / 0;", "integer division by zero"},
		{"let a = 9223372036854775808;", "integer literal out of range for long"},
		{"return 1;", "return outside of a function"},
		{"1 + 2;", "expression statement outside of a function"},
		{"fn f() { fn g(); }", "functions can only be declared at the top level"},
	}

	for _, c := range cases {
		_, diags, err := generate(t, c.data, PolicyCollect)

		assert.Error(t, err, c.data)
		assert.Equal(t, []string{c.expect}, messages(diags, SeverityError), c.data)
	}
}

func TestGeneratorDefaultTerminator(t *testing.T) {
	cases := []struct {
		data   string
		expect string
	}{
		{"fn f() -> int { let x = 1; }", "ret int 0"},
		{"fn f() -> bool {}", "ret bool 0"},
		{"fn f() -> double {}", "ret double 0"},
		{"fn f() -> char* {}", "ret char* null"},
		{"fn f() {}", "ret void"},
	}

	for _, c := range cases {
		mod, _, err := generate(t, c.data, PolicyCollect)
		require.NoError(t, err, c.data)

		fn := mod.Function("f")
		assert.True(t, fn.Terminated, c.data)
		assert.Equal(t, c.expect, fn.Body[len(fn.Body)-1].String(), c.data)
	}
}

func TestGeneratorUnreachableCode(t *testing.T) {
	mod, diags, err := generate(t, "fn f() -> int { return 1; let x = 2; }", PolicyCollect)
	require.NoError(t, err)

	assert.Equal(t, []string{"unreachable code after return"}, messages(diags, SeverityWarning))
	assert.Equal(t, []string{"ret int 1"}, body(mod.Function("f")))
}

func TestGeneratorGlobals(t *testing.T) {
	mod, _, err := generate(t, `
		let g = 5;
		let s = "hi";
		long l = -3 * 2;
		double d = 1 + 0.5;
		float f = 2.5;
		int* p = &g;
		void* vp = &g;
		char c = 'a' + 1;
		long m = -9223372036854775808;
		let big = 2147483648;
		int z;
	`, PolicyCollect)
	require.NoError(t, err)

	assert.Equal(t, &IntConst{Typ: Int, Value: 5}, mod.Global("g").Init)
	assert.Equal(t, &IntConst{Typ: Long, Value: -6}, mod.Global("l").Init)
	assert.Equal(t, &FloatConst{Typ: Double, Value: 1.5}, mod.Global("d").Init)
	assert.Equal(t, &FloatConst{Typ: Float, Value: 2.5}, mod.Global("f").Init)
	assert.Equal(t, &IntConst{Typ: Char, Value: 'b'}, mod.Global("c").Init)
	assert.Equal(t, &IntConst{Typ: Long, Value: math.MinInt64}, mod.Global("m").Init)
	assert.Equal(t, &IntConst{Typ: Long, Value: 2147483648}, mod.Global("big").Init)
	assert.Nil(t, mod.Global("z").Init)

	str := mod.Global(".str.1")
	require.NotNil(t, str)
	assert.True(t, str.Constant)
	assert.Equal(t, "char[3]", str.Type.String())
	assert.Equal(t, &GlobalAddr{Global: str, Decay: true}, mod.Global("s").Init)
	assert.Equal(t, "char*", mod.Global("s").Type.String())

	assert.Equal(t, &GlobalAddr{Global: mod.Global("g")}, mod.Global("p").Init)
	assert.Equal(t, "bitcast (int* @g) to void*", mod.Global("vp").Init.String())
}

func TestGeneratorLocals(t *testing.T) {
	mod, _, err := generate(t, `
		let counter: long = 0;
		fn f() {
			let a = 0;
			let b = 0;
			a = b = 3;
			counter = a;
		}
	`, PolicyCollect)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"%s1 = alloca int",
		"store int 0, int* %s1",
		"%s2 = alloca int",
		"store int 0, int* %s2",
		"store int 3, int* %s2",
		"store int 3, int* %s1",
		"%t1 = load int, int* %s1",
		"%t2 = sext int %t1 to long",
		"store long %t2, long* @counter",
		"ret void",
	}, body(mod.Function("f")))
}

func TestGeneratorCalls(t *testing.T) {
	mod, _, err := generate(t, `
		fn f(x: long) -> long;
		fn g() -> long { return f(1); }
		fn h() {
			let p: int* = malloc(8);
			*p = 3;
			free(p);
			putchar('a');
		}
		fn f(y: long) -> long { return y; }
	`, PolicyCollect)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"%t1 = long call @f(long 1)",
		"ret long %t1",
	}, body(mod.Function("g")))

	assert.Equal(t, []string{
		"%t1 = void* call @malloc(long 8)",
		"%t2 = bitcast void* %t1 to int*",
		"%s1 = alloca int*",
		"store int* %t2, int** %s1",
		"%t3 = load int*, int** %s1",
		"store int 3, int* %t3",
		"%t4 = load int*, int** %s1",
		"%t5 = bitcast int* %t4 to void*",
		"call @free(void* %t5)",
		"%t6 = int call @putchar(int 97)",
		"ret void",
	}, body(mod.Function("h")))

	f := mod.Function("f")
	assert.True(t, f.Defined)
	assert.Equal(t, "y", f.Params[0].Name)
}

func TestGeneratorAbortPolicy(t *testing.T) {
	_, diags, err := generate(t, "fn a() { x; }\nfn b() { y; }", PolicyAbort)

	assert.Error(t, err)
	assert.Equal(t, []string{"undefined identifier: x"}, messages(diags, SeverityError))
}

func TestGeneratorCollectPolicy(t *testing.T) {
	_, diags, err := generate(t, "fn a() { x; y; }\nfn b() { z; }", PolicyCollect)

	assert.Error(t, err)
	assert.Equal(t, []string{
		"undefined identifier: x",
		"undefined identifier: y",
		"undefined identifier: z",
	}, messages(diags, SeverityError))
}

func TestGeneratorPointee(t *testing.T) {
	diags := NewDiagnostics("testing", nil, PolicyCollect)
	ast := Parse(Lex("fn f() { let x = 1; let p = &x; let q: int* = p; *q = 2; }", diags), diags)

	g := NewGenerator(NewModule("testing"), diags)
	_, err := g.Generate(ast)
	require.NoError(t, err)

	// The function scope is closed again, so following the recorded
	// back-references must fail.
	x := SymbolKey{Name: "x", Generation: 1}
	_, err = g.scopes.Resolve(x, Location{})
	assert.EqualError(t, err, "0:0: 'x' is referenced after its scope has ended")
}

var benchModule *Module

func benchmarkGenerator(functions int, b *testing.B) {
	for n := 0; n < b.N; n++ {
		b.StopTimer()
		diags := NewDiagnostics("bench", nil, PolicyCollect)
		ast := Parse(Lex(test.GetRandomProgram(functions), diags), diags)
		mod := NewModule("bench")
		b.StartTimer()

		var err error
		benchModule, err = NewGenerator(mod, diags).Generate(ast)
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkGenerator10(b *testing.B) {
	benchmarkGenerator(10, b)
}

func BenchmarkGenerator100(b *testing.B) {
	benchmarkGenerator(100, b)
}

func BenchmarkGenerator1000(b *testing.B) {
	benchmarkGenerator(1000, b)
}
