package test

import (
	"fmt"
	"math/rand"
	"strings"
)

const validTokens = "fn;main;let;return;int;char*;(;);{;};->;<<=;=;+;-;*;/;&;:;,;\"this is a string\";\"this is a longer string with escapes\\n\\t and text: Lorem ipsum dolor sit amet, consectetur adipiscing elit, sed do eiusmod tempor incididunt ut labore et dolore magna aliqua.\";\"\";'a';'\\n';123;1'000'000;0x1F;0b1010;0o17;3.14;6.02e23;0x1p4;true;false;//comment\n;/* block */;\n"

func GetRandomTokens(size int) string {
	return GetRandomTokensWithSep(size, " ")
}

func GetRandomTokensWithSep(size int, sep string) string {
	valid := strings.Split(validTokens, ";")

	var toks []string
	for len(toks) < size {
		toks = append(toks, valid[rand.Intn(len(valid))])
	}

	return strings.Join(toks, sep)
}

var operators = []string{"+", "-", "*", "/"}

// GetRandomProgram returns a well formed program with the given number of
// functions, each calling the previous one.
func GetRandomProgram(functions int) string {
	var sb strings.Builder
	sb.WriteString("let counter: long = 1;\n")

	for i := 0; i < functions; i++ {
		fmt.Fprintf(&sb, "fn f%d(a: int, b: double) -> double {\n", i)
		sb.WriteString("    let p: int* = &a;\n")
		fmt.Fprintf(&sb, "    int x = a %s %d;\n", operators[rand.Intn(len(operators))], rand.Intn(100)+1)
		fmt.Fprintf(&sb, "    *p = x %s 2;\n", operators[rand.Intn(len(operators))])
		fmt.Fprintf(&sb, "    counter = counter + %d;\n", rand.Intn(10))

		if i > 0 {
			fmt.Fprintf(&sb, "    b = f%d(x, b * %d.5);\n", i-1, rand.Intn(10))
		}

		sb.WriteString("    return b + a;\n}\n")
	}

	return sb.String()
}
