package ember

// The prelude declares the C runtime functions every program may call
// without declaring them. They are external; the linker provides them.

type preludeFunc struct {
	name   string
	ret    Type
	params []*FuncParam
}

var prelude = []preludeFunc{
	{"putchar", Int, []*FuncParam{{Name: "c", Type: Int}}},
	{"getchar", Int, nil},
	{"exit", Void, []*FuncParam{{Name: "status", Type: Int}}},
	{"abort", Void, nil},
	{"malloc", PointerTo(Void), []*FuncParam{{Name: "size", Type: Long}}},
	{"free", Void, []*FuncParam{{Name: "ptr", Type: PointerTo(Void)}}},
}

func definePrelude(mod *Module) {
	for _, def := range prelude {
		params := make([]*FuncParam, len(def.params))
		for i, p := range def.params {
			params[i] = &FuncParam{Name: p.Name, Type: p.Type}
		}

		mod.NewFunction(def.name, def.ret, params...)
	}
}
