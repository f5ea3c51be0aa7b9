package main

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/vango-dev/vtree/internal/errors"
	"github.com/vango-dev/vtree/pkg/vdom"
)

// patchEnv is what a --where expression sees for each patch.
type patchEnv struct {
	Op    string   `expr:"op"`
	Tag   string   `expr:"tag"`
	Path  []int    `expr:"path"`
	Depth int      `expr:"depth"`
	Text  string   `expr:"text"`
	Attrs []string `expr:"attrs"`
}

func envOf(p vdom.Patch) patchEnv {
	env := patchEnv{
		Op:    p.Op.String(),
		Tag:   p.Tag,
		Path:  []int(p.Path),
		Depth: p.Path.Depth(),
		Text:  p.Text,
	}
	for _, a := range p.Attrs {
		env.Attrs = append(env.Attrs, a.QualifiedName())
	}
	return env
}

// patchFilter keeps the patches a compiled --where expression accepts.
type patchFilter struct {
	program *vm.Program
}

func compileFilter(src string) (*patchFilter, error) {
	if src == "" {
		return nil, nil
	}
	program, err := expr.Compile(src, expr.Env(patchEnv{}), expr.AsBool())
	if err != nil {
		return nil, errors.New(errors.ECodeBadFilter).
			Wrap(err).
			WithExample(`op == "RemoveNode" && depth > 2
tag in ["li", "tr"]
"class" in attrs`)
	}
	return &patchFilter{program: program}, nil
}

// apply returns the patches the filter accepts. A nil filter keeps all.
func (f *patchFilter) apply(patches []vdom.Patch) ([]vdom.Patch, error) {
	if f == nil {
		return patches, nil
	}
	var out []vdom.Patch
	for _, p := range patches {
		ok, err := expr.Run(f.program, envOf(p))
		if err != nil {
			return nil, errors.New(errors.ECodeBadFilter).Wrap(err)
		}
		if ok.(bool) {
			out = append(out, p)
		}
	}
	return out, nil
}
