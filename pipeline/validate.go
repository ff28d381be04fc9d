package pipeline

import (
	"github.com/kbukum/seqkit/errors"
	"github.com/kbukum/seqkit/validation"
)

// Argument errors are programmer errors and surface as panics at
// construction time, before any iterator exists.

func mustValidate(v *validation.Validator) {
	if err := v.Validate(); err != nil {
		panic(err)
	}
}

func requireSource[T any](p *Pipeline[T]) {
	if p == nil || p.create == nil {
		panic(errors.NilArgument("source"))
	}
}

func requireFunc(name string, isNil bool) {
	if isNil {
		panic(errors.NilArgument(name))
	}
}
