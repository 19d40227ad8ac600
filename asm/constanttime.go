// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package asm

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"

	"github.com/luxfi/ctcodegen/cgerr"
)

// maxConstantTimeTraceDepth bounds the backward def-use walk
// CheckConstantTime performs from a branch condition: every real
// arithmetic kernel this compiler emits is a handful of chained
// field/curve calls deep, so a walk this long only ever gets exhausted by
// a genuine cycle-free chain far longer than anything in this codebase —
// it exists to guarantee termination, not to cut off a real trace early.
const maxConstantTimeTraceDepth = 256

// CheckConstantTime walks fn's basic blocks and fails if any conditional
// branch's condition traces back, through a bounded def-use walk, to one
// of fn's parameters named in secretParams. It does not flag ir.InstSelect
// (the ccopy/cadd/csub select-based pattern field/curve use throughout is
// exactly the branch-free alternative this check exists to require) —
// only a genuine ir.TermCondBr is a data-dependent branch.
func CheckConstantTime(fn *ir.Func, secretParams ...string) error {
	secret := make(map[string]bool, len(secretParams))
	for _, n := range secretParams {
		secret[n] = true
	}

	secretVals := make(map[value.Value]bool)
	for _, p := range fn.Params {
		if secret[p.Name()] {
			secretVals[p] = true
		}
	}

	for _, block := range fn.Blocks {
		condBr, ok := block.Term.(*ir.TermCondBr)
		if !ok {
			continue
		}
		visited := make(map[value.Value]bool)
		if tracesToSecret(condBr.Cond, secretVals, visited, maxConstantTimeTraceDepth) {
			return cgerr.NewVerificationError(fmt.Sprintf(
				"%s: conditional branch in block %q depends on a secret-marked parameter",
				fn.Name(), block.Name()))
		}
	}
	return nil
}

// tracesToSecret reports whether v's value is derived, through any chain
// of loads/GEPs/arithmetic/selects/phis this compiler's emitters produce,
// from a value already known secret (a secret-marked parameter, or
// anything that has already been shown to derive from one).
func tracesToSecret(v value.Value, secretVals map[value.Value]bool, visited map[value.Value]bool, depth int) bool {
	if depth <= 0 || visited[v] {
		return false
	}
	visited[v] = true
	if secretVals[v] {
		return true
	}

	next := depth - 1
	switch i := v.(type) {
	case *ir.InstLoad:
		return tracesToSecret(i.Src, secretVals, visited, next)
	case *ir.InstGetElementPtr:
		if tracesToSecret(i.Src, secretVals, visited, next) {
			return true
		}
		for _, idx := range i.Indices {
			if tracesToSecret(idx, secretVals, visited, next) {
				return true
			}
		}
		return false
	case *ir.InstICmp:
		return tracesToSecret(i.X, secretVals, visited, next) || tracesToSecret(i.Y, secretVals, visited, next)
	case *ir.InstAnd:
		return tracesToSecret(i.X, secretVals, visited, next) || tracesToSecret(i.Y, secretVals, visited, next)
	case *ir.InstOr:
		return tracesToSecret(i.X, secretVals, visited, next) || tracesToSecret(i.Y, secretVals, visited, next)
	case *ir.InstAdd:
		return tracesToSecret(i.X, secretVals, visited, next) || tracesToSecret(i.Y, secretVals, visited, next)
	case *ir.InstSub:
		return tracesToSecret(i.X, secretVals, visited, next) || tracesToSecret(i.Y, secretVals, visited, next)
	case *ir.InstMul:
		return tracesToSecret(i.X, secretVals, visited, next) || tracesToSecret(i.Y, secretVals, visited, next)
	case *ir.InstShl:
		return tracesToSecret(i.X, secretVals, visited, next) || tracesToSecret(i.Y, secretVals, visited, next)
	case *ir.InstLShr:
		return tracesToSecret(i.X, secretVals, visited, next) || tracesToSecret(i.Y, secretVals, visited, next)
	case *ir.InstTrunc:
		return tracesToSecret(i.From, secretVals, visited, next)
	case *ir.InstZExt:
		return tracesToSecret(i.From, secretVals, visited, next)
	case *ir.InstSelect:
		return tracesToSecret(i.Cond, secretVals, visited, next) ||
			tracesToSecret(i.X, secretVals, visited, next) ||
			tracesToSecret(i.Y, secretVals, visited, next)
	case *ir.InstPhi:
		for _, inc := range i.Incs {
			if tracesToSecret(inc.X, secretVals, visited, next) {
				return true
			}
		}
		return false
	case *ir.InstCall:
		for _, arg := range i.Args {
			if tracesToSecret(arg, secretVals, visited, next) {
				return true
			}
		}
		return false
	case *ir.InstExtractValue:
		return tracesToSecret(i.X, secretVals, visited, next)
	default:
		// Constants, globals, and anything else this compiler's emitters
		// never feed into a branch condition.
		return false
	}
}
