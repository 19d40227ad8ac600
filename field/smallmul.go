// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package field

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/luxfi/ctcodegen/asm"
	"github.com/luxfi/ctcodegen/cgerr"
)

// smallMulSupported lists the small multipliers this compiler knows an
// addition chain for: the curve-formula
// constants (2,3,4,8 for doubling variants; 12,15,21 for the
// Jacobian-to-Jacobian "dbl-2009-l"-family formulas) plus every integer
// in between, which costs nothing extra to support via repeated
// doubling-and-add.
var smallMulChains = map[int][]smallMulStep{}

type smallMulStep struct {
	// dbl, if true, doubles the running accumulator; otherwise it adds
	// the original input a to the accumulator.
	dbl bool
}

func init() {
	supported := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 15, 21}
	for _, n := range supported {
		smallMulChains[n] = buildAdditionChain(n)
	}
}

// buildAdditionChain constructs a binary double-and-add chain computing
// n*a from repeated doubling and single adds of a, e.g. n=21=10101b
// becomes dbl,dbl,add,dbl,dbl,add — cheap to generate, not minimal-length
// (true addition-chain minimization is unnecessary at these small n).
func buildAdditionChain(n int) []smallMulStep {
	if n == 0 {
		return nil
	}
	bitsOf := bitsMSBFirst(n)
	steps := []smallMulStep{} // first bit is always 1: implicit initial acc = a
	for _, bit := range bitsOf[1:] {
		steps = append(steps, smallMulStep{dbl: true})
		if bit == 1 {
			steps = append(steps, smallMulStep{dbl: false})
		}
	}
	return steps
}

func bitsMSBFirst(n int) []int {
	if n == 0 {
		return []int{0}
	}
	var bits []int
	for n > 0 {
		bits = append([]int{n & 1}, bits...)
		n >>= 1
	}
	return bits
}

// MulSmall emits (if not already emitted) and returns the name of the
// internal function computing n*a mod p via a fixed addition chain of
// doublings and adds, for n in the supported set the curve-group-law
// formulas actually need. Any other n is a ConfigurationError: this
// compiler does not synthesize addition chains on demand, since an
// unbounded n would make codegen time depend on an attacker-influenced
// value, which the ConfigurationError/CodegenError split is meant to
// keep out of the hot path.
func (d *Descriptor) MulSmall(n int) (string, error) {
	chain, ok := smallMulChains[n]
	if !ok {
		return "", cgerr.NewConfigurationError("field.MulSmall", fmt.Errorf("unsupported small multiplier %d", n))
	}

	name := fmt.Sprintf("_mulsmall%d_%s", n, d.SymPrefix())
	if d.asm.IsDefined(name) {
		return name, nil
	}

	addName, err := d.ModAdd()
	if err != nil {
		return "", err
	}

	_, err = d.asm.DefineInternalFunction(name, "field."+d.Name, types.Void,
		[]asm.Param{
			{Name: "dst", Type: d.FieldTy},
			{Name: "a", Type: d.FieldTy},
		},
		[]asm.FuncAttr{asm.AttrInlineHint},
		func(a *asm.Assembler, fn *ir.Func, block *ir.Block, params []value.Value) error {
			dst := asm.NewField(params[0], d.FieldTy)
			av := asm.NewField(params[1], d.FieldTy)

			if n == 0 {
				zero := constantInt(d.WordTy, 0)
				for i := int64(0); i < dst.Len(); i++ {
					dst.StoreAt(block, i, zero)
				}
				block.NewRet(nil)
				return nil
			}

			dst.Store(block, dst, av)
			for _, step := range chain {
				var err error
				if step.dbl {
					_, err = a.Call(block, addName, dst.Ptr, dst.Ptr, dst.Ptr)
				} else {
					_, err = a.Call(block, addName, dst.Ptr, dst.Ptr, av.Ptr)
				}
				if err != nil {
					return err
				}
			}
			block.NewRet(nil)
			return nil
		})
	if err != nil {
		return "", err
	}
	return name, nil
}
