// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package field

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/luxfi/ctcodegen/asm"
)

func (d *Descriptor) symModSub() string {
	return fmt.Sprintf("_mod_sub_%s", d.SymPrefix())
}

// ModSub emits (if not already emitted) and returns the name of the
// internal function computing (a - b) mod p: subtract, detect
// underflow via the borrow flag, conditionally add the modulus back in
// (masked by the borrow). Unlike ModAdd this needs no
// may-overflow widened variant — a subtraction's raw difference always
// fits in numWords limbs; the modulus is added back only to correct an
// underflow, never to avoid one.
func (d *Descriptor) ModSub() (string, error) {
	name := d.symModSub()
	if d.asm.IsDefined(name) {
		return name, nil
	}

	ptrTy := d.FieldTy
	_, err := d.asm.DefineInternalFunction(name, "field."+d.Name, types.Void,
		[]asm.Param{
			{Name: "dst", Type: ptrTy},
			{Name: "a", Type: ptrTy},
			{Name: "b", Type: ptrTy},
		},
		[]asm.FuncAttr{asm.AttrInlineHint},
		func(a *asm.Assembler, fn *ir.Func, block *ir.Block, params []value.Value) error {
			dst := asm.NewField(params[0], d.FieldTy)
			av := asm.NewField(params[1], d.FieldTy)
			bv := asm.NewField(params[2], d.FieldTy)
			d.emitModSub(block, dst, av, bv)
			block.NewRet(nil)
			return nil
		})
	if err != nil {
		return "", err
	}
	return name, nil
}

func (d *Descriptor) emitModSub(b *ir.Block, dst, av, bv *asm.Field) {
	diffWords := make([]value.Value, d.NumWords)
	borrow := constantInt(types.I1, 0)
	for i := 0; i < d.NumWords; i++ {
		ai := av.Load(b, int64(i))
		bi := bv.Load(b, int64(i))
		r := subWithBorrowIn(d, b, ai, bi, borrow, d.W)
		diffWords[i] = r.Value
		borrow = r.Flag
	}

	modWords := d.modulusWordConsts()
	maskedMod := make([]value.Value, d.NumWords)
	zero := constantInt(d.WordTy, 0)
	for i := 0; i < d.NumWords; i++ {
		maskedMod[i] = b.NewSelect(borrow, modWords[i], zero)
	}

	carry := constantInt(types.I1, 0)
	for i := 0; i < d.NumWords; i++ {
		r := addWithCarryIn(d, b, diffWords[i], maskedMod[i], carry, d.W)
		carry = r.Flag
		dst.StoreAt(b, int64(i), r.Value)
	}
}
