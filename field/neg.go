// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package field

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/luxfi/ctcodegen/asm"
)

// Neg emits (if not already emitted) and returns the name of the
// internal function computing -a mod p as p - a, with the special case
// a == 0 mapped to 0 rather than p (so the representation stays
// canonical: every field element other than zero has a nonzero negation,
// and zero negates to itself).
func (d *Descriptor) Neg() (string, error) {
	name := fmt.Sprintf("_neg_%s", d.SymPrefix())
	if d.asm.IsDefined(name) {
		return name, nil
	}
	_, err := d.asm.DefineInternalFunction(name, "field."+d.Name, types.Void,
		[]asm.Param{
			{Name: "dst", Type: d.FieldTy},
			{Name: "a", Type: d.FieldTy},
		},
		[]asm.FuncAttr{asm.AttrInlineHint},
		func(a *asm.Assembler, fn *ir.Func, block *ir.Block, params []value.Value) error {
			dst := asm.NewField(params[0], d.FieldTy)
			av := asm.NewField(params[1], d.FieldTy)
			d.emitNeg(block, dst, av)
			block.NewRet(nil)
			return nil
		})
	if err != nil {
		return "", err
	}
	return name, nil
}

func (d *Descriptor) emitNeg(b *ir.Block, dst, av *asm.Field) {
	modWords := d.modulusWordConsts()
	diffWords := make([]value.Value, d.NumWords)
	borrow := constantInt(types.I1, 0)
	isZero := constantInt(types.I1, 1)
	for i := 0; i < d.NumWords; i++ {
		ai := av.Load(b, int64(i))
		r := subWithBorrowIn(d, b, modWords[i], ai, borrow, d.W)
		diffWords[i] = r.Value
		borrow = r.Flag
		wordIsZero := b.NewICmp(enum.IPredEQ, ai, constantInt(d.WordTy, 0))
		isZero = b.NewAnd(isZero, wordIsZero)
	}
	zero := constantInt(d.WordTy, 0)
	for i := 0; i < d.NumWords; i++ {
		selected := b.NewSelect(isZero, zero, diffWords[i])
		dst.StoreAt(b, int64(i), selected)
	}
}
