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

// symModAdd is the stable internal symbol for this descriptor's modular
// addition, e.g. "_mod_add_u64x4".
func (d *Descriptor) symModAdd() string {
	return fmt.Sprintf("_mod_add_%s", d.SymPrefix())
}

// ModAdd emits (if not already emitted) and returns the name of the
// internal function computing (a + b) mod p over this descriptor's
// field, selecting the no-overflow or may-overflow variant by
// SpareBits.
func (d *Descriptor) ModAdd() (string, error) {
	name := d.symModAdd()
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

			if d.SpareBits >= 1 {
				d.emitModAddNoOverflow(block, dst, av, bv)
			} else {
				d.emitModAddMayOverflow(block, dst, av, bv)
			}
			block.NewRet(nil)
			return nil
		})
	if err != nil {
		return "", err
	}
	return name, nil
}

// emitModAddNoOverflow implements the spareBits>=1 path: t = a+b (no
// widening needed since the top limb has a spare bit), t' = t-p, select
// between t and t' by inspecting the borrow flag of t-p. No carry
// propagation beyond ordinary limb-chained add/sub is needed because the
// result of a+b is guaranteed to fit in numWords limbs.
func (d *Descriptor) emitModAddNoOverflow(b *ir.Block, dst, av, bv *asm.Field) {
	tWords := make([]value.Value, d.NumWords)
	carry := constantInt(types.I1, 0)
	for i := 0; i < d.NumWords; i++ {
		ai := av.Load(b, int64(i))
		bi := bv.Load(b, int64(i))
		r := addWithCarryIn(d, b, ai, bi, carry, d.W)
		tWords[i] = r.Value
		carry = r.Flag
	}

	modWords := d.modulusWordConsts()
	diffWords := make([]value.Value, d.NumWords)
	borrow := constantInt(types.I1, 0)
	for i := 0; i < d.NumWords; i++ {
		r := subWithBorrowIn(d, b, tWords[i], modWords[i], borrow, d.W)
		diffWords[i] = r.Value
		borrow = r.Flag
	}

	// borrow == 1 means t < p, i.e. t was already reduced: keep t.
	// borrow == 0 means t >= p: keep t-p.
	for i := 0; i < d.NumWords; i++ {
		selected := b.NewSelect(borrow, tWords[i], diffWords[i])
		dst.StoreAt(b, int64(i), selected)
	}
}

// emitModAddMayOverflow implements the spareBits==0 path: widen a, b by
// one extra word, add, subtract the widened modulus, test the top bit
// (now a real extra word, not just a flag) of the extended result, and
// truncate back down after selecting.
func (d *Descriptor) emitModAddMayOverflow(b *ir.Block, dst, av, bv *asm.Field) {
	extWords := d.NumWords + 1

	tWords := make([]value.Value, extWords)
	carry := constantInt(types.I1, 0)
	for i := 0; i < d.NumWords; i++ {
		ai := av.Load(b, int64(i))
		bi := bv.Load(b, int64(i))
		r := addWithCarryIn(d, b, ai, bi, carry, d.W)
		tWords[i] = r.Value
		carry = r.Flag
	}
	tWords[d.NumWords] = b.NewZExt(carry, d.WordTy)

	modWords := d.modulusWordConsts()
	diffWords := make([]value.Value, extWords)
	borrow := constantInt(types.I1, 0)
	for i := 0; i < d.NumWords; i++ {
		r := subWithBorrowIn(d, b, tWords[i], modWords[i], borrow, d.W)
		diffWords[i] = r.Value
		borrow = r.Flag
	}
	zeroExt := constantInt(d.WordTy, 0)
	rFinal := subWithBorrowIn(d, b, tWords[d.NumWords], zeroExt, borrow, d.W)
	diffWords[d.NumWords] = rFinal.Value

	for i := 0; i < d.NumWords; i++ {
		selected := b.NewSelect(rFinal.Flag, tWords[i], diffWords[i])
		dst.StoreAt(b, int64(i), selected)
	}
}

// modulusWordConsts returns the descriptor's modulus as little-endian
// word-sized constants, suitable for use directly as arithmetic
// operands (as opposed to ModulusWords, which returns plain uint64s for
// host-side use, e.g. building the global initializer).
func (d *Descriptor) modulusWordConsts() []value.Value {
	words := d.ModulusWords()
	out := make([]value.Value, len(words))
	for i, w := range words {
		out[i] = constantInt(d.WordTy, int64(w))
	}
	return out
}
