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

// Div2 emits (if not already emitted) and returns the name of the
// internal function computing a/2 mod p: if a is even, a plain
// right-shift by one; if a is odd, (a + p) is computed first (using the
// precomputed (p+1)/2 trick's underlying carry) so that
// the sum is guaranteed even, then shifted. Both paths execute on every
// call and are selected by constant-time select, since parity is a
// data-dependent bit of the field element.
func (d *Descriptor) Div2() (string, error) {
	name := fmt.Sprintf("_div2_%s", d.SymPrefix())
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
			d.emitDiv2(block, dst, av)
			block.NewRet(nil)
			return nil
		})
	if err != nil {
		return "", err
	}
	return name, nil
}

func (d *Descriptor) emitDiv2(b *ir.Block, dst, av *asm.Field) {
	n := d.NumWords
	modWords := d.modulusWordConsts()

	a0 := av.Load(b, 0)
	isOdd := b.NewTrunc(a0, types.I1)

	sumWords := make([]value.Value, n)
	carry := constantInt(types.I1, 0)
	for i := 0; i < n; i++ {
		ai := av.Load(b, int64(i))
		r := addWithCarryIn(d, b, ai, modWords[i], carry, d.W)
		sumWords[i] = r.Value
		carry = r.Flag
	}
	topCarryWord := b.NewZExt(carry, d.WordTy)

	shifted := make([]value.Value, n)
	rawWords := make([]value.Value, n)
	for i := 0; i < n; i++ {
		rawWords[i] = av.Load(b, int64(i))
	}

	for i := 0; i < n; i++ {
		even := shiftRightOneWithCarryIn(b, rawWords, i, n, d.WordTy, d.W, func(int) value.Value { return constantInt(d.WordTy, 0) })
		odd := shiftRightOneWithCarryIn(b, sumWords, i, n, d.WordTy, d.W, func(idx int) value.Value {
			if idx == n-1 {
				return topCarryWord
			}
			return constantInt(d.WordTy, 0)
		})
		shifted[i] = b.NewSelect(isOdd, odd, even)
	}
	for i := 0; i < n; i++ {
		dst.StoreAt(b, int64(i), shifted[i])
	}
}

// shiftRightOneWithCarryIn computes word i of (words >> 1), where the
// bit shifted into the top of the most significant word comes from
// topBit(n-1) (the caller's external overflow carry, for the n-1 index
// only; every other index's incoming bit is the next word's LSB).
func shiftRightOneWithCarryIn(b *ir.Block, words []value.Value, i, n int, wordTy *types.IntType, w int, topBit func(int) value.Value) value.Value {
	cur := b.NewLShr(words[i], constantInt(wordTy, 1))
	var nextWord value.Value
	if i == n-1 {
		nextWord = topBit(i)
	} else {
		nextWord = words[i+1]
	}
	incomingBit := b.NewAnd(nextWord, constantInt(wordTy, 1))
	shiftAmt := constantInt(wordTy, int64(w-1))
	highBit := b.NewShl(incomingBit, shiftAmt)
	return b.NewOr(cur, highBit)
}
