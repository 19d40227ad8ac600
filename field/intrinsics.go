// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package field

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// overflowResult is the {sum_or_diff, carry_or_borrow} pair
// llvm.u{add,sub}.with.overflow.iN returns.
type overflowResult struct {
	Value value.Value
	Flag  value.Value
}

// declareOverflowIntrinsic declares (idempotently, via the module's own
// function table) the add/sub-with-overflow intrinsic for bit width
// bits, returning its IR function value.
func declareOverflowIntrinsic(d *Descriptor, op string, bits int) *ir.Func {
	name := fmt.Sprintf("llvm.%s.with.overflow.i%d", op, bits)
	for _, fn := range d.asm.Module.Funcs {
		if fn.Name() == name {
			return fn
		}
	}
	intTy := types.NewInt(uint64(bits))
	structTy := types.NewStruct(intTy, types.I1)
	// A function with no blocks is a declaration, not a definition; we
	// never append a block to an intrinsic, so this stays a declaration
	// for the lifetime of the module.
	fn := d.asm.Module.NewFunc(name, structTy, ir.NewParam("a", intTy), ir.NewParam("b", intTy))
	return fn
}

// addWithOverflow emits a call to llvm.uadd.with.overflow and splits the
// result into (sum, carry).
func addWithOverflow(d *Descriptor, b *ir.Block, x, y value.Value, bits int) overflowResult {
	fn := declareOverflowIntrinsic(d, "uadd", bits)
	call := b.NewCall(fn, x, y)
	sum := b.NewExtractValue(call, 0)
	carry := b.NewExtractValue(call, 1)
	return overflowResult{Value: sum, Flag: carry}
}

// subWithOverflow emits a call to llvm.usub.with.overflow and splits the
// result into (diff, borrow).
func subWithOverflow(d *Descriptor, b *ir.Block, x, y value.Value, bits int) overflowResult {
	fn := declareOverflowIntrinsic(d, "usub", bits)
	call := b.NewCall(fn, x, y)
	diff := b.NewExtractValue(call, 0)
	borrow := b.NewExtractValue(call, 1)
	return overflowResult{Value: diff, Flag: borrow}
}

// addWithCarryIn chains addWithOverflow with a carry-in bit (itself
// produced by a previous addWithOverflow/zext), for multi-word addition:
// sum = x + y + carryIn, carryOut = carry(x+y) | carry((x+y)+carryIn).
func addWithCarryIn(d *Descriptor, b *ir.Block, x, y, carryIn value.Value, bits int) overflowResult {
	r1 := addWithOverflow(d, b, x, y, bits)
	carryInExt := b.NewZExt(carryIn, types.NewInt(uint64(bits)))
	r2 := addWithOverflow(d, b, r1.Value, carryInExt, bits)
	carryOut := b.NewOr(r1.Flag, r2.Flag)
	return overflowResult{Value: r2.Value, Flag: carryOut}
}

// subWithBorrowIn is subWithOverflow's carry-chained counterpart for
// multi-word subtraction.
func subWithBorrowIn(d *Descriptor, b *ir.Block, x, y, borrowIn value.Value, bits int) overflowResult {
	r1 := subWithOverflow(d, b, x, y, bits)
	borrowInExt := b.NewZExt(borrowIn, types.NewInt(uint64(bits)))
	r2 := subWithOverflow(d, b, r1.Value, borrowInExt, bits)
	borrowOut := b.NewOr(r1.Flag, r2.Flag)
	return overflowResult{Value: r2.Value, Flag: borrowOut}
}

// mulWide emits a full-width multiply by widening both operands to
// 2*bits, multiplying, and returning (hi, lo) — the mul.lo/mul.hi pair
// the CIOS multiply step needs. Real backends lower this to a
// single widening multiply instruction (umul.with.overflow has no
// standard LLVM intrinsic for the high half, so the portable lowering
// widens and multiplies, which InstCombine/DAGCombine narrow back down
// to the target's native mulhi/mullo instructions during §4.5's pass
// pipeline).
func mulWide(b *ir.Block, x, y value.Value, bits int) (hi, lo value.Value) {
	wideTy := types.NewInt(uint64(2 * bits))
	xw := b.NewZExt(x, wideTy)
	yw := b.NewZExt(y, wideTy)
	product := b.NewMul(xw, yw)
	narrowTy := types.NewInt(uint64(bits))
	lo = b.NewTrunc(product, narrowTy)
	shiftAmt := constFor(wideTy, int64(bits))
	hiWide := b.NewLShr(product, shiftAmt)
	hi = b.NewTrunc(hiWide, narrowTy)
	return hi, lo
}

func constFor(t types.Type, v int64) value.Value {
	intTy, ok := t.(*types.IntType)
	if !ok {
		panic("constFor: not an integer type")
	}
	return constantInt(intTy, v)
}
