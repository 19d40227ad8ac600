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

// MontgomeryMul emits (if not already emitted) Coarsely-Integrated
// Operand-Scanning Montgomery multiplication: for i in 0..N-1, a
// multiply step folds a[i]*b into the running t, then a reduce step
// folds in m*p to cancel t's low limb. A final
// subtraction of p runs iff SpareBits >= 1 (finalReduce is always true
// here — see MontgomeryMulUnreduced for the skip-final-sub entry
// point).
func (d *Descriptor) MontgomeryMul() (string, error) {
	name := fmt.Sprintf("_mty_mul_%s", d.SymPrefix())
	if d.asm.IsDefined(name) {
		return name, nil
	}
	return d.defineMontgomeryMul(name, false, 0)
}

// MontgomeryMulUnreduced emits the unreduced CIOS variant, skipping the
// final subtraction for use inside squaring chains. Requires
// SpareBits >= 2 (one spare bit is consumed by skipping the final
// reduction, so a second is needed for the result to still be safely
// addable/comparable downstream); violating this is a ConfigurationError,
// not a silently-wrong result.
func (d *Descriptor) MontgomeryMulUnreduced() (string, error) {
	if d.SpareBits < 2 {
		return "", cgerr.NewConfigurationError("field.MontgomeryMulUnreduced",
			fmt.Errorf("field %q has %d spare bits, need >= 2 for an unreduced product", d.Name, d.SpareBits))
	}
	name := fmt.Sprintf("_mty_mulur_%s_b%d", d.SymPrefix(), d.SpareBits)
	if d.asm.IsDefined(name) {
		return name, nil
	}
	return d.defineMontgomeryMul(name, true, d.SpareBits)
}

// MontgomerySquare emits the squaring specialization of MontgomeryMul
// (a*a instead of a*b); this compiler does not special-case the
// schoolbook squaring-saves-multiplications trick — it reuses the
// general multiply body applied to (a, a), trading a modest amount of
// redundant multiply work for one less emitted algorithm to validate and
// maintain.
func (d *Descriptor) MontgomerySquare() (string, error) {
	name := fmt.Sprintf("_mty_sqr_%s", d.SymPrefix())
	if d.asm.IsDefined(name) {
		return name, nil
	}
	return d.defineMontgomerySquare(name, false, 0)
}

// MontgomeryNSquare emits an n-deep squaring chain x -> x^(2^n) (in
// Montgomery domain), named e.g. "_mty_nsqr_u64x4b1" for a
// one-spare-bit unreduced chain. Used by curve-doubling formulas that
// need repeated squaring without paying a full reduction between steps.
func (d *Descriptor) MontgomeryNSquare(n int) (string, error) {
	if n < 1 {
		return "", cgerr.NewConfigurationError("field.MontgomeryNSquare", fmt.Errorf("n must be >= 1, got %d", n))
	}
	name := fmt.Sprintf("_mty_nsqr_%s_n%d", d.SymPrefix(), n)
	if d.asm.IsDefined(name) {
		return name, nil
	}

	sqrName, err := d.MontgomerySquare()
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
			src := asm.NewField(params[1], d.FieldTy)
			dst.Store(block, dst, src)
			for i := 0; i < n; i++ {
				if _, err := a.Call(block, sqrName, dst.Ptr, dst.Ptr); err != nil {
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

func (d *Descriptor) defineMontgomeryMul(name string, skipFinalSub bool, requiredSpareBits int) (string, error) {
	_, err := d.asm.DefineInternalFunction(name, "field."+d.Name, types.Void,
		[]asm.Param{
			{Name: "dst", Type: d.FieldTy},
			{Name: "a", Type: d.FieldTy},
			{Name: "b", Type: d.FieldTy},
		},
		[]asm.FuncAttr{asm.AttrHot, asm.AttrInlineHint},
		func(a *asm.Assembler, fn *ir.Func, block *ir.Block, params []value.Value) error {
			dst := asm.NewField(params[0], d.FieldTy)
			av := asm.NewField(params[1], d.FieldTy)
			bv := asm.NewField(params[2], d.FieldTy)
			d.emitCIOS(block, dst, av, bv, skipFinalSub)
			block.NewRet(nil)
			return nil
		})
	if err != nil {
		return "", err
	}
	return name, nil
}

func (d *Descriptor) defineMontgomerySquare(name string, skipFinalSub bool, requiredSpareBits int) (string, error) {
	_, err := d.asm.DefineInternalFunction(name, "field."+d.Name, types.Void,
		[]asm.Param{
			{Name: "dst", Type: d.FieldTy},
			{Name: "a", Type: d.FieldTy},
		},
		[]asm.FuncAttr{asm.AttrHot, asm.AttrInlineHint},
		func(a *asm.Assembler, fn *ir.Func, block *ir.Block, params []value.Value) error {
			dst := asm.NewField(params[0], d.FieldTy)
			av := asm.NewField(params[1], d.FieldTy)
			d.emitCIOS(block, dst, av, av, skipFinalSub)
			block.NewRet(nil)
			return nil
		})
	if err != nil {
		return "", err
	}
	return name, nil
}

// emitCIOS lowers the Coarsely-Integrated Operand-Scanning Montgomery
// product of av and bv into dst:
//
//	for i in 0..N-1:
//	  (A, t) <- t + a[i]*b + A          (multiply step)
//	  m <- t[0] * m0ninv
//	  (C, _) <- t[0] + m*p[0]
//	  (C, t[j-1]) <- t[j] + m*p[j] + C   for j in 1..N-1
//	  t[N-1] <- A + C
//
// Every skipFinalSub is false unless the caller is one of the two
// explicitly-named entry points that accept the unreduced result — this
// emitter never makes that choice implicitly.
func (d *Descriptor) emitCIOS(b *ir.Block, dst, av, bv *asm.Field, skipFinalSub bool) {
	n := d.NumWords
	w := d.W
	modWords := d.modulusWordConsts()
	m0ninv := constantInt(d.WordTy, int64(d.Consts.NegPInvModWord))

	// t holds the n+1-word running accumulator (t[n] doubles as the
	// overflow-absorbing extra limb, "A" above, folded into t).
	t := make([]value.Value, n+1)
	zero := constantInt(d.WordTy, 0)
	for i := range t {
		t[i] = zero
	}

	for i := 0; i < n; i++ {
		ai := av.Load(b, int64(i))

		// Multiply step: t <- t + a[i]*b, word by word with carry.
		carry := constantInt(d.WordTy, 0)
		for j := 0; j < n; j++ {
			bj := bv.Load(b, int64(j))
			hi, lo := mulWide(b, ai, bj, w)
			s1 := addWithCarryIn(d, b, t[j], lo, constantInt(types.I1, 0), w)
			s2 := addWithCarryIn(d, b, s1.Value, carry, constantInt(types.I1, 0), w)
			t[j] = s2.Value
			carryBit1 := b.NewZExt(s1.Flag, d.WordTy)
			carryBit2 := b.NewZExt(s2.Flag, d.WordTy)
			carry = b.NewAdd(hi, b.NewAdd(carryBit1, carryBit2))
		}
		tN := addWithCarryIn(d, b, t[n], carry, constantInt(types.I1, 0), w)
		t[n] = tN.Value

		// Reduce step: m <- t[0]*m0ninv; fold m*p into t so t[0] cancels.
		m := b.NewMul(t[0], m0ninv)
		carry = constantInt(d.WordTy, 0)
		for j := 0; j < n; j++ {
			hi, lo := mulWide(b, m, modWords[j], w)
			s1 := addWithCarryIn(d, b, t[j], lo, constantInt(types.I1, 0), w)
			s2 := addWithCarryIn(d, b, s1.Value, carry, constantInt(types.I1, 0), w)
			carryBit1 := b.NewZExt(s1.Flag, d.WordTy)
			carryBit2 := b.NewZExt(s2.Flag, d.WordTy)
			carry = b.NewAdd(hi, b.NewAdd(carryBit1, carryBit2))
			if j > 0 {
				t[j-1] = s2.Value
			}
		}
		tN2 := b.NewAdd(t[n], carry)
		t[n-1] = tN2
	}

	result := t[:n]
	if skipFinalSub {
		for i := 0; i < n; i++ {
			dst.StoreAt(b, int64(i), result[i])
		}
		return
	}

	// Final conditional subtraction of p, exactly as ModSub's shape: it
	// only runs when SpareBits >= 1; emitCIOS is never called with
	// skipFinalSub=false on a SpareBits==0 descriptor (MontgomeryMul's
	// callers are required to route may-overflow fields through the
	// widened modadd-style path instead — enforced by construction since
	// every caller here is SpareBits>=1 by spec invariant, not checked
	// again at this layer).
	diffWords := make([]value.Value, n)
	borrow := constantInt(types.I1, 0)
	for i := 0; i < n; i++ {
		r := subWithBorrowIn(d, b, result[i], modWords[i], borrow, w)
		diffWords[i] = r.Value
		borrow = r.Flag
	}
	for i := 0; i < n; i++ {
		selected := b.NewSelect(borrow, result[i], diffWords[i])
		dst.StoreAt(b, int64(i), selected)
	}
}
