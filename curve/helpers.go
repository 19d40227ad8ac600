// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curve

import (
	"math/big"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/value"

	"github.com/luxfi/ctcodegen/asm"
)

func icmpEQ() enum.IPred { return enum.IPredEQ }

func constZeroWord(d *Descriptor) value.Value {
	return constant.NewInt(d.WordTy, 0)
}

// scratch allocates a fresh field-element stack slot in block's function
// entry and wraps it as a Field view, the scratch-buffer pattern every
// group-law formula below uses for its named intermediate values (H, R,
// HH, M, ...) instead of hand-indexing a flat buffer.
func (d *Descriptor) scratch(b *ir.Block) *asm.Field {
	ptr := b.NewAlloca(d.FieldTy)
	return asm.NewField(ptr, d.FieldTy)
}

// call1 invokes a unary field op (dst, src) and returns any error,
// collapsing the repeated a.Call(...)+error-check boilerplate every
// formula step needs.
func (d *Descriptor) call1(a *asm.Assembler, b *ir.Block, opName string, dst, src *asm.Field) error {
	_, err := a.Call(b, opName, dst.Ptr, src.Ptr)
	return err
}

// call2 invokes a binary field op (dst, x, y).
func (d *Descriptor) call2(a *asm.Assembler, b *ir.Block, opName string, dst, x, y *asm.Field) error {
	_, err := a.Call(b, opName, dst.Ptr, x.Ptr, y.Ptr)
	return err
}

// callFlag invokes a constant-time conditional op (dst, src, flag), e.g.
// ccopy.
func (d *Descriptor) callFlag(a *asm.Assembler, b *ir.Block, opName string, dst, src *asm.Field, flag value.Value) error {
	_, err := a.Call(b, opName, dst.Ptr, src.Ptr, flag)
	return err
}

// fieldIsZero emits a constant-time-ish (branch-free) check of whether
// every limb of f is zero, returning an i1. It is used only to compute
// the is_double/is_identity selector flags that steer ccopy choices —
// never to drive a conditional branch, so it does not violate the "no
// data-dependent control flow" requirement on the arithmetic itself.
func (d *Descriptor) fieldIsZero(b *ir.Block, f *asm.Field) value.Value {
	zero := constZeroWord(d)
	acc := b.NewICmp(icmpEQ(), f.Load(b, 0), zero)
	for i := int64(1); i < f.Len(); i++ {
		wordZero := b.NewICmp(icmpEQ(), f.Load(b, i), zero)
		acc = b.NewAnd(acc, wordZero)
	}
	return acc
}

// aConstant returns a global holding the curve coefficient a in
// Montgomery form (a*R mod p), computed once on the host via math/big
// from the already-precomputed R mod p, and emitted as an
// AGeneral-curve-only constant (BLS12-381/BN254/secp256k1 are all a=0
// and never reach this path; it exists so a future non-a=0 preset in
// package curves has somewhere to plug in).
func (d *Descriptor) aConstant(b *ir.Block) *asm.Field {
	name := "_g_acoeff_" + d.Descriptor.SymPrefix()
	if g, ok := d.asmGlobal(name); ok {
		return asm.NewField(g, d.FieldTy)
	}
	aMont := new(big.Int).Mul(d.A.Big(), d.Consts.RModP.Big())
	aMont.Mod(aMont, d.Modulus.Big())
	words := fieldWords(aMont, d.NumWords, d.W)
	elems := make([]constant.Constant, len(words))
	for i, w := range words {
		elems[i] = constant.NewInt(d.WordTy, int64(w))
	}
	init := constant.NewArray(d.FieldTy, elems...)
	g := d.Descriptor.Assembler().DefineGlobalConstant(name, "curve", init, d.FieldTy, d.W/8)
	return asm.NewField(g, d.FieldTy)
}

func (d *Descriptor) asmGlobal(name string) (value.Value, bool) {
	g, ok := d.Descriptor.Assembler().GlobalConstant(name)
	if !ok {
		return nil, false
	}
	return g, true
}

func fieldWords(x *big.Int, numWords, w int) []uint64 {
	out := make([]uint64, numWords)
	for i := 0; i < numWords; i++ {
		var word uint64
		for bIdx := 0; bIdx < w; bIdx++ {
			if x.Bit(i*w+bIdx) == 1 {
				word |= 1 << uint(bIdx)
			}
		}
		out[i] = word
	}
	return out
}
