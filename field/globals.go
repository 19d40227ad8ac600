// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package field

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
)

// Globals holds the handles to this descriptor's per-field constant
// globals, lazily populated by DefineGlobals.
type Globals struct {
	Modulus    *ir.Global
	RModP      *ir.Global
	R2ModP     *ir.Global
	HalfPPlus1 *ir.Global
}

// DefineGlobals emits the descriptor's modulus, R mod p, R^2 mod p, and
// (p+1)/2 as named globals under the field's own linker section, so a
// backend that ends up calling none of a descriptor's arithmetic (e.g. a
// curve preset configured but never exercised by the chosen MSM/curve
// operations) costs nothing at link time beyond the section entries.
func (d *Descriptor) DefineGlobals() Globals {
	section := "field." + d.Name

	modWords := wordsOf(d.Modulus.Big(), d.NumWords, d.W)
	rWords := wordsOf(d.Consts.RModP.Big(), d.NumWords, d.W)
	r2Words := wordsOf(d.Consts.R2ModP.Big(), d.NumWords, d.W)
	halfWords := wordsOf(d.Consts.HalfPPlus1.Big(), d.NumWords, d.W)

	mod := d.asm.DefineGlobalConstant("_g_modulus_"+d.SymPrefix()+"_"+d.Name, section,
		d.arrayConstant(modWords), d.FieldTy, d.W/8)
	r := d.asm.DefineGlobalConstant("_g_rmodp_"+d.SymPrefix()+"_"+d.Name, section,
		d.arrayConstant(rWords), d.FieldTy, d.W/8)
	r2 := d.asm.DefineGlobalConstant("_g_r2modp_"+d.SymPrefix()+"_"+d.Name, section,
		d.arrayConstant(r2Words), d.FieldTy, d.W/8)
	half := d.asm.DefineGlobalConstant("_g_halfpplus1_"+d.SymPrefix()+"_"+d.Name, section,
		d.arrayConstant(halfWords), d.FieldTy, d.W/8)

	return Globals{
		Modulus:    mod,
		RModP:      r,
		R2ModP:     r2,
		HalfPPlus1: half,
	}
}

func (d *Descriptor) arrayConstant(words []uint64) constant.Constant {
	elems := make([]constant.Constant, len(words))
	for i, w := range words {
		elems[i] = constantInt(d.WordTy, int64(w))
	}
	return constant.NewArray(d.FieldTy, elems...)
}
