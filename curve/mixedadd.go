// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curve

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/luxfi/ctcodegen/asm"
)

// MixedAdd emits (if not already emitted) the Jacobian+affine mixed
// addition formula ("madd-2007-bl"): P in Jacobian, Q in affine with an
// implicit Z2=1, saving one squaring and one multiplication relative to
// the general Jacobian add. Identity is handled the same constant-time
// way as Add: P's Jacobian identity is Z1=0; Q's affine identity is the
// spec's (0,0) encoding.
func (d *Descriptor) MixedAdd(curveName string) (string, error) {
	name := fmt.Sprintf("_ec_madd_%s", d.SymPrefix(curveName))
	a := d.Descriptor.Assembler()
	if a.IsDefined(name) {
		return name, nil
	}

	sqr, err := d.MontgomerySquare()
	if err != nil {
		return "", err
	}
	mul, err := d.MontgomeryMul()
	if err != nil {
		return "", err
	}
	add, err := d.ModAdd()
	if err != nil {
		return "", err
	}
	sub, err := d.ModSub()
	if err != nil {
		return "", err
	}
	mul2, err := d.MulSmall(2)
	if err != nil {
		return "", err
	}
	mul4, err := d.MulSmall(4)
	if err != nil {
		return "", err
	}
	ccopy, err := d.CCopy()
	if err != nil {
		return "", err
	}
	csetone, err := d.CSetOne()
	if err != nil {
		return "", err
	}

	jacTy := d.JacobianType()
	affTy := d.AffineType()
	_, err = a.DefineInternalFunction(name, "curve", types.Void,
		[]asm.Param{
			{Name: "dst", Type: jacTy},
			{Name: "p", Type: jacTy},
			{Name: "q", Type: affTy},
		},
		[]asm.FuncAttr{asm.AttrHot},
		func(a *asm.Assembler, fn *ir.Func, block *ir.Block, params []value.Value) error {
			dst := asm.NewEcPointJac(params[0], jacTy, d.FieldTy)
			p := asm.NewEcPointJac(params[1], jacTy, d.FieldTy)
			q := asm.NewEcPointAff(params[2], affTy, d.FieldTy)
			return d.emitMixedAdd(a, block, dst, p, q, mul, sqr, add, sub, mul2, mul4, ccopy, csetone)
		})
	if err != nil {
		return "", err
	}
	return name, nil
}

func (d *Descriptor) emitMixedAdd(
	a *asm.Assembler, b *ir.Block,
	dst *asm.EcPointJac, p *asm.EcPointJac, q *asm.EcPointAff,
	mul, sqr, add, sub, mul2, mul4, ccopy, csetone string,
) error {
	x1, y1, z1 := p.X(b), p.Y(b), p.Z(b)
	x2, y2 := q.X(b), q.Y(b)

	z1z1 := d.scratch(b)
	if err := d.call1(a, b, sqr, z1z1, z1); err != nil {
		return err
	}
	u2 := d.scratch(b)
	if err := d.call2(a, b, mul, u2, x2, z1z1); err != nil {
		return err
	}
	z1z1z1 := d.scratch(b)
	if err := d.call2(a, b, mul, z1z1z1, z1, z1z1); err != nil {
		return err
	}
	s2 := d.scratch(b)
	if err := d.call2(a, b, mul, s2, y2, z1z1z1); err != nil {
		return err
	}

	h := d.scratch(b)
	if err := d.call2(a, b, sub, h, u2, x1); err != nil {
		return err
	}
	hh := d.scratch(b)
	if err := d.call1(a, b, sqr, hh, h); err != nil {
		return err
	}
	iVal := d.scratch(b)
	if _, err := a.Call(b, mul4, iVal.Ptr, hh.Ptr); err != nil {
		return err
	}
	jVal := d.scratch(b)
	if err := d.call2(a, b, mul, jVal, h, iVal); err != nil {
		return err
	}

	sDiff := d.scratch(b)
	if err := d.call2(a, b, sub, sDiff, s2, y1); err != nil {
		return err
	}
	rVal := d.scratch(b)
	if _, err := a.Call(b, mul2, rVal.Ptr, sDiff.Ptr); err != nil {
		return err
	}

	vVal := d.scratch(b)
	if err := d.call2(a, b, mul, vVal, x1, iVal); err != nil {
		return err
	}

	rsq := d.scratch(b)
	if err := d.call1(a, b, sqr, rsq, rVal); err != nil {
		return err
	}
	t1 := d.scratch(b)
	if err := d.call2(a, b, sub, t1, rsq, jVal); err != nil {
		return err
	}
	twoV := d.scratch(b)
	if _, err := a.Call(b, mul2, twoV.Ptr, vVal.Ptr); err != nil {
		return err
	}
	x3 := d.scratch(b)
	if err := d.call2(a, b, sub, x3, t1, twoV); err != nil {
		return err
	}

	vMinusX3 := d.scratch(b)
	if err := d.call2(a, b, sub, vMinusX3, vVal, x3); err != nil {
		return err
	}
	rTimes := d.scratch(b)
	if err := d.call2(a, b, mul, rTimes, rVal, vMinusX3); err != nil {
		return err
	}
	y1J := d.scratch(b)
	if err := d.call2(a, b, mul, y1J, y1, jVal); err != nil {
		return err
	}
	twoY1J := d.scratch(b)
	if _, err := a.Call(b, mul2, twoY1J.Ptr, y1J.Ptr); err != nil {
		return err
	}
	y3 := d.scratch(b)
	if err := d.call2(a, b, sub, y3, rTimes, twoY1J); err != nil {
		return err
	}

	zPlusH := d.scratch(b)
	if err := d.call2(a, b, add, zPlusH, z1, h); err != nil {
		return err
	}
	zPlusHSq := d.scratch(b)
	if err := d.call1(a, b, sqr, zPlusHSq, zPlusH); err != nil {
		return err
	}
	t2 := d.scratch(b)
	if err := d.call2(a, b, sub, t2, zPlusHSq, z1z1); err != nil {
		return err
	}
	z3 := d.scratch(b)
	if err := d.call2(a, b, sub, z3, t2, hh); err != nil {
		return err
	}

	isPIdentity := d.fieldIsZero(b, z1)
	isQIdentity := b.NewAnd(d.fieldIsZero(b, x2), d.fieldIsZero(b, y2))

	if err := d.callFlag(a, b, ccopy, x3, x2, isPIdentity); err != nil {
		return err
	}
	if err := d.callFlag(a, b, ccopy, y3, y2, isPIdentity); err != nil {
		return err
	}
	if _, err := a.Call(b, csetone, z3.Ptr, isPIdentity); err != nil {
		return err
	}

	if err := d.callFlag(a, b, ccopy, x3, x1, isQIdentity); err != nil {
		return err
	}
	if err := d.callFlag(a, b, ccopy, y3, y1, isQIdentity); err != nil {
		return err
	}
	if err := d.callFlag(a, b, ccopy, z3, z1, isQIdentity); err != nil {
		return err
	}

	dstX, dstY, dstZ := dst.X(b), dst.Y(b), dst.Z(b)
	dstX.Store(b, dstX, x3)
	dstY.Store(b, dstY, y3)
	dstZ.Store(b, dstZ, z3)
	b.NewRet(nil)
	return nil
}
