// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curve

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/luxfi/ctcodegen/asm"
	"github.com/luxfi/ctcodegen/cgerr"
)

// Double emits (if not already emitted) the standalone "dbl-2009-l"
// doubling formula (2M + 5S + 6add): A=X², B=Y², C=B², D=2((X+B)²−A−C),
// E=3A, F=E², X3=F−2D, Y3=E(D−X3)−8C, Z3=2YZ. This formula assumes
// a=0 — true of every curve.Descriptor this module's curves package
// builds (BLS12-381 G1, BN254 G1, secp256k1 all have a=0) — so Double
// rejects any other curve rather than silently producing a wrong point.
func (d *Descriptor) Double(curveName string) (string, error) {
	if d.AKind != AZero {
		return "", cgerr.NewConfigurationError("curve.Double",
			fmt.Errorf("dbl-2009-l requires a=0, curve %q has a different coefficient kind", curveName))
	}
	name := fmt.Sprintf("_ec_dbl_%s", d.SymPrefix(curveName))
	a := d.Descriptor.Assembler()
	if a.IsDefined(name) {
		return name, nil
	}

	sqr, err := d.MontgomerySquare()
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
	mul3, err := d.MulSmall(3)
	if err != nil {
		return "", err
	}
	mul8, err := d.MulSmall(8)
	if err != nil {
		return "", err
	}
	mul, err := d.MontgomeryMul()
	if err != nil {
		return "", err
	}

	ptrTy := d.JacobianType()
	_, err = a.DefineInternalFunction(name, "curve", types.Void,
		[]asm.Param{
			{Name: "dst", Type: ptrTy},
			{Name: "p", Type: ptrTy},
		},
		[]asm.FuncAttr{asm.AttrHot},
		func(a *asm.Assembler, fn *ir.Func, block *ir.Block, params []value.Value) error {
			dst := asm.NewEcPointJac(params[0], d.curveTyJac, d.FieldTy)
			p := asm.NewEcPointJac(params[1], d.curveTyJac, d.FieldTy)
			return d.emitDouble(a, block, dst, p, sqr, add, sub, mul2, mul3, mul8, mul)
		})
	if err != nil {
		return "", err
	}
	return name, nil
}

func (d *Descriptor) emitDouble(
	a *asm.Assembler, b *ir.Block,
	dst, p *asm.EcPointJac,
	sqr, add, sub, mul2, mul3, mul8, mul string,
) error {
	x, y, z := p.X(b), p.Y(b), p.Z(b)

	aVal := d.scratch(b)
	if err := d.call1(a, b, sqr, aVal, x); err != nil {
		return err
	}
	bVal := d.scratch(b)
	if err := d.call1(a, b, sqr, bVal, y); err != nil {
		return err
	}
	cVal := d.scratch(b)
	if err := d.call1(a, b, sqr, cVal, bVal); err != nil {
		return err
	}

	xPlusB := d.scratch(b)
	if err := d.call2(a, b, add, xPlusB, x, bVal); err != nil {
		return err
	}
	xPlusBSq := d.scratch(b)
	if err := d.call1(a, b, sqr, xPlusBSq, xPlusB); err != nil {
		return err
	}
	t1 := d.scratch(b)
	if err := d.call2(a, b, sub, t1, xPlusBSq, aVal); err != nil {
		return err
	}
	t2 := d.scratch(b)
	if err := d.call2(a, b, sub, t2, t1, cVal); err != nil {
		return err
	}
	dVal := d.scratch(b)
	if _, err := a.Call(b, mul2, dVal.Ptr, t2.Ptr); err != nil {
		return err
	}

	eVal := d.scratch(b)
	if _, err := a.Call(b, mul3, eVal.Ptr, aVal.Ptr); err != nil {
		return err
	}
	fVal := d.scratch(b)
	if err := d.call1(a, b, sqr, fVal, eVal); err != nil {
		return err
	}

	twoD := d.scratch(b)
	if _, err := a.Call(b, mul2, twoD.Ptr, dVal.Ptr); err != nil {
		return err
	}
	x3 := d.scratch(b)
	if err := d.call2(a, b, sub, x3, fVal, twoD); err != nil {
		return err
	}

	dMinusX3 := d.scratch(b)
	if err := d.call2(a, b, sub, dMinusX3, dVal, x3); err != nil {
		return err
	}
	eTimesDMinusX3 := d.scratch(b)
	if err := d.call2(a, b, mul, eTimesDMinusX3, eVal, dMinusX3); err != nil {
		return err
	}
	eightC := d.scratch(b)
	if _, err := a.Call(b, mul8, eightC.Ptr, cVal.Ptr); err != nil {
		return err
	}
	y3 := d.scratch(b)
	if err := d.call2(a, b, sub, y3, eTimesDMinusX3, eightC); err != nil {
		return err
	}

	yz := d.scratch(b)
	if err := d.call2(a, b, mul, yz, y, z); err != nil {
		return err
	}
	z3 := d.scratch(b)
	if _, err := a.Call(b, mul2, z3.Ptr, yz.Ptr); err != nil {
		return err
	}

	dstX, dstY, dstZ := dst.X(b), dst.Y(b), dst.Z(b)
	dstX.Store(b, dstX, x3)
	dstY.Store(b, dstY, y3)
	dstZ.Store(b, dstZ, z3)
	b.NewRet(nil)
	return nil
}
