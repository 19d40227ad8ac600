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

// Add emits (if not already emitted) the unified Jacobian add-or-double
// group law: a single branch-free formula that produces P+Q when the
// points differ and 2P when they coincide, selected at the end by
// constant-time ccopy rather than a data-dependent br. curveName scopes
// the emitted symbol, since more than one curve.Descriptor may share a
// base field.Descriptor (e.g. distinct sub/twist curves over one Fp).
func (d *Descriptor) Add(curveName string) (string, error) {
	name := fmt.Sprintf("_ec_add_%s", d.SymPrefix(curveName))
	return name, d.defineAdd(name)
}

func (d *Descriptor) defineAdd(name string) error {
	a := d.Descriptor.Assembler()
	if a.IsDefined(name) {
		return nil
	}

	sqr, err := d.MontgomerySquare()
	if err != nil {
		return err
	}
	mul, err := d.MontgomeryMul()
	if err != nil {
		return err
	}
	sub, err := d.ModSub()
	if err != nil {
		return err
	}
	add, err := d.ModAdd()
	if err != nil {
		return err
	}
	mul2, err := d.MulSmall(2)
	if err != nil {
		return err
	}
	mul3, err := d.MulSmall(3)
	if err != nil {
		return err
	}
	div2, err := d.Div2()
	if err != nil {
		return err
	}
	ccopy, err := d.CCopy()
	if err != nil {
		return err
	}

	ptrTy := d.JacobianType()
	_, err = a.DefineInternalFunction(name, "curve", types.Void,
		[]asm.Param{
			{Name: "dst", Type: ptrTy},
			{Name: "p", Type: ptrTy},
			{Name: "q", Type: ptrTy},
		},
		[]asm.FuncAttr{asm.AttrHot},
		func(a *asm.Assembler, fn *ir.Func, block *ir.Block, params []value.Value) error {
			dst := asm.NewEcPointJac(params[0], d.curveTyJac, d.FieldTy)
			p := asm.NewEcPointJac(params[1], d.curveTyJac, d.FieldTy)
			q := asm.NewEcPointJac(params[2], d.curveTyJac, d.FieldTy)
			return d.emitAdd(a, block, dst, p, q, mul, sqr, sub, add, mul2, mul3, div2, ccopy)
		})
	return err
}

func (d *Descriptor) emitAdd(
	a *asm.Assembler, b *ir.Block,
	dst, p, q *asm.EcPointJac,
	mul, sqr, sub, add, mul2, mul3, div2, ccopy string,
) error {
	x1, y1, z1 := p.X(b), p.Y(b), p.Z(b)
	x2, y2, z2 := q.X(b), q.Y(b), q.Z(b)

	z1z1 := d.scratch(b)
	z2z2 := d.scratch(b)
	if err := d.call1(a, b, sqr, z1z1, z1); err != nil {
		return err
	}
	if err := d.call1(a, b, sqr, z2z2, z2); err != nil {
		return err
	}

	u1 := d.scratch(b)
	u2 := d.scratch(b)
	if err := d.call2(a, b, mul, u1, x1, z2z2); err != nil {
		return err
	}
	if err := d.call2(a, b, mul, u2, x2, z1z1); err != nil {
		return err
	}

	z2z2z2 := d.scratch(b)
	z1z1z1 := d.scratch(b)
	if err := d.call2(a, b, mul, z2z2z2, z2, z2z2); err != nil {
		return err
	}
	if err := d.call2(a, b, mul, z1z1z1, z1, z1z1); err != nil {
		return err
	}

	s1 := d.scratch(b)
	s2 := d.scratch(b)
	if err := d.call2(a, b, mul, s1, y1, z2z2z2); err != nil {
		return err
	}
	if err := d.call2(a, b, mul, s2, y2, z1z1z1); err != nil {
		return err
	}

	h := d.scratch(b)
	r := d.scratch(b)
	if err := d.call2(a, b, sub, h, u2, u1); err != nil {
		return err
	}
	if err := d.call2(a, b, sub, r, s2, s1); err != nil {
		return err
	}

	isDouble := b.NewAnd(d.fieldIsZero(b, h), d.fieldIsZero(b, r))

	// aOrY/bOrX alias H/U1 (the add-path inputs) by default, then
	// constant-time-overwrite with Y1/X1 when this turns out to be a
	// doubling — the "alias internal buffers to serve both the add and
	// double paths" step from the group law.
	aOrY := d.scratch(b)
	aOrY.Store(b, aOrY, h)
	if err := d.callFlag(a, b, ccopy, aOrY, y1, isDouble); err != nil {
		return err
	}

	bOrX := d.scratch(b)
	bOrX.Store(b, bOrX, u1)
	if err := d.callFlag(a, b, ccopy, bOrX, x1, isDouble); err != nil {
		return err
	}

	cVal := d.scratch(b) // HH_or_YY
	if err := d.call1(a, b, sqr, cVal, aOrY); err != nil {
		return err
	}
	dVal := d.scratch(b) // V_or_S
	if err := d.call2(a, b, mul, dVal, bOrX, cVal); err != nil {
		return err
	}
	eVal := d.scratch(b) // HHH (cube of aOrY; meaningful only on the add path)
	if err := d.call2(a, b, mul, eVal, aOrY, cVal); err != nil {
		return err
	}

	m, err := d.computeM(a, b, x1, z1, z1z1, mul, sqr, sub, add, mul3, div2)
	if err != nil {
		return err
	}

	// Add-path outputs.
	rsq := d.scratch(b)
	if err := d.call1(a, b, sqr, rsq, r); err != nil {
		return err
	}
	tAdd := d.scratch(b)
	if err := d.call2(a, b, sub, tAdd, rsq, eVal); err != nil {
		return err
	}
	twoD := d.scratch(b)
	if _, err := a.Call(b, mul2, twoD.Ptr, dVal.Ptr); err != nil {
		return err
	}
	x3Add := d.scratch(b)
	if err := d.call2(a, b, sub, x3Add, tAdd, twoD); err != nil {
		return err
	}
	diffAdd := d.scratch(b)
	if err := d.call2(a, b, sub, diffAdd, dVal, x3Add); err != nil {
		return err
	}
	t1Add := d.scratch(b)
	if err := d.call2(a, b, mul, t1Add, r, diffAdd); err != nil {
		return err
	}
	t2Add := d.scratch(b)
	if err := d.call2(a, b, mul, t2Add, s1, eVal); err != nil {
		return err
	}
	y3Add := d.scratch(b)
	if err := d.call2(a, b, sub, y3Add, t1Add, t2Add); err != nil {
		return err
	}
	z1z2 := d.scratch(b)
	if err := d.call2(a, b, mul, z1z2, z1, z2); err != nil {
		return err
	}
	z3Add := d.scratch(b)
	if err := d.call2(a, b, mul, z3Add, z1z2, h); err != nil {
		return err
	}

	// Double-path outputs.
	msq := d.scratch(b)
	if err := d.call1(a, b, sqr, msq, m); err != nil {
		return err
	}
	twoD2 := d.scratch(b)
	if _, err := a.Call(b, mul2, twoD2.Ptr, dVal.Ptr); err != nil {
		return err
	}
	x3Dbl := d.scratch(b)
	if err := d.call2(a, b, sub, x3Dbl, msq, twoD2); err != nil {
		return err
	}
	diffDbl := d.scratch(b)
	if err := d.call2(a, b, sub, diffDbl, dVal, x3Dbl); err != nil {
		return err
	}
	t1Dbl := d.scratch(b)
	if err := d.call2(a, b, mul, t1Dbl, m, diffDbl); err != nil {
		return err
	}
	csq := d.scratch(b)
	if err := d.call1(a, b, sqr, csq, cVal); err != nil {
		return err
	}
	y3Dbl := d.scratch(b)
	if err := d.call2(a, b, sub, y3Dbl, t1Dbl, csq); err != nil {
		return err
	}
	z3Dbl := d.scratch(b)
	if err := d.call2(a, b, mul, z3Dbl, y1, z1); err != nil {
		return err
	}

	// Select add-vs-double, then patch in the identity special cases.
	if err := d.callFlag(a, b, ccopy, x3Add, x3Dbl, isDouble); err != nil {
		return err
	}
	if err := d.callFlag(a, b, ccopy, y3Add, y3Dbl, isDouble); err != nil {
		return err
	}
	if err := d.callFlag(a, b, ccopy, z3Add, z3Dbl, isDouble); err != nil {
		return err
	}

	isPIdentity := d.fieldIsZero(b, z1)
	isQIdentity := d.fieldIsZero(b, z2)

	if err := d.callFlag(a, b, ccopy, x3Add, x2, isPIdentity); err != nil {
		return err
	}
	if err := d.callFlag(a, b, ccopy, y3Add, y2, isPIdentity); err != nil {
		return err
	}
	if err := d.callFlag(a, b, ccopy, z3Add, z2, isPIdentity); err != nil {
		return err
	}
	if err := d.callFlag(a, b, ccopy, x3Add, x1, isQIdentity); err != nil {
		return err
	}
	if err := d.callFlag(a, b, ccopy, y3Add, y1, isQIdentity); err != nil {
		return err
	}
	if err := d.callFlag(a, b, ccopy, z3Add, z1, isQIdentity); err != nil {
		return err
	}

	dstX, dstY, dstZ := dst.X(b), dst.Y(b), dst.Z(b)
	dstX.Store(b, dstX, x3Add)
	dstY.Store(b, dstY, y3Add)
	dstZ.Store(b, dstZ, z3Add)
	b.NewRet(nil)
	return nil
}

// computeM computes the doubling slope numerator M, dispatching on the
// curve's coefficient kind (classified once, at codegen time, per spec
// §4.3 step 5) into one of three fixed instruction sequences.
func (d *Descriptor) computeM(
	a *asm.Assembler, b *ir.Block,
	x1, z1, z1z1 *asm.Field,
	mul, sqr, sub, add, mul3, div2 string,
) (*asm.Field, error) {
	x1sq := d.scratch(b)
	if err := d.call1(a, b, sqr, x1sq, x1); err != nil {
		return nil, err
	}

	switch d.AKind {
	case AZero:
		three := d.scratch(b)
		if _, err := a.Call(b, mul3, three.Ptr, x1sq.Ptr); err != nil {
			return nil, err
		}
		m := d.scratch(b)
		if _, err := a.Call(b, div2, m.Ptr, three.Ptr); err != nil {
			return nil, err
		}
		return m, nil

	case AMinus3:
		sum := d.scratch(b)
		if err := d.call2(a, b, add, sum, x1, z1z1); err != nil {
			return nil, err
		}
		diff := d.scratch(b)
		if err := d.call2(a, b, sub, diff, x1, z1z1); err != nil {
			return nil, err
		}
		prod := d.scratch(b)
		if err := d.call2(a, b, mul, prod, sum, diff); err != nil {
			return nil, err
		}
		three := d.scratch(b)
		if _, err := a.Call(b, mul3, three.Ptr, prod.Ptr); err != nil {
			return nil, err
		}
		m := d.scratch(b)
		if _, err := a.Call(b, div2, m.Ptr, three.Ptr); err != nil {
			return nil, err
		}
		return m, nil

	default: // AGeneral
		z14 := d.scratch(b)
		if err := d.call1(a, b, sqr, z14, z1z1); err != nil {
			return nil, err
		}
		aConst := d.aConstant(b)
		aZ14 := d.scratch(b)
		if err := d.call2(a, b, mul, aZ14, aConst, z14); err != nil {
			return nil, err
		}
		three := d.scratch(b)
		if _, err := a.Call(b, mul3, three.Ptr, x1sq.Ptr); err != nil {
			return nil, err
		}
		sum := d.scratch(b)
		if err := d.call2(a, b, add, sum, three, aZ14); err != nil {
			return nil, err
		}
		m := d.scratch(b)
		if _, err := a.Call(b, div2, m.Ptr, sum.Ptr); err != nil {
			return nil, err
		}
		return m, nil
	}
}
