// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package curve lowers short-Weierstrass elliptic-curve group-law
// operations (Jacobian unified add-or-double, "dbl-2009-l" doubling,
// mixed Jacobian+affine addition) onto a field.Descriptor's arithmetic,
// following the same memoized-emission discipline as package field.
package curve

import (
	"fmt"
	"math/big"

	"github.com/llir/llvm/ir/types"

	"github.com/luxfi/ctcodegen/bignum"
	"github.com/luxfi/ctcodegen/cgerr"
	"github.com/luxfi/ctcodegen/field"
)

// ACoeffKind classifies the curve coefficient a for the add formula's
// three-way dispatch: the choice is made once, at
// codegen time, from the curve's fixed parameters — never re-decided per
// point, since a is a compile-time constant of the curve, not a runtime
// value carried in a point's representation.
type ACoeffKind int

const (
	AZero ACoeffKind = iota
	AMinus3
	AGeneral
)

// Descriptor describes a short-Weierstrass curve y² = x³ + a·x + b over
// a field.Descriptor's base field, plus the scalar field's bit width and
// limb count (needed by MSM's window extraction, not by the group law
// itself).
type Descriptor struct {
	*field.Descriptor

	A, B       *bignum.BigNum
	AKind      ACoeffKind
	ScalarBits int
	ScalarW    int
	ScalarNum  int

	curveTyJac *types.ArrayType // [3]FieldTy: X, Y, Z
	curveTyAff *types.ArrayType // [2]FieldTy: X, Y
}

// NewDescriptor configures a curve over an already-configured base field,
// classifying the coefficient a for the add formula's dispatch.
func NewDescriptor(
	base *field.Descriptor,
	name string,
	aHex, bHex string,
	scalarBits, scalarW int,
) (*Descriptor, error) {
	a, err := bignum.FromHex(aHex, bitLenOrZero(aHex))
	if err != nil {
		return nil, cgerr.NewConfigurationError("curve.NewDescriptor", fmt.Errorf("curve %q coefficient a: %w", name, err))
	}
	b, err := bignum.FromHex(bHex, bitLenOrZero(bHex))
	if err != nil {
		return nil, cgerr.NewConfigurationError("curve.NewDescriptor", fmt.Errorf("curve %q coefficient b: %w", name, err))
	}

	kind := classifyA(a, base.Modulus)

	scalarNum := (scalarBits + scalarW - 1) / scalarW

	curveTyJac := types.NewArray(3, base.FieldTy)
	curveTyAff := types.NewArray(2, base.FieldTy)

	return &Descriptor{
		Descriptor: base,
		A:          a,
		B:          b,
		AKind:      kind,
		ScalarBits: scalarBits,
		ScalarW:    scalarW,
		ScalarNum:  scalarNum,
		curveTyJac: curveTyJac,
		curveTyAff: curveTyAff,
	}, nil
}

// JacobianType returns the IR array type backing a 3-field-element
// Jacobian point (X, Y, Z).
func (d *Descriptor) JacobianType() *types.ArrayType { return d.curveTyJac }

// AffineType returns the IR array type backing a 2-field-element affine
// point (X, Y).
func (d *Descriptor) AffineType() *types.ArrayType { return d.curveTyAff }

// SymPrefix returns the stable internal-symbol prefix for this curve's
// group-law operations, combining the curve's own name with the base
// field's word/limb shape, e.g. "bls12381g1_u64x6".
func (d *Descriptor) SymPrefix(curveName string) string {
	return fmt.Sprintf("%s_%s", curveName, d.Descriptor.SymPrefix())
}

func classifyA(a *bignum.BigNum, modulus *bignum.BigNum) ACoeffKind {
	av := a.Big()
	if av.Sign() == 0 {
		return AZero
	}
	minus3 := new(big.Int).Sub(modulus.Big(), big.NewInt(3))
	if av.Cmp(minus3) == 0 {
		return AMinus3
	}
	return AGeneral
}

func bitLenOrZero(hexStr string) int {
	x := new(big.Int)
	if _, ok := x.SetString(trimHexPrefix(hexStr), 16); !ok {
		return 0
	}
	if x.Sign() == 0 {
		return 0
	}
	return x.BitLen()
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && (s[0:2] == "0x" || s[0:2] == "0X") {
		return s[2:]
	}
	return s
}
