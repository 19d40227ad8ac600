// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package curves holds ready-made field.Descriptor/curve.Descriptor
// presets for the three pairing-friendly-or-ECDSA curves this compiler's
// test suite and downstream callers reach for most often: BLS12-381,
// BN254 (alt_bn128), and secp256k1. Every modulus and curve coefficient
// here is a published constant sourced directly from `gnark-crypto`
// (BLS12-381/BN254) or `decred/dcrd/dcrec/secp256k1` (secp256k1),
// gathered into a reusable preset table instead of one-off inline
// constants at each call site.
package curves

import (
	"github.com/luxfi/ctcodegen/asm"
	"github.com/luxfi/ctcodegen/curve"
	"github.com/luxfi/ctcodegen/field"
)

// Preset bundles a base-field descriptor, a scalar-field descriptor, and
// the G1 curve.Descriptor over the base field — everything a single
// call site needs to emit field/curve/MSM kernels for one named curve.
type Preset struct {
	Name string
	Fp   *field.Descriptor // base field
	Fr   *field.Descriptor // scalar field
	G1   *curve.Descriptor
}

const (
	bls12381FpHex = "1A0111EA397FE69A4B1BA7B6434BACD764774B84F38512BF6730D2A0F6B0F6241EABFFFEB153FFFFB9FEFFFFFFFFAAAB"
	bls12381FrHex = "73EDA753299D7D483339D80809A1D80553BDA402FFFE5BFEFFFFFFFF00000001"

	bn254FpHex = "30644E72E131A029B85045B68181585D97816A916871CA8D3C208C16D87CFD47"
	bn254FrHex = "30644E72E131A029B85045B68181585D2833E84879B9709143E1F593F0000001"

	secp256k1FpHex = "FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEFFFFFC2F"
	secp256k1FrHex = "FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD0364141"
)

// NewBLS12381 builds the BLS12-381 Fp/Fr/G1 preset against the given
// Assembler. a=0, b=4 is BLS12-381's G1 short-Weierstrass equation
// (y² = x³ + 4), a 381-bit base field letting the AZero doubling formula
// (curve.Double) apply directly.
func NewBLS12381(a *asm.Assembler) (*Preset, error) {
	fp, err := field.NewDescriptor(a, "bls12381fp", 381, bls12381FpHex, 64)
	if err != nil {
		return nil, err
	}
	fr, err := field.NewDescriptor(a, "bls12381fr", 255, bls12381FrHex, 64)
	if err != nil {
		return nil, err
	}
	g1, err := curve.NewDescriptor(fp, "bls12381g1", "0", "4", 255, 64)
	if err != nil {
		return nil, err
	}
	return &Preset{Name: "bls12381", Fp: fp, Fr: fr, G1: g1}, nil
}

// NewBN254 builds the BN254 (alt_bn128) Fp/Fr/G1 preset. a=0, b=3 is
// BN254's G1 equation (y² = x³ + 3), the same curve Ethereum's
// ecAdd/ecMul/ecPairing precompiles operate over.
func NewBN254(a *asm.Assembler) (*Preset, error) {
	fp, err := field.NewDescriptor(a, "bn254fp", 254, bn254FpHex, 64)
	if err != nil {
		return nil, err
	}
	fr, err := field.NewDescriptor(a, "bn254fr", 254, bn254FrHex, 64)
	if err != nil {
		return nil, err
	}
	g1, err := curve.NewDescriptor(fp, "bn254g1", "0", "3", 254, 64)
	if err != nil {
		return nil, err
	}
	return &Preset{Name: "bn254", Fp: fp, Fr: fr, G1: g1}, nil
}

// NewSecp256k1 builds the secp256k1 Fp/Fr preset (a=0, b=7), sourced
// from `decred/dcrd/dcrec/secp256k1/v4`'s published parameters. There is
// no G1 preset name collision risk here since secp256k1 has only the one
// curve.
func NewSecp256k1(a *asm.Assembler) (*Preset, error) {
	fp, err := field.NewDescriptor(a, "secp256k1fp", 256, secp256k1FpHex, 64)
	if err != nil {
		return nil, err
	}
	fr, err := field.NewDescriptor(a, "secp256k1fr", 256, secp256k1FrHex, 64)
	if err != nil {
		return nil, err
	}
	g1, err := curve.NewDescriptor(fp, "secp256k1", "0", "7", 256, 64)
	if err != nil {
		return nil, err
	}
	return &Preset{Name: "secp256k1", Fp: fp, Fr: fr, G1: g1}, nil
}
