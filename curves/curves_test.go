// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curves

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ctcodegen/asm"
	"github.com/luxfi/ctcodegen/curve"
)

func TestNewBLS12381(t *testing.T) {
	a, err := asm.New(asm.X86_64Linux, "curves_test_bls")
	require.NoError(t, err)
	p, err := NewBLS12381(a)
	require.NoError(t, err)
	require.Equal(t, 381, p.Fp.Bits)
	require.Equal(t, curve.AZero, p.G1.AKind)
}

func TestNewBN254(t *testing.T) {
	a, err := asm.New(asm.X86_64Linux, "curves_test_bn254")
	require.NoError(t, err)
	p, err := NewBN254(a)
	require.NoError(t, err)
	require.Equal(t, 254, p.Fp.Bits)
	require.Equal(t, curve.AZero, p.G1.AKind)
}

func TestNewSecp256k1(t *testing.T) {
	a, err := asm.New(asm.X86_64Linux, "curves_test_secp256k1")
	require.NoError(t, err)
	p, err := NewSecp256k1(a)
	require.NoError(t, err)
	require.Equal(t, 256, p.Fp.Bits)
	require.Equal(t, curve.AZero, p.G1.AKind)
}

func TestBLS12381G1AddIsEmittable(t *testing.T) {
	a, err := asm.New(asm.X86_64Linux, "curves_test_bls_add")
	require.NoError(t, err)
	p, err := NewBLS12381(a)
	require.NoError(t, err)
	name, err := p.G1.Add("bls12381g1")
	require.NoError(t, err)
	require.True(t, a.IsDefined(name))
}
