// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package field

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ctcodegen/asm"
)

// bn254FrHex is the BN254 scalar field modulus, 254 bits, used
// throughout these tests as a representative spareBits>=1 field.
const bn254FrHex = "30644E72E131A029B85045B68181585D2833E84879B9709143E1F593F0000001"

func newTestDescriptor(t *testing.T) (*asm.Assembler, *Descriptor) {
	t.Helper()
	a, err := asm.New(asm.X86_64Linux, "field_test")
	require.NoError(t, err)
	d, err := NewDescriptor(a, "bn254fr", 254, bn254FrHex, 64)
	require.NoError(t, err)
	return a, d
}

func TestModAddIsEmittedOnce(t *testing.T) {
	_, d := newTestDescriptor(t)
	name1, err := d.ModAdd()
	require.NoError(t, err)
	name2, err := d.ModAdd()
	require.NoError(t, err)
	require.Equal(t, name1, name2)
	require.Equal(t, "_mod_add_u64x4", name1)
}

func TestModSubIsEmittedOnce(t *testing.T) {
	_, d := newTestDescriptor(t)
	name1, err := d.ModSub()
	require.NoError(t, err)
	name2, err := d.ModSub()
	require.NoError(t, err)
	require.Equal(t, name1, name2)
}

func TestMontgomeryMulIsEmittedOnce(t *testing.T) {
	a, d := newTestDescriptor(t)
	name, err := d.MontgomeryMul()
	require.NoError(t, err)
	require.True(t, a.IsDefined(name))
	name2, err := d.MontgomeryMul()
	require.NoError(t, err)
	require.Equal(t, name, name2)
}

func TestMontgomeryMulUnreducedRejectsInsufficientSpareBits(t *testing.T) {
	_, d := newTestDescriptor(t)
	d.SpareBits = 1
	_, err := d.MontgomeryMulUnreduced()
	require.Error(t, err)
}

func TestMontgomerySquareIsDistinctFromMul(t *testing.T) {
	_, d := newTestDescriptor(t)
	mulName, err := d.MontgomeryMul()
	require.NoError(t, err)
	sqrName, err := d.MontgomerySquare()
	require.NoError(t, err)
	require.NotEqual(t, mulName, sqrName)
}

func TestMontgomeryNSquareChainsSquareCalls(t *testing.T) {
	a, d := newTestDescriptor(t)
	name, err := d.MontgomeryNSquare(4)
	require.NoError(t, err)
	require.True(t, a.IsDefined(name))
	require.Contains(t, name, "n4")
}

func TestMontgomeryNSquareRejectsZero(t *testing.T) {
	_, d := newTestDescriptor(t)
	_, err := d.MontgomeryNSquare(0)
	require.Error(t, err)
}

func TestCCopyCSetZeroCSetOneAreEmitted(t *testing.T) {
	a, d := newTestDescriptor(t)
	for _, fn := range []func() (string, error){d.CCopy, d.CSetZero, d.CSetOne} {
		name, err := fn()
		require.NoError(t, err)
		require.True(t, a.IsDefined(name))
	}
}

func TestCAddAndCSubDependOnModAddModSub(t *testing.T) {
	a, d := newTestDescriptor(t)
	caddName, err := d.CAdd()
	require.NoError(t, err)
	require.True(t, a.IsDefined(caddName))
	require.True(t, a.IsDefined(d.symModAdd()))

	csubName, err := d.CSub()
	require.NoError(t, err)
	require.True(t, a.IsDefined(csubName))
	require.True(t, a.IsDefined(d.symModSub()))
}

func TestNegIsEmitted(t *testing.T) {
	a, d := newTestDescriptor(t)
	name, err := d.Neg()
	require.NoError(t, err)
	require.True(t, a.IsDefined(name))
}

func TestDiv2IsEmitted(t *testing.T) {
	a, d := newTestDescriptor(t)
	name, err := d.Div2()
	require.NoError(t, err)
	require.True(t, a.IsDefined(name))
}

func TestMulSmallSupportedValues(t *testing.T) {
	a, d := newTestDescriptor(t)
	for _, n := range []int{0, 1, 2, 3, 4, 8, 12, 15, 21} {
		name, err := d.MulSmall(n)
		require.NoErrorf(t, err, "n=%d", n)
		require.True(t, a.IsDefined(name))
	}
}

func TestMulSmallRejectsUnsupportedValue(t *testing.T) {
	_, d := newTestDescriptor(t)
	_, err := d.MulSmall(13)
	require.Error(t, err)
}

func TestDefineGlobalsProducesFourGlobals(t *testing.T) {
	a, d := newTestDescriptor(t)
	g := d.DefineGlobals()
	require.NotNil(t, g.Modulus)
	require.NotNil(t, g.RModP)
	require.NotNil(t, g.R2ModP)
	require.NotNil(t, g.HalfPPlus1)
	require.Len(t, a.Module.Globals, 4)
}

// bls12381FpHex is the BLS12-381 base-field modulus, 381 bits.
const bls12381FpHex = "1a0111ea397fe69a4b1ba7b6434bacd764774b84f38512bf6730d2a0f6b0f6241eabfffeb153ffffb9feffffffffaaab"

// TestScenarioBLS12381FpAddWrapsToZero exercises ModAdd's wraparound path
// over a real 6-word field: (p-1) + 1 mod p must land on 0 across every
// word, not just the low one.
func TestScenarioBLS12381FpAddWrapsToZero(t *testing.T) {
	a, err := asm.New(asm.X86_64Linux, "field_test_bls12381")
	require.NoError(t, err)
	d, err := NewDescriptor(a, "bls12381fp", 381, bls12381FpHex, 64)
	require.NoError(t, err)
	require.Equal(t, 6, d.NumWords)
	require.Equal(t, 3, d.SpareBits)

	name, err := d.ModAdd()
	require.NoError(t, err)
	fn, ok := a.Func(name)
	require.True(t, ok)

	pMinus1 := []uint64{
		0xb9feffffffffaaaa, 0x1eabfffeb153ffff, 0x6730d2a0f6b0f624,
		0x64774b84f38512bf, 0x4b1ba7b6434bacd7, 0x1a0111ea397fe69a,
	}
	one := []uint64{1, 0, 0, 0, 0, 0}
	dst := &asm.Buffer{Words: make([]uint64, 6), W: 64}

	in := asm.NewInterpreter()
	require.NoError(t, in.RunVoidFunc(fn,
		dst,
		&asm.Buffer{Words: pMinus1, W: 64},
		&asm.Buffer{Words: one, W: 64},
	))
	require.Equal(t, []uint64{0, 0, 0, 0, 0, 0}, dst.Words)
}

// TestScenarioBN254FrMontgomeryMulRoundTrip checks the CIOS Montgomery
// multiply against the two conversion identities any Montgomery-domain
// descriptor must satisfy: MontMul(1, R²) lifts the plain integer 1 into
// Montgomery form (producing R mod p, the Montgomery representation of
// 1), and MontMul(R, R) — squaring that Montgomery-form 1 — reproduces
// it exactly, since the Montgomery image of 1 is a fixed point of
// Montgomery multiplication.
func TestScenarioBN254FrMontgomeryMulRoundTrip(t *testing.T) {
	_, d := newTestDescriptor(t)
	name, err := d.MontgomeryMul()
	require.NoError(t, err)
	a := d.Assembler()
	fn, ok := a.Func(name)
	require.True(t, ok)

	rModP := d.Consts.RModP.Big()
	r2ModP := d.Consts.R2ModP.Big()
	rWords := wordsOf(rModP, d.NumWords, d.W)
	r2Words := wordsOf(r2ModP, d.NumWords, d.W)
	oneWords := make([]uint64, d.NumWords)
	oneWords[0] = 1

	run := func(x, y []uint64) []uint64 {
		dst := &asm.Buffer{Words: make([]uint64, d.NumWords), W: d.W}
		in := asm.NewInterpreter()
		require.NoError(t, in.RunVoidFunc(fn, dst,
			&asm.Buffer{Words: x, W: d.W},
			&asm.Buffer{Words: y, W: d.W},
		))
		return dst.Words
	}

	require.Equal(t, rWords, run(oneWords, r2Words))
	require.Equal(t, rWords, run(rWords, rWords))
}

// TestScenarioBLS12381BitLengthMismatchRejected checks that declaring
// BLS12-381's 381-bit modulus with a mismatched bit count (off by one,
// either direction) is a ConfigurationError, not silently accepted or a
// panic — the same invariant bignum.FromBig enforces, exercised here at
// the field.NewDescriptor entry point callers actually use.
func TestScenarioBLS12381BitLengthMismatchRejected(t *testing.T) {
	a, err := asm.New(asm.X86_64Linux, "field_test_bls12381_badbits")
	require.NoError(t, err)
	_, err = NewDescriptor(a, "bls12381fp_wrong", 380, bls12381FpHex, 64)
	require.Error(t, err)
}

func TestSpareBitsZeroFieldRoutesModAddThroughWidenedPath(t *testing.T) {
	// secp256k1 Fp = 2^256 - 2^32 - 977 has zero spare bits at w=64,
	// n=4: exercises emitModAddMayOverflow instead of the common path.
	a, err := asm.New(asm.X86_64Linux, "field_test_secp")
	require.NoError(t, err)
	d, err := NewDescriptor(a, "secp256k1fp", 256,
		"FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEFFFFFC2F", 64)
	require.NoError(t, err)
	require.Equal(t, 0, d.SpareBits)

	name, err := d.ModAdd()
	require.NoError(t, err)
	require.True(t, a.IsDefined(name))
}
