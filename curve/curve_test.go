// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curve

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ctcodegen/asm"
	"github.com/luxfi/ctcodegen/curves"
	"github.com/luxfi/ctcodegen/field"
)

const bn254FpHex = "30644E72E131A029B85045B68181585D97816A916871CA8D3C208C16D87CFD47"

func newTestCurve(t *testing.T) (*asm.Assembler, *Descriptor) {
	t.Helper()
	a, err := asm.New(asm.X86_64Linux, "curve_test")
	require.NoError(t, err)
	fd, err := field.NewDescriptor(a, "bn254fp", 254, bn254FpHex, 64)
	require.NoError(t, err)
	cd, err := NewDescriptor(fd, "bn254g1", "0", "3", 254, 64)
	require.NoError(t, err)
	require.Equal(t, AZero, cd.AKind)
	return a, cd
}

func TestAddIsEmittedOnce(t *testing.T) {
	a, d := newTestCurve(t)
	name1, err := d.Add("bn254g1")
	require.NoError(t, err)
	require.True(t, a.IsDefined(name1))
	name2, err := d.Add("bn254g1")
	require.NoError(t, err)
	require.Equal(t, name1, name2)
}

func TestDoubleIsEmittedOnce(t *testing.T) {
	a, d := newTestCurve(t)
	name1, err := d.Double("bn254g1")
	require.NoError(t, err)
	require.True(t, a.IsDefined(name1))
	name2, err := d.Double("bn254g1")
	require.NoError(t, err)
	require.Equal(t, name1, name2)
}

func TestDoubleRejectsNonZeroA(t *testing.T) {
	a, err := asm.New(asm.X86_64Linux, "curve_test_nonzero_a")
	require.NoError(t, err)
	fd, err := field.NewDescriptor(a, "bn254fp2", 254, bn254FpHex, 64)
	require.NoError(t, err)
	cd, err := NewDescriptor(fd, "weirdcurve", "5", "3", 254, 64)
	require.NoError(t, err)
	require.Equal(t, AGeneral, cd.AKind)

	_, err = cd.Double("weirdcurve")
	require.Error(t, err)
}

func TestMixedAddIsEmittedOnce(t *testing.T) {
	a, d := newTestCurve(t)
	name1, err := d.MixedAdd("bn254g1")
	require.NoError(t, err)
	require.True(t, a.IsDefined(name1))
	name2, err := d.MixedAdd("bn254g1")
	require.NoError(t, err)
	require.Equal(t, name1, name2)
}

func TestClassifyAMinus3(t *testing.T) {
	a, err := asm.New(asm.X86_64Linux, "curve_test_minus3")
	require.NoError(t, err)
	fd, err := field.NewDescriptor(a, "secp256k1fp", 256,
		"FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEFFFFFC2F", 64)
	require.NoError(t, err)
	minus3Hex := modMinus(fd, 3)
	cd, err := NewDescriptor(fd, "testminus3curve", minus3Hex, "7", 256, 64)
	require.NoError(t, err)
	require.Equal(t, AMinus3, cd.AKind)
}

func modMinus(fd *field.Descriptor, n int64) string {
	p := fd.Modulus.Big()
	r := new(big.Int).Sub(p, big.NewInt(n))
	return r.Text(16)
}

// montConv returns toMont/fromMont closures for d's base field, using
// the same R = 2^(numWords*w) mod p convention every Montgomery-domain
// operation in this module assumes.
func montConv(d *field.Descriptor) (toMont, fromMont func(*big.Int) *big.Int) {
	p := d.Modulus.Big()
	r := new(big.Int).Lsh(big.NewInt(1), uint(d.NumWords*d.W))
	r.Mod(r, p)
	rInv := new(big.Int).ModInverse(r, p)
	toMont = func(x *big.Int) *big.Int { return new(big.Int).Mod(new(big.Int).Mul(x, r), p) }
	fromMont = func(x *big.Int) *big.Int { return new(big.Int).Mod(new(big.Int).Mul(x, rInv), p) }
	return
}

func jacWords(x, y, z *big.Int, numWords, w int) []uint64 {
	out := make([]uint64, 0, 3*numWords)
	for _, v := range []*big.Int{x, y, z} {
		out = append(out, leWordsOf(v, numWords, w)...)
	}
	return out
}

func leWordsOf(x *big.Int, numWords, w int) []uint64 {
	words := make([]uint64, numWords)
	v := new(big.Int).Set(x)
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(w)), big.NewInt(1))
	word := new(big.Int)
	for i := 0; i < numWords; i++ {
		word.And(v, mask)
		words[i] = word.Uint64()
		v.Rsh(v, uint(w))
	}
	return words
}

func leWordsToBig(words []uint64, w int) *big.Int {
	x := new(big.Int)
	for i := len(words) - 1; i >= 0; i-- {
		x.Lsh(x, uint(w))
		x.Or(x, new(big.Int).SetUint64(words[i]))
	}
	return x
}

// TestScenarioSecp256k1DoubleGeneratorYieldsTwoG exercises dbl-2009-l
// against secp256k1's published generator G, checking the result (after
// Jacobian-to-affine normalization) equals the independently known
// affine coordinates of 2G.
func TestScenarioSecp256k1DoubleGeneratorYieldsTwoG(t *testing.T) {
	a, err := asm.New(asm.X86_64Linux, "curve_test_secp256k1_dbl")
	require.NoError(t, err)
	preset, err := curves.NewSecp256k1(a)
	require.NoError(t, err)
	d := preset.G1

	name, err := d.Double("secp256k1")
	require.NoError(t, err)
	fn, ok := a.Func(name)
	require.True(t, ok)

	gx, _ := new(big.Int).SetString("79BE667EF9DCBBAC55A06295CE870B07029BFCDB2DCE28D959F2815B16F81798", 16)
	gy, _ := new(big.Int).SetString("483ADA7726A3C4655DA4FBFC0E1108A8FD17B448A68554199C47D08FFB10D4B8", 16)
	want2Gx, _ := new(big.Int).SetString("C6047F9441ED7D6D3045406E95C07CD85C778E4B8CEF3CA7ABAC09B95C709EE5", 16)
	want2Gy, _ := new(big.Int).SetString("1AE168FEA63DC339A3C58419466CEAEEF7F632653266D0E1236431A950CFE52A", 16)
	p := d.Modulus.Big()
	want2Gx.Mod(want2Gx, p)
	want2Gy.Mod(want2Gy, p)

	toMont, fromMont := montConv(d.Descriptor)
	pWords := jacWords(toMont(gx), toMont(gy), toMont(big.NewInt(1)), d.NumWords, d.W)

	dst := &asm.Buffer{Words: make([]uint64, 3*d.NumWords), W: d.W}
	in := asm.NewInterpreter()
	require.NoError(t, in.RunVoidFunc(fn, dst, &asm.Buffer{Words: pWords, W: d.W}))

	xMont := leWordsToBig(dst.Words[0*d.NumWords:1*d.NumWords], d.W)
	yMont := leWordsToBig(dst.Words[1*d.NumWords:2*d.NumWords], d.W)
	zMont := leWordsToBig(dst.Words[2*d.NumWords:3*d.NumWords], d.W)
	x, y, z := fromMont(xMont), fromMont(yMont), fromMont(zMont)

	zInv := new(big.Int).ModInverse(z, p)
	zInv2 := new(big.Int).Mod(new(big.Int).Mul(zInv, zInv), p)
	zInv3 := new(big.Int).Mod(new(big.Int).Mul(zInv2, zInv), p)
	gotX := new(big.Int).Mod(new(big.Int).Mul(x, zInv2), p)
	gotY := new(big.Int).Mod(new(big.Int).Mul(y, zInv3), p)

	require.Equal(t, want2Gx, gotX)
	require.Equal(t, want2Gy, gotY)
}

// TestScenarioBLS12381AddPointPlusNegationIsIdentity checks the unified
// add-or-double formula's identity output: adding a BLS12-381 G1 point
// to its negation (same X, Y negated mod p) must produce Z=0, the
// Jacobian representation of the point at infinity.
func TestScenarioBLS12381AddPointPlusNegationIsIdentity(t *testing.T) {
	a, err := asm.New(asm.X86_64Linux, "curve_test_bls12381_add_identity")
	require.NoError(t, err)
	preset, err := curves.NewBLS12381(a)
	require.NoError(t, err)
	d := preset.G1

	name, err := d.Add("bls12381g1")
	require.NoError(t, err)
	fn, ok := a.Func(name)
	require.True(t, ok)

	p := d.Modulus.Big()
	gx, _ := new(big.Int).SetString("17F1D3A73197D7942695638C4FA9AC0FC3688C4F9774B905A14E3A3F171BAC586C55E83FF97A1AEFFB3AF00ADB22C6BB", 16)
	gy, _ := new(big.Int).SetString("08B3F481E3AAA0F1A09E30ED741D8AE4FCF5E095D5D00AF600DB18CB2C04B3EDD03CC744A2888AE40CAA232946C5E7E1", 16)
	negGy := new(big.Int).Mod(new(big.Int).Neg(gy), p)

	toMont, _ := montConv(d.Descriptor)
	pWords := jacWords(toMont(gx), toMont(gy), toMont(big.NewInt(1)), d.NumWords, d.W)
	qWords := jacWords(toMont(gx), toMont(negGy), toMont(big.NewInt(1)), d.NumWords, d.W)

	dst := &asm.Buffer{Words: make([]uint64, 3*d.NumWords), W: d.W}
	in := asm.NewInterpreter()
	require.NoError(t, in.RunVoidFunc(fn, dst,
		&asm.Buffer{Words: pWords, W: d.W},
		&asm.Buffer{Words: qWords, W: d.W},
	))

	zWords := dst.Words[2*d.NumWords : 3*d.NumWords]
	for _, w := range zWords {
		require.Equal(t, uint64(0), w, "Jacobian Z must be 0 for P + (-P)")
	}
}
