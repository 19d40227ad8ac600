// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package msm

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ctcodegen/asm"
	"github.com/luxfi/ctcodegen/curve"
	"github.com/luxfi/ctcodegen/curves"
)

func newTestMSMCurve(t *testing.T) (*asm.Assembler, *curve.Descriptor) {
	t.Helper()
	a, err := asm.New(asm.X86_64Linux, "msm_test")
	require.NoError(t, err)
	p, err := curves.NewSecp256k1(a)
	require.NoError(t, err)
	return a, p.G1
}

func TestGenMSMIsEmittedOnce(t *testing.T) {
	a, d := newTestMSMCurve(t)
	name1, err := GenMSM(d, "secp256k1", 3, 8)
	require.NoError(t, err)
	require.True(t, a.IsDefined(name1))
	name2, err := GenMSM(d, "secp256k1", 3, 8)
	require.NoError(t, err)
	require.Equal(t, name1, name2)
}

func TestGenMSMRejectsOutOfRangeC(t *testing.T) {
	_, d := newTestMSMCurve(t)
	_, err := GenMSM(d, "secp256k1", 0, 8)
	require.Error(t, err)
	_, err = GenMSM(d, "secp256k1", 33, 8)
	require.Error(t, err)
}

func TestGenMSMRejectsNonPositiveN(t *testing.T) {
	_, d := newTestMSMCurve(t)
	_, err := GenMSM(d, "secp256k1", 3, 0)
	require.Error(t, err)
}

// leWords splits a non-negative big.Int into n little-endian 64-bit
// words, the same layout field.Descriptor-backed buffers use.
func leWords(x *big.Int, n int) []uint64 {
	words := make([]uint64, n)
	v := new(big.Int).Set(x)
	mask := new(big.Int).SetUint64(^uint64(0))
	word := new(big.Int)
	for i := 0; i < n; i++ {
		word.And(v, mask)
		words[i] = word.Uint64()
		v.Rsh(v, 64)
	}
	return words
}

func fromLEWords(words []uint64) *big.Int {
	x := new(big.Int)
	for i := len(words) - 1; i >= 0; i-- {
		x.Lsh(x, 64)
		x.Or(x, new(big.Int).SetUint64(words[i]))
	}
	return x
}

// TestMSMSmokeTestSecp256k1 is the MSM smoke-test acceptance scenario:
// N=8, c=3, scalars [1,2,0,3,0,0,5,1] (summing to 12) applied to the
// same point P (secp256k1's generator) must produce 12*P. Points are
// fed to the kernel in Montgomery form (the domain every field/curve op
// this compiler emits operates in); scalars are plain bit patterns, not
// field elements, so they pass through unconverted.
func TestMSMSmokeTestSecp256k1(t *testing.T) {
	const (
		c = 3
		n = 8
	)
	a, d := newTestMSMCurve(t)
	kernelName, err := GenMSM(d, "secp256k1", c, n)
	require.NoError(t, err)
	fn, ok := a.Func(kernelName)
	require.True(t, ok)

	p := d.Modulus.Big()
	gx, _ := new(big.Int).SetString("79BE667EF9DCBBAC55A06295CE870B07029BFCDB2DCE28D959F2815B16F81798", 16)
	gy, _ := new(big.Int).SetString("483ADA7726A3C4655DA4FBFC0E1108A8FD17B448A68554199C47D08FFB10D4B8", 16)

	// Independently known 12*G affine coordinates (computed offline via
	// the textbook affine doubling/addition formula, cross-checked
	// against the published 2*G test vector).
	want12Gx, _ := new(big.Int).SetString("D01115D548E7561B15C38F004D734633687CF4419620095BC5B0F47070AFE85A", 16)
	want12Gy, _ := new(big.Int).SetString("A9F34FFDC815E0D7A8B64537E17BD81579238C5DD9A86D526B051B13F4062327", 16)
	want12Gx.Mod(want12Gx, p)
	want12Gy.Mod(want12Gy, p)

	r := new(big.Int).Exp(big.NewInt(2), big.NewInt(int64(d.NumWords*d.W)), p)
	rInv := new(big.Int).ModInverse(r, p)
	toMont := func(x *big.Int) *big.Int { return new(big.Int).Mod(new(big.Int).Mul(x, r), p) }

	gxMontWords := leWords(toMont(gx), d.NumWords)
	gyMontWords := leWords(toMont(gy), d.NumWords)

	pointWords := make([]uint64, 0, n*2*d.NumWords)
	for i := 0; i < n; i++ {
		pointWords = append(pointWords, gxMontWords...)
		pointWords = append(pointWords, gyMontWords...)
	}

	scalars := []int64{1, 2, 0, 3, 0, 0, 5, 1}
	scalarWords := make([]uint64, 0, n*d.ScalarNum)
	for _, s := range scalars {
		row := leWords(big.NewInt(s), d.ScalarNum)
		scalarWords = append(scalarWords, row...)
	}

	resultBuf := &asm.Buffer{Words: make([]uint64, 3*d.NumWords), W: d.W}
	pointsBuf := &asm.Buffer{Words: pointWords, W: d.W}
	scalarsBuf := &asm.Buffer{Words: scalarWords, W: d.W}

	in := asm.NewInterpreter()
	require.NoError(t, in.RunVoidFunc(fn, resultBuf, scalarsBuf, pointsBuf))

	xMont := fromLEWords(resultBuf.Words[0*d.NumWords : 1*d.NumWords])
	yMont := fromLEWords(resultBuf.Words[1*d.NumWords : 2*d.NumWords])
	zMont := fromLEWords(resultBuf.Words[2*d.NumWords : 3*d.NumWords])

	fromMont := func(x *big.Int) *big.Int { return new(big.Int).Mod(new(big.Int).Mul(x, rInv), p) }
	x := fromMont(xMont)
	y := fromMont(yMont)
	z := fromMont(zMont)
	require.NotEqual(t, int64(0), z.Sign(), "result must not be the identity point")

	zInv := new(big.Int).ModInverse(z, p)
	zInv2 := new(big.Int).Mod(new(big.Int).Mul(zInv, zInv), p)
	zInv3 := new(big.Int).Mod(new(big.Int).Mul(zInv2, zInv), p)
	gotX := new(big.Int).Mod(new(big.Int).Mul(x, zInv2), p)
	gotY := new(big.Int).Mod(new(big.Int).Mul(y, zInv3), p)

	require.Equal(t, want12Gx, gotX)
	require.Equal(t, want12Gy, gotY)
}

// TestMSMBucketIndexBranchIsTheDocumentedConstantTimeException checks
// that the emitted kernel does contain a genuine data-dependent branch
// (the bucket-index nonzero check) and that asm.CheckConstantTime only
// flags it when "scalars" is explicitly named secret — MSM scalars are
// public proof-system exponents, so real callers never pass that name,
// and the branch is allowed to stand.
func TestMSMBucketIndexBranchIsTheDocumentedConstantTimeException(t *testing.T) {
	a, d := newTestMSMCurve(t)
	name, err := GenMSM(d, "secp256k1", 3, 8)
	require.NoError(t, err)
	fn, ok := a.Func(name)
	require.True(t, ok)

	require.NoError(t, asm.CheckConstantTime(fn))
	require.Error(t, asm.CheckConstantTime(fn, "scalars"))
}
