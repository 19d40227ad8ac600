// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package asm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ctcodegen/asm"
	"github.com/luxfi/ctcodegen/field"
)

// secp256k1FpHex is the same published base-field modulus curves.go
// uses; duplicated here (rather than importing the curves package) to
// keep this interpreter-only test self-contained.
const secp256k1FpHex = "FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEFFFFFC2F"

// newFourWordField builds a real 256-bit, 4-word field descriptor.
// NumWords must be >= the aggregate-wrap threshold (3) for its FieldTy
// array params to actually pass by pointer — a smaller field would make
// DefineInternalFunction pass the array by value instead, which isn't
// the calling convention this interpreter (or any real field/curve op)
// is built against.
func newFourWordField(t *testing.T) *field.Descriptor {
	t.Helper()
	a, err := asm.New(asm.X86_64Linux, "interp_test")
	require.NoError(t, err)
	d, err := field.NewDescriptor(a, "secp256k1fp", 256, secp256k1FpHex, 64)
	require.NoError(t, err)
	require.Equal(t, 0, d.SpareBits) // exercises ModAdd's may-overflow path
	return d
}

func fieldBuf(words ...uint64) *asm.Buffer {
	return &asm.Buffer{Words: words, W: 64}
}

func runField2(t *testing.T, a *asm.Assembler, name string, x, y []uint64) []uint64 {
	t.Helper()
	fn, ok := a.Func(name)
	require.True(t, ok)
	dst := fieldBuf(0, 0, 0, 0)
	in := asm.NewInterpreter()
	require.NoError(t, in.RunVoidFunc(fn, dst, fieldBuf(x...), fieldBuf(y...)))
	return dst.Words
}

func TestInterpreterModAdd(t *testing.T) {
	d := newFourWordField(t)
	name, err := d.ModAdd()
	require.NoError(t, err)

	cases := []struct {
		x, y, want []uint64
	}{
		{
			x:    []uint64{5, 0, 0, 0},
			y:    []uint64{7, 0, 0, 0},
			want: []uint64{12, 0, 0, 0},
		},
		{
			// (p-1) + 5 mod p = 4
			x:    []uint64{0xfffffffefffffc2e, 0xffffffffffffffff, 0xffffffffffffffff, 0xffffffffffffffff},
			y:    []uint64{5, 0, 0, 0},
			want: []uint64{4, 0, 0, 0},
		},
		{
			// (p-1) + (p-1) mod p = p-2
			x:    []uint64{0xfffffffefffffc2e, 0xffffffffffffffff, 0xffffffffffffffff, 0xffffffffffffffff},
			y:    []uint64{0xfffffffefffffc2e, 0xffffffffffffffff, 0xffffffffffffffff, 0xffffffffffffffff},
			want: []uint64{0xfffffffefffffc2d, 0xffffffffffffffff, 0xffffffffffffffff, 0xffffffffffffffff},
		},
		{
			x:    []uint64{0, 0, 0, 0},
			y:    []uint64{0, 0, 0, 0},
			want: []uint64{0, 0, 0, 0},
		},
	}
	for _, c := range cases {
		got := runField2(t, d.Assembler(), name, c.x, c.y)
		require.Equal(t, c.want, got)
	}
}

func TestInterpreterModSub(t *testing.T) {
	d := newFourWordField(t)
	name, err := d.ModSub()
	require.NoError(t, err)

	// 5 - 7 mod p wraps to p - 2.
	got := runField2(t, d.Assembler(), name, []uint64{5, 0, 0, 0}, []uint64{7, 0, 0, 0})
	require.Equal(t, []uint64{0xfffffffefffffc2d, 0xffffffffffffffff, 0xffffffffffffffff, 0xffffffffffffffff}, got)

	got = runField2(t, d.Assembler(), name, []uint64{10, 0, 0, 0}, []uint64{5, 0, 0, 0})
	require.Equal(t, []uint64{5, 0, 0, 0}, got)
}

// TestInterpreterMontgomeryMul checks the CIOS multiply against
// externally precomputed Montgomery representatives over secp256k1's
// base field: R = 2^256 mod p. For a=5, b=7, aMont=5R mod p, bMont=7R
// mod p, and the product must equal 35R mod p.
func TestInterpreterMontgomeryMul(t *testing.T) {
	d := newFourWordField(t)
	name, err := d.MontgomeryMul()
	require.NoError(t, err)

	aMont := []uint64{0x500001315, 0, 0, 0}
	bMont := []uint64{0x700001ab7, 0, 0, 0}
	want := []uint64{0x2300008593, 0, 0, 0}

	got := runField2(t, d.Assembler(), name, aMont, bMont)
	require.Equal(t, want, got)
}

// TestInterpreterMontgomeryMulIdentity checks that multiplying by the
// field's Montgomery representative of 1 (RModP) is the identity on any
// Montgomery residue.
func TestInterpreterMontgomeryMulIdentity(t *testing.T) {
	d := newFourWordField(t)
	name, err := d.MontgomeryMul()
	require.NoError(t, err)

	one := []uint64{0x1000003d1, 0, 0, 0}
	aMont := []uint64{0x500001315, 0, 0, 0}

	got := runField2(t, d.Assembler(), name, aMont, one)
	require.Equal(t, aMont, got)
}

// TestInterpreterCCopySelectsBySecretFlag checks CCopy's all-limbs-always-
// selected shape: every word is copied via select regardless of flag, so
// the interpreter must see both branches produce the numerically correct
// output (the constant-time property itself — that no branch distinguishes
// the two outcomes — is checked statically, not by this dynamic test).
func TestInterpreterCCopySelectsBySecretFlag(t *testing.T) {
	d := newFourWordField(t)
	name, err := d.CCopy()
	require.NoError(t, err)
	fn, ok := d.Assembler().Func(name)
	require.True(t, ok)

	run := func(flag uint64, dstInit, src []uint64) []uint64 {
		dst := fieldBuf(dstInit...)
		in := asm.NewInterpreter()
		require.NoError(t, in.RunVoidFunc(fn, dst, fieldBuf(src...), asm.ScalarArg{V: flag, Width: 1}))
		return dst.Words
	}

	require.Equal(t, []uint64{42, 0, 0, 0}, run(1, []uint64{7, 0, 0, 0}, []uint64{42, 0, 0, 0}))
	require.Equal(t, []uint64{7, 0, 0, 0}, run(0, []uint64{7, 0, 0, 0}, []uint64{42, 0, 0, 0}))
}
