// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package field lowers Montgomery-domain prime-field arithmetic
// (modular add/sub, CIOS Montgomery multiplication, conditional copy,
// negation, div2, and small-constant scalar multiplication) to the IR
// asm.Assembler exposes. Every operation here is parameterized by a
// Descriptor and emitted at most once per descriptor, memoized by
// asm.Assembler.DefineInternalFunction.
package field

import (
	"fmt"

	"github.com/llir/llvm/ir/types"

	"github.com/luxfi/ctcodegen/asm"
	"github.com/luxfi/ctcodegen/bignum"
	"github.com/luxfi/ctcodegen/cgerr"
)

// Descriptor describes a prime field Fp: its bit width, word size, and
// the cached IR type handles and Montgomery constants operations need.
// Descriptors borrow types from the Assembler's module and must not
// outlive it.
type Descriptor struct {
	Name string

	Modulus *bignum.BigNum // the prime p
	Bits    int
	W       int // word size, 32 or 64
	NumWords int

	SpareBits int

	WordTy   *types.IntType
	Word2xTy *types.IntType
	IntBufTy *types.IntType // a single wide integer of numWords*w bits
	FieldTy  *types.ArrayType

	Consts bignum.MontgomeryConstants

	asm *asm.Assembler
}

// NewDescriptor configures a field Fp, asserting that the MSB of
// modulusHex equals bits and that the modulus is odd.
func NewDescriptor(a *asm.Assembler, name string, bits int, modulusHex string, w int) (*Descriptor, error) {
	if w != 32 && w != 64 {
		return nil, cgerr.NewConfigurationError("field.NewDescriptor", fmt.Errorf("unsupported word size %d", w))
	}

	modulus, err := bignum.FromHex(modulusHex, bits)
	if err != nil {
		return nil, cgerr.NewConfigurationError("field.NewDescriptor", err)
	}
	if !modulus.IsOdd() {
		return nil, cgerr.NewConfigurationError("field.NewDescriptor", fmt.Errorf("modulus for field %q must be odd", name))
	}

	numWords := modulus.NumWords(w)
	spareBits := modulus.SpareBits(w)

	consts, err := bignum.PrecomputeMontgomery(modulus, numWords, w)
	if err != nil {
		return nil, err
	}

	wordTy := types.NewInt(uint64(w))
	word2xTy := types.NewInt(uint64(2 * w))
	intBufTy := types.NewInt(uint64(numWords * w))
	fieldTy := types.NewArray(uint64(numWords), wordTy)

	return &Descriptor{
		Name:      name,
		Modulus:   modulus,
		Bits:      bits,
		W:         w,
		NumWords:  numWords,
		SpareBits: spareBits,
		WordTy:    wordTy,
		Word2xTy:  word2xTy,
		IntBufTy:  intBufTy,
		FieldTy:   fieldTy,
		Consts:    consts,
		asm:       a,
	}, nil
}

// Assembler returns the Assembler this descriptor's IR types and
// operations are bound to, for packages (e.g. curve) that compose
// field-level operations into larger formulas and need to call
// a.Call/a.IsDefined themselves.
func (d *Descriptor) Assembler() *asm.Assembler { return d.asm }

// SymPrefix returns the stable internal-symbol prefix for this
// descriptor's operations at the given shape, e.g. "u64x4" for
// w=64, numWords=4 — a naming convention treated as an ABI by callers.
func (d *Descriptor) SymPrefix() string {
	return fmt.Sprintf("u%dx%d", d.W, d.NumWords)
}

// ModulusWords returns the modulus as little-endian w-bit words, the
// representation the generated globals and ccopy-based arithmetic use.
func (d *Descriptor) ModulusWords() []uint64 {
	return wordsOf(d.Modulus.Big(), d.NumWords, d.W)
}

func wordsOf(x interface {
	Bit(int) uint
}, numWords, w int) []uint64 {
	out := make([]uint64, numWords)
	for i := 0; i < numWords; i++ {
		var word uint64
		for b := 0; b < w; b++ {
			if x.Bit(i*w+b) == 1 {
				word |= 1 << uint(b)
			}
		}
		out[i] = word
	}
	return out
}
