// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package bignum is the host-side dynamic-wordsize big integer used at
// compile/codegen time to precompute Montgomery constants for a
// field.Descriptor before any IR is emitted. It is not part of the emitted
// program; it runs once per descriptor, on the machine doing code
// generation.
//
// The general path is backed by github.com/cronokirby/saferith, a
// side-channel-safe arbitrary-precision integer type more commonly
// reached for by threshold-signature protocol implementations doing
// secret scalar arithmetic (FROST, CMP, ringtail-style schemes). The
// values handled here (a modulus and its Montgomery constants) are not
// secret, but they are computed once and then frozen into module-global
// constants, so using a constant-time type costs nothing and avoids a
// second bignum implementation.
package bignum

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/cronokirby/saferith"
	"github.com/holiman/uint256"

	"github.com/luxfi/ctcodegen/cgerr"
)

// BigNum is a dynamic-wordsize, arbitrary-precision integer with a
// declared bit length. Bits must equal the position of the most
// significant set bit plus one; constructors validate this, matching the
// spec's invariant that the MSB occupies exactly the declared bit count.
type BigNum struct {
	Bits int
	nat  *saferith.Nat
}

// FromBig builds a BigNum from x, declaring it to occupy exactly bits
// bits. Returns a ConfigurationError if x's true bit length does not
// match bits.
func FromBig(x *big.Int, bits int) (*BigNum, error) {
	if x.Sign() < 0 {
		return nil, cgerr.NewConfigurationError("bignum.FromBig", errNegative)
	}
	if x.BitLen() != bits {
		return nil, cgerr.NewConfigurationError("bignum.FromBig", errBitLenMismatch(x.BitLen(), bits))
	}
	nat := new(saferith.Nat).SetBig(x, bits)
	return &BigNum{Bits: bits, nat: nat}, nil
}

// FromHex parses a big-endian uppercase hex modulus (as configure_field
// receives it) and declares it to occupy exactly bits bits.
func FromHex(hexStr string, bits int) (*BigNum, error) {
	x, ok := new(big.Int).SetString(hexStr, 16)
	if !ok {
		return nil, cgerr.NewConfigurationError("bignum.FromHex", errBadHex(hexStr))
	}
	return FromBig(x, bits)
}

// FromUint64Words builds a BigNum from little-endian 64-bit words, the
// fast, non-allocating path for the common numWords<=4, w=64 presets
// (BLS12-381/BN254/secp256k1 base and scalar fields all fit in this
// shape at the word level, even though BLS12-381 Fp needs 6 words).
func FromUint64Words(words []uint64, bits int) (*BigNum, error) {
	if len(words) <= 4 {
		var u uint256.Int
		u.SetBytes(leWordsToBigEndianBytes(words))
		return FromBig(u.ToBig(), bits)
	}
	x := new(big.Int)
	for i := len(words) - 1; i >= 0; i-- {
		x.Lsh(x, 64)
		x.Or(x, new(big.Int).SetUint64(words[i]))
	}
	return FromBig(x, bits)
}

func leWordsToBigEndianBytes(words []uint64) []byte {
	buf := make([]byte, 32)
	for i, w := range words {
		off := 32 - (i+1)*8
		for b := 0; b < 8; b++ {
			buf[off+7-b] = byte(w >> (8 * b))
		}
	}
	return buf
}

// Big returns the value as a math/big.Int, for interop with test oracles
// (gnark-crypto, decred secp256k1) and diagnostic formatting.
func (b *BigNum) Big() *big.Int { return b.nat.Big() }

// IsOdd reports whether the value is odd, the precondition Montgomery
// reduction requires of a modulus.
func (b *BigNum) IsOdd() bool { return b.Big().Bit(0) == 1 }

// NumWords returns the number of w-bit words needed to hold Bits, i.e.
// ceil(Bits/w).
func (b *BigNum) NumWords(w int) int {
	return (b.Bits + w - 1) / w
}

// SpareBits returns numWords*w - bits, the unused high bits of the top
// limb after rounding up to a whole number of w-bit words.
func (b *BigNum) SpareBits(w int) int {
	return b.NumWords(w)*w - b.Bits
}

var errNegative = errors.New("modulus must be non-negative")

func errBitLenMismatch(got, want int) error {
	return fmt.Errorf("declared bit length %d does not match modulus MSB at bit length %d", want, got)
}

func errBadHex(s string) error {
	return fmt.Errorf("not a valid hex integer: %q", s)
}
