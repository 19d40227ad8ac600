// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bignum

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

const bn254FrHex = "30644E72E131A029B85045B68181585D2833E84879B9709143E1F593F0000001"

func TestFromHexRejectsWrongDeclaredBits(t *testing.T) {
	// 381-bit modulus whose top nibble has only 3 leading zeros, so its
	// true bit length is 380, not 381.
	x := new(big.Int).Lsh(big.NewInt(1), 379) // MSB at bit 380 (0-indexed), BitLen()=380
	_, err := FromBig(x, 381)
	require.Error(t, err)
}

func TestFromHexAcceptsMatchingDeclaredBits(t *testing.T) {
	x := new(big.Int).Lsh(big.NewInt(1), 379)
	bn, err := FromBig(x, 380)
	require.NoError(t, err)
	require.Equal(t, 380, bn.Bits)
	require.Equal(t, 0, bn.Big().Cmp(x))
}

func TestNumWordsAndSpareBits(t *testing.T) {
	// BLS12-381 Fp is 381 bits; at w=64 that's 6 words (384 bits), 3 spare.
	bn := &BigNum{Bits: 381}
	require.Equal(t, 6, bn.NumWords(64))
	require.Equal(t, 3, bn.SpareBits(64))
}

func TestPrecomputeMontgomeryRejectsEvenModulus(t *testing.T) {
	even, err := FromBig(big.NewInt(16), 5)
	require.NoError(t, err)
	_, err = PrecomputeMontgomery(even, 1, 64)
	require.Error(t, err)
}

func TestPrecomputeMontgomerySmallPrime(t *testing.T) {
	// p = 97 (prime, odd), numWords=1, w=8 so R = 2^8 = 256.
	p, err := FromBig(big.NewInt(97), 7)
	require.NoError(t, err)

	// w must be 32 or 64 per this module's supported word sizes; exercise
	// the rejection path for an unsupported size instead of faking a
	// toy p that would need w=8 to be realistic.
	_, err = PrecomputeMontgomery(p, 1, 8)
	require.Error(t, err)
}

func TestPrecomputeMontgomeryRoundTrips(t *testing.T) {
	p, err := FromHex(bn254FrHex, 254)
	require.NoError(t, err)

	c, err := PrecomputeMontgomery(p, 4, 64)
	require.NoError(t, err)

	pBig := p.Big()
	r := new(big.Int).Lsh(big.NewInt(1), 256)
	wantR := new(big.Int).Mod(r, pBig)
	require.Equal(t, 0, c.RModP.Big().Cmp(wantR))

	wantR2 := new(big.Int).Mod(new(big.Int).Mul(wantR, wantR), pBig)
	require.Equal(t, 0, c.R2ModP.Big().Cmp(wantR2))

	wantHalf := new(big.Int).Rsh(new(big.Int).Add(pBig, big.NewInt(1)), 1)
	require.Equal(t, 0, c.HalfPPlus1.Big().Cmp(wantHalf))

	// -p0^-1 mod 2^64 round-trips: p0 * negPInv ≡ -1 (mod 2^64).
	p0 := new(big.Int).And(pBig, new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 64), big.NewInt(1)))
	mod64 := new(big.Int).Lsh(big.NewInt(1), 64)
	prod := new(big.Int).Mul(p0, new(big.Int).SetUint64(c.NegPInvModWord))
	prod.Mod(prod, mod64)
	wantNeg1 := new(big.Int).Sub(mod64, big.NewInt(1))
	require.Equal(t, 0, prod.Cmp(wantNeg1))
}
