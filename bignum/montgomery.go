// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bignum

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/luxfi/ctcodegen/cgerr"
)

// MontgomeryConstants are the four per-descriptor globals Montgomery
// arithmetic needs: R mod p, R^2 mod p, -p[0]^-1 mod 2^w, and (p+1)/2.
// R = 2^(numWords*w).
type MontgomeryConstants struct {
	RModP          *BigNum
	R2ModP         *BigNum
	NegPInvModWord uint64 // only the low w bits are meaningful
	HalfPPlus1     *BigNum
}

// PrecomputeMontgomery computes MontgomeryConstants for modulus p with the
// given word layout. p must be odd (Montgomery reduction precondition);
// an even modulus is a ConfigurationError, not a panic, since a malformed
// descriptor is exactly the kind of caller-supplied misconfiguration
// ConfigurationError exists for, not an internal invariant violation.
func PrecomputeMontgomery(p *BigNum, numWords, w int) (MontgomeryConstants, error) {
	if !p.IsOdd() {
		return MontgomeryConstants{}, cgerr.NewConfigurationError(
			"bignum.PrecomputeMontgomery", errEvenModulus)
	}
	if w != 32 && w != 64 {
		return MontgomeryConstants{}, cgerr.NewConfigurationError(
			"bignum.PrecomputeMontgomery", errBadWordSize(w))
	}

	pBig := p.Big()
	rBits := numWords * w
	r := new(big.Int).Lsh(big.NewInt(1), uint(rBits))

	rModP := new(big.Int).Mod(r, pBig)
	r2ModP := new(big.Int).Mod(new(big.Int).Mul(rModP, rModP), pBig)
	r2ModP.Mod(r2ModP, pBig)

	negPInv := negModWordInverse(pBig, w)

	halfPPlus1 := new(big.Int).Rsh(new(big.Int).Add(pBig, big.NewInt(1)), 1)

	rModPNum, err := FromBig(rModP, bitLenOrZero(rModP))
	if err != nil {
		return MontgomeryConstants{}, err
	}

	r2ModPNum, err := FromBig(r2ModP, bitLenOrZero(r2ModP))
	if err != nil {
		return MontgomeryConstants{}, err
	}

	halfNum, err := FromBig(halfPPlus1, bitLenOrZero(halfPPlus1))
	if err != nil {
		return MontgomeryConstants{}, err
	}

	return MontgomeryConstants{
		RModP:          rModPNum,
		R2ModP:         r2ModPNum,
		NegPInvModWord: negPInv,
		HalfPPlus1:     halfNum,
	}, nil
}

func bitLenOrZero(x *big.Int) int {
	if x.Sign() == 0 {
		return 0
	}
	return x.BitLen()
}

// negModWordInverse computes -p0^-1 mod 2^w, the CIOS reduction constant,
// via Newton's iteration for the inverse mod a power of two: given an odd
// p0, y_{i+1} = y_i*(2 - p0*y_i) doubles the number of correct bits each
// step, converging to p0^-1 mod 2^w in O(log w) steps.
func negModWordInverse(p *big.Int, w int) uint64 {
	mod := new(big.Int).Lsh(big.NewInt(1), uint(w))
	p0 := new(big.Int).Mod(p, mod)

	y := big.NewInt(1)
	two := big.NewInt(2)
	for bits := 1; bits < w*2; bits *= 2 {
		t := new(big.Int).Mul(p0, y)
		t.Sub(two, t)
		t.Mul(y, t)
		y.Mod(t, mod)
	}
	// y == p0^-1 mod 2^w; negate mod 2^w.
	neg := new(big.Int).Sub(mod, y)
	neg.Mod(neg, mod)
	return neg.Uint64()
}

var errEvenModulus = errors.New("modulus must be odd for Montgomery reduction")

func errBadWordSize(w int) error {
	return fmt.Errorf("unsupported word size %d (must be 32 or 64)", w)
}
