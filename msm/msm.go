// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package msm lowers multi-scalar multiplication to a single specialized
// kernel per (curve, c, N) triple, following the bucket method of
// Bos-Coster/BDLO12 exactly as laid out by the distilled specification's
// MSM section: zero buckets, scatter points into buckets by scalar
// window, combine buckets with the running-sum trick, then combine
// windows by Horner-style doubling. Unlike package curve's group law,
// bucket selection is a genuinely data-dependent array index and branch
// — MSM operates on public scalars (proof-system exponents), not secret
// key material, so there is no constant-time requirement here.
package msm

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/luxfi/ctcodegen/asm"
	"github.com/luxfi/ctcodegen/cgerr"
	"github.com/luxfi/ctcodegen/curve"
)

// GenMSM emits (if not already emitted) a kernel computing
// Σ scalars[i]·points[i] for i in 0..N-1, bucketed with a window width
// of c bits, and returns its symbol name. c and N are baked into the
// kernel as constant loop bounds, which is what lets the backend's
// pass pipeline unroll aggressively without the generator itself
// unrolling in Go.
func GenMSM(desc *curve.Descriptor, curveName string, c, n int) (string, error) {
	if c < 1 || c > 32 {
		return "", cgerr.NewConfigurationError("msm.GenMSM", fmt.Errorf("bucket width c=%d out of supported range [1,32]", c))
	}
	if n < 1 {
		return "", cgerr.NewConfigurationError("msm.GenMSM", fmt.Errorf("point count N=%d must be positive", n))
	}

	a := desc.Descriptor.Assembler()
	name := fmt.Sprintf("_msm_%s_c%d_n%d", desc.SymPrefix(curveName), c, n)
	if a.IsDefined(name) {
		return name, nil
	}

	g := &generator{desc: desc, curveName: curveName, c: c, n: n, a: a}
	if err := g.prepareOps(); err != nil {
		return "", err
	}

	numBuckets := (1 << uint(c)) - 1
	numWindows := (desc.ScalarBits + c - 1) / c

	scalarRowTy := types.NewArray(uint64(desc.ScalarNum), desc.WordTy)
	scalarsArrTy := types.NewArray(uint64(n), scalarRowTy)
	pointsArrTy := types.NewArray(uint64(n), desc.AffineType())
	jacTy := desc.JacobianType()
	bucketsArrTy := types.NewArray(uint64(numBuckets), jacTy)

	_, err := a.DefineInternalFunction(name, "msm", types.Void,
		[]asm.Param{
			{Name: "result", Type: jacTy},
			{Name: "scalars", Type: scalarsArrTy},
			{Name: "points", Type: pointsArrTy},
		},
		[]asm.FuncAttr{asm.AttrHot, asm.AttrNoInline},
		func(a *asm.Assembler, fn *ir.Func, block *ir.Block, params []value.Value) error {
			g.fn = fn
			resultPt := asm.NewEcPointJac(params[0], jacTy, desc.FieldTy)
			scalarsArr := asm.NewArray(params[1], scalarsArrTy)
			pointsArr := asm.NewArray(params[2], pointsArrTy)

			bucketsPtr := block.NewAlloca(bucketsArrTy)
			buckets := asm.NewArray(bucketsPtr, bucketsArrTy)

			g.zeroJacobian(block, resultPt)

			cur := block
			for w := numWindows - 1; w >= 0; w-- {
				var err error
				cur, err = g.emitWindow(block, cur, w, numBuckets, scalarRowTy, jacTy, scalarsArr, pointsArr, buckets, resultPt)
				if err != nil {
					return err
				}
			}
			cur.NewRet(nil)
			return nil
		})
	if err != nil {
		return "", err
	}
	return name, nil
}

// generator bundles the per-call-emitted field/curve operation names so
// the window/bucket-combination helpers below don't have to thread a
// dozen string parameters individually.
type generator struct {
	desc      *curve.Descriptor
	curveName string
	c, n      int
	a         *asm.Assembler
	fn        *ir.Func

	maddName   string
	addName    string
	dblName    string
	ccopyNameX string // field.CCopy, applied coordinate-wise
}

func (g *generator) prepareOps() error {
	var err error
	if g.maddName, err = g.desc.MixedAdd(g.curveName); err != nil {
		return err
	}
	if g.addName, err = g.desc.Add(g.curveName); err != nil {
		return err
	}
	if g.desc.AKind == curve.AZero {
		if g.dblName, err = g.desc.Double(g.curveName); err != nil {
			return err
		}
	} else {
		// Non-a=0 curves double via the unified Add op applied to a
		// point and itself, since Double() is the a=0-only
		// specialization (dbl-2009-l assumes a=0).
		g.dblName = g.addName
	}
	return nil
}

// zeroJacobian stores the all-zero Jacobian identity (Z=0) into pt.
func (g *generator) zeroJacobian(b *ir.Block, pt *asm.EcPointJac) {
	zero := constant.NewInt(g.desc.WordTy, 0)
	for _, f := range []*asm.Field{pt.X(b), pt.Y(b), pt.Z(b)} {
		for i := int64(0); i < f.Len(); i++ {
			f.StoreAt(b, i, zero)
		}
	}
}

func (g *generator) copyJacobian(b *ir.Block, dst, src *asm.EcPointJac) {
	dx, dy, dz := dst.X(b), dst.Y(b), dst.Z(b)
	sx, sy, sz := src.X(b), src.Y(b), src.Z(b)
	dx.Store(b, dx, sx)
	dy.Store(b, dy, sy)
	dz.Store(b, dz, sz)
}

// emitWindow emits the per-window scatter-into-buckets and
// running-sum-combine steps, then the Horner-style fold of the
// previous windows' accumulated result by c doublings, returning the
// block execution continues from.
func (g *generator) emitWindow(
	entry *ir.Block, cur *ir.Block, w, numBuckets int,
	scalarRowTy, jacTy *types.ArrayType,
	scalarsArr, pointsArr *asm.Array,
	buckets *asm.Array,
	resultPt *asm.EcPointJac,
) (*ir.Block, error) {
	// 1. Zero all numBuckets Jacobian accumulators.
	cur, err := asm.For(g.a, g.fn, cur, fmt.Sprintf("msm.w%d.zero", w), types.I64,
		constant.NewInt(types.I64, 0), constant.NewInt(types.I64, int64(numBuckets-1)), 1, asm.Ascending,
		func(fn *ir.Func, body *ir.Block, iv value.Value) (*ir.Block, error) {
			idx32 := body.NewTrunc(iv, types.I32)
			ptr := buckets.Index(body, idx32)
			pt := asm.NewEcPointJac(ptr, jacTy, g.desc.FieldTy)
			g.zeroJacobian(body, pt)
			return body, nil
		})
	if err != nil {
		return nil, err
	}

	// 2. Scatter each point into its bucket for this window.
	bitOffset := w * g.c
	cur, err = asm.For(g.a, g.fn, cur, fmt.Sprintf("msm.w%d.scatter", w), types.I64,
		constant.NewInt(types.I64, 0), constant.NewInt(types.I64, int64(g.n-1)), 1, asm.Ascending,
		func(fn *ir.Func, body *ir.Block, j value.Value) (*ir.Block, error) {
			rowPtr := scalarsArr.Index(body, body.NewTrunc(j, types.I32))
			row := asm.NewArray(rowPtr, scalarRowTy)
			winVal := extractWindow(body, row, g.desc.WordTy, g.desc.W, bitOffset, g.c)

			zero := constant.NewInt(g.desc.WordTy, 0)
			isNonzero := body.NewICmp(enum.IPredNE, winVal, zero)

			after, ierr := asm.If(g.a, g.fn, body, fmt.Sprintf("msm.w%d.j%s", w, "nz"), []asm.Arm{
				{
					Cond: func(b *ir.Block) (value.Value, error) { return isNonzero, nil },
					Body: func(fn *ir.Func, armBlock *ir.Block) (*ir.Block, error) {
						bucketIdx := armBlock.NewSub(winVal, constant.NewInt(g.desc.WordTy, 1))
						bucketIdx32 := armBlock.NewTrunc(bucketIdx, types.I32)
						bucketPtr := buckets.Index(armBlock, bucketIdx32)
						bucketPt := asm.NewEcPointJac(bucketPtr, jacTy, g.desc.FieldTy)

						pointPtr := pointsArr.Index(armBlock, armBlock.NewTrunc(j, types.I32))
						pointPt := asm.NewEcPointAff(pointPtr, g.desc.AffineType(), g.desc.FieldTy)

						if _, err := g.a.Call(armBlock, g.maddName, bucketPt.Ptr, bucketPt.Ptr, pointPt.Ptr); err != nil {
							return nil, err
						}
						return armBlock, nil
					},
				},
				{Cond: nil, Body: func(fn *ir.Func, armBlock *ir.Block) (*ir.Block, error) { return armBlock, nil }},
			})
			if ierr != nil {
				return nil, ierr
			}
			return after, nil
		})
	if err != nil {
		return nil, err
	}

	// 3. Combine buckets with the running-sum trick: iterate from the
	// highest bucket down, maintaining a running accumulator and a
	// window accumulator, in 2*(numBuckets-1) additions.
	runningPtr := cur.NewAlloca(g.desc.JacobianType())
	running := asm.NewEcPointJac(runningPtr, jacTy, g.desc.FieldTy)
	windowAccPtr := cur.NewAlloca(g.desc.JacobianType())
	windowAcc := asm.NewEcPointJac(windowAccPtr, jacTy, g.desc.FieldTy)

	topPtr := buckets.IndexConst(cur, int64(numBuckets-1))
	topBucket := asm.NewEcPointJac(topPtr, jacTy, g.desc.FieldTy)
	g.copyJacobian(cur, running, topBucket)
	g.copyJacobian(cur, windowAcc, topBucket)

	cur, err = asm.For(g.a, g.fn, cur, fmt.Sprintf("msm.w%d.combine", w), types.I64,
		constant.NewInt(types.I64, int64(numBuckets-2)), constant.NewInt(types.I64, 0), -1, asm.Descending,
		func(fn *ir.Func, body *ir.Block, k value.Value) (*ir.Block, error) {
			idx32 := body.NewTrunc(k, types.I32)
			bkPtr := buckets.Index(body, idx32)
			bk := asm.NewEcPointJac(bkPtr, jacTy, g.desc.FieldTy)

			if _, err := g.a.Call(body, g.addName, running.Ptr, running.Ptr, bk.Ptr); err != nil {
				return nil, err
			}
			if _, err := g.a.Call(body, g.addName, windowAcc.Ptr, windowAcc.Ptr, running.Ptr); err != nil {
				return nil, err
			}
			return body, nil
		})
	if err != nil {
		return nil, err
	}

	// 4. Horner-style combination: double the running total c times
	// then fold in this window's mini-MSM.
	for i := 0; i < g.c; i++ {
		if _, err := g.a.Call(cur, g.dblName, resultPt.Ptr, resultPt.Ptr); err != nil {
			return nil, err
		}
		if g.desc.AKind != curve.AZero {
			// dblName aliases addName for non-a=0 curves (see
			// prepareOps); Add is binary, so double manually via P+P.
			if _, err := g.a.Call(cur, g.addName, resultPt.Ptr, resultPt.Ptr, resultPt.Ptr); err != nil {
				return nil, err
			}
		}
	}
	if _, err := g.a.Call(cur, g.addName, resultPt.Ptr, resultPt.Ptr, windowAcc.Ptr); err != nil {
		return nil, err
	}

	return cur, nil
}

// extractWindow emits the shift/mask sequence reading the c-bit window
// at bitOffset out of row (a ScalarNum-word little-endian scalar),
// spanning at most two consecutive words (true whenever c <= w, the
// word size — the only case this compiler's curve presets need).
func extractWindow(b *ir.Block, row *asm.Array, wordTy *types.IntType, w, bitOffset, c int) value.Value {
	wordIdx := bitOffset / w
	bitInWord := bitOffset % w

	lowWord := row.Load(b, int64(wordIdx))
	shifted := b.NewLShr(lowWord, constant.NewInt(wordTy, int64(bitInWord)))

	mask := constant.NewInt(wordTy, maskLowBits(c))
	result := b.NewAnd(shifted, mask)

	if bitInWord+c > w && int64(wordIdx+1) < row.Len() {
		highWord := row.Load(b, int64(wordIdx+1))
		spill := w - bitInWord
		highShifted := b.NewShl(highWord, constant.NewInt(wordTy, int64(spill)))
		highMasked := b.NewAnd(highShifted, mask)
		result = b.NewOr(result, highMasked)
	}
	return result
}

// maskLowBits returns a mask selecting the low n bits, saturating at
// 64 bits (this compiler's word size never exceeds 64).
func maskLowBits(n int) int64 {
	if n >= 64 {
		return -1
	}
	return (int64(1) << uint(n)) - 1
}
