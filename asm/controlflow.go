// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package asm

import (
	"strconv"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// Direction is the loop-counter direction for For, selecting the signed
// comparison (sle for ascending, sge for descending).
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// LoopBodyFunc runs once, during emission, writing the loop body into
// body for the current induction-variable value iv. It never executes
// per algorithmic iteration — the DSL emits an entry/body/exit block
// triple with a phi node, it does not interpret anything.
type LoopBodyFunc func(fn *ir.Func, body *ir.Block, iv value.Value) (next *ir.Block, err error)

// For emits a for-loop combinator: an entry/body/exit block triple with
// a phi-carried induction variable and a signed comparison against end,
// stepping by step (which may be negative for Descending). cur is the
// block the caller is currently positioned in; it returns the block
// positioned after the loop (the exit block), so nested emission
// composes without the caller tracking blocks by hand.
func For(
	a *Assembler,
	fn *ir.Func,
	cur *ir.Block,
	name string,
	ivType *types.IntType,
	start, end value.Value,
	step int64,
	dir Direction,
	body LoopBodyFunc,
) (*ir.Block, error) {
	headerBlock := fn.NewBlock(name + ".header")
	bodyBlock := fn.NewBlock(name + ".body")
	exitBlock := fn.NewBlock(name + ".exit")

	cur.NewBr(headerBlock)

	phi := ir.NewPhi(ivType)
	phi.Incs = append(phi.Incs, ir.NewIncoming(start, cur))
	headerBlock.Insts = append(headerBlock.Insts, phi)

	var pred enum.IPred
	if dir == Ascending {
		pred = enum.IPredSLE
	} else {
		pred = enum.IPredSGE
	}
	cond := headerBlock.NewICmp(pred, phi, end)
	headerBlock.NewCondBr(cond, bodyBlock, exitBlock)

	lastBodyBlock, err := body(fn, bodyBlock, phi)
	if err != nil {
		return nil, err
	}
	if lastBodyBlock == nil {
		lastBodyBlock = bodyBlock
	}

	next := lastBodyBlock.NewAdd(phi, constant.NewInt(ivType, step))
	lastBodyBlock.NewBr(headerBlock)
	phi.Incs = append(phi.Incs, ir.NewIncoming(next, lastBodyBlock))

	return exitBlock, nil
}

// BranchFunc emits the body of one if/elif/else arm, returning the
// block execution falls through to afterward (normally the block it was
// given, unless the arm itself branches internally).
type BranchFunc func(fn *ir.Func, b *ir.Block) (*ir.Block, error)

// Arm pairs a branch-arm's boolean condition closure with its body.
// Cond may be nil for the final "else" arm.
type Arm struct {
	Cond func(b *ir.Block) (value.Value, error)
	Body BranchFunc
}

// If emits an if/elif/.../else combinator: each arm gets its own
// condition and body block, and every arm's body feeds into a single
// shared "after" block, the only structured alternative to building the
// conditional branches by hand.
func If(a *Assembler, fn *ir.Func, cur *ir.Block, name string, arms []Arm) (*ir.Block, error) {
	after := fn.NewBlock(name + ".after")

	for i, arm := range arms {
		isLast := i == len(arms)-1
		if arm.Cond == nil {
			// Final unconditional else arm.
			next, err := arm.Body(fn, cur)
			if err != nil {
				return nil, err
			}
			next.NewBr(after)
			return after, nil
		}

		condBlock := cur
		bodyBlock := fn.NewBlock(fmtArmName(name, i, "body"))

		var elseBlock *ir.Block
		if isLast {
			elseBlock = fn.NewBlock(fmtArmName(name, i, "else"))
		} else {
			elseBlock = fn.NewBlock(fmtArmName(name, i+1, "cond"))
		}

		cond, err := arm.Cond(condBlock)
		if err != nil {
			return nil, err
		}
		condBlock.NewCondBr(cond, bodyBlock, elseBlock)

		next, err := arm.Body(fn, bodyBlock)
		if err != nil {
			return nil, err
		}
		next.NewBr(after)

		if isLast {
			elseBlock.NewBr(after)
			return after, nil
		}
		cur = elseBlock
	}

	cur.NewBr(after)
	return after, nil
}

func fmtArmName(name string, i int, suffix string) string {
	return name + "." + strconv.Itoa(i) + "." + suffix
}
