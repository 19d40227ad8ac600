// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package asm_test

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/ctcodegen/asm"
)

// branchingFunc defines an internal function of one i64 parameter that
// branches on whether it is nonzero — the exact shape
// msm.go's bucket-index branch has, reproduced directly against the
// combinator asm.If rather than through the msm package, to isolate what
// CheckConstantTime itself does.
func branchingFunc(t *testing.T, a *asm.Assembler, name, paramName string) *ir.Func {
	t.Helper()
	fn, err := a.DefineInternalFunction(name, "test", types.Void,
		[]asm.Param{{Name: paramName, Type: types.I64}},
		nil,
		func(a *asm.Assembler, fn *ir.Func, block *ir.Block, params []value.Value) error {
			zero := constant.NewInt(types.I64, 0)
			isNonzero := block.NewICmp(enum.IPredNE, params[0], zero)
			after, err := asm.If(a, fn, block, "ct", []asm.Arm{
				{
					Cond: func(b *ir.Block) (value.Value, error) { return isNonzero, nil },
					Body: func(fn *ir.Func, armBlock *ir.Block) (*ir.Block, error) { return armBlock, nil },
				},
				{Cond: nil, Body: func(fn *ir.Func, armBlock *ir.Block) (*ir.Block, error) { return armBlock, nil }},
			})
			if err != nil {
				return err
			}
			after.NewRet(nil)
			return nil
		})
	require.NoError(t, err)
	return fn
}

func TestCheckConstantTimeFlagsBranchOnSecretParam(t *testing.T) {
	a, err := asm.New(asm.X86_64Linux, "ct_test")
	require.NoError(t, err)
	fn := branchingFunc(t, a, "ct_secret_branch", "scalar")

	err = asm.CheckConstantTime(fn, "scalar")
	require.Error(t, err)
}

func TestCheckConstantTimeAllowsUnmarkedBranch(t *testing.T) {
	// The exact same branch shape, but "scalar" is not in the secret set
	// this call passes — the documented exception msm.GenMSM relies on:
	// a data-dependent branch over a parameter the caller attests is
	// public (MSM's scalar windows), not secret key material.
	a, err := asm.New(asm.X86_64Linux, "ct_test_public")
	require.NoError(t, err)
	fn := branchingFunc(t, a, "ct_public_branch", "scalar")

	require.NoError(t, asm.CheckConstantTime(fn))
}

func TestCheckConstantTimePassesBranchFreeField(t *testing.T) {
	// field.ModAdd is pure ccopy/select, no ir.TermCondBr at all — the
	// check must pass trivially even when every parameter is marked
	// secret, since there's no branch to trace a condition from.
	d := newFourWordField(t)
	name, err := d.ModAdd()
	require.NoError(t, err)
	fn, ok := d.Assembler().Func(name)
	require.True(t, ok)

	require.NoError(t, asm.CheckConstantTime(fn, "a", "b"))
}
