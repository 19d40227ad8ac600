// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package asm

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/stretchr/testify/require"
)

func TestNewSetsTripleAndLayoutPerBackend(t *testing.T) {
	cases := []struct {
		backend Backend
		triple  string
	}{
		{X86_64Linux, "x86_64-pc-linux-gnu"},
		{Arm64MacOS, "arm64-apple-macosx11.0.0"},
		{NvidiaPTX, "nvptx64-nvidia-cuda"},
		{AmdGPU, "amdgcn-amd-amdhsa"},
	}
	for _, c := range cases {
		a, err := New(c.backend, "test_module")
		require.NoError(t, err)
		require.Equal(t, c.triple, a.Module.TargetTriple)
		require.NotEmpty(t, a.Module.DataLayout)
	}
}

func TestDefineInternalFunctionIsMemoized(t *testing.T) {
	a, err := New(X86_64Linux, "memo_test")
	require.NoError(t, err)

	emits := 0
	body := func(a *Assembler, fn *ir.Func, block *ir.Block, params []value.Value) error {
		emits++
		block.NewRet(nil)
		return nil
	}

	fn1, err := a.DefineInternalFunction("_mod_add_u64x4", "field", types.Void, nil, nil, body)
	require.NoError(t, err)

	fn2, err := a.DefineInternalFunction("_mod_add_u64x4", "field", types.Void, nil, nil, body)
	require.NoError(t, err)

	require.Same(t, fn1, fn2)
	require.Equal(t, 1, emits, "body must run exactly once; the second call is served from the memoization cache")
}

func TestDefinePublicFunctionOnGPUWrapsParamsByPointer(t *testing.T) {
	a, err := New(NvidiaPTX, "kernel_test")
	require.NoError(t, err)

	fieldTy := types.NewArray(4, types.I64)
	body := func(a *Assembler, fn *ir.Func, block *ir.Block, params []value.Value) error {
		block.NewRet(nil)
		return nil
	}

	fn, err := a.DefinePublicFunction("bls12_381_fp_add", types.Void,
		[]Param{{Name: "a", Type: fieldTy}, {Name: "b", Type: fieldTy}}, body)
	require.NoError(t, err)

	for _, p := range fn.Params {
		_, isPtr := p.Typ.(*types.PointerType)
		require.True(t, isPtr, "GPU kernel parameters must be pointers")
	}
}

func TestCallAppliesFastCCOnInternalCallSite(t *testing.T) {
	a, err := New(X86_64Linux, "call_test")
	require.NoError(t, err)

	_, err = a.DefineInternalFunction("_helper", "field", types.I64, nil, nil,
		func(a *Assembler, fn *ir.Func, block *ir.Block, params []value.Value) error {
			block.NewRet(nil)
			return nil
		})
	require.NoError(t, err)

	caller, err := a.DefineInternalFunction("_caller", "field", types.Void, nil, nil,
		func(a *Assembler, fn *ir.Func, block *ir.Block, params []value.Value) error {
			v, err := a.Call(block, "_helper")
			require.NoError(t, err)
			require.NotNil(t, v)
			block.NewRet(nil)
			return nil
		})
	require.NoError(t, err)
	require.NotNil(t, caller)
}
