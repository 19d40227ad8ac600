// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package asm

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/metadata"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/luxfi/ctcodegen/cgerr"
)

// FuncAttr names the handful of function attributes this compiler ever
// applies to an emitted internal helper.
type FuncAttr string

const (
	AttrHot         FuncAttr = "hot"
	AttrInlineHint  FuncAttr = "inlinehint"
	AttrAlwaysInline FuncAttr = "alwaysinline"
	AttrNoInline    FuncAttr = "noinline"
)

// Param describes one function parameter before wrapping rules are
// applied: its name (bound inside the body closure as llvmParams) and
// its unwrapped type.
type Param struct {
	Name string
	Type types.Type
}

// BodyFunc emits the body of a function being defined. params gives
// typed access to the (possibly pointer-wrapped) parameters, already
// bound under the names given in the Param list; block is the entry
// block, positioned for the first instruction.
type BodyFunc func(a *Assembler, fn *ir.Func, block *ir.Block, params []value.Value) error

// aggregateWrapThreshold is the ABI-size-in-pointer-widths at or above
// which an aggregate parameter is passed by pointer instead of by value.
const aggregateWrapThreshold = 3

// shouldWrapAggregate decides whether typ must be passed as a pointer:
// an aggregate (array) parameter whose ABI size exceeds 3 pointer-widths
// or whose element count is >= 3. Vector types are exempt (they pass by
// value unconditionally) — this compiler never constructs a vector type,
// so that exemption is documented but has no code path to hit.
func shouldWrapAggregate(typ types.Type, wordBits int) bool {
	arr, ok := typ.(*types.ArrayType)
	if !ok {
		return false
	}
	if arr.Len >= aggregateWrapThreshold {
		return true
	}
	elemBits := bitSizeOf(arr.ElemType)
	totalBits := elemBits * int(arr.Len)
	ptrWidthBits := wordBits
	if ptrWidthBits == 0 {
		ptrWidthBits = 64
	}
	return totalBits > aggregateWrapThreshold*ptrWidthBits
}

func bitSizeOf(t types.Type) int {
	switch v := t.(type) {
	case *types.IntType:
		return int(v.BitSize)
	case *types.ArrayType:
		return bitSizeOf(v.ElemType) * int(v.Len)
	case *types.PointerType:
		return 64
	default:
		return 64
	}
}

// DefineInternalFunction idempotently defines an internal helper: a
// second call with the same name returns the previously cached handle
// and emits nothing new — load-bearing memoization, since the
// arithmetic/curve lowerings are mutually recursive.
func (a *Assembler) DefineInternalFunction(
	name string,
	section string,
	retType types.Type,
	params []Param,
	attrs []FuncAttr,
	body BodyFunc,
) (*ir.Func, error) {
	if existing, ok := a.funcs[name]; ok {
		a.log.Debug(fmt.Sprintf("asm: reusing cached internal function %s", name))
		return existing.fn, nil
	}

	wordBits := 64
	if cfg, ok := configFor(a.Backend); ok {
		_ = cfg
	}

	irParams := make([]*ir.Param, len(params))
	wrapped := make([]bool, len(params))
	for i, p := range params {
		if shouldWrapAggregate(p.Type, wordBits) {
			irParams[i] = ir.NewParam(p.Name, types.NewPointer(p.Type))
			wrapped[i] = true
		} else {
			irParams[i] = ir.NewParam(p.Name, p.Type)
		}
	}

	fn := a.Module.NewFunc(name, retType, irParams...)
	fn.Linkage = enum.LinkageInternal
	fn.CallingConv = enum.CallingConvFast
	fn.Section = section
	for _, at := range attrs {
		fn.FuncAttrs = append(fn.FuncAttrs, ir.FuncAttr(at))
	}

	a.funcs[name] = &funcEntry{fn: fn, isInternal: true}

	block := fn.NewBlock(name + ".entry")
	bodyParams := make([]value.Value, len(irParams))
	for i, p := range irParams {
		bodyParams[i] = p
	}

	if err := body(a, fn, block, bodyParams); err != nil {
		return nil, cgerr.NewCodegenError(name, err)
	}
	return fn, nil
}

// DefinePublicFunction is DefineInternalFunction's public-linkage,
// calling-convention-matched counterpart. On GPU backends it also tags
// the function as a kernel entry point: on Nvidia, via an
// "nvvm.annotations" module metadata tuple; on AMD, via the
// AMDGPU_KERNEL calling convention alone (ROCm reads the calling
// convention, not a metadata annotation).
func (a *Assembler) DefinePublicFunction(
	name string,
	retType types.Type,
	params []Param,
	body BodyFunc,
) (*ir.Func, error) {
	if existing, ok := a.funcs[name]; ok {
		return existing.fn, nil
	}

	cfg, ok := configFor(a.Backend)
	if !ok {
		return nil, cgerr.NewConfigurationError("asm.DefinePublicFunction", fmt.Errorf("unsupported backend %v", a.Backend))
	}

	irParams := make([]*ir.Param, len(params))
	for i, p := range params {
		// Public kernel entry points pass every argument as a pointer,
		// the calling convention GPU kernel launches require.
		if a.Backend.IsGPU() {
			irParams[i] = ir.NewParam(p.Name, types.NewPointer(p.Type))
		} else {
			irParams[i] = ir.NewParam(p.Name, p.Type)
		}
	}

	fn := a.Module.NewFunc(name, retType, irParams...)
	fn.CallingConv = cfg.publicCC

	a.funcs[name] = &funcEntry{fn: fn, isInternal: false}

	if a.Backend == NvidiaPTX {
		a.Module.NamedMetadataDefs["nvvm.annotations"] = appendNvvmKernelAnnotation(
			a.Module.NamedMetadataDefs["nvvm.annotations"], fn)
	}

	block := fn.NewBlock(name + ".entry")
	bodyParams := make([]value.Value, len(irParams))
	for i, p := range irParams {
		bodyParams[i] = p
	}

	if err := body(a, fn, block, bodyParams); err != nil {
		return nil, cgerr.NewCodegenError(name, err)
	}
	return fn, nil
}

func appendNvvmKernelAnnotation(existing *metadata.NamedMetadataDef, fn *ir.Func) *metadata.NamedMetadataDef {
	tuple := &metadata.Tuple{
		Fields: []metadata.Field{
			fn,
			&metadata.String{Value: "kernel"},
			metadata.Int64(1),
		},
	}
	if existing == nil {
		existing = &metadata.NamedMetadataDef{Name: "nvvm.annotations"}
	}
	existing.Nodes = append(existing.Nodes, tuple)
	return existing
}

// Call issues a call to the named, already-defined function, applying
// the fast calling convention at the call site when the target is
// internal (matching its definition-time calling convention).
func (a *Assembler) Call(block *ir.Block, name string, args ...value.Value) (value.Value, error) {
	entry, ok := a.funcs[name]
	if !ok {
		return nil, cgerr.NewCodegenError("asm.Call", fmt.Errorf("function %q not yet defined", name))
	}
	call := block.NewCall(entry.fn, args...)
	if entry.isInternal {
		call.CallingConv = enum.CallingConvFast
	}
	return call, nil
}

// IsDefined reports whether a function with the given name has already
// been emitted, without emitting anything.
func (a *Assembler) IsDefined(name string) bool {
	_, ok := a.funcs[name]
	return ok
}

// Func returns the already-emitted function with the given name, for
// callers (e.g. the interpreter-backed test suite) that need the *ir.Func
// itself rather than just a defined/not-defined check.
func (a *Assembler) Func(name string) (*ir.Func, bool) {
	entry, ok := a.funcs[name]
	if !ok {
		return nil, false
	}
	return entry.fn, true
}
