// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package asm

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// Array is a thin view over a pointer to an LLVM array: (buffer pointer,
// array type, element type). It polymorphically exposes index/assign
// operations that lower to getelementptr + load/store.
//
// Array is move-only by convention: copying the Go struct would alias
// the same IR pointer under a second name, which invites a caller to
// treat the copy as an independent buffer when it is not. Pass *Array by
// pointer; to duplicate the underlying buffer's contents, call Store
// with a destination Array backed by a different pointer.
type Array struct {
	Ptr     value.Value
	ArrTy   *types.ArrayType
	ElemTy  types.Type
}

// NewArray wraps an existing pointer as an Array view.
func NewArray(ptr value.Value, arrTy *types.ArrayType) *Array {
	return &Array{Ptr: ptr, ArrTy: arrTy, ElemTy: arrTy.ElemType}
}

// Index returns a pointer to element i (a getelementptr, not a loaded
// value) — the caller chooses whether to Load or further index.
func (arr *Array) Index(b *ir.Block, i value.Value) value.Value {
	zero := constant.NewInt(types.I32, 0)
	return b.NewGetElementPtr(arr.ArrTy, arr.Ptr, zero, i)
}

// IndexConst is Index for a compile-time-known index.
func (arr *Array) IndexConst(b *ir.Block, i int64) value.Value {
	return arr.Index(b, constant.NewInt(types.I32, i))
}

// Load returns the value at element i.
func (arr *Array) Load(b *ir.Block, i int64) value.Value {
	return b.NewLoad(arr.ElemTy, arr.IndexConst(b, i))
}

// StoreAt stores v into element i.
func (arr *Array) StoreAt(b *ir.Block, i int64, v value.Value) {
	b.NewStore(v, arr.IndexConst(b, i))
}

// Store performs the explicit, element-wise semantic copy that stands
// in for Array/Field/EcPoint* value copying: it copies Len() elements
// from src into dst via load+store, never by aliasing pointers.
func (arr *Array) Store(b *ir.Block, dst, src *Array) {
	n := dst.ArrTy.Len
	for i := int64(0); i < int64(n); i++ {
		dst.StoreAt(b, i, src.Load(b, i))
	}
}

// Len returns the element count of the underlying array type.
func (arr *Array) Len() int64 { return int64(arr.ArrTy.Len) }

// Field is a field-element view: an Array of NumWords words. It is the
// unit field.Descriptor operations read and write.
type Field struct {
	*Array
}

// NewField wraps ptr (a pointer to a fieldTy value) as a Field view.
func NewField(ptr value.Value, fieldTy *types.ArrayType) *Field {
	return &Field{Array: NewArray(ptr, fieldTy)}
}

// Store copies src's limbs into dst, element-wise.
func (f *Field) Store(b *ir.Block, dst, src *Field) {
	f.Array.Store(b, dst.Array, src.Array)
}

// EcPointAff is an affine point view: an Array of 2 Field elements
// (X, Y). The identity is encoded as (0, 0).
type EcPointAff struct {
	*Array
	FieldTy *types.ArrayType
}

// NewEcPointAff wraps ptr (a pointer to a curveTyAff value) as an affine
// point view.
func NewEcPointAff(ptr value.Value, curveTyAff *types.ArrayType, fieldTy *types.ArrayType) *EcPointAff {
	return &EcPointAff{Array: NewArray(ptr, curveTyAff), FieldTy: fieldTy}
}

// X returns a Field view over the X coordinate.
func (p *EcPointAff) X(b *ir.Block) *Field {
	return NewField(p.IndexConst(b, 0), p.FieldTy)
}

// Y returns a Field view over the Y coordinate.
func (p *EcPointAff) Y(b *ir.Block) *Field {
	return NewField(p.IndexConst(b, 1), p.FieldTy)
}

// EcPointJac is a Jacobian point view: an Array of 3 Field elements
// (X, Y, Z). The identity is encoded as Z = 0.
type EcPointJac struct {
	*Array
	FieldTy *types.ArrayType
}

// NewEcPointJac wraps ptr (a pointer to a curveTy value) as a Jacobian
// point view.
func NewEcPointJac(ptr value.Value, curveTy *types.ArrayType, fieldTy *types.ArrayType) *EcPointJac {
	return &EcPointJac{Array: NewArray(ptr, curveTy), FieldTy: fieldTy}
}

// X returns a Field view over the X coordinate.
func (p *EcPointJac) X(b *ir.Block) *Field { return NewField(p.IndexConst(b, 0), p.FieldTy) }

// Y returns a Field view over the Y coordinate.
func (p *EcPointJac) Y(b *ir.Block) *Field { return NewField(p.IndexConst(b, 1), p.FieldTy) }

// Z returns a Field view over the Z coordinate.
func (p *EcPointJac) Z(b *ir.Block) *Field { return NewField(p.IndexConst(b, 2), p.FieldTy) }
