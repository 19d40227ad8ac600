// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package field

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/luxfi/ctcodegen/asm"
)

// CCopy emits a constant-time conditional copy: if flag != 0, dst <- src,
// else dst is left unchanged. Every limb is selected regardless of flag,
// so no data-dependent branch distinguishes the two outcomes — this is
// the primitive curve.Add/curve.Double use to pick between the doubling
// and general-addition formulas without leaking which path was taken.
func (d *Descriptor) CCopy() (string, error) {
	name := fmt.Sprintf("_cc_ccopy_%s", d.SymPrefix())
	if d.asm.IsDefined(name) {
		return name, nil
	}
	_, err := d.asm.DefineInternalFunction(name, "field."+d.Name, types.Void,
		[]asm.Param{
			{Name: "dst", Type: d.FieldTy},
			{Name: "src", Type: d.FieldTy},
			{Name: "flag", Type: types.I1},
		},
		[]asm.FuncAttr{asm.AttrAlwaysInline},
		func(a *asm.Assembler, fn *ir.Func, block *ir.Block, params []value.Value) error {
			dst := asm.NewField(params[0], d.FieldTy)
			src := asm.NewField(params[1], d.FieldTy)
			flag := params[2]
			for i := int64(0); i < dst.Len(); i++ {
				cur := dst.Load(block, i)
				replacement := src.Load(block, i)
				dst.StoreAt(block, i, block.NewSelect(flag, replacement, cur))
			}
			block.NewRet(nil)
			return nil
		})
	if err != nil {
		return "", err
	}
	return name, nil
}

// CSetZero emits a constant-time conditional zeroing: if flag != 0,
// dst <- 0, else dst is left unchanged.
func (d *Descriptor) CSetZero() (string, error) {
	name := fmt.Sprintf("_cc_csetzero_%s", d.SymPrefix())
	if d.asm.IsDefined(name) {
		return name, nil
	}
	zero := constantInt(d.WordTy, 0)
	_, err := d.asm.DefineInternalFunction(name, "field."+d.Name, types.Void,
		[]asm.Param{
			{Name: "dst", Type: d.FieldTy},
			{Name: "flag", Type: types.I1},
		},
		[]asm.FuncAttr{asm.AttrAlwaysInline},
		func(a *asm.Assembler, fn *ir.Func, block *ir.Block, params []value.Value) error {
			dst := asm.NewField(params[0], d.FieldTy)
			flag := params[1]
			for i := int64(0); i < dst.Len(); i++ {
				cur := dst.Load(block, i)
				dst.StoreAt(block, i, block.NewSelect(flag, zero, cur))
			}
			block.NewRet(nil)
			return nil
		})
	if err != nil {
		return "", err
	}
	return name, nil
}

// CSetOne emits a constant-time conditional set-to-the-Montgomery-one:
// if flag != 0, dst <- R mod p (the field's Montgomery representation of
// 1), else dst is left unchanged.
func (d *Descriptor) CSetOne() (string, error) {
	name := fmt.Sprintf("_cc_csetone_%s", d.SymPrefix())
	if d.asm.IsDefined(name) {
		return name, nil
	}
	oneWords := wordsOf(d.Consts.RModP.Big(), d.NumWords, d.W)
	_, err := d.asm.DefineInternalFunction(name, "field."+d.Name, types.Void,
		[]asm.Param{
			{Name: "dst", Type: d.FieldTy},
			{Name: "flag", Type: types.I1},
		},
		[]asm.FuncAttr{asm.AttrAlwaysInline},
		func(a *asm.Assembler, fn *ir.Func, block *ir.Block, params []value.Value) error {
			dst := asm.NewField(params[0], d.FieldTy)
			flag := params[1]
			for i, w := range oneWords {
				cur := dst.Load(block, int64(i))
				one := constantInt(d.WordTy, int64(w))
				dst.StoreAt(block, int64(i), block.NewSelect(flag, one, cur))
			}
			block.NewRet(nil)
			return nil
		})
	if err != nil {
		return "", err
	}
	return name, nil
}

// CAdd emits a constant-time conditional add: if flag != 0, dst <-
// (dst + src) mod p, else dst is left unchanged.
func (d *Descriptor) CAdd() (string, error) {
	name := fmt.Sprintf("_cc_cadd_%s", d.SymPrefix())
	if d.asm.IsDefined(name) {
		return name, nil
	}
	addName, err := d.ModAdd()
	if err != nil {
		return "", err
	}
	_, err = d.asm.DefineInternalFunction(name, "field."+d.Name, types.Void,
		[]asm.Param{
			{Name: "dst", Type: d.FieldTy},
			{Name: "src", Type: d.FieldTy},
			{Name: "flag", Type: types.I1},
		},
		[]asm.FuncAttr{asm.AttrAlwaysInline},
		func(a *asm.Assembler, fn *ir.Func, block *ir.Block, params []value.Value) error {
			dst := asm.NewField(params[0], d.FieldTy)
			src := asm.NewField(params[1], d.FieldTy)
			flag := params[2]
			return d.emitCAddBody(a, block, dst, src, flag, addName)
		})
	if err != nil {
		return "", err
	}
	return name, nil
}

func (d *Descriptor) emitCAddBody(a *asm.Assembler, block *ir.Block, dst, src *asm.Field, flag value.Value, addName string) error {
	sumAlloca := block.NewAlloca(d.FieldTy)
	sum := asm.NewField(sumAlloca, d.FieldTy)
	if _, err := a.Call(block, addName, sum.Ptr, dst.Ptr, src.Ptr); err != nil {
		return err
	}
	for i := int64(0); i < dst.Len(); i++ {
		cur := dst.Load(block, i)
		added := sum.Load(block, i)
		dst.StoreAt(block, i, block.NewSelect(flag, added, cur))
	}
	block.NewRet(nil)
	return nil
}

// CSub emits a constant-time conditional subtract: if flag != 0, dst <-
// (dst - src) mod p, else dst is left unchanged.
func (d *Descriptor) CSub() (string, error) {
	name := fmt.Sprintf("_cc_csub_%s", d.SymPrefix())
	if d.asm.IsDefined(name) {
		return name, nil
	}
	subName, err := d.ModSub()
	if err != nil {
		return "", err
	}
	_, err = d.asm.DefineInternalFunction(name, "field."+d.Name, types.Void,
		[]asm.Param{
			{Name: "dst", Type: d.FieldTy},
			{Name: "src", Type: d.FieldTy},
			{Name: "flag", Type: types.I1},
		},
		[]asm.FuncAttr{asm.AttrAlwaysInline},
		func(a *asm.Assembler, fn *ir.Func, block *ir.Block, params []value.Value) error {
			dst := asm.NewField(params[0], d.FieldTy)
			src := asm.NewField(params[1], d.FieldTy)
			flag := params[2]
			return d.emitCAddBody(a, block, dst, src, flag, subName)
		})
	if err != nil {
		return "", err
	}
	return name, nil
}
