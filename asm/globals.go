// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package asm

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
)

// DefineGlobalConstant idempotently defines an immutable global,
// grouped under "ctt.<section>.constants" so unused per-descriptor
// globals (moduli, Montgomery R, -1/p0, (p+1)/2 of fields nobody ended
// up calling genFpMul for) can be garbage-collected by the linker's
// section-level dead-stripping. A second call with the same name returns
// the existing global rather than redefining it.
func (a *Assembler) DefineGlobalConstant(
	name string,
	section string,
	init constant.Constant,
	typ types.Type,
	alignment int,
) *ir.Global {
	if g, ok := a.globals[name]; ok {
		a.log.Debug(fmt.Sprintf("asm: reusing cached global %s", name))
		return g
	}

	g := a.Module.NewGlobalDef(name, init)
	g.ContentType = typ
	g.Immutable = true
	g.Section = fmt.Sprintf("ctt.%s.constants", section)
	g.Align = ir.Align(alignment)

	a.globals[name] = g
	return g
}

// GlobalConstant returns the previously-defined global with the given
// name, if any.
func (a *Assembler) GlobalConstant(name string) (*ir.Global, bool) {
	g, ok := a.globals[name]
	return g, ok
}
