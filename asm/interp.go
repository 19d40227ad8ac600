// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package asm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/luxfi/ctcodegen/cgerr"
)

// Interpreter evaluates emitted basic blocks word-by-word in Go, the
// fastest way this test suite has to check that an *ir.Func produced by
// field/curve/msm actually implements its arithmetic identity without a
// live LLVM build or GPU: it understands exactly the instruction subset
// this compiler's own emission uses (add/sub/mul/and/or/icmp/select/
// trunc/zext/lshr/shl/getelementptr/load/store/call/br/condbr/phi/
// extractvalue, plus the llvm.u{add,sub}.with.overflow.iN intrinsics) and
// nothing else — it is not a general LLVM interpreter.
type Interpreter struct {
	mem     *memory
	stack   int // recursion guard against runaway mutual calls
	globals map[*ir.Global]memPtr

	// lastOverflowFlag smuggles the flag bit of the most recent
	// llvm.u{add,sub}.with.overflow call through to its ExtractValue use
	// site, since this interpreter never materializes LLVM's aggregate
	// struct values directly — field/intrinsics.go always extracts both
	// struct fields from a call immediately after emitting it, so no
	// other call interleaves and overwrites this before it's read.
	lastOverflowFlag int64
}

// NewInterpreter returns an Interpreter with a fresh backing heap.
func NewInterpreter() *Interpreter {
	return &Interpreter{mem: newMemory()}
}

// maxCallDepth bounds recursive Call evaluation; every function this
// compiler emits is a straight-line or for-loop body with no recursion,
// so a stack this deep only triggers on a genuine interpreter bug (e.g.
// a missing memoization hit sending Call back into its own definition).
const maxCallDepth = 4096

// Buffer is a typed view over a little-endian word slice the Interpreter
// reads arguments from / writes results into, mirroring the asm.Field /
// asm.Array convention the emitted code itself uses.
type Buffer struct {
	Words []uint64
	W     int // word bit width, 32 or 64
}

// ScalarArg binds a plain (non-pointer) integer argument, for the
// params DefineInternalFunction never pointer-wraps — shouldWrapAggregate
// only wraps array-typed parameters at or above the aggregate threshold,
// so a lone i1 flag (CCopy/CSetZero/CAdd/CSub's constant-time selector)
// or a small-field descriptor's field-array params below that threshold
// both pass by value.
type ScalarArg struct {
	V     uint64
	Width int
}

// RunVoidFunc calls fn (a Void-returning function) with args bound in
// order, and returns nothing — callers inspect the *Buffer args they
// passed in, which the interpreter mutates in place exactly as the real
// emitted code would via store. Each arg is either a *Buffer (bound as a
// pointer) or a ScalarArg (bound as a plain value).
func (in *Interpreter) RunVoidFunc(fn *ir.Func, args ...interface{}) error {
	if len(args) != len(fn.Params) {
		return cgerr.NewCodegenError("asm.Interpreter.RunVoidFunc",
			fmt.Errorf("function %s expects %d args, got %d", fn.Name(), len(fn.Params), len(args)))
	}
	vals := make([]ivalue, len(args))
	for i, raw := range args {
		switch a := raw.(type) {
		case *Buffer:
			vals[i] = ivalue{isPtr: true, ptr: in.mem.bind(a)}
		case ScalarArg:
			vals[i] = intVal(int64(a.V), a.Width)
		default:
			return cgerr.NewCodegenError("asm.Interpreter.RunVoidFunc",
				fmt.Errorf("unsupported argument type %T at position %d", raw, i))
		}
	}
	_, err := in.callFunc(fn, vals)
	return err
}

// ivalue is the interpreter's single value representation: either an
// integer (arbitrary width, stored unsigned and masked to Width bits) or
// a pointer into the interpreter's flat memory.
type ivalue struct {
	isPtr bool
	ptr   memPtr
	i     *big.Int
	width int
}

func intVal(v int64, width int) ivalue {
	return ivalue{i: maskTo(big.NewInt(v), width), width: width}
}

func maskTo(x *big.Int, width int) *big.Int {
	mod := new(big.Int).Lsh(big.NewInt(1), uint(width))
	r := new(big.Int).Mod(x, mod)
	if r.Sign() < 0 {
		r.Add(r, mod)
	}
	return r
}

// memPtr is an opaque handle into the interpreter's heap: a buffer index
// plus a word offset, letting getelementptr arithmetic stay exact
// without modeling real byte addresses.
type memPtr struct {
	buf int
	idx int // word offset within buf
}

type memory struct {
	bufs [][]uint64
	w    []int // word width per buffer
}

func newMemory() *memory { return &memory{} }

func (m *memory) bind(b *Buffer) memPtr {
	m.bufs = append(m.bufs, b.Words)
	m.w = append(m.w, b.W)
	return memPtr{buf: len(m.bufs) - 1, idx: 0}
}

func (m *memory) alloc(n, w int) memPtr {
	m.bufs = append(m.bufs, make([]uint64, n))
	m.w = append(m.w, w)
	return memPtr{buf: len(m.bufs) - 1, idx: 0}
}

func (m *memory) load(p memPtr, width int) *big.Int {
	return new(big.Int).SetUint64(m.bufs[p.buf][p.idx])
}

func (m *memory) store(p memPtr, v *big.Int) {
	m.bufs[p.buf][p.idx] = v.Uint64()
}

// frame is one call's local SSA value bindings, keyed by instruction
// identity (the *ir.Block pointer + index isn't stable across blocks, so
// values are keyed directly by their value.Value identity via a map from
// the llir/llvm value pointer).
type frame struct {
	vals map[value.Value]ivalue
}

func newFrame() *frame { return &frame{vals: make(map[value.Value]ivalue)} }

func (in *Interpreter) callFunc(fn *ir.Func, args []ivalue) (ivalue, error) {
	in.stack++
	defer func() { in.stack-- }()
	if in.stack > maxCallDepth {
		return ivalue{}, cgerr.NewCodegenError("asm.Interpreter", fmt.Errorf("call depth exceeded evaluating %s", fn.Name()))
	}

	if len(fn.Blocks) == 0 {
		return ivalue{}, cgerr.NewCodegenError("asm.Interpreter", fmt.Errorf("function %s has no body (declaration-only)", fn.Name()))
	}

	f := newFrame()
	for i, p := range fn.Params {
		f.vals[p] = args[i]
	}

	block := fn.Blocks[0]
	var prevBlock *ir.Block
	for {
		for _, inst := range block.Insts {
			if err := in.execInst(f, block, inst); err != nil {
				return ivalue{}, err
			}
		}
		switch term := block.Term.(type) {
		case *ir.TermRet:
			if term.X == nil {
				return ivalue{}, nil
			}
			v, err := in.eval(f, term.X)
			return v, err
		case *ir.TermBr:
			prevBlock = block
			block = term.Target
		case *ir.TermCondBr:
			cond, err := in.eval(f, term.Cond)
			if err != nil {
				return ivalue{}, err
			}
			prevBlock = block
			if cond.i.Sign() != 0 {
				block = term.TargetTrue
			} else {
				block = term.TargetFalse
			}
		default:
			return ivalue{}, cgerr.NewCodegenError("asm.Interpreter", fmt.Errorf("unsupported terminator %T", term))
		}
		if err := in.resolvePhis(f, block, prevBlock); err != nil {
			return ivalue{}, err
		}
	}
}

// resolvePhis evaluates every leading Phi in block using the edge from
// prev, since the interpreter walks blocks rather than literally forking
// SSA — correct as long as phis only ever appear at a block's head,
// which is the only shape asm.For/asm.If ever emit.
func (in *Interpreter) resolvePhis(f *frame, block, prev *ir.Block) error {
	for _, inst := range block.Insts {
		phi, ok := inst.(*ir.InstPhi)
		if !ok {
			break
		}
		for _, inc := range phi.Incs {
			if inc.Pred == prev {
				v, err := in.eval(f, inc.X)
				if err != nil {
					return err
				}
				f.vals[phi] = v
				break
			}
		}
	}
	return nil
}

func isOverflowIntrinsic(name string) bool {
	return strings.HasPrefix(name, "llvm.uadd.with.overflow.") || strings.HasPrefix(name, "llvm.usub.with.overflow.")
}

func (in *Interpreter) execInst(f *frame, block *ir.Block, inst ir.Instruction) error {
	switch i := inst.(type) {
	case *ir.InstAlloca:
		n := wordsOfType(i.ElemType)
		width := innermostIntWidth(i.ElemType)
		f.vals[i] = ivalue{isPtr: true, ptr: in.mem.alloc(n, width)}
		return nil

	case *ir.InstGetElementPtr:
		base, err := in.eval(f, i.Src)
		if err != nil {
			return err
		}
		if !base.isPtr {
			return cgerr.NewCodegenError("asm.Interpreter", fmt.Errorf("getelementptr on non-pointer value"))
		}
		offset := 0
		curType := i.ElemType
		for idx, indexVal := range i.Indices {
			iv, err := in.eval(f, indexVal)
			if err != nil {
				return err
			}
			if idx == 0 {
				continue // leading zero index dereferences the pointer itself
			}
			arrTy, ok := curType.(*types.ArrayType)
			if !ok {
				return cgerr.NewCodegenError("asm.Interpreter", fmt.Errorf("getelementptr index into non-array type %T", curType))
			}
			stride := wordsOfType(arrTy.ElemType)
			offset += int(iv.i.Int64()) * stride
			curType = arrTy.ElemType
		}
		f.vals[i] = ivalue{isPtr: true, ptr: memPtr{buf: base.ptr.buf, idx: base.ptr.idx + offset}}
		return nil

	case *ir.InstLoad:
		p, err := in.eval(f, i.Src)
		if err != nil {
			return err
		}
		width := in.mem.w[p.ptr.buf]
		f.vals[i] = ivalue{i: in.mem.load(p.ptr, width), width: width}
		return nil

	case *ir.InstStore:
		p, err := in.eval(f, i.Dst)
		if err != nil {
			return err
		}
		v, err := in.eval(f, i.Src)
		if err != nil {
			return err
		}
		in.mem.store(p.ptr, v.i)
		return nil

	case *ir.InstAdd:
		return in.binOp(f, i, i.X, i.Y, func(x, y *big.Int) *big.Int { return new(big.Int).Add(x, y) })
	case *ir.InstSub:
		return in.binOp(f, i, i.X, i.Y, func(x, y *big.Int) *big.Int { return new(big.Int).Sub(x, y) })
	case *ir.InstMul:
		return in.binOp(f, i, i.X, i.Y, func(x, y *big.Int) *big.Int { return new(big.Int).Mul(x, y) })
	case *ir.InstAnd:
		return in.binOp(f, i, i.X, i.Y, func(x, y *big.Int) *big.Int { return new(big.Int).And(x, y) })
	case *ir.InstOr:
		return in.binOp(f, i, i.X, i.Y, func(x, y *big.Int) *big.Int { return new(big.Int).Or(x, y) })
	case *ir.InstShl:
		return in.binOp(f, i, i.X, i.Y, func(x, y *big.Int) *big.Int { return new(big.Int).Lsh(x, uint(y.Int64())) })
	case *ir.InstLShr:
		return in.binOp(f, i, i.X, i.Y, func(x, y *big.Int) *big.Int { return new(big.Int).Rsh(x, uint(y.Int64())) })

	case *ir.InstTrunc:
		v, err := in.eval(f, i.From)
		if err != nil {
			return err
		}
		width := int(i.To.(*types.IntType).BitSize)
		f.vals[i] = ivalue{i: maskTo(v.i, width), width: width}
		return nil

	case *ir.InstZExt:
		v, err := in.eval(f, i.From)
		if err != nil {
			return err
		}
		width := int(i.To.(*types.IntType).BitSize)
		f.vals[i] = ivalue{i: new(big.Int).Set(v.i), width: width}
		return nil

	case *ir.InstICmp:
		x, err := in.eval(f, i.X)
		if err != nil {
			return err
		}
		y, err := in.eval(f, i.Y)
		if err != nil {
			return err
		}
		r := evalICmp(i.Pred, x.i, y.i)
		f.vals[i] = intVal(b2i(r), 1)
		return nil

	case *ir.InstSelect:
		cond, err := in.eval(f, i.Cond)
		if err != nil {
			return err
		}
		var chosen value.Value
		if cond.i.Sign() != 0 {
			chosen = i.X
		} else {
			chosen = i.Y
		}
		v, err := in.eval(f, chosen)
		if err != nil {
			return err
		}
		f.vals[i] = v
		return nil

	case *ir.InstPhi:
		// Resolved by resolvePhis on block entry; nothing to do here.
		return nil

	case *ir.InstCall:
		return in.execCall(f, i)

	case *ir.InstExtractValue:
		return in.execExtractValue(f, i)

	default:
		return cgerr.NewCodegenError("asm.Interpreter", fmt.Errorf("unsupported instruction %T", inst))
	}
}

func (in *Interpreter) binOp(f *frame, dst value.Value, xv, yv value.Value, op func(x, y *big.Int) *big.Int) error {
	x, err := in.eval(f, xv)
	if err != nil {
		return err
	}
	y, err := in.eval(f, yv)
	if err != nil {
		return err
	}
	width := x.width
	if width == 0 {
		width = y.width
	}
	f.vals[dst] = ivalue{i: maskTo(op(x.i, y.i), width), width: width}
	return nil
}

func (in *Interpreter) execCall(f *frame, i *ir.InstCall) error {
	callee, ok := i.Callee.(*ir.Func)
	if !ok {
		return cgerr.NewCodegenError("asm.Interpreter", fmt.Errorf("indirect call not supported"))
	}
	args := make([]ivalue, len(i.Args))
	for idx, a := range i.Args {
		v, err := in.eval(f, a)
		if err != nil {
			return err
		}
		args[idx] = v
	}

	if isOverflowIntrinsic(callee.Name()) {
		x, y := args[0], args[1]
		width := x.width
		var sum *big.Int
		var overflow bool
		if strings.HasPrefix(callee.Name(), "llvm.uadd") {
			sum = new(big.Int).Add(x.i, y.i)
			mod := new(big.Int).Lsh(big.NewInt(1), uint(width))
			overflow = sum.Cmp(mod) >= 0
			sum = maskTo(sum, width)
		} else {
			overflow = x.i.Cmp(y.i) < 0
			sum = maskTo(new(big.Int).Sub(x.i, y.i), width)
		}
		in.lastOverflowFlag = b2i(overflow)
		f.vals[i] = ivalue{i: sum, width: width}
		return nil
	}

	result, err := in.callFunc(callee, args)
	if err != nil {
		return err
	}
	f.vals[i] = result
	return nil
}

func (in *Interpreter) execExtractValue(f *frame, i *ir.InstExtractValue) error {
	// This interpreter only ever produces struct-typed values from the
	// overflow intrinsics (see execCall); the sum/diff is field 0
	// (already bound to the InstCall's own SSA value), the flag is field
	// 1 (held in lastOverflowFlag since the call just preceded it).
	if len(i.Indices) != 1 {
		return cgerr.NewCodegenError("asm.Interpreter", fmt.Errorf("unsupported nested extractvalue"))
	}
	switch i.Indices[0] {
	case 0:
		v, err := in.eval(f, i.X)
		if err != nil {
			return err
		}
		f.vals[i] = v
		return nil
	case 1:
		f.vals[i] = intVal(in.lastOverflowFlag, 1)
		return nil
	default:
		return cgerr.NewCodegenError("asm.Interpreter", fmt.Errorf("unsupported extractvalue index %d", i.Indices[0]))
	}
}

func (in *Interpreter) eval(f *frame, v value.Value) (ivalue, error) {
	if existing, ok := f.vals[v]; ok {
		return existing, nil
	}
	switch c := v.(type) {
	case *constant.Int:
		width := 64
		if it, ok := c.Typ.(*types.IntType); ok {
			width = int(it.BitSize)
		}
		return ivalue{i: maskTo(new(big.Int).Set(c.X), width), width: width}, nil
	case *ir.Global:
		if buf, ok := in.globalBuf(c); ok {
			return ivalue{isPtr: true, ptr: buf}, nil
		}
	}
	return ivalue{}, cgerr.NewCodegenError("asm.Interpreter", fmt.Errorf("unbound SSA value %v (%T)", v, v))
}

func (in *Interpreter) globalBuf(g *ir.Global) (memPtr, bool) {
	if in.globals == nil {
		in.globals = make(map[*ir.Global]memPtr)
	}
	if p, ok := in.globals[g]; ok {
		return p, true
	}
	arr, ok := g.Init.(*constant.Array)
	if !ok {
		return memPtr{}, false
	}
	words := make([]uint64, len(arr.Elems))
	width := 64
	for idx, e := range arr.Elems {
		ci, ok := e.(*constant.Int)
		if !ok {
			return memPtr{}, false
		}
		if it, ok := ci.Typ.(*types.IntType); ok {
			width = int(it.BitSize)
		}
		words[idx] = ci.X.Uint64()
	}
	p := in.mem.alloc(len(words), width)
	copy(in.mem.bufs[p.buf], words)
	in.globals[g] = p
	return p, true
}

func evalICmp(pred enum.IPred, x, y *big.Int) bool {
	switch pred {
	case enum.IPredEQ:
		return x.Cmp(y) == 0
	case enum.IPredNE:
		return x.Cmp(y) != 0
	case enum.IPredSLE, enum.IPredULE:
		return x.Cmp(y) <= 0
	case enum.IPredSGE, enum.IPredUGE:
		return x.Cmp(y) >= 0
	case enum.IPredSLT, enum.IPredULT:
		return x.Cmp(y) < 0
	case enum.IPredSGT, enum.IPredUGT:
		return x.Cmp(y) > 0
	default:
		return false
	}
}

// wordsOfType returns the number of interpreter words (each mem.w-wide)
// a value of type t occupies, so getelementptr's array-index arithmetic
// can compute the right flat-buffer stride for nested array types
// (e.g. an EcPointJac's 3 Field-typed elements, each NumWords words).
func wordsOfType(t types.Type) int {
	switch v := t.(type) {
	case *types.ArrayType:
		return int(v.Len) * wordsOfType(v.ElemType)
	default:
		return 1
	}
}

// innermostIntWidth finds the bit width of the scalar type at the bottom
// of a (possibly nested-array) type, the word width an Alloca's backing
// buffer should report for subsequent Load/Store width tagging.
func innermostIntWidth(t types.Type) int {
	switch v := t.(type) {
	case *types.ArrayType:
		return innermostIntWidth(v.ElemType)
	case *types.IntType:
		return int(v.BitSize)
	default:
		return 64
	}
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
