// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package asm is the structured facade over LLVM IR construction this
// compiler lowers every arithmetic algorithm through: scoped function
// definition with calling-convention control, global constant
// memoization, and a minimal control-flow DSL. It is built on
// github.com/llir/llvm, a pure-Go LLVM IR library, since none of this
// module's teacher or sibling example repos bind the LLVM C API and the
// spec itself treats the C API as an external collaborator accessed only
// through a narrow interface.
package asm

import (
	"encoding/binary"
	"fmt"

	"github.com/llir/llvm/ir"

	"github.com/luxfi/ctcodegen/cgerr"
	log "github.com/luxfi/log"
)

// funcEntry is the memoized (type, value, is_internal) record that is
// the sole mechanism preventing duplicate emission.
type funcEntry struct {
	fn         *ir.Func
	isInternal bool
}

// Assembler is the process-wide aggregate owning the IR module, the
// function/global memoization tables, and the chosen backend. One
// Assembler is created per compilation unit and is never shared across
// goroutines — code generation is single-threaded.
type Assembler struct {
	Backend Backend
	Module  *ir.Module

	funcs   map[string]*funcEntry
	globals map[string]*ir.Global

	log log.Logger
}

// New creates an Assembler bound to backend, with the module's target
// triple and data layout set accordingly. Fails with a ConfigurationError
// if the host is big-endian, since emitted field/curve arithmetic assumes
// little-endian limb order throughout and host and device must share
// word-endianness.
func New(backend Backend, moduleName string) (*Assembler, error) {
	if isBigEndianHost() {
		return nil, cgerr.NewConfigurationError("asm.New", errBigEndianHost)
	}

	cfg, ok := configFor(backend)
	if !ok {
		return nil, cgerr.NewConfigurationError("asm.New", fmt.Errorf("unsupported backend %v", backend))
	}

	m := ir.NewModule()
	m.SourceFilename = moduleName
	m.TargetTriple = cfg.triple
	m.DataLayout = cfg.dataLayout

	return &Assembler{
		Backend: backend,
		Module:  m,
		funcs:   make(map[string]*funcEntry),
		globals: make(map[string]*ir.Global),
		log:     log.NoLog{},
	}, nil
}

// WithLogger attaches a structured logger used for emission-time
// diagnostics (which reduction variant was chosen, cache hits on
// memoized functions/globals). It returns the Assembler for chaining.
func (a *Assembler) WithLogger(l log.Logger) *Assembler {
	a.log = l
	return a
}

func isBigEndianHost() bool {
	var x uint16 = 1
	buf := [2]byte{}
	binary.NativeEndian.PutUint16(buf[:], x)
	return buf[0] == 0
}

var errBigEndianHost = fmt.Errorf("big-endian hosts are not supported")
