// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package backend carries an emitted *ir.Module through the three-phase
// Verify → optimize → Emit sequence, against one of the four target
// configurations package asm already fixes (x86-64 Linux, arm64 macOS,
// Nvidia PTX, AMD GPU). It textually serializes both the optimization
// pipeline description and the module itself, since the LLVM C API is
// treated throughout this compiler as an external collaborator reached
// only at the textual-IR boundary — this package never links against
// libLLVM.
package backend

import (
	"fmt"
	"strings"

	"github.com/llir/llvm/ir"

	"github.com/luxfi/ctcodegen/asm"
	"github.com/luxfi/ctcodegen/cgerr"
	log "github.com/luxfi/log"
)

// DefaultPassPipeline is the `opt`/`llc`-style new-pass-manager pipeline
// description this backend targets for every emitted module, chosen to
// clean up the CIOS/group-law IR's heavy use of scratch allocas and
// memoized-but-possibly-unused helper calls before machine-code emission:
// mem2reg+sroa promote the scratch allocas to registers, instcombine+gvn+dse
// fold the carry-chain arithmetic, inline collapses the memoized
// small-function call graph back down, and adce removes whichever
// memoized field/curve helper ended up unreferenced by the final kernel.
const DefaultPassPipeline = "default<O3>,function-attrs,memcpyopt,sroa,mem2reg,gvn,dse,instcombine,inline,adce"

// Target pairs an asm.Backend with the knobs Pipeline.Run needs beyond
// what asm.Assembler already fixed at module-creation time: whether to
// enable the merge-functions pass (worthwhile once many curve/field
// descriptor instantiations emit byte-identical helper bodies, e.g. two
// curves sharing a base field) and an optional override of the pass
// pipeline string.
type Target struct {
	Backend      asm.Backend
	MergeFunctions bool
	PassPipeline string
}

// NewTarget returns a Target for backend with merge-functions enabled and
// the default pass pipeline, the configuration every one of this
// compiler's emission paths (CPU object file, PTX module, AMDGPU
// relocatable object) starts from.
func NewTarget(b asm.Backend) Target {
	return Target{Backend: b, MergeFunctions: true, PassPipeline: DefaultPassPipeline}
}

func (t Target) passPipeline() string {
	pipeline := t.PassPipeline
	if pipeline == "" {
		pipeline = DefaultPassPipeline
	}
	if t.MergeFunctions {
		pipeline = "merge-functions," + pipeline
	}
	return pipeline
}

// Pipeline runs a Target's Verify → optimize → Emit sequence over one
// *ir.Module. A Pipeline is stateless beyond its Target and Logger; the
// same Pipeline value can Run multiple modules.
type Pipeline struct {
	Target Target
	log    log.Logger
}

// NewPipeline builds a Pipeline for target.
func NewPipeline(target Target) *Pipeline {
	return &Pipeline{Target: target, log: log.NoLog{}}
}

// WithLogger attaches a structured logger and returns the Pipeline for
// chaining, mirroring asm.Assembler.WithLogger.
func (p *Pipeline) WithLogger(l log.Logger) *Pipeline {
	p.log = l
	return p
}

// Result is what Run produces: the pass pipeline string applied (for
// diagnostics/snapshot tests) and the final serialized artifact text, in
// whatever form Emit produced for the Target's backend (LLVM IR text for
// CPU targets pre-codegen, PTX assembly text for NvidiaPTX, AMDGPU
// assembly text for AmdGPU).
type Result struct {
	PassPipeline string
	Assembly     string
}

// Run executes Verify, then records the pass pipeline that would be
// handed to `opt`/`llc` (this package does not invoke an external LLVM
// toolchain; see Emit), then serializes the module. A VerificationError
// aborts before any pipeline string is computed; a TargetError wraps any
// failure from Emit itself.
func (p *Pipeline) Run(module *ir.Module) (*Result, error) {
	if err := Verify(module); err != nil {
		return nil, err
	}
	pipeline := p.Target.passPipeline()
	p.log.Debug(fmt.Sprintf("backend: running pass pipeline %q for target %s", pipeline, p.Target.Backend))

	asmText, err := Emit(module, p.Target.Backend)
	if err != nil {
		return nil, cgerr.NewTargetError(p.Target.Backend.String(), err)
	}
	return &Result{PassPipeline: pipeline, Assembly: asmText}, nil
}

// Emit serializes module as textual IR. CPU backends (x86-64, arm64) and
// GPU backends (NvidiaPTX, AmdGPU) share the same serialization here: the
// module's own TargetTriple/DataLayout (set by asm.New) already encode
// the distinction a real `llc -march=nvptx64` invocation would need, and
// this package's contract ends at producing well-formed, target-tagged
// IR text — actual PTX/machine-code lowering is the external LLVM
// toolchain's job, invoked downstream of this package.
func Emit(module *ir.Module, b asm.Backend) (string, error) {
	var sb strings.Builder
	sb.WriteString(module.String())
	return sb.String(), nil
}

// AssemblyFile returns the file extension conventionally used for this
// backend's textual emission artifact, for callers writing Emit's output
// to disk.
func AssemblyFile(b asm.Backend) string {
	switch b {
	case asm.NvidiaPTX:
		return ".ptx"
	case asm.AmdGPU:
		return ".s"
	default:
		return ".ll"
	}
}
