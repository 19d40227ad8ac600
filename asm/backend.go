// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package asm

import "github.com/llir/llvm/ir/enum"

// Backend is the compilation target, modeled as a sum type dispatched
// over a trait/interface with one implementation per backend, rather
// than a runtime tag checked ad hoc at each call site.
type Backend int

const (
	X86_64Linux Backend = iota
	Arm64MacOS
	NvidiaPTX
	AmdGPU
)

func (b Backend) String() string {
	switch b {
	case X86_64Linux:
		return "x86_64-linux"
	case Arm64MacOS:
		return "arm64-macos"
	case NvidiaPTX:
		return "nvptx"
	case AmdGPU:
		return "amdgpu"
	default:
		return "unknown-backend"
	}
}

// IsGPU reports whether the backend targets a GPU device, the condition
// that selects the kernel calling convention and nvvm annotations in
// DefinePublicFunction.
func (b Backend) IsGPU() bool {
	return b == NvidiaPTX || b == AmdGPU
}

// targetConfig is the (triple, data layout, public calling convention)
// tuple required per backend. The NVVM-1.8 and ROCm-ABI
// layout strings are treated as an ABI: changing them silently produces
// wrong code, so they are written out in full rather than built up
// piecewise.
type targetConfig struct {
	triple       string
	dataLayout   string
	publicCC     enum.CallingConv
	internalCC   enum.CallingConv
}

var targetConfigs = map[Backend]targetConfig{
	X86_64Linux: {
		triple:     "x86_64-pc-linux-gnu",
		dataLayout: "e-m:e-p270:32:32-p271:32:32-p272:64:64-i64:64-i128:128-f80:128-n8:16:32:64-S128",
		publicCC:   enum.CallingConvC,
		internalCC: enum.CallingConvFast,
	},
	Arm64MacOS: {
		triple:     "arm64-apple-macosx11.0.0",
		dataLayout: "e-m:o-i64:64-i128:128-n32:64-S128",
		publicCC:   enum.CallingConvC,
		internalCC: enum.CallingConvFast,
	},
	NvidiaPTX: {
		triple:     "nvptx64-nvidia-cuda",
		dataLayout: "e-i64:64-i128:128-v16:16-v32:32-n16:32:64",
		publicCC:   enum.CallingConvPTXKernel,
		internalCC: enum.CallingConvFast,
	},
	AmdGPU: {
		triple:     "amdgcn-amd-amdhsa",
		dataLayout: "e-p:64:64-p1:64:64-p2:32:32-p3:32:32-p4:64:64-p5:32:32-p6:32:32-i64:64-v16:16-v24:32-v32:32-v48:64-v96:128-v192:256-v256:256-v512:512-v1024:1024-v2048:2048-n32:64-S32-A5-G1-ni:7:8:9",
		publicCC:   enum.CallingConvAMDGPUKernel,
		internalCC: enum.CallingConvFast,
	},
}

func configFor(b Backend) (targetConfig, bool) {
	c, ok := targetConfigs[b]
	return c, ok
}
