// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package gpu loads an emitted PTX/AMDGPU module onto a physical device
// and launches one of its kernels, using the cgo/stub build-tag pairing
// common across this codebase's other GPU-backed packages: a
// `cuda`/`rocm` build-tagged file holds the real cgo bindings, a
// `!cuda`/`!rocm` file provides the always-unavailable stub with an
// identical exported surface, so callers never branch on build tags
// themselves.
package gpu

import (
	"errors"
	"unsafe"

	"github.com/luxfi/ctcodegen/cgerr"
)

// ErrGPUUnavailable is returned (wrapped in a cgerr.RuntimeError) by
// every Device method on a stub build.
var ErrGPUUnavailable = errors.New("GPU acceleration not available")

// Device is the minimal surface this compiler's test harness needs to
// load a freshly emitted kernel module and run it against real device
// memory: alloc, copy-in, launch, copy-out, free, in that fixed order.
type Device interface {
	// Available reports whether this Device can actually dispatch work
	// (the underlying driver initialized and a device is present).
	Available() bool

	// LoadModule loads a PTX (Nvidia) or AMDGPU code-object (AMD) image
	// produced by backend.Emit, making its kernels launchable by name.
	LoadModule(image string) error

	// AllocDevice allocates size bytes of device memory.
	AllocDevice(size int) (unsafe.Pointer, error)

	// CopyHostToDevice copies src into the previously allocated dst.
	CopyHostToDevice(dst unsafe.Pointer, src []byte) error

	// CopyDeviceToHost copies len(dst) bytes from src into dst.
	CopyDeviceToHost(dst []byte, src unsafe.Pointer) error

	// FreeDevice releases memory obtained from AllocDevice.
	FreeDevice(ptr unsafe.Pointer) error

	// Launch runs the named kernel (already present via LoadModule)
	// against args, device pointers obtained from AllocDevice, laid out
	// in the public-function-ABI parameter order backend.Emit produced.
	// This module's test harness always launches a (1,1,1)/(1,1,1) grid;
	// Launch itself does not fix the grid shape so larger harnesses can
	// reuse it.
	Launch(kernel string, gridDim, blockDim [3]uint32, args ...unsafe.Pointer) error

	// Close releases the underlying context/module.
	Close() error
}

// unavailableRuntimeError wraps ErrGPUUnavailable as the RuntimeError
// every stub Device method returns, named op for the specific call that
// was attempted.
func unavailableRuntimeError(op string) error {
	return cgerr.NewRuntimeError(op, -1, ErrGPUUnavailable)
}
