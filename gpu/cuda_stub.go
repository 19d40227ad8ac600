//go:build !cuda

// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gpu

import "unsafe"

// cudaDevice is the always-unavailable stand-in used whenever this
// module builds without the cuda tag (and therefore without linking the
// CUDA driver library), matching mlkem/gpu_stub.go's shape: same
// exported surface as the cgo-backed implementation, every entry point
// returns ErrGPUUnavailable.
type cudaDevice struct{}

// NewCUDADevice always fails on a non-cuda build.
func NewCUDADevice() (Device, error) {
	return nil, unavailableRuntimeError("gpu.NewCUDADevice")
}

func (d *cudaDevice) Available() bool { return false }

func (d *cudaDevice) LoadModule(image string) error {
	return unavailableRuntimeError("gpu.(*cudaDevice).LoadModule")
}

func (d *cudaDevice) AllocDevice(size int) (unsafe.Pointer, error) {
	return nil, unavailableRuntimeError("gpu.(*cudaDevice).AllocDevice")
}

func (d *cudaDevice) CopyHostToDevice(dst unsafe.Pointer, src []byte) error {
	return unavailableRuntimeError("gpu.(*cudaDevice).CopyHostToDevice")
}

func (d *cudaDevice) CopyDeviceToHost(dst []byte, src unsafe.Pointer) error {
	return unavailableRuntimeError("gpu.(*cudaDevice).CopyDeviceToHost")
}

func (d *cudaDevice) FreeDevice(ptr unsafe.Pointer) error {
	return unavailableRuntimeError("gpu.(*cudaDevice).FreeDevice")
}

func (d *cudaDevice) Launch(kernel string, gridDim, blockDim [3]uint32, args ...unsafe.Pointer) error {
	return unavailableRuntimeError("gpu.(*cudaDevice).Launch")
}

func (d *cudaDevice) Close() error { return nil }
