//go:build !rocm

// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gpu

import "unsafe"

// rocmDevice is ROCm/HIP's counterpart to cudaDevice: same
// always-unavailable stub shape, selected whenever this module builds
// without the rocm tag.
type rocmDevice struct{}

// NewROCmDevice always fails on a non-rocm build.
func NewROCmDevice() (Device, error) {
	return nil, unavailableRuntimeError("gpu.NewROCmDevice")
}

func (d *rocmDevice) Available() bool { return false }

func (d *rocmDevice) LoadModule(image string) error {
	return unavailableRuntimeError("gpu.(*rocmDevice).LoadModule")
}

func (d *rocmDevice) AllocDevice(size int) (unsafe.Pointer, error) {
	return nil, unavailableRuntimeError("gpu.(*rocmDevice).AllocDevice")
}

func (d *rocmDevice) CopyHostToDevice(dst unsafe.Pointer, src []byte) error {
	return unavailableRuntimeError("gpu.(*rocmDevice).CopyHostToDevice")
}

func (d *rocmDevice) CopyDeviceToHost(dst []byte, src unsafe.Pointer) error {
	return unavailableRuntimeError("gpu.(*rocmDevice).CopyDeviceToHost")
}

func (d *rocmDevice) FreeDevice(ptr unsafe.Pointer) error {
	return unavailableRuntimeError("gpu.(*rocmDevice).FreeDevice")
}

func (d *rocmDevice) Launch(kernel string, gridDim, blockDim [3]uint32, args ...unsafe.Pointer) error {
	return unavailableRuntimeError("gpu.(*rocmDevice).Launch")
}

func (d *rocmDevice) Close() error { return nil }
