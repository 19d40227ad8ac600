//go:build cgo && rocm

// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gpu

/*
#cgo LDFLAGS: -lamdhip64
#include <stdint.h>
#include <stdlib.h>

// Forward declarations for the ROCm/HIP runtime API — only the entry
// points this device wrapper uses, rather than the full HIP runtime
// header.
typedef int hipError_t;
typedef void* hipModule_t;
typedef void* hipFunction_t;
typedef void* hipDeviceptr_t;
typedef void* hipStream_t;

hipError_t hipInit(unsigned int flags);
hipError_t hipModuleLoadData(hipModule_t* module, const void* image);
hipError_t hipModuleGetFunction(hipFunction_t* function, hipModule_t module, const char* kname);
hipError_t hipMalloc(hipDeviceptr_t* ptr, size_t size);
hipError_t hipMemcpyHtoD(hipDeviceptr_t dst, void* src, size_t sizeBytes);
hipError_t hipMemcpyDtoH(void* dst, hipDeviceptr_t src, size_t sizeBytes);
hipError_t hipFree(hipDeviceptr_t ptr);
hipError_t hipModuleLaunchKernel(hipFunction_t f,
                                  unsigned int gridDimX, unsigned int gridDimY, unsigned int gridDimZ,
                                  unsigned int blockDimX, unsigned int blockDimY, unsigned int blockDimZ,
                                  unsigned int sharedMemBytes, hipStream_t stream,
                                  void** kernelParams, void** extra);
*/
import "C"

import (
	"sync"
	"unsafe"

	"github.com/luxfi/ctcodegen/cgerr"
)

// rocmDevice is hip/ROCm's counterpart of cudaDevice: module-load then
// alloc→copy→launch→copy→free, against a relocatable AMDGPU
// code-object-then-link artifact instead of a PTX image.
type rocmDevice struct {
	mu     sync.Mutex
	module C.hipModule_t
	hasMod bool
}

var hipInitOnce sync.Once
var hipInitErr error

func hipInitRuntime() error {
	hipInitOnce.Do(func() {
		if rc := C.hipInit(0); rc != 0 {
			hipInitErr = cgerr.NewRuntimeError("hipInit", int(rc), nil)
		}
	})
	return hipInitErr
}

// NewROCmDevice initializes the HIP runtime.
func NewROCmDevice() (Device, error) {
	if err := hipInitRuntime(); err != nil {
		return nil, err
	}
	return &rocmDevice{}, nil
}

func (d *rocmDevice) Available() bool { return true }

func (d *rocmDevice) LoadModule(image string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cImage := C.CString(image)
	defer C.free(unsafe.Pointer(cImage))

	var mod C.hipModule_t
	if rc := C.hipModuleLoadData(&mod, unsafe.Pointer(cImage)); rc != 0 {
		return cgerr.NewRuntimeError("hipModuleLoadData", int(rc), nil)
	}
	d.module = mod
	d.hasMod = true
	return nil
}

func (d *rocmDevice) AllocDevice(size int) (unsafe.Pointer, error) {
	var ptr C.hipDeviceptr_t
	if rc := C.hipMalloc(&ptr, C.size_t(size)); rc != 0 {
		return nil, cgerr.NewRuntimeError("hipMalloc", int(rc), nil)
	}
	return unsafe.Pointer(ptr), nil
}

func (d *rocmDevice) CopyHostToDevice(dst unsafe.Pointer, src []byte) error {
	if len(src) == 0 {
		return nil
	}
	rc := C.hipMemcpyHtoD(C.hipDeviceptr_t(dst), unsafe.Pointer(&src[0]), C.size_t(len(src)))
	if rc != 0 {
		return cgerr.NewRuntimeError("hipMemcpyHtoD", int(rc), nil)
	}
	return nil
}

func (d *rocmDevice) CopyDeviceToHost(dst []byte, src unsafe.Pointer) error {
	if len(dst) == 0 {
		return nil
	}
	rc := C.hipMemcpyDtoH(unsafe.Pointer(&dst[0]), C.hipDeviceptr_t(src), C.size_t(len(dst)))
	if rc != 0 {
		return cgerr.NewRuntimeError("hipMemcpyDtoH", int(rc), nil)
	}
	return nil
}

func (d *rocmDevice) FreeDevice(ptr unsafe.Pointer) error {
	if rc := C.hipFree(C.hipDeviceptr_t(ptr)); rc != 0 {
		return cgerr.NewRuntimeError("hipFree", int(rc), nil)
	}
	return nil
}

func (d *rocmDevice) Launch(kernel string, gridDim, blockDim [3]uint32, args ...unsafe.Pointer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.hasMod {
		return cgerr.NewRuntimeError("gpu.(*rocmDevice).Launch", -1, errRocmNoModuleLoaded)
	}

	cName := C.CString(kernel)
	defer C.free(unsafe.Pointer(cName))
	var fn C.hipFunction_t
	if rc := C.hipModuleGetFunction(&fn, d.module, cName); rc != 0 {
		return cgerr.NewRuntimeError("hipModuleGetFunction", int(rc), nil)
	}

	var kernelParams []unsafe.Pointer
	for i := range args {
		kernelParams = append(kernelParams, unsafe.Pointer(&args[i]))
	}
	var paramsPtr *unsafe.Pointer
	if len(kernelParams) > 0 {
		paramsPtr = &kernelParams[0]
	}

	rc := C.hipModuleLaunchKernel(fn,
		C.uint(gridDim[0]), C.uint(gridDim[1]), C.uint(gridDim[2]),
		C.uint(blockDim[0]), C.uint(blockDim[1]), C.uint(blockDim[2]),
		0, nil, (*unsafe.Pointer)(paramsPtr), nil)
	if rc != 0 {
		return cgerr.NewRuntimeError("hipModuleLaunchKernel", int(rc), nil)
	}
	return nil
}

func (d *rocmDevice) Close() error { return nil }

var errRocmNoModuleLoaded = errRocmNoModule{}

type errRocmNoModule struct{}

func (errRocmNoModule) Error() string { return "no module loaded; call LoadModule first" }
