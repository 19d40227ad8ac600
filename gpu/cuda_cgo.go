//go:build cgo && cuda

// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gpu

/*
#cgo LDFLAGS: -lcuda
#include <stdint.h>
#include <stdlib.h>

// Forward declarations for the CUDA driver API: only the handful of
// entry points actually used, rather than pulling in the full cuda.h.
typedef int CUresult;
typedef void* CUcontext;
typedef void* CUdevice_ptr;
typedef void* CUmodule;
typedef void* CUfunction;

CUresult cuInit(unsigned int flags);
CUresult cuDeviceGet(int* device, int ordinal);
CUresult cuCtxCreate_v2(CUcontext* ctx, unsigned int flags, int device);
CUresult cuModuleLoadData(CUmodule* module, const void* image);
CUresult cuModuleGetFunction(CUfunction* hfunc, CUmodule hmod, const char* name);
CUresult cuMemAlloc_v2(CUdevice_ptr* dptr, size_t bytesize);
CUresult cuMemcpyHtoD_v2(CUdevice_ptr dstDevice, const void* srcHost, size_t byteCount);
CUresult cuMemcpyDtoH_v2(void* dstHost, CUdevice_ptr srcDevice, size_t byteCount);
CUresult cuMemFree_v2(CUdevice_ptr dptr);
CUresult cuLaunchKernel(CUfunction f,
                         unsigned int gridDimX, unsigned int gridDimY, unsigned int gridDimZ,
                         unsigned int blockDimX, unsigned int blockDimY, unsigned int blockDimZ,
                         unsigned int sharedMemBytes, void* hStream,
                         void** kernelParams, void** extra);
CUresult cuCtxDestroy_v2(CUcontext ctx);
*/
import "C"

import (
	"sync"
	"unsafe"

	"github.com/luxfi/ctcodegen/cgerr"
)

// cudaDevice wraps one CUDA context and the most recently loaded
// module, matching the alloc→copy→launch→copy→free ordering this
// module's GPU test harness expects.
type cudaDevice struct {
	mu      sync.Mutex
	ctx     C.CUcontext
	module  C.CUmodule
	hasMod  bool
}

var initOnce sync.Once
var initErr error

func cudaInit() error {
	initOnce.Do(func() {
		if rc := C.cuInit(0); rc != 0 {
			initErr = cgerr.NewRuntimeError("cuInit", int(rc), nil)
		}
	})
	return initErr
}

// NewCUDADevice initializes the CUDA driver, selects device 0, and
// creates a context.
func NewCUDADevice() (Device, error) {
	if err := cudaInit(); err != nil {
		return nil, err
	}
	var dev C.int
	if rc := C.cuDeviceGet(&dev, 0); rc != 0 {
		return nil, cgerr.NewRuntimeError("cuDeviceGet", int(rc), nil)
	}
	var ctx C.CUcontext
	if rc := C.cuCtxCreate_v2(&ctx, 0, dev); rc != 0 {
		return nil, cgerr.NewRuntimeError("cuCtxCreate", int(rc), nil)
	}
	return &cudaDevice{ctx: ctx}, nil
}

func (d *cudaDevice) Available() bool { return true }

// LoadModule loads a PTX image produced by backend.Emit for the
// NvidiaPTX target.
func (d *cudaDevice) LoadModule(image string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cImage := C.CString(image)
	defer C.free(unsafe.Pointer(cImage))

	var mod C.CUmodule
	if rc := C.cuModuleLoadData(&mod, unsafe.Pointer(cImage)); rc != 0 {
		return cgerr.NewRuntimeError("cuModuleLoadData", int(rc), nil)
	}
	d.module = mod
	d.hasMod = true
	return nil
}

func (d *cudaDevice) AllocDevice(size int) (unsafe.Pointer, error) {
	var dptr C.CUdevice_ptr
	if rc := C.cuMemAlloc_v2(&dptr, C.size_t(size)); rc != 0 {
		return nil, cgerr.NewRuntimeError("cuMemAlloc", int(rc), nil)
	}
	return unsafe.Pointer(dptr), nil
}

func (d *cudaDevice) CopyHostToDevice(dst unsafe.Pointer, src []byte) error {
	if len(src) == 0 {
		return nil
	}
	rc := C.cuMemcpyHtoD_v2(C.CUdevice_ptr(dst), unsafe.Pointer(&src[0]), C.size_t(len(src)))
	if rc != 0 {
		return cgerr.NewRuntimeError("cuMemcpyHtoD", int(rc), nil)
	}
	return nil
}

func (d *cudaDevice) CopyDeviceToHost(dst []byte, src unsafe.Pointer) error {
	if len(dst) == 0 {
		return nil
	}
	rc := C.cuMemcpyDtoH_v2(unsafe.Pointer(&dst[0]), C.CUdevice_ptr(src), C.size_t(len(dst)))
	if rc != 0 {
		return cgerr.NewRuntimeError("cuMemcpyDtoH", int(rc), nil)
	}
	return nil
}

func (d *cudaDevice) FreeDevice(ptr unsafe.Pointer) error {
	if rc := C.cuMemFree_v2(C.CUdevice_ptr(ptr)); rc != 0 {
		return cgerr.NewRuntimeError("cuMemFree", int(rc), nil)
	}
	return nil
}

func (d *cudaDevice) Launch(kernel string, gridDim, blockDim [3]uint32, args ...unsafe.Pointer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.hasMod {
		return cgerr.NewRuntimeError("gpu.(*cudaDevice).Launch", -1, errCudaNoModuleLoaded)
	}

	cName := C.CString(kernel)
	defer C.free(unsafe.Pointer(cName))
	var fn C.CUfunction
	if rc := C.cuModuleGetFunction(&fn, d.module, cName); rc != 0 {
		return cgerr.NewRuntimeError("cuModuleGetFunction", int(rc), nil)
	}

	var kernelParams []unsafe.Pointer
	for i := range args {
		kernelParams = append(kernelParams, unsafe.Pointer(&args[i]))
	}
	var paramsPtr *unsafe.Pointer
	if len(kernelParams) > 0 {
		paramsPtr = &kernelParams[0]
	}

	rc := C.cuLaunchKernel(fn,
		C.uint(gridDim[0]), C.uint(gridDim[1]), C.uint(gridDim[2]),
		C.uint(blockDim[0]), C.uint(blockDim[1]), C.uint(blockDim[2]),
		0, nil, (*unsafe.Pointer)(paramsPtr), nil)
	if rc != 0 {
		return cgerr.NewRuntimeError("cuLaunchKernel", int(rc), nil)
	}
	return nil
}

func (d *cudaDevice) Close() error {
	if rc := C.cuCtxDestroy_v2(d.ctx); rc != 0 {
		return cgerr.NewRuntimeError("cuCtxDestroy", int(rc), nil)
	}
	return nil
}

var errCudaNoModuleLoaded = errCudaNoModule{}

type errCudaNoModule struct{}

func (errCudaNoModule) Error() string { return "no module loaded; call LoadModule first" }
