// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package field

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
)

// constantInt is a small convenience wrapper to keep the arithmetic
// lowerings in this package free of repeated constant.NewInt(typ, ...)
// boilerplate.
func constantInt(t *types.IntType, v int64) *constant.Int {
	return constant.NewInt(t, v)
}
