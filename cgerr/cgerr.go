// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package cgerr defines the five fatal error kinds the code generator can
// raise. Every kind wraps an underlying error so callers can use errors.As
// to recover the kind and errors.Is to match against package-level
// sentinels, the same pattern the rest of this module's packages use for
// ordinary sentinel errors.
package cgerr

import "fmt"

// ConfigurationError signals a descriptor inconsistency: a malformed
// modulus, an unsupported SIMD width, or an unsupported curve coefficient.
// Raised at descriptor construction, before any IR is emitted.
type ConfigurationError struct {
	Op  string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %v", e.Op, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// NewConfigurationError wraps err as a ConfigurationError raised by op.
func NewConfigurationError(op string, err error) error {
	return &ConfigurationError{Op: op, Err: err}
}

// CodegenError signals that the IR builder rejected an operation: a type
// mismatch on a store, a binary op over mismatched or pointer operands,
// or any other malformed-IR condition the emitter validates explicitly
// rather than discovering later in the verifier.
type CodegenError struct {
	Op  string
	Err error
}

func (e *CodegenError) Error() string {
	return fmt.Sprintf("codegen error in %s: %v", e.Op, e.Err)
}

func (e *CodegenError) Unwrap() error { return e.Err }

// NewCodegenError wraps err as a CodegenError raised while emitting op.
func NewCodegenError(op string, err error) error {
	return &CodegenError{Op: op, Err: err}
}

// VerificationError signals that module verification failed after
// emission. Msg carries the verifier-provided diagnostic text.
type VerificationError struct {
	Msg string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("module verification failed: %s", e.Msg)
}

// NewVerificationError builds a VerificationError from a verifier message.
func NewVerificationError(msg string) error {
	return &VerificationError{Msg: msg}
}

// TargetError signals that the optimization/codegen pass pipeline failed
// for the configured target machine.
type TargetError struct {
	Target string
	Err    error
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("target error for %s: %v", e.Target, e.Err)
}

func (e *TargetError) Unwrap() error { return e.Err }

// NewTargetError wraps err as a TargetError for the named target triple.
func NewTargetError(target string, err error) error {
	return &TargetError{Target: target, Err: err}
}

// RuntimeError signals a GPU driver/runtime API failure: device init,
// module load, memory transfer, or kernel launch returned a non-success
// status code.
type RuntimeError struct {
	Op     string
	Status int
	Err    error
}

func (e *RuntimeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("runtime error in %s (status %d): %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("runtime error in %s (status %d)", e.Op, e.Status)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// NewRuntimeError wraps err as a RuntimeError for a failed driver call op
// that returned the given status code.
func NewRuntimeError(op string, status int, err error) error {
	return &RuntimeError{Op: op, Status: status, Err: err}
}
