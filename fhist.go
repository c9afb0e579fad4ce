// Package fhist provides two numeric kernels meant to be called across a
// foreign-function boundary and benchmarked against vectorized libraries:
//
//  1. Sum: pairwise summation of float64 values with O(log N) error growth
//  2. Histogram1D: fixed-width linear binning over a half-open range
//
// Both kernels are pure functions over caller-owned memory. They do not
// allocate on success, do not retain their slices and hold no global state,
// so any number of calls may run concurrently on disjoint buffers.
//
// The C ABI lives in package capi, a cgo rendition of the same kernels in
// package native, and a WASM build in wasm/tinygo.
package fhist

import (
	"errors"
	"fmt"
)

// Contract violations reported by Histogram1D and the foreign-call wrappers.
var (
	ErrInvalidBins   = errors.New("fhist: bin count must be positive")
	ErrInvalidWidth  = errors.New("fhist: bin width must be positive and finite")
	ErrInvalidRange  = errors.New("fhist: range must be finite with upper > lower")
	ErrInvalidLength = errors.New("fhist: negative length")
	ErrNilBuffer     = errors.New("fhist: nil buffer with non-zero length")
)

// Status is the integer result code used where errors cannot cross
// (C and WASM exports). Zero is success.
type Status int32

const (
	StatusOK            Status = 0
	StatusInvalidBins   Status = 1
	StatusInvalidWidth  Status = 2
	StatusInvalidRange  Status = 3
	StatusInvalidLength Status = 4
	StatusNilBuffer     Status = 5

	// StatusInternal reports a recovered panic.
	StatusInternal Status = -1
)

var statusErrors = map[Status]error{
	StatusInvalidBins:   ErrInvalidBins,
	StatusInvalidWidth:  ErrInvalidWidth,
	StatusInvalidRange:  ErrInvalidRange,
	StatusInvalidLength: ErrInvalidLength,
	StatusNilBuffer:     ErrNilBuffer,
}

// StatusOf maps an error returned by this package to its status code.
// Unknown non-nil errors map to StatusInternal.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	for status, target := range statusErrors {
		if errors.Is(err, target) {
			return status
		}
	}
	return StatusInternal
}

// Err returns the error a status code stands for, or nil for StatusOK.
func (s Status) Err() error {
	if s == StatusOK {
		return nil
	}
	if err, ok := statusErrors[s]; ok {
		return err
	}
	return fmt.Errorf("fhist: kernel returned status %d", int32(s))
}

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInvalidBins:
		return "invalid bins"
	case StatusInvalidWidth:
		return "invalid width"
	case StatusInvalidRange:
		return "invalid range"
	case StatusInvalidLength:
		return "invalid length"
	case StatusNilBuffer:
		return "nil buffer"
	case StatusInternal:
		return "internal error"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}
