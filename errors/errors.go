// Package errors provides the error kinds shared by the dicomtrolley packages.
//
// Callers distinguish kinds with errors.Is. Every error returned by this
// module that signals one of the conditions below wraps the matching sentinel,
// possibly with added context.
package errors

import (
	"errors"
	"fmt"
)

// Tree structure errors
var (
	ErrAddressNotFound     = errors.New("dicomtrolley: address not found")
	ErrNotALeaf            = errors.New("dicomtrolley: node is not a leaf")
	ErrOverwriteNotAllowed = errors.New("dicomtrolley: overwriting data is not allowed")
)

// ErrNodeNotFound is the single "must hit the network" signal of the caches: the
// object is absent, has expired, or is cached at too shallow a depth.
var ErrNodeNotFound = errors.New("dicomtrolley: node not found in cache")

// Reference reduction errors. ErrNonInstanceParameter and ErrNonSeriesParameter
// are returned wrapped together with ErrNoReferencesFound.
var (
	ErrNoReferencesFound    = errors.New("dicomtrolley: no references found")
	ErrNonInstanceParameter = errors.New("dicomtrolley: cannot obtain instance references")
	ErrNonSeriesParameter   = errors.New("dicomtrolley: cannot obtain series references")
)

// Object model and query errors
var (
	ErrDICOMObjectNotFound   = errors.New("dicomtrolley: DICOM object not found")
	ErrInvalidReference      = errors.New("dicomtrolley: invalid reference")
	ErrInvalidQuery          = errors.New("dicomtrolley: invalid query")
	ErrUnsupportedParameter  = errors.New("dicomtrolley: unsupported query parameter")
	ErrUnexpectedResultCount = errors.New("dicomtrolley: unexpected number of results")
)

// reductionError joins a granularity error with its NoReferencesFound cause
// so that both kinds match errors.Is.
type reductionError struct {
	kind  error
	cause error
}

func (e *reductionError) Error() string {
	return fmt.Sprintf("%v: %v", e.kind, e.cause)
}

func (e *reductionError) Unwrap() []error {
	return []error{e.kind, e.cause}
}

// NewNonInstanceParameterError wraps cause as an ErrNonInstanceParameter.
func NewNonInstanceParameterError(cause error) error {
	return &reductionError{kind: ErrNonInstanceParameter, cause: cause}
}

// NewNonSeriesParameterError wraps cause as an ErrNonSeriesParameter.
func NewNonSeriesParameterError(cause error) error {
	return &reductionError{kind: ErrNonSeriesParameter, cause: cause}
}

// DIMSEError represents a DIMSE operation error with status code
type DIMSEError struct {
	Status    uint16
	Operation string
	Msg       string
}

func (e *DIMSEError) Error() string {
	return fmt.Sprintf("DIMSE %s failed: %s (status: 0x%04X)", e.Operation, e.Msg, e.Status)
}

// NewDIMSEError creates a new DIMSE error
func NewDIMSEError(operation string, status uint16, msg string) *DIMSEError {
	return &DIMSEError{
		Operation: operation,
		Status:    status,
		Msg:       msg,
	}
}

// IsSuccess returns true if the DIMSE status indicates success
func (e *DIMSEError) IsSuccess() bool {
	return e.Status == 0x0000
}

// IsPending returns true if the DIMSE status indicates pending
func (e *DIMSEError) IsPending() bool {
	return e.Status == 0xFF00 || e.Status == 0xFF01
}

// IsWarning returns true if the DIMSE status indicates a warning
func (e *DIMSEError) IsWarning() bool {
	return (e.Status&0xFF00) == 0x0100 || (e.Status&0xF000) == 0xB000
}

// IsFailure returns true if the DIMSE status indicates failure
func (e *DIMSEError) IsFailure() bool {
	return (e.Status&0xF000) == 0xC000 || (e.Status&0xF000) == 0xA000 || e.Status == 0xFE00
}
