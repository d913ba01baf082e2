package appearance

import (
	"errors"
	"fmt"

	"github.com/roach88/wardrobe/internal/ir"
)

// Error is raised while reconciling or resolving the Current Outfit folder.
//
// Most codes are handled inside a run and only recorded on it (see
// Run.Issues); EMPTY_RESOLUTION_SET, NO_BASE_OUTFIT, NOT_LOADED and
// INVALID_ITEM are returned to callers.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// ItemID identifies the inventory entry involved, if any.
	ItemID ir.ID

	// Details contains additional context.
	Details map[string]string
}

// ErrorCode categorizes appearance errors.
type ErrorCode string

const (
	// ErrCodeBrokenReference indicates a COF link whose target is gone.
	ErrCodeBrokenReference ErrorCode = "BROKEN_REFERENCE"

	// ErrCodeAssetTimeout indicates a resolution phase hit its wait ceiling.
	ErrCodeAssetTimeout ErrorCode = "ASSET_TIMEOUT"

	// ErrCodeMissingMandatorySlot indicates a body part that never resolved.
	ErrCodeMissingMandatorySlot ErrorCode = "MISSING_MANDATORY_SLOT"

	// ErrCodeTypeMismatch indicates an asset whose type differs from the
	// slot its link declares.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"

	// ErrCodeEmptyResolutionSet indicates the COF held no wearable links.
	ErrCodeEmptyResolutionSet ErrorCode = "EMPTY_RESOLUTION_SET"

	// ErrCodeNoBaseOutfit indicates an operation that needs a base outfit
	// link found none.
	ErrCodeNoBaseOutfit ErrorCode = "NO_BASE_OUTFIT"

	// ErrCodeNotLoaded indicates the avatar's wearables are not loaded yet.
	ErrCodeNotLoaded ErrorCode = "NOT_LOADED"

	// ErrCodeInvalidItem indicates an item or folder that cannot be used
	// for the requested operation.
	ErrCodeInvalidItem ErrorCode = "INVALID_ITEM"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.ItemID != ir.NilID {
		return fmt.Sprintf("%s: %s (item=%s)", e.Code, e.Message, e.ItemID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// IsEmptyResolutionSet reports whether err is an EMPTY_RESOLUTION_SET error.
func IsEmptyResolutionSet(err error) bool {
	return CodeOf(err) == ErrCodeEmptyResolutionSet
}

// IsNoBaseOutfit reports whether err is a NO_BASE_OUTFIT error.
func IsNoBaseOutfit(err error) bool {
	return CodeOf(err) == ErrCodeNoBaseOutfit
}

// IsNotLoaded reports whether err is a NOT_LOADED error.
func IsNotLoaded(err error) bool {
	return CodeOf(err) == ErrCodeNotLoaded
}

// IsInvalidItem reports whether err is an INVALID_ITEM error.
func IsInvalidItem(err error) bool {
	return CodeOf(err) == ErrCodeInvalidItem
}

func newError(code ErrorCode, itemID ir.ID, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		ItemID:  itemID,
	}
}

func (e *Error) with(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}
