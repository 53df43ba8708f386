package apperrors

import "errors"

// Standardized domain errors. Handlers translate these into HTTP status codes
// with errors.Is; everything else is treated as an internal failure.
var (
	ErrSlotNotFound  = errors.New("slot not found")
	ErrLotNotFound   = errors.New("lot not found")
	ErrInvalidStatus = errors.New("invalid slot status")
)
