package response

import "qr_photo/internal/lib/apperr"

var ErrInvalidRequestFormat = ErrorResponse{
	Status:  "error",
	Error:   string(apperr.KindValidation),
	Details: "invalid request format",
}

// Validation returns ErrInvalidRequestFormat with details replaced.
func Validation(details string) ErrorResponse {
	resp := ErrInvalidRequestFormat
	resp.Details = details
	return resp
}
