package response

import "qr_photo/internal/lib/apperr"

type Response struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func SuccessResponse(data interface{}) Response {
	return Response{
		Status: "success",
		Data:   data,
	}
}

func SuccessMessage(message string) Response {
	return Response{
		Status:  "success",
		Message: message,
	}
}

func ErrorResponseWithDetails(err, details string) ErrorResponse {
	return ErrorResponse{
		Status:  "error",
		Error:   err,
		Details: details,
	}
}

// FromError builds the error envelope and status code for err.
func FromError(err error) (int, ErrorResponse) {
	kind := apperr.KindOf(err)
	return apperr.HTTPStatus(kind), ErrorResponseWithDetails(string(kind), apperr.Message(err))
}
