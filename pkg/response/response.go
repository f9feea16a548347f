package response

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var EmptyRequestBodyResponse = Response{
	Status:  StatusError,
	Error:   "Empty Request Body",
	Message: "Request body is empty. Please provide necessary data.",
}

var BadRequestResponse = Response{
	Status:  StatusError,
	Error:   "Bad Request",
	Message: "The request could not be processed. Please check the submitted data.",
}

var ResourceNotFoundResponse = Response{
	Status:  StatusError,
	Error:   "Resource Not Found",
	Message: "The requested resource was not found.",
}

var ConflictResponse = Response{
	Status:  StatusError,
	Error:   "Conflict",
	Message: "The short code is already taken. Please choose another alias.",
}

var UnauthorizedResponse = Response{
	Status:  StatusError,
	Error:   "Unauthorized",
	Message: "The provided credentials are missing or invalid.",
}

var ForbiddenResponse = Response{
	Status:  StatusError,
	Error:   "Forbidden",
	Message: "You don't have permission to modify this resource.",
}

var PastExpirationResponse = Response{
	Status:  StatusError,
	Error:   "Validation Error",
	Message: "The expiration timestamp lies in the past.",
}

var ServerErrorResponse = Response{
	Status:  StatusError,
	Error:   "Server Error",
	Message: "An internal server error occurred. Please try again later.",
}

// Response is the JSON envelope shared by every endpoint.
type Response struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message"`
	Details []any  `json:"details,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// SuccessResponse builds a success envelope with an optional payload. Only
// the first data value is used.
func SuccessResponse(msg string, data ...any) Response {
	resp := Response{
		Status:  StatusSuccess,
		Message: msg,
	}

	if len(data) > 0 {
		resp.Data = data[0]
	}

	return resp
}

// ValidationErrorResponse builds an error envelope from validator errors,
// with one human-readable detail per failed field.
func ValidationErrorResponse(err error) Response {
	resp := Response{
		Status:  StatusError,
		Error:   "Validation Error",
		Message: "The request contains invalid data. Please check the provided fields.",
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, vErr := range validationErrs {
			switch vErr.Tag() {
			case "required":
				resp.Details = append(resp.Details, fmt.Sprintf("The %s field is required.", vErr.Field()))
			case "url":
				resp.Details = append(resp.Details, fmt.Sprintf("The %s field must be a valid URL.", vErr.Field()))
			case "alphanum":
				resp.Details = append(resp.Details, fmt.Sprintf("The %s field must contain only letters and digits.", vErr.Field()))
			case "min":
				resp.Details = append(resp.Details, fmt.Sprintf("The %s field must be at least %s.", vErr.Field(), vErr.Param()))
			case "max":
				resp.Details = append(resp.Details, fmt.Sprintf("The %s field must be at most %s.", vErr.Field(), vErr.Param()))
			default:
				resp.Details = append(resp.Details, fmt.Sprintf("The %s field is invalid.", vErr.Field()))
			}
		}
	}

	return resp
}
