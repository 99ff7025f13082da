package response

import (
	"net/http"

	"github.com/alimikegami/marketplace/payment-service/pkg/errs"
	"github.com/labstack/echo/v4"
)

type SuccessResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

type ValidationError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
}

type ErrorResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Errors  interface{} `json:"errors"`
}

func WriteSuccessResponse(c echo.Context, message string, data interface{}) error {
	resp := SuccessResponse{}
	resp.Status = "success"
	resp.Data = data
	resp.Message = message

	return c.JSON(http.StatusOK, resp)
}

func WriteErrorResponse(c echo.Context, err error, errors interface{}) error {
	statusCode := errs.GetErrorStatusCode(err)
	resp := ErrorResponse{}
	resp.Status = "error"
	resp.Message = errs.GetErrorMessage(err)
	resp.Errors = errors

	return c.JSON(statusCode, resp)
}

// WriteAcknowledgement always answers 200 so upstream webhooks stop retrying.
func WriteAcknowledgement(c echo.Context, status string, message string, data interface{}) error {
	return c.JSON(http.StatusOK, SuccessResponse{
		Status:  status,
		Message: message,
		Data:    data,
	})
}
