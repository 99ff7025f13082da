package controller

import (
	"encoding/json"
	"io"
	"time"

	"github.com/alimikegami/marketplace/payment-service/internal/dto"
	"github.com/alimikegami/marketplace/payment-service/internal/service"
	"github.com/alimikegami/marketplace/payment-service/pkg/errs"
	"github.com/alimikegami/marketplace/payment-service/pkg/response"
	"github.com/alimikegami/marketplace/payment-service/pkg/validator"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const maxNotificationBody = 1 << 20

type Controller struct {
	checkout service.CheckoutService
	payments service.PaymentService
}

func CreatePaymentController(e *echo.Group, checkout service.CheckoutService, payments service.PaymentService, isAdmin []echo.MiddlewareFunc) {
	c := Controller{
		checkout: checkout,
		payments: payments,
	}

	e.POST("/checkout", c.Checkout)
	e.POST("/payments/notifications", c.MidtransPaymentWebhook)

	e.POST("/payments/sweep", c.SweepPendingPayments, isAdmin...)
	e.GET("/payments/:order_id/status", c.GetPaymentStatus, isAdmin...)
	e.PUT("/payments/:order_id/status", c.OverrideStatus, isAdmin...)
	e.POST("/payments/:order_id/check", c.CheckPaymentStatus, isAdmin...)
	e.POST("/payments/:order_id/side-effects", c.ReplaySideEffects, isAdmin...)
}

func (c *Controller) Checkout(e echo.Context) error {
	payload := dto.CheckoutRequest{}
	if err := e.Bind(&payload); err != nil {
		log.Ctx(e.Request().Context()).Error().Err(err).Str("component", "Checkout").Msg("")
		return response.WriteErrorResponse(e, errs.ErrClient, nil)
	}
	if err := e.Validate(payload); err != nil {
		return response.WriteErrorResponse(e, errs.ErrClient, validator.FieldErrors(err))
	}

	resp, err := c.checkout.Checkout(e.Request().Context(), payload)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "checkout created", resp)
}

// MidtransPaymentWebhook acknowledges every delivery with 200. Processing
// errors are logged; the audit log keeps the payload for replay.
func (c *Controller) MidtransPaymentWebhook(e echo.Context) error {
	ctx := e.Request().Context()

	raw, err := io.ReadAll(io.LimitReader(e.Request().Body, maxNotificationBody))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "MidtransPaymentWebhook").Msg("")
		return response.WriteAcknowledgement(e, service.NotificationIgnored, "unreadable body", nil)
	}

	payload := dto.PaymentNotification{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "MidtransPaymentWebhook").Msg("")
		return response.WriteAcknowledgement(e, service.NotificationIgnored, "malformed payload", nil)
	}
	payload.Raw = raw

	resp, err := c.payments.HandleNotification(ctx, payload)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "MidtransPaymentWebhook").Str("order_id", payload.OrderID).Msg("notification needs manual replay")
	}

	return response.WriteAcknowledgement(e, resp.Status, resp.Message, resp)
}

func (c *Controller) GetPaymentStatus(e echo.Context) error {
	resp, err := c.payments.GetPaymentStatus(e.Request().Context(), e.Param("order_id"))
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "successfully retrieved payment status", resp)
}

func (c *Controller) CheckPaymentStatus(e echo.Context) error {
	resp, err := c.payments.CheckPaymentStatus(e.Request().Context(), e.Param("order_id"))
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "payment status checked", resp)
}

func (c *Controller) SweepPendingPayments(e echo.Context) error {
	payload := dto.SweepRequest{}
	if err := (&echo.DefaultBinder{}).BindQueryParams(e, &payload); err != nil {
		return response.WriteErrorResponse(e, errs.ErrClient, nil)
	}
	if err := e.Bind(&payload); err != nil {
		return response.WriteErrorResponse(e, errs.ErrClient, nil)
	}
	if err := e.Validate(payload); err != nil {
		return response.WriteErrorResponse(e, errs.ErrClient, validator.FieldErrors(err))
	}

	window := time.Duration(payload.WindowHours) * time.Hour
	resp, err := c.payments.SweepPendingPayments(e.Request().Context(), window, payload.Limit)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "sweep finished", resp)
}

func (c *Controller) OverrideStatus(e echo.Context) error {
	payload := dto.OverrideStatusRequest{}
	if err := e.Bind(&payload); err != nil {
		return response.WriteErrorResponse(e, errs.ErrClient, nil)
	}
	if err := e.Validate(payload); err != nil {
		return response.WriteErrorResponse(e, errs.ErrClient, validator.FieldErrors(err))
	}

	resp, err := c.payments.OverrideStatus(e.Request().Context(), e.Param("order_id"), payload.Status)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "payment status overridden", resp)
}

func (c *Controller) ReplaySideEffects(e echo.Context) error {
	resp, err := c.payments.ReplaySideEffects(e.Request().Context(), e.Param("order_id"))
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "side effects replayed", resp)
}
