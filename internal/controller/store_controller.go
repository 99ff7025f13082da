package controller

import (
	"errors"
	"strconv"

	"github.com/alimikegami/marketplace/payment-service/internal/dto"
	"github.com/alimikegami/marketplace/payment-service/internal/service"
	"github.com/alimikegami/marketplace/payment-service/pkg/errs"
	"github.com/alimikegami/marketplace/payment-service/pkg/response"
	"github.com/alimikegami/marketplace/payment-service/pkg/utils"
	"github.com/alimikegami/marketplace/payment-service/pkg/validator"
	"github.com/labstack/echo/v4"
)

type StoreController struct {
	redemption service.RedemptionService
	items      service.ItemService
}

func CreateStoreController(e *echo.Group, redemption service.RedemptionService, items service.ItemService, isStore []echo.MiddlewareFunc) {
	c := StoreController{
		redemption: redemption,
		items:      items,
	}

	e.PUT("/stores/items/:item_id/status", c.UpdateItemStatus, isStore...)
	e.POST("/appointments/redeem", c.Redeem, isStore...)
}

func (c *StoreController) UpdateItemStatus(e echo.Context) error {
	itemID, err := strconv.ParseInt(e.Param("item_id"), 10, 64)
	if err != nil {
		return response.WriteErrorResponse(e, errs.ErrClient, nil)
	}

	payload := dto.ItemStatusRequest{}
	if err := e.Bind(&payload); err != nil {
		return response.WriteErrorResponse(e, errs.ErrClient, nil)
	}
	if err := e.Validate(payload); err != nil {
		return response.WriteErrorResponse(e, errs.ErrClient, validator.FieldErrors(err))
	}

	_, _, storeID := utils.ExtractTokenUser(e)

	resp, err := c.items.UpdateItemStatus(e.Request().Context(), storeID, itemID, payload.Status)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "item status updated", resp)
}

func (c *StoreController) Redeem(e echo.Context) error {
	payload := dto.RedeemRequest{}
	if err := e.Bind(&payload); err != nil {
		return response.WriteErrorResponse(e, errs.ErrClient, nil)
	}
	if err := e.Validate(payload); err != nil {
		return response.WriteErrorResponse(e, errs.ErrClient, validator.FieldErrors(err))
	}

	_, _, storeID := utils.ExtractTokenUser(e)

	resp, err := c.redemption.Redeem(e.Request().Context(), payload.Code, storeID)
	if err != nil {
		var used *service.AlreadyUsedError
		if errors.As(err, &used) {
			return response.WriteErrorResponse(e, err, used.Scan)
		}
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "appointment redeemed", resp)
}
