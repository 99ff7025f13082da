package middleware

import (
	"github.com/alimikegami/marketplace/payment-service/pkg/errs"
	"github.com/alimikegami/marketplace/payment-service/pkg/response"
	"github.com/alimikegami/marketplace/payment-service/pkg/utils"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func CreateJWTMiddleware(secret string) echo.MiddlewareFunc {
	return middleware.JWTWithConfig(middleware.JWTConfig{
		SigningKey:    []byte(secret),
		SigningMethod: middleware.AlgorithmHS256,
		ErrorHandlerWithContext: func(err error, c echo.Context) error {
			return response.WriteErrorResponse(c, errs.ErrNotLoggedIn, nil)
		},
	})
}

// RequireRole must run after the JWT middleware. Store tokens without a store
// id are refused.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			_, tokenRole, storeID := utils.ExtractTokenUser(c)
			if tokenRole != role {
				return response.WriteErrorResponse(c, errs.ErrForbidden, nil)
			}
			if role == utils.RoleStore && storeID == 0 {
				return response.WriteErrorResponse(c, errs.ErrForbidden, nil)
			}
			return next(c)
		}
	}
}
