package http

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/observability"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// RegisterMiddlewares attaches global middlewares. The request logger runs
// outermost so it observes the status written by the error handler.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(observability.RequestLogger(logger, metrics))
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(errorHandlingMiddleware(logger, metrics))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := toDomainError(err)
				route := c.Route().Path
				metrics.RecordError(route, c.Method(), domainErr.Code)
				writeError(c, domainErr)
				if domainErr.HTTPStatus >= 500 {
					logger.Error("request failed",
						zap.String("request_id", observability.RequestID(c)),
						zap.String("route", route),
						zap.Error(domainErr))
				}
				err = nil
			}
		}()
		return c.Next()
	}
}

// ErrorHandler renders errors raised outside the middleware chain, such as
// body size violations rejected by fiber itself.
func ErrorHandler(c *fiber.Ctx, err error) error {
	writeError(c, toDomainError(err))
	return nil
}

func writeError(c *fiber.Ctx, domainErr *apperrors.DomainError) {
	body := fiber.Map{
		"code":    domainErr.Code,
		"message": domainErr.Message,
	}
	if len(domainErr.Details) > 0 {
		body["details"] = domainErr.Details
	}
	c.Status(domainErr.HTTPStatus)
	_ = c.JSON(fiber.Map{"error": body})
}

// toDomainError also maps fiber's own errors (unknown route, bad method,
// malformed body) onto the closed error code set.
func toDomainError(err error) *apperrors.DomainError {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		switch {
		case fiberErr.Code == fiber.StatusNotFound:
			return apperrors.NewDomainError(apperrors.CodeNotFound, "route not found", fiberErr.Code, nil)
		case fiberErr.Code == fiber.StatusMethodNotAllowed:
			return apperrors.NewDomainError(apperrors.CodeNotFound, fiberErr.Message, fiberErr.Code, nil)
		case fiberErr.Code < 500:
			return apperrors.NewDomainError(apperrors.CodeValidation, fiberErr.Message, fiberErr.Code, nil)
		}
	}
	return apperrors.ToDomainError(err)
}
