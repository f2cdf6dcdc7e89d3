package http

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(requestid.New())
	app.Use(observability.RequestLogger(logger, metrics))
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
				err = writeError(c, logger, metrics, apperrors.ToDomainError(err))
			}
		}()
		return c.Next()
	}
}

// writeError renders the error envelope. Metrics are labelled with the route
// template so ticket ids do not multiply series.
func writeError(c *fiber.Ctx, logger *zap.Logger, metrics *observability.Metrics, domainErr *apperrors.DomainError) error {
	route := c.Route().Path
	if route == "" || route == "/" {
		route = c.Path()
	}
	metrics.RecordError(route, c.Method(), domainErr.Code)
	if domainErr.HTTPStatus >= 500 {
		logger.Error("request failed",
			zap.String("route", route),
			zap.Any("request_id", c.Locals("requestid")),
			zap.Error(domainErr),
		)
	}

	body := dto.ErrorBody{Code: domainErr.Code, Message: domainErr.Message}
	if len(domainErr.Details) > 0 {
		body.Details = domainErr.Details
	}
	return c.Status(domainErr.HTTPStatus).JSON(dto.ErrorResponse{Error: body})
}
