package portal

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"

	auth "github.com/tokenestate/go-estate-auth"
	"github.com/tokenestate/go-estate-auth/client"
)

func asProvision(err error, target **auth.ProvisionError) bool {
	return errors.As(err, target)
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	var perr *auth.ProvisionError
	switch {
	case asProvision(err, &perr):
		return fiber.StatusBadGateway
	case auth.IsValidation(err):
		return fiber.StatusBadRequest
	case auth.IsUnauthorized(err):
		return fiber.StatusUnauthorized
	case client.IsForbidden(err):
		return fiber.StatusForbidden
	case auth.IsNotFound(err):
		return fiber.StatusNotFound
	case auth.IsNetwork(err):
		return fiber.StatusBadGateway
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.Code >= 400 {
		return rich.Code
	}
	return fiber.StatusInternalServerError
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "status", code, "error", err)
	} else {
		s.logger.Debug("request rejected", "path", c.Path(), "status", code, "error", err)
	}

	message := err.Error()
	if code == fiber.StatusInternalServerError {
		message = "Something went wrong."
	}

	if wantsJSON(c) {
		return c.Status(code).JSON(fiber.Map{
			"error": message,
			"kind":  auth.ErrorKind(err),
		})
	}

	if rerr := s.render(c.Status(code), "errors/error", fiber.Map{
		"status":  code,
		"message": message,
	}); rerr != nil {
		s.logger.Error("error view failed", "error", rerr)
		return c.Status(code).SendString(message)
	}
	return nil
}
