package response

import (
	"errors"
	"net/http"

	"anoa.com/scholarhub/internal/entity"
	"anoa.com/scholarhub/pkg/apperror"
	"anoa.com/scholarhub/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// GetUserID retrieves the authenticated user ID from the context
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	userIDStr, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	s, ok := userIDStr.(string)
	if !ok {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	userID, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	return userID, nil
}

// GetActor builds the caller identity the auth middleware resolved.
func GetActor(c *gin.Context) (entity.Actor, error) {
	userID, err := GetUserID(c)
	if err != nil {
		return entity.Actor{}, err
	}

	return entity.Actor{
		UserID:    userID,
		Role:      c.GetString("role"),
		ClassName: c.GetString("class_name"),
	}, nil
}

// ResponseError standardized error response
func ResponseError(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)
	body := gin.H{"error": err.Error()}

	var validation *apperror.ValidationError
	if errors.As(err, &validation) {
		body["error"] = "validation failed"
		body["fields"] = validation.Fields
	}

	var partial *apperror.PartialFailureError
	if errors.As(err, &partial) {
		body["completed"] = partial.Completed
		body["failed"] = partial.Failed
		body["ids"] = partial.IDs
		body["retryable"] = true
	}

	if code == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("internal error")
	}

	c.JSON(code, body)
}

// BindError answers a failed request binding. Field validation failures are
// 422 with a per-field map; malformed bodies are 400.
func BindError(c *gin.Context, err error) {
	if fields := validator.FieldErrors(err); fields != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  validator.FormatValidationError(err),
			"fields": fields,
		})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
