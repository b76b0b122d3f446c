package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"collab-service/internal/apperrors"
	"collab-service/internal/auth"
	"collab-service/internal/telemetry"
)

func userIDFromContext(c *gin.Context) (string, bool) {
	userID := c.GetString(auth.UserIDKey)
	return userID, userID != ""
}

func auditUser(c *gin.Context) *string {
	if userID, ok := userIDFromContext(c); ok {
		return &userID
	}
	return nil
}

func emitAudit(c *gin.Context, emitter *telemetry.AuditEmitter, text string) {
	emitter.Emit(c.Request.Context(), "INFO", text, auditUser(c))
}

// respondError writes the structured error payload for err.
func respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": apperrors.PublicMessage(err), "code": apperrors.CodeOf(err)})
}

// bindingError turns a gin binding failure into a validation error naming the
// offending JSON field.
func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.Validation("invalid request body")
	}
	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return apperrors.Validation(field + " is required")
	case "id", "uuid", "uuid4":
		return apperrors.Validation(field + " must be a uuid")
	case "min":
		return apperrors.Validation(fmt.Sprintf("%s must have at least %s item(s)", field, fe.Param()))
	default:
		return apperrors.Validation(field + " is invalid")
	}
}
