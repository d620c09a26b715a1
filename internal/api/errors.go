package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/pageza/recipe-app-api/backend/internal/middleware"
	"github.com/pageza/recipe-app-api/backend/internal/models"
	"github.com/pageza/recipe-app-api/backend/internal/service"
)

const (
	msgRequired = "This field is required."
	msgInvalid  = "Invalid value."
)

func validationFailed(c *gin.Context, fields map[string]string) {
	c.JSON(http.StatusBadRequest, middleware.ErrorResponse{Error: "invalid request", Fields: fields})
}

// bindJSON decodes and validates the request body into obj. On failure it
// writes a 400 response and returns false.
func bindJSON(c *gin.Context, obj interface{}) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &verrs):
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fieldPath(fe)] = fieldMessage(fe)
		}
		validationFailed(c, fields)
	case errors.Is(err, models.ErrInvalidPrice):
		validationFailed(c, map[string]string{"price": "A valid number with at most 5 digits and 2 decimal places is required."})
	case errors.As(err, &typeErr) && typeErr.Field != "":
		validationFailed(c, map[string]string{typeErr.Field: msgInvalid})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
	}
	return false
}

// fieldPath drops the struct name from the validator namespace
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return msgRequired
	case "notblank":
		return "This field may not be blank."
	case "email":
		return "Enter a valid email address."
	case "min":
		if isString {
			return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "max":
		if isString {
			return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	}
	return msgInvalid
}

// respondError maps service errors onto HTTP responses. Unexpected errors
// are attached to the context for ErrorHandler to log and answer.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrEmailTaken):
		validationFailed(c, map[string]string{"email": err.Error()})
	case errors.Is(err, service.ErrEmailRequired):
		validationFailed(c, map[string]string{"email": err.Error()})
	case errors.Is(err, service.ErrPasswordTooShort):
		validationFailed(c, map[string]string{"password": err.Error()})
	case errors.Is(err, service.ErrDuplicate):
		validationFailed(c, map[string]string{"name": "an entry with this name already exists"})
	case errors.Is(err, service.ErrInvalidImage), errors.Is(err, service.ErrImageTooLarge):
		validationFailed(c, map[string]string{"image": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
	}
}

// pathID parses the :id route parameter. Non-numeric ids answer 404.
func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return 0, false
	}
	return uint(id), true
}

// currentUserID returns the authenticated user's id or answers 401
func currentUserID(c *gin.Context) (uint, bool) {
	id, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return 0, false
	}
	return id, true
}
