package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/collabflow/backend/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// bindJSON decodes the request body into obj and renders a 400 on failure.
func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		response.Error(c, response.NewBadRequest(bindingMessage(err)))
		return false
	}
	return true
}

// bindingMessage turns the first validation failure into a client message.
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request body"
	}

	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return "Please provide a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s cannot be more than %s characters", field, fe.Param())
	case "oneof":
		return "Invalid " + strings.ToLower(field)
	}
	return "Invalid " + strings.ToLower(field)
}

// paramID reads a numeric path parameter. Malformed ids render as notFound,
// matching an id that does not exist.
func paramID(c *gin.Context, name, notFound string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		response.Error(c, response.NewNotFound(notFound))
		return 0, false
	}
	return uint(id), true
}
