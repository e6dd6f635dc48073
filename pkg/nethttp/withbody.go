package nethttp

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// DecodeHandlerFunc receives a struct already decoded and validated by
// WithBody, mirroring the teacher's withBody.go decorator.
type DecodeHandlerFunc func(p any, c *fiber.Ctx) error

var bodyValidator = validator.New()

func init() {
	bodyValidator.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})
}

// WithBody decodes the request body into a fresh instance of s's type,
// validates it, and calls h with the populated pointer. s is only used
// as a type template — a new instance is allocated per request so
// concurrent requests never share state.
func WithBody(s any, h DecodeHandlerFunc) fiber.Handler {
	t := reflect.TypeOf(s).Elem()

	return func(c *fiber.Ctx) error {
		body := reflect.New(t).Interface()

		if len(c.Body()) > 0 {
			if err := c.BodyParser(body); err != nil {
				return BadRequest(c, ValidationKnownFieldsError{
					Code:    "P0002",
					Title:   "Malformed Body",
					Message: err.Error(),
				})
			}
		}

		if err := bodyValidator.Struct(body); err != nil {
			fields := make(map[string]string)

			if verrs, ok := err.(validator.ValidationErrors); ok {
				for _, fe := range verrs {
					fields[fe.Field()] = fe.Tag()
				}
			}

			return BadRequest(c, ValidationKnownFieldsError{
				Code:    "P0002",
				Title:   "Validation Failed",
				Message: "one or more fields failed validation",
				Fields:  fields,
			})
		}

		return h(body, c)
	}
}

// ParseIntParam parses a path parameter into an int64. It writes no
// response; on failure it returns the parse error to the caller.
func ParseIntParam(c *fiber.Ctx, name string) (int64, error) {
	return strconv.ParseInt(c.Params(name), 10, 64)
}
