package handler

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/unispace/internal/model"
	"github.com/iliyamo/unispace/internal/service"
)

// Validator plugs go-playground/validator into echo. Field errors are keyed
// by the JSON name of the field.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

func (cv *Validator) Validate(i interface{}) error {
	err := cv.v.Struct(i)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
	}
	first := verrs[0]
	return &service.ValidationError{Message: first.Field() + " " + describe(first), Fields: fields}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return "is invalid"
}

// bind decodes the body into dst and runs the echo validator on it.
func bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return &service.ValidationError{Message: "invalid request body"}
	}
	return c.Validate(dst)
}

func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, &service.ValidationError{Message: fmt.Sprintf("Invalid %s format", name)}
	}
	return id, nil
}

func queryUint(c echo.Context, name string) (uint64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, &service.ValidationError{Message: fmt.Sprintf("Invalid %s format", name)}
	}
	return n, nil
}

func queryTime(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, &service.ValidationError{Message: fmt.Sprintf("Invalid %s format", name)}
	}
	t = t.UTC()
	return &t, nil
}

func page(c echo.Context) (limit, offset int, err error) {
	l, err := queryUint(c, "limit")
	if err != nil {
		return 0, 0, err
	}
	o, err := queryUint(c, "offset")
	if err != nil {
		return 0, 0, err
	}
	if o > math.MaxInt32 {
		return 0, 0, &service.ValidationError{
			Message: "Invalid offset format",
			Fields:  map[string]string{"offset": "must be at most 2147483647"},
		}
	}
	if l > 500 {
		l = 500
	}
	return int(l), int(o), nil
}

// intervalFilter reads userId, classroomId, startTime, endTime, limit and offset.
func intervalFilter(c echo.Context) (model.IntervalFilter, error) {
	var (
		f   model.IntervalFilter
		err error
	)
	if f.UserID, err = queryUint(c, "userId"); err != nil {
		return f, err
	}
	if f.ClassroomID, err = queryUint(c, "classroomId"); err != nil {
		return f, err
	}
	if f.From, err = queryTime(c, "startTime"); err != nil {
		return f, err
	}
	if f.To, err = queryTime(c, "endTime"); err != nil {
		return f, err
	}
	f.Limit, f.Offset, err = page(c)
	return f, err
}
