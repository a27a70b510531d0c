package handlers

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/zatekoja/facilityfinder/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/facilityfinder/backend/pkg/errors"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// facilityQueryParams is the raw listing request after string decoding
type facilityQueryParams struct {
	Name             string   `query:"name" validate:"max=100"`
	Amenities        []string `query:"amenities" validate:"max=20,dive,max=50"`
	AmenityMatchMode string   `query:"amenityMatchMode" validate:"omitempty,oneof=ALL ANY EXACT"`
	Page             int      `query:"page"`
	Limit            int      `query:"limit"`
	SortBy           string   `query:"sortBy" validate:"max=50"`
	SortOrder        string   `query:"sortOrder" validate:"omitempty,oneof=ASC DESC"`
}

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			if name := fld.Tag.Get("query"); name != "" {
				return name
			}
			return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		})
	})
	return validate
}

// ParseFacilityQuery decodes and validates the listing query string.
//
// Amenities may be given comma separated, repeated, or both. Page and limit
// must be integers when present; their ranges are clamped later by the query
// layer. An unknown sortBy is passed through and replaced by the default.
func ParseFacilityQuery(values url.Values) (entities.FacilityQuery, error) {
	params := facilityQueryParams{
		Name:             strings.TrimSpace(values.Get("name")),
		Amenities:        splitList(values["amenities"]),
		AmenityMatchMode: strings.ToUpper(strings.TrimSpace(values.Get("amenityMatchMode"))),
		SortBy:           strings.TrimSpace(values.Get("sortBy")),
		SortOrder:        strings.ToUpper(strings.TrimSpace(values.Get("sortOrder"))),
	}

	var err error
	if params.Page, err = parseOptionalInt(values, "page"); err != nil {
		return entities.FacilityQuery{}, err
	}
	if params.Limit, err = parseOptionalInt(values, "limit"); err != nil {
		return entities.FacilityQuery{}, err
	}

	if err := getValidator().Struct(params); err != nil {
		return entities.FacilityQuery{}, validationError(err)
	}

	return entities.FacilityQuery{
		Name:             params.Name,
		Amenities:        params.Amenities,
		AmenityMatchMode: entities.AmenityMatchMode(params.AmenityMatchMode),
		Page:             params.Page,
		Limit:            params.Limit,
		SortBy:           entities.SortField(params.SortBy),
		SortOrder:        entities.SortOrder(params.SortOrder),
	}, nil
}

func splitList(raw []string) []string {
	var out []string
	for _, value := range raw {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseOptionalInt(values url.Values, key string) (int, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidationError(fmt.Sprintf("%s must be an integer", key))
	}
	return n, nil
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperrors.NewValidationError("invalid request")
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, describeFieldError(fe))
	}
	return apperrors.NewValidationError(strings.Join(messages, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Field()
	if fe.Namespace() != "" {
		if idx := strings.Index(fe.Namespace(), "."); idx >= 0 {
			field = fe.Namespace()[idx+1:]
		}
	}

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s accepts at most %s values", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return fmt.Sprintf("%s is invalid", field)
}
