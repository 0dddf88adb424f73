package validators

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/aidosgk/kaspi-orders-backend/pkg/enums"
	apperrors "github.com/aidosgk/kaspi-orders-backend/pkg/errors"
)

// ParseQueryInt reads an optional integer query parameter.
func ParseQueryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("%s must be an integer", name)).
			WithDetails(map[string]string{name: raw})
	}
	return value, nil
}

// ParseQueryBool reads an optional boolean query parameter. Accepts the
// strconv forms plus "yes"/"no".
func ParseQueryBool(r *http.Request, name string, fallback bool) (bool, error) {
	raw := strings.ToLower(strings.TrimSpace(r.URL.Query().Get(name)))
	switch raw {
	case "":
		return fallback, nil
	case "yes":
		return true, nil
	case "no":
		return false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("%s must be a boolean", name)).
			WithDetails(map[string]string{name: raw})
	}
	return value, nil
}

// RequireQuery reads a mandatory query parameter.
func RequireQuery(r *http.Request, name string) (string, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return "", apperrors.New(apperrors.CodeValidation, fmt.Sprintf("%s is required", name))
	}
	return raw, nil
}

// ParseQueryDateField reads the optional date_field parameter, defaulting
// to the order creation date.
func ParseQueryDateField(r *http.Request, name string) (enums.DateField, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	field, err := enums.ParseDateField(raw)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeValidation, err, fmt.Sprintf("invalid %s", name)).
			WithDetails(map[string]string{name: raw})
	}
	return field, nil
}

// ParseQueryStates reads an optional comma separated state list and
// rejects unknown states.
func ParseQueryStates(r *http.Request, name string) ([]enums.OrderState, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	var states []enums.OrderState
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		state, err := enums.ParseOrderState(part)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeValidation, err, fmt.Sprintf("invalid %s", name)).
				WithDetails(map[string]string{name: part})
		}
		states = append(states, state)
	}
	return states, nil
}
