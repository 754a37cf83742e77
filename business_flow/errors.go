// Package businessflow contains the core business logic and use cases for pricing workflows
package businessflow

import (
	"errors"
	"fmt"
	"strings"
)

// Business flow error constants
var (
	// Tenant-related errors
	ErrTenantNotFound    = errors.New("tenant not found")
	ErrTenantInactive    = errors.New("tenant is inactive")
	ErrIncorrectPassword = errors.New("incorrect password")

	// Pricing evaluation errors
	ErrUnknownServiceType   = errors.New("unknown service type")
	ErrRuleFetchFailed      = errors.New("failed to fetch pricing rules")
	ErrNoPricingRuleMatched = errors.New("no pricing rule matched")

	// Pricing rule administration errors
	ErrRuleNotFound           = errors.New("pricing rule not found")
	ErrRuleAccessDenied       = errors.New("pricing rule access denied")
	ErrRuleNameRequired       = errors.New("rule name is required")
	ErrUnknownRuleType        = errors.New("unknown rule type")
	ErrUnknownAdjustmentType  = errors.New("unknown adjustment type")
	ErrMalformedRuleData      = errors.New("malformed rule data")
	ErrDuplicateBaseRule      = errors.New("an enabled base rule already exists for this service type")
	ErrBaseRuleNotFirst       = errors.New("base rule must have the lowest priority in its candidate set")
	ErrRuleBeforeBaseRule     = errors.New("rule priority must be greater than the base rule priority")
	ErrTooManyRules           = errors.New("too many rules for this service type")
	ErrPercentValueOutOfRange = errors.New("percent adjustment value must be between -100 and 1000")
)

// MissingFieldsError reports which required context fields are absent for
// the requested service type. It is raised before the rule fetch so callers
// never see a partial evaluation.
type MissingFieldsError struct {
	ServiceType   string
	MissingFields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("missing required fields for %s pricing: %s",
		e.ServiceType, strings.Join(e.MissingFields, ", "))
}

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsTenantNotFound(err error) bool {
	return errors.Is(err, ErrTenantNotFound)
}

func IsTenantInactive(err error) bool {
	return errors.Is(err, ErrTenantInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsUnknownServiceType(err error) bool {
	return errors.Is(err, ErrUnknownServiceType)
}

func IsRuleFetchFailed(err error) bool {
	return errors.Is(err, ErrRuleFetchFailed)
}

func IsNoPricingRuleMatched(err error) bool {
	return errors.Is(err, ErrNoPricingRuleMatched)
}

func IsRuleNotFound(err error) bool {
	return errors.Is(err, ErrRuleNotFound)
}

func IsRuleAccessDenied(err error) bool {
	return errors.Is(err, ErrRuleAccessDenied)
}

func IsMissingFields(err error) bool {
	var mfe *MissingFieldsError
	return errors.As(err, &mfe)
}

// MissingFieldsFrom extracts the missing field list from an error chain, or
// nil when the error is not a MissingFieldsError.
func MissingFieldsFrom(err error) []string {
	var mfe *MissingFieldsError
	if errors.As(err, &mfe) {
		return mfe.MissingFields
	}
	return nil
}
