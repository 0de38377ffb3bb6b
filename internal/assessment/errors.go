package assessment

import (
	"errors"

	"growthwatch/internal/growth"
	"growthwatch/internal/reference"
	"growthwatch/internal/types"
)

// toAppError maps engine failures onto the AppError taxonomy.
// Errors that already are AppErrors pass through unchanged.
func toAppError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return err
	}

	var domainErr *growth.DomainError
	if errors.As(err, &domainErr) {
		code := types.ErrCodeDomainInvalidMeasurement
		if domainErr.IsReference() {
			code = types.ErrCodeDomainInvalidReference
		}
		return types.NewAppErrorWithDetails(code, domainErr.Error(), err, map[string]any{
			"field": domainErr.Field,
			"value": domainErr.Value,
		})
	}

	var cfgErr *reference.ConfigurationError
	if errors.As(err, &cfgErr) {
		if cfgErr.Reason == reference.ReasonTableMissing {
			return types.NewAppError(types.ErrCodeNotFoundReferenceTable, cfgErr.Error(), err)
		}
		return types.NewAppError(types.ErrCodeInternalReferenceTables, cfgErr.Error(), err)
	}

	return types.NewAppError(types.ErrCodeInternalUnexpected, "interpretation failed", err)
}
