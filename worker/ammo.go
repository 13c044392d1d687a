package worker

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// AmmoValidationPolicy selects what TankWorker does with the result of an
// external ammo validator (spec.md §4.8 step 3, §7). Ammo validation itself
// is an external collaborator (spec.md §1 Non-goals); TankWorker only
// enforces the policy around it.
type AmmoValidationPolicy string

const (
	AmmoFailOnError AmmoValidationPolicy = "fail_on_error"
	AmmoInform      AmmoValidationPolicy = "inform"
	AmmoSkip        AmmoValidationPolicy = "skip"
)

// AmmoValidator is the external collaborator's validation entry point.
type AmmoValidator func() error

// applyAmmoValidation runs validate (if any) according to policy, matching
// original_source TankWorker._validate_ammo's match/case exactly: skip does
// nothing, fail_on_error propagates ErrAmmoInvalid, inform logs and
// swallows, and an unrecognized policy is a configuration error.
func applyAmmoValidation(policy AmmoValidationPolicy, validate AmmoValidator, log *logrus.Logger) error {
	switch policy {
	case AmmoSkip:
		return nil
	case AmmoFailOnError:
		if validate == nil {
			return nil
		}
		if err := validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrAmmoInvalid, err)
		}
		return nil
	case AmmoInform:
		if validate == nil {
			return nil
		}
		if err := validate(); err != nil {
			log.WithError(err).Error("error validating ammo")
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown ammo_validation value %q", ErrConfigInvalid, policy)
	}
}
