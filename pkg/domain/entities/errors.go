package entities

import "errors"

var (
	// ErrInvalidInstance wraps every data error found while building an Instance
	ErrInvalidInstance = errors.New("invalid instance")

	// ErrNoEnforcedDistribution is returned when a level assignment matches no distribution
	ErrNoEnforcedDistribution = errors.New("no enforced distribution")

	// ErrAmbiguousDistribution is returned when a level assignment matches several distributions
	ErrAmbiguousDistribution = errors.New("more than one enforced distribution")
)
