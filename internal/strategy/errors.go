package strategy

import "errors"

var (
	ErrProviderFetch  = errors.New("provider fetch failed")
	ErrOrderRejected  = errors.New("order rejected")
	ErrInvalidParams  = errors.New("invalid hedge parameters")
	ErrNoFilterRules  = errors.New("filter rules not found")
	ErrSchedulerState = errors.New("scheduler not idle")
)
