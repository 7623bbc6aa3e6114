package errors

import "errors"

var (
	// ErrSubscriptionNotFound indicates that the specified subscription was not found
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrSubscriptionCancelled indicates a cancel request for an already cancelled subscription
	ErrSubscriptionCancelled = errors.New("subscription already cancelled")

	// ErrPlanNotSubscribable indicates a plan without a vendor price for the requested provider
	ErrPlanNotSubscribable = errors.New("plan is not available as a subscription for this provider")
)
