package stripe

import (
	"errors"
	"net/http"

	"github.com/stripe/stripe-go/v79"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/provider"
)

// classify maps a stripe-go error onto the provider error taxonomy.
// Anything that is not an API error never got an answer from Stripe.
func classify(err error) error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return provider.NewError(model.ProviderStripe, provider.KindUnavailable, "", "stripe unreachable", err)
	}

	kind := provider.KindRejected
	switch {
	case se.Type == stripe.ErrorTypeIdempotency:
		kind = provider.KindConflict
	case se.HTTPStatusCode == http.StatusNotFound:
		kind = provider.KindNotFound
	case se.HTTPStatusCode == http.StatusConflict:
		kind = provider.KindConflict
	case se.HTTPStatusCode == http.StatusTooManyRequests, se.HTTPStatusCode >= http.StatusInternalServerError:
		kind = provider.KindUnavailable
	}

	return provider.NewError(model.ProviderStripe, kind, string(se.Code), se.Msg, err)
}
