package paypal

import (
	"errors"
	"net/http"

	"github.com/plutov/paypal/v4"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/provider"
)

var conflictIssues = map[string]bool{
	"ORDER_ALREADY_CAPTURED":      true,
	"DUPLICATE_INVOICE_ID":        true,
	"CAPTURE_FULLY_REFUNDED":      true,
	"SUBSCRIPTION_STATUS_INVALID": true,
	"DUPLICATE_REQUEST_ID":        true,
	"ORDER_NOT_APPROVED":          true,
	"ORDER_ALREADY_AUTHORIZED":    true,
}

// classify maps PayPal's error body onto the provider error taxonomy.
// The first detail's issue is more specific than the top-level name.
func classify(err error) error {
	var er *paypal.ErrorResponse
	if !errors.As(err, &er) {
		return provider.NewError(model.ProviderPayPal, provider.KindUnavailable, "", "paypal unreachable", err)
	}

	status := 0
	if er.Response != nil {
		status = er.Response.StatusCode
	}
	issue := er.Name
	message := er.Message
	if len(er.Details) > 0 {
		if er.Details[0].Issue != "" {
			issue = er.Details[0].Issue
		}
		if er.Details[0].Description != "" {
			message = er.Details[0].Description
		}
	}

	kind := provider.KindRejected
	switch {
	case conflictIssues[issue]:
		kind = provider.KindConflict
	case issue == "RESOURCE_NOT_FOUND" || issue == "INVALID_RESOURCE_ID" || status == http.StatusNotFound:
		kind = provider.KindNotFound
	case status == http.StatusConflict:
		kind = provider.KindConflict
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		kind = provider.KindUnavailable
	}

	return provider.NewError(model.ProviderPayPal, kind, issue, message, err)
}
