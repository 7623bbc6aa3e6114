package model

// AllModels lists every persisted model in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&PaymentPlan{},
		&Subscription{},
		&Payment{},
		&WebhookEvent{},
	}
}
