package models

// UpdatePlanRequest is the body of POST /plans/update.
type UpdatePlanRequest struct {
	UserID          string `json:"userId" binding:"required"`
	PlanID          string `json:"planId" binding:"required,planid"`
	PlanName        string `json:"planName,omitempty"`
	PaymentIntentID string `json:"paymentIntentId,omitempty"`
}

// SubscribeRequest starts a paid subscription for the caller.
type SubscribeRequest struct {
	PlanID string `json:"planId" binding:"required,planid"`
}

// CancelSubscriptionRequest schedules a subscription to end at the close of its period.
type CancelSubscriptionRequest struct {
	SubscriptionID string `json:"subscriptionId" binding:"required"`
}
