package models

import "time"

// PlanID identifies a catalog plan.
type PlanID string

const (
	PlanGlowStart PlanID = "glow-start"
	PlanGlowPro   PlanID = "glow-pro"
)

// PlanState is the lifecycle state of a user's plan.
type PlanState string

const (
	PlanStateFree                PlanState = "free"
	PlanStateActive              PlanState = "active"
	PlanStatePendingCancellation PlanState = "pending_cancellation"
)

var planNames = map[PlanID]string{
	PlanGlowStart: "Glow Start",
	PlanGlowPro:   "Glow Pro",
}

// Valid reports whether id is a catalog plan.
func (id PlanID) Valid() bool {
	_, ok := planNames[id]
	return ok
}

// DisplayName returns the catalog name for id, or the raw id when unknown.
func (id PlanID) DisplayName() string {
	if name, ok := planNames[id]; ok {
		return name
	}
	return string(id)
}

// IsPaid reports whether id is anything other than the free plan.
func (id PlanID) IsPaid() bool {
	return id != PlanGlowStart
}

// UserPlanRecord is the denormalized current plan of a user, stored at userPlans/{userId}.
// HasPaidPlan is true if and only if PlanID is not glow-start.
type UserPlanRecord struct {
	UserID          string     `json:"userId" firestore:"-"`
	PlanID          PlanID     `json:"planId" firestore:"planId"`
	PlanName        string     `json:"planName" firestore:"planName"`
	IsActive        bool       `json:"isActive" firestore:"isActive"`
	HasPaidPlan     bool       `json:"hasPaidPlan" firestore:"hasPaidPlan"`
	State           PlanState  `json:"state" firestore:"state"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty" firestore:"expiresAt,omitempty"`
	SubscriptionID  string     `json:"subscriptionId,omitempty" firestore:"subscriptionId,omitempty"`
	PaymentIntentID string     `json:"paymentIntentId,omitempty" firestore:"paymentIntentId,omitempty"`
	LastChecked     time.Time  `json:"lastChecked" firestore:"lastChecked"`
	UpdatedAt       time.Time  `json:"updatedAt" firestore:"updatedAt"`
}

// FreePlanRecord returns the glow-start record for userID stamped at t.
func FreePlanRecord(userID string, t time.Time) *UserPlanRecord {
	return &UserPlanRecord{
		UserID:      userID,
		PlanID:      PlanGlowStart,
		PlanName:    PlanGlowStart.DisplayName(),
		IsActive:    true,
		HasPaidPlan: false,
		State:       PlanStateFree,
		LastChecked: t,
		UpdatedAt:   t,
	}
}

// Expired reports whether a pending cancellation has reached its expiry at now.
func (r *UserPlanRecord) Expired(now time.Time) bool {
	return r.State == PlanStatePendingCancellation && r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// StateFor returns the resting state for a plan that is not being cancelled.
func StateFor(id PlanID) PlanState {
	if id.IsPaid() {
		return PlanStateActive
	}
	return PlanStateFree
}
