package models

import "time"

// User represents a salon/clinic account holder. The document ID is the Firebase Auth UID.
type User struct {
	ID               string    `json:"id" firestore:"-"`
	Email            string    `json:"email" firestore:"email"`
	DisplayName      string    `json:"displayName,omitempty" firestore:"displayName,omitempty"`
	PhotoURL         string    `json:"photoURL,omitempty" firestore:"photoURL,omitempty"`
	StripeCustomerID string    `json:"stripeCustomerId,omitempty" firestore:"stripeCustomerId,omitempty"`
	CreatedAt        time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// Identity is the authenticated caller, built from a verified ID token.
// It is passed explicitly to every owner-scoped data call.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
}
