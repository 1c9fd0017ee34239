package core

import (
	"context"

	"github.com/stripe/stripe-go/v79"

	"glow-backend-go/internal/models"
)

// UserService defines the interface for user-related operations.
type UserService interface {
	// GetOrCreate retrieves a user by ID. If the user doesn't exist, it creates a new one.
	GetOrCreate(ctx context.Context, identity models.Identity) (*models.User, bool, error)
	GetByID(ctx context.Context, userID string) (*models.User, error)
}

// PlanService reconciles billing events into plan records and serves the effective plan.
type PlanService interface {
	// HandleEvent applies one signature-verified event. It never panics on incomplete
	// payloads; those come back as an ignored Outcome.
	HandleEvent(ctx context.Context, event stripe.Event) Outcome
	GetPlan(ctx context.Context, userID string) (*models.UserPlanRecord, error)
	UpdatePlan(ctx context.Context, callerID string, req models.UpdatePlanRequest) (*models.UserPlanRecord, error)
}

// BillingService wraps the payment processor for user-initiated actions and webhook authentication.
type BillingService interface {
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
	Subscribe(ctx context.Context, identity models.Identity, planID models.PlanID) (*SubscribeResult, error)
	CancelSubscription(ctx context.Context, identity models.Identity, subscriptionID string) (*stripe.Subscription, error)
	CreatePortalSession(ctx context.Context, identity models.Identity) (string, error)
}

// RecordService provides owner-scoped CRUD over salon data. Every call names the owner explicitly.
type RecordService interface {
	Create(ctx context.Context, ownerID, collection string, data map[string]interface{}) (*models.Record, error)
	List(ctx context.Context, query models.OwnerScopedQuery) ([]*models.Record, error)
	Get(ctx context.Context, ownerID, collection, id string) (*models.Record, error)
	Update(ctx context.Context, ownerID, collection, id string, data map[string]interface{}) (*models.Record, error)
	Delete(ctx context.Context, ownerID, collection, id string) error
}

// AuditService defines the interface for audit logging operations.
type AuditService interface {
	CreateAuditLog(ctx context.Context, logEntry models.AuditLog) error
}

// SubscriptionFetcher reads authoritative subscription state from the payment processor.
type SubscriptionFetcher interface {
	GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error)
}

// StripeGateway is the subset of the Stripe API the billing flows use.
type StripeGateway interface {
	SubscriptionFetcher
	FindCustomerByEmail(ctx context.Context, email string) (*stripe.Customer, error)
	CreateCustomer(ctx context.Context, identity models.Identity) (*stripe.Customer, error)
	CreateSubscription(ctx context.Context, req SubscriptionRequest) (*stripe.Subscription, error)
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (*stripe.Subscription, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}
