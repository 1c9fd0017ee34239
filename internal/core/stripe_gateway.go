package core

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"glow-backend-go/internal/models"
)

// SubscriptionRequest describes a subscription to create for a customer.
type SubscriptionRequest struct {
	CustomerID string
	PriceID    string
	PlanID     models.PlanID
	Identity   models.Identity
}

type stripeGateway struct {
	api *client.API
}

// NewStripeGateway creates a StripeGateway using its own API client rather than the global key.
func NewStripeGateway(secretKey string) StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &stripeGateway{api: api}
}

func (g *stripeGateway) GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	params.AddExpand("customer")
	sub, err := g.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("%w: get subscription %s: %v", ErrStripeClient, subscriptionID, err)
	}
	return sub, nil
}

// FindCustomerByEmail returns the first customer with email, or nil when there is none.
func (g *stripeGateway) FindCustomerByEmail(ctx context.Context, email string) (*stripe.Customer, error) {
	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	iter := g.api.Customers.List(params)
	if iter.Next() {
		return iter.Customer(), nil
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: list customers: %v", ErrStripeClient, err)
	}
	return nil, nil
}

func (g *stripeGateway) CreateCustomer(ctx context.Context, identity models.Identity) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(identity.Email),
	}
	if identity.DisplayName != "" {
		params.Name = stripe.String(identity.DisplayName)
	}
	params.Context = ctx
	params.AddMetadata(MetadataUserID, identity.UID)

	cust, err := g.api.Customers.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: create customer: %v", ErrStripeClient, err)
	}
	return cust, nil
}

func (g *stripeGateway) CreateSubscription(ctx context.Context, req SubscriptionRequest) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(req.CustomerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(req.PriceID)},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
		PaymentSettings: &stripe.SubscriptionPaymentSettingsParams{
			SaveDefaultPaymentMethod: stripe.String("on_subscription"),
		},
	}
	params.Context = ctx
	params.AddExpand("latest_invoice.payment_intent")
	params.AddMetadata(MetadataPlanID, string(req.PlanID))
	params.AddMetadata(MetadataCustomerEmail, req.Identity.Email)
	params.AddMetadata(MetadataUserID, req.Identity.UID)

	sub, err := g.api.Subscriptions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: create subscription: %v", ErrStripeClient, err)
	}
	return sub, nil
}

func (g *stripeGateway) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	params.Context = ctx
	sub, err := g.api.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("%w: cancel subscription %s: %v", ErrStripeClient, subscriptionID, err)
	}
	return sub, nil
}

func (g *stripeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx
	session, err := g.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("%w: create portal session: %v", ErrStripeClient, err)
	}
	return session.URL, nil
}
