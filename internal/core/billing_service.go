package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"

	"glow-backend-go/internal/db"
	"glow-backend-go/internal/models"
)

var (
	ErrPlanNotPurchasable    = errors.New("plan cannot be purchased")
	ErrStripeClient          = errors.New("stripe client operation failed")
	ErrWebhookSignature      = errors.New("stripe webhook signature verification failed")
	ErrUserStripeNotLinked   = errors.New("user does not have a Stripe customer ID")
	ErrSubscriptionForbidden = errors.New("subscription does not belong to the user")
)

// SubscribeResult carries what the client needs to confirm the first payment.
type SubscribeResult struct {
	SubscriptionID string `json:"subscriptionId"`
	ClientSecret   string `json:"clientSecret,omitempty"`
}

type billingService struct {
	gateway       StripeGateway
	userRepo      db.UserRepository
	webhookSecret string
	priceIDs      map[models.PlanID]string
	returnURL     string
	logger        *zap.Logger
}

// BillingConfig holds the processor settings the billing flows need.
type BillingConfig struct {
	WebhookSecret string
	ProPriceID    string
	ReturnURL     string
}

// NewBillingService creates a BillingService over a Stripe gateway.
func NewBillingService(gateway StripeGateway, userRepo db.UserRepository, cfg BillingConfig, logger *zap.Logger) BillingService {
	priceIDs := make(map[models.PlanID]string)
	if cfg.ProPriceID != "" {
		priceIDs[models.PlanGlowPro] = cfg.ProPriceID
	}
	return &billingService{
		gateway:       gateway,
		userRepo:      userRepo,
		webhookSecret: cfg.WebhookSecret,
		priceIDs:      priceIDs,
		returnURL:     cfg.ReturnURL,
		logger:        logger,
	}
}

// ConstructEvent authenticates a webhook body against the Stripe-Signature header.
// Any failure, including an unparseable body, wraps ErrWebhookSignature.
func (s *billingService) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrWebhookSignature, err)
	}
	return event, nil
}

// Subscribe creates an incomplete subscription for a paid plan. The plan record changes only
// when the processor reports the payment through the webhook.
func (s *billingService) Subscribe(ctx context.Context, identity models.Identity, planID models.PlanID) (*SubscribeResult, error) {
	if !planID.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlan, planID)
	}
	priceID, ok := s.priceIDs[planID]
	if !planID.IsPaid() || !ok {
		return nil, fmt.Errorf("%w: %q", ErrPlanNotPurchasable, planID)
	}

	customerID, err := s.ensureCustomer(ctx, identity)
	if err != nil {
		return nil, err
	}

	sub, err := s.gateway.CreateSubscription(ctx, SubscriptionRequest{
		CustomerID: customerID,
		PriceID:    priceID,
		PlanID:     planID,
		Identity:   identity,
	})
	if err != nil {
		return nil, err
	}

	result := &SubscribeResult{SubscriptionID: sub.ID}
	if sub.LatestInvoice != nil && sub.LatestInvoice.PaymentIntent != nil {
		result.ClientSecret = sub.LatestInvoice.PaymentIntent.ClientSecret
	}
	s.logger.Info("Subscription created",
		zap.String("userID", identity.UID),
		zap.String("subscriptionID", sub.ID),
		zap.String("planID", string(planID)))
	return result, nil
}

// ensureCustomer returns the user's Stripe customer, linking or creating one on first use.
func (s *billingService) ensureCustomer(ctx context.Context, identity models.Identity) (string, error) {
	user, err := s.userRepo.GetByID(ctx, identity.UID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, identity.UID)
		}
		return "", fmt.Errorf("failed to load user '%s': %w", identity.UID, err)
	}
	if user.StripeCustomerID != "" {
		return user.StripeCustomerID, nil
	}

	// Reuse a customer created outside this flow, e.g. from the dashboard.
	cust, err := s.gateway.FindCustomerByEmail(ctx, user.Email)
	if err != nil {
		return "", err
	}
	if cust == nil {
		if identity.Email == "" {
			identity.Email = user.Email
		}
		cust, err = s.gateway.CreateCustomer(ctx, identity)
		if err != nil {
			return "", err
		}
	}

	// Link the customer so later calls skip the lookup.
	user.StripeCustomerID = cust.ID
	if err := s.userRepo.Update(ctx, user); err != nil {
		return "", fmt.Errorf("failed to link Stripe customer for user '%s': %w", user.ID, err)
	}
	return cust.ID, nil
}

// CancelSubscription schedules cancellation at period end. Access continues until then;
// the resulting subscription.updated webhook records the pending cancellation.
func (s *billingService) CancelSubscription(ctx context.Context, identity models.Identity, subscriptionID string) (*stripe.Subscription, error) {
	sub, err := s.gateway.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if !ownsSubscription(identity, sub) {
		return nil, ErrSubscriptionForbidden
	}
	// Already scheduled: answer with the current state.
	if sub.CancelAtPeriodEnd {
		return sub, nil
	}

	updated, err := s.gateway.CancelAtPeriodEnd(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Subscription set to cancel at period end",
		zap.String("userID", identity.UID),
		zap.String("subscriptionID", updated.ID),
		zap.Int64("currentPeriodEnd", updated.CurrentPeriodEnd))
	return updated, nil
}

func (s *billingService) CreatePortalSession(ctx context.Context, identity models.Identity) (string, error) {
	user, err := s.userRepo.GetByID(ctx, identity.UID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, identity.UID)
		}
		return "", fmt.Errorf("failed to load user '%s': %w", identity.UID, err)
	}
	if user.StripeCustomerID == "" {
		return "", fmt.Errorf("%w for user %s", ErrUserStripeNotLinked, identity.UID)
	}
	return s.gateway.CreatePortalSession(ctx, user.StripeCustomerID, s.returnURL)
}

func ownsSubscription(identity models.Identity, sub *stripe.Subscription) bool {
	if uid := sub.Metadata[MetadataUserID]; uid != "" {
		return uid == identity.UID
	}
	return identity.Email != "" && subscriptionEmail(sub) == identity.Email
}
