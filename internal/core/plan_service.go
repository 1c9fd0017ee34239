package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"

	"glow-backend-go/internal/cache"
	"glow-backend-go/internal/db"
	"glow-backend-go/internal/models"
)

// Metadata keys attached to payment intents and subscriptions at creation time.
const (
	MetadataPlanID        = "planId"
	MetadataCustomerEmail = "customerEmail"
	MetadataUserID        = "userId"
)

var (
	ErrMalformedEvent     = errors.New("malformed billing event")
	ErrUnknownPlan        = errors.New("unknown plan")
	ErrInvalidPlanRequest = errors.New("userId and planId are required")
	ErrPlanForbidden      = errors.New("cannot change another user's plan")
)

type planService struct {
	userRepo db.UserRepository
	planRepo db.PlanRepository
	subs     SubscriptionFetcher
	cache    cache.PlanCache
	logger   *zap.Logger
	now      func() time.Time
}

// NewPlanService creates a PlanService. planCache may be nil.
func NewPlanService(
	userRepo db.UserRepository,
	planRepo db.PlanRepository,
	subs SubscriptionFetcher,
	planCache cache.PlanCache,
	logger *zap.Logger,
) PlanService {
	if planCache == nil {
		planCache = cache.NoopCache{}
	}
	return &planService{
		userRepo: userRepo,
		planRepo: planRepo,
		subs:     subs,
		cache:    planCache,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *planService) HandleEvent(ctx context.Context, event stripe.Event) Outcome {
	out := s.dispatch(ctx, event)

	fields := []zap.Field{
		zap.String("eventID", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("outcome", string(out.Kind)),
	}
	switch out.Kind {
	case OutcomeApplied:
		s.logger.Info("Billing event applied", append(fields,
			zap.String("userID", out.Record.UserID),
			zap.String("planID", string(out.Record.PlanID)),
			zap.String("state", string(out.Record.State)))...)
	case OutcomeIgnored:
		s.logger.Info("Billing event ignored", append(fields, zap.String("reason", out.Reason))...)
	case OutcomeFailed:
		s.logger.Error("Billing event failed", append(fields, zap.Error(out.Err))...)
	}
	return out
}

func (s *planService) dispatch(ctx context.Context, event stripe.Event) Outcome {
	at := s.eventTime(event)

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		var pi stripe.PaymentIntent
		if err := decodeEventObject(event, &pi); err != nil {
			return failed(err)
		}
		return s.applyPaymentIntent(ctx, &pi, at)

	case stripe.EventTypeInvoicePaymentSucceeded:
		var invoice stripe.Invoice
		if err := decodeEventObject(event, &invoice); err != nil {
			return failed(err)
		}
		if invoice.Subscription == nil || invoice.Subscription.ID == "" {
			return ignored("invoice has no subscription")
		}
		// the invoice only triggers a re-read of the subscription
		sub, err := s.subs.GetSubscription(ctx, invoice.Subscription.ID)
		if err != nil {
			return failed(fmt.Errorf("fetching subscription %s for invoice %s: %w", invoice.Subscription.ID, invoice.ID, err))
		}
		return s.applySubscriptionUpdate(ctx, sub, at)

	case stripe.EventTypeCustomerSubscriptionUpdated:
		var sub stripe.Subscription
		if err := decodeEventObject(event, &sub); err != nil {
			return failed(err)
		}
		return s.applySubscriptionUpdate(ctx, &sub, at)

	case stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := decodeEventObject(event, &sub); err != nil {
			return failed(err)
		}
		return s.applySubscriptionDeleted(ctx, &sub, at)

	default:
		return ignored("unhandled event type")
	}
}

func (s *planService) applyPaymentIntent(ctx context.Context, pi *stripe.PaymentIntent, at time.Time) Outcome {
	planID := models.PlanID(pi.Metadata[MetadataPlanID])
	email := pi.Metadata[MetadataCustomerEmail]
	if planID == "" {
		return ignored("missing metadata.planId")
	}
	if email == "" {
		return ignored("missing metadata.customerEmail")
	}
	if !planID.Valid() {
		return ignored(fmt.Sprintf("unknown plan %q", planID))
	}

	user, out, ok := s.resolveUser(ctx, email)
	if !ok {
		return out
	}

	return s.write(ctx, &models.UserPlanRecord{
		UserID:          user.ID,
		PlanID:          planID,
		PlanName:        planID.DisplayName(),
		IsActive:        true,
		HasPaidPlan:     planID.IsPaid(),
		State:           models.StateFor(planID),
		PaymentIntentID: pi.ID,
		LastChecked:     at,
		UpdatedAt:       at,
	})
}

func (s *planService) applySubscriptionUpdate(ctx context.Context, sub *stripe.Subscription, at time.Time) Outcome {
	planID := models.PlanID(sub.Metadata[MetadataPlanID])
	email := subscriptionEmail(sub)
	if planID == "" {
		return ignored("missing metadata.planId")
	}
	if email == "" {
		return ignored("missing customer email")
	}
	if !planID.Valid() {
		return ignored(fmt.Sprintf("unknown plan %q", planID))
	}

	user, out, ok := s.resolveUser(ctx, email)
	if !ok {
		return out
	}

	record := &models.UserPlanRecord{
		UserID:         user.ID,
		PlanID:         planID,
		PlanName:       planID.DisplayName(),
		IsActive:       sub.Status == stripe.SubscriptionStatusActive,
		HasPaidPlan:    planID.IsPaid(),
		State:          models.StateFor(planID),
		SubscriptionID: sub.ID,
		LastChecked:    at,
		UpdatedAt:      at,
	}
	if planID.IsPaid() && sub.CancelAtPeriodEnd && sub.CurrentPeriodEnd > 0 {
		end := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		if end.After(at) {
			record.State = models.PlanStatePendingCancellation
			record.ExpiresAt = &end
		}
	}
	return s.write(ctx, record)
}

func (s *planService) applySubscriptionDeleted(ctx context.Context, sub *stripe.Subscription, at time.Time) Outcome {
	email := subscriptionEmail(sub)
	if email == "" {
		return ignored("missing customer email")
	}

	user, out, ok := s.resolveUser(ctx, email)
	if !ok {
		return out
	}
	return s.write(ctx, models.FreePlanRecord(user.ID, at))
}

// resolveUser maps a customer email to a user. ok is false when out must be returned as-is.
func (s *planService) resolveUser(ctx context.Context, email string) (*models.User, Outcome, bool) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ignored("no user for customer email"), false
		}
		return nil, failed(fmt.Errorf("resolving user by email: %w", err)), false
	}
	return user, Outcome{}, true
}

func (s *planService) write(ctx context.Context, record *models.UserPlanRecord) Outcome {
	if err := s.planRepo.Put(ctx, record); err != nil {
		return failed(err)
	}
	s.refreshCache(ctx, record)
	return applied(record)
}

// refreshCache replaces the cached plan with the record just written. If that fails the
// entry is dropped so the next read goes to Firestore.
func (s *planService) refreshCache(ctx context.Context, record *models.UserPlanRecord) {
	err := s.cache.Set(ctx, record)
	if err == nil {
		return
	}
	s.logger.Warn("Failed to refresh plan cache", zap.String("userID", record.UserID), zap.Error(err))
	if err := s.cache.Delete(ctx, record.UserID); err != nil {
		s.logger.Warn("Failed to invalidate plan cache", zap.String("userID", record.UserID), zap.Error(err))
	}
}

// GetPlan returns the effective plan for userID. Users without a record are on glow-start,
// and a pending cancellation past its expiry reads as glow-start.
func (s *planService) GetPlan(ctx context.Context, userID string) (*models.UserPlanRecord, error) {
	if userID == "" {
		return nil, ErrInvalidPlanRequest
	}

	record, err := s.cache.Get(ctx, userID)
	if err != nil {
		s.logger.Warn("Plan cache read failed", zap.String("userID", userID), zap.Error(err))
		record = nil
	}
	if record == nil {
		record, err = s.planRepo.Get(ctx, userID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return models.FreePlanRecord(userID, s.now().UTC()), nil
			}
			return nil, fmt.Errorf("failed to load plan for user '%s': %w", userID, err)
		}
		// a plan written since the read above already owns the entry
		if err := s.cache.SetIfAbsent(ctx, record); err != nil {
			s.logger.Warn("Plan cache write failed", zap.String("userID", userID), zap.Error(err))
		}
	}

	now := s.now().UTC()
	if record.Expired(now) {
		free := models.FreePlanRecord(userID, *record.ExpiresAt)
		free.LastChecked = now
		return free, nil
	}
	return record, nil
}

// UpdatePlan writes a plan chosen by the client, for the caller only.
func (s *planService) UpdatePlan(ctx context.Context, callerID string, req models.UpdatePlanRequest) (*models.UserPlanRecord, error) {
	if req.UserID == "" || req.PlanID == "" {
		return nil, ErrInvalidPlanRequest
	}
	planID := models.PlanID(req.PlanID)
	if !planID.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlan, req.PlanID)
	}
	if req.UserID != callerID {
		return nil, ErrPlanForbidden
	}

	planName := req.PlanName
	if planName == "" {
		planName = planID.DisplayName()
	}
	now := s.now().UTC()
	record := &models.UserPlanRecord{
		UserID:          req.UserID,
		PlanID:          planID,
		PlanName:        planName,
		IsActive:        true,
		HasPaidPlan:     planID.IsPaid(),
		State:           models.StateFor(planID),
		PaymentIntentID: req.PaymentIntentID,
		LastChecked:     now,
		UpdatedAt:       now,
	}
	if err := s.planRepo.Put(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to update plan for user '%s': %w", req.UserID, err)
	}
	s.refreshCache(ctx, record)
	return record, nil
}

// eventTime stamps writes with the event's creation time so redelivery writes identical documents.
func (s *planService) eventTime(event stripe.Event) time.Time {
	if event.Created > 0 {
		return time.Unix(event.Created, 0).UTC()
	}
	return s.now().UTC()
}

func decodeEventObject(event stripe.Event, v interface{}) error {
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return fmt.Errorf("%w: %s has no data object", ErrMalformedEvent, event.Type)
	}
	if err := json.Unmarshal(event.Data.Raw, v); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrMalformedEvent, event.Type, err)
	}
	return nil
}

func subscriptionEmail(sub *stripe.Subscription) string {
	if email := sub.Metadata[MetadataCustomerEmail]; email != "" {
		return email
	}
	if sub.Customer != nil {
		return sub.Customer.Email
	}
	return ""
}
