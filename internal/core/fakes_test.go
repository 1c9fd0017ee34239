package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/stripe/stripe-go/v79"
	"github.com/stretchr/testify/mock"

	"glow-backend-go/internal/db"
	"glow-backend-go/internal/models"
)

type memUserRepo struct {
	mu     sync.Mutex
	users  map[string]*models.User
	getErr error
}

func newMemUserRepo(users ...*models.User) *memUserRepo {
	r := &memUserRepo{users: make(map[string]*models.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memUserRepo) GetByID(_ context.Context, userID string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	u, ok := r.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, db.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user with email %s: %w", email, db.ErrNotFound)
}

func (r *memUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memUserRepo) Update(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return db.ErrNotFound
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

type memPlanRepo struct {
	mu      sync.Mutex
	records map[string]models.UserPlanRecord
	puts    int
	putErr  error
	// afterGet runs once the read is complete, before Get returns.
	afterGet func()
}

func newMemPlanRepo() *memPlanRepo {
	return &memPlanRepo{records: make(map[string]models.UserPlanRecord)}
}

func (r *memPlanRepo) Get(_ context.Context, userID string) (*models.UserPlanRecord, error) {
	r.mu.Lock()
	rec, ok := r.records[userID]
	hook := r.afterGet
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	if !ok {
		return nil, db.ErrNotFound
	}
	return &rec, nil
}

func (r *memPlanRepo) Put(_ context.Context, record *models.UserPlanRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.putErr != nil {
		return r.putErr
	}
	r.puts++
	r.records[record.UserID] = *record
	return nil
}

func (r *memPlanRepo) stored(userID string) (models.UserPlanRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[userID]
	return rec, ok
}

type memRecordRepo struct {
	mu      sync.Mutex
	docs    map[string]map[string]map[string]interface{}
	nextID  int
	lastQry models.OwnerScopedQuery
}

func newMemRecordRepo() *memRecordRepo {
	return &memRecordRepo{docs: make(map[string]map[string]map[string]interface{})}
}

func (r *memRecordRepo) Create(_ context.Context, collection string, data map[string]interface{}) (*models.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := fmt.Sprintf("doc-%d", r.nextID)
	if r.docs[collection] == nil {
		r.docs[collection] = make(map[string]map[string]interface{})
	}
	r.docs[collection][id] = data
	return &models.Record{ID: id, Data: data}, nil
}

func (r *memRecordRepo) Get(_ context.Context, collection, id string) (*models.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.docs[collection][id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := make(map[string]interface{}, len(data))
	for k, v := range data {
		cp[k] = v
	}
	return &models.Record{ID: id, Data: cp}, nil
}

func (r *memRecordRepo) List(_ context.Context, q models.OwnerScopedQuery) ([]*models.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastQry = q
	out := make([]*models.Record, 0)
	for id, data := range r.docs[q.Collection] {
		if data[models.FieldOwnerID] != q.OwnerID {
			continue
		}
		if q.Filter != nil && data[q.Filter.Field] != q.Filter.Value {
			continue
		}
		out = append(out, &models.Record{ID: id, Data: data})
	}
	return out, nil
}

func (r *memRecordRepo) Update(_ context.Context, collection, id string, data map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[collection][id]
	if !ok {
		return db.ErrNotFound
	}
	for k, v := range data {
		doc[k] = v
	}
	return nil
}

func (r *memRecordRepo) Delete(_ context.Context, collection, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[collection][id]; !ok {
		return db.ErrNotFound
	}
	delete(r.docs[collection], id)
	return nil
}

type spyCache struct {
	mu      sync.Mutex
	entries map[string]models.UserPlanRecord
	written []string
	deleted []string
	setErr  error
}

func newSpyCache() *spyCache {
	return &spyCache{entries: make(map[string]models.UserPlanRecord)}
}

func (c *spyCache) Get(_ context.Context, userID string) (*models.UserPlanRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.entries[userID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (c *spyCache) Set(_ context.Context, record *models.UserPlanRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[record.UserID] = *record
	c.written = append(c.written, record.UserID)
	return nil
}

func (c *spyCache) SetIfAbsent(_ context.Context, record *models.UserPlanRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[record.UserID]; !ok {
		c.entries[record.UserID] = *record
	}
	return nil
}

func (c *spyCache) entry(userID string) (models.UserPlanRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.entries[userID]
	return rec, ok
}

func (c *spyCache) Delete(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
	c.deleted = append(c.deleted, userID)
	return nil
}

type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) CreateAuditLog(ctx context.Context, logEntry models.AuditLog) error {
	args := m.Called(ctx, logEntry)
	return args.Error(0)
}

// MockStripeGateway also serves as a SubscriptionFetcher.
type MockStripeGateway struct {
	mock.Mock
}

func (m *MockStripeGateway) GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.Subscription), args.Error(1)
}

func (m *MockStripeGateway) FindCustomerByEmail(ctx context.Context, email string) (*stripe.Customer, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.Customer), args.Error(1)
}

func (m *MockStripeGateway) CreateCustomer(ctx context.Context, identity models.Identity) (*stripe.Customer, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.Customer), args.Error(1)
}

func (m *MockStripeGateway) CreateSubscription(ctx context.Context, req SubscriptionRequest) (*stripe.Subscription, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.Subscription), args.Error(1)
}

func (m *MockStripeGateway) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.Subscription), args.Error(1)
}

func (m *MockStripeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	args := m.Called(ctx, customerID, returnURL)
	return args.String(0), args.Error(1)
}
