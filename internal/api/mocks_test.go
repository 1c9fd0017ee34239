package api

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v79"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"glow-backend-go/internal/core"
	"glow-backend-go/internal/db"
	"glow-backend-go/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// tokenVerifier accepts "token-<uid>" bearer tokens.
type tokenVerifier struct{}

func (tokenVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	uid := strings.TrimPrefix(idToken, "token-")
	if uid == idToken || uid == "" {
		return nil, errors.New("invalid token")
	}
	return &auth.Token{UID: uid, Claims: map[string]interface{}{"email": uid + "@salon.test"}}, nil
}

type MockUserService struct{ mock.Mock }

func (m *MockUserService) GetOrCreate(ctx context.Context, identity models.Identity) (*models.User, bool, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.User), args.Bool(1), args.Error(2)
}

func (m *MockUserService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type MockPlanService struct{ mock.Mock }

func (m *MockPlanService) HandleEvent(ctx context.Context, event stripe.Event) core.Outcome {
	args := m.Called(ctx, event)
	return args.Get(0).(core.Outcome)
}

func (m *MockPlanService) GetPlan(ctx context.Context, userID string) (*models.UserPlanRecord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserPlanRecord), args.Error(1)
}

func (m *MockPlanService) UpdatePlan(ctx context.Context, callerID string, req models.UpdatePlanRequest) (*models.UserPlanRecord, error) {
	args := m.Called(ctx, callerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserPlanRecord), args.Error(1)
}

type MockBillingService struct{ mock.Mock }

func (m *MockBillingService) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	args := m.Called(payload, signature)
	return args.Get(0).(stripe.Event), args.Error(1)
}

func (m *MockBillingService) Subscribe(ctx context.Context, identity models.Identity, planID models.PlanID) (*core.SubscribeResult, error) {
	args := m.Called(ctx, identity, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core.SubscribeResult), args.Error(1)
}

func (m *MockBillingService) CancelSubscription(ctx context.Context, identity models.Identity, subscriptionID string) (*stripe.Subscription, error) {
	args := m.Called(ctx, identity, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.Subscription), args.Error(1)
}

func (m *MockBillingService) CreatePortalSession(ctx context.Context, identity models.Identity) (string, error) {
	args := m.Called(ctx, identity)
	return args.String(0), args.Error(1)
}

type MockRecordService struct{ mock.Mock }

func (m *MockRecordService) Create(ctx context.Context, ownerID, collection string, data map[string]interface{}) (*models.Record, error) {
	args := m.Called(ctx, ownerID, collection, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Record), args.Error(1)
}

func (m *MockRecordService) List(ctx context.Context, query models.OwnerScopedQuery) ([]*models.Record, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Record), args.Error(1)
}

func (m *MockRecordService) Get(ctx context.Context, ownerID, collection, id string) (*models.Record, error) {
	args := m.Called(ctx, ownerID, collection, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Record), args.Error(1)
}

func (m *MockRecordService) Update(ctx context.Context, ownerID, collection, id string, data map[string]interface{}) (*models.Record, error) {
	args := m.Called(ctx, ownerID, collection, id, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Record), args.Error(1)
}

func (m *MockRecordService) Delete(ctx context.Context, ownerID, collection, id string) error {
	args := m.Called(ctx, ownerID, collection, id)
	return args.Error(0)
}

// stubLiveSource serves one snapshot and then fails, which ends the SSE stream.
type stubLiveSource struct {
	records []models.Record
	queries []models.OwnerScopedQuery
}

func (s *stubLiveSource) Listen(_ context.Context, q models.OwnerScopedQuery) (db.SnapshotStream, error) {
	s.queries = append(s.queries, q)
	return &stubStream{records: s.records}, nil
}

type stubStream struct {
	records []models.Record
	served  bool
}

func (s *stubStream) Next() ([]models.Record, error) {
	if !s.served {
		s.served = true
		return s.records, nil
	}
	return nil, errors.New("listener closed by server")
}

func (s *stubStream) Stop() {}

// closeNotifyingRecorder lets gin's Context.Stream run against httptest.
type closeNotifyingRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func newCloseNotifyingRecorder() *closeNotifyingRecorder {
	return &closeNotifyingRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}
}

func (r *closeNotifyingRecorder) CloseNotify() <-chan bool {
	return r.closed
}

type testServer struct {
	router  *gin.Engine
	users   *MockUserService
	plans   *MockPlanService
	billing core.BillingService
	records *MockRecordService
	live    *stubLiveSource
}

func newTestServer(t *testing.T, billing core.BillingService) *testServer {
	t.Helper()
	s := &testServer{
		router:  gin.New(),
		users:   new(MockUserService),
		plans:   new(MockPlanService),
		billing: billing,
		records: new(MockRecordService),
		live:    &stubLiveSource{},
	}
	if s.billing == nil {
		s.billing = new(MockBillingService)
	}
	SetupRoutes(s.router, tokenVerifier{}, zap.NewNop(), s.users, s.plans, s.billing, s.records, s.live)
	return s
}

func (s *testServer) do(method, path, uid, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if uid != "" {
		req.Header.Set("Authorization", "Bearer token-"+uid)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}
