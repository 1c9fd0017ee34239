package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanID(t *testing.T) {
	tests := []struct {
		id    PlanID
		valid bool
		paid  bool
		name  string
	}{
		{id: PlanGlowStart, valid: true, paid: false, name: "Glow Start"},
		{id: PlanGlowPro, valid: true, paid: true, name: "Glow Pro"},
		{id: "glow-ultra", valid: false, paid: true, name: "glow-ultra"},
	}

	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.id.Valid())
			assert.Equal(t, tt.paid, tt.id.IsPaid())
			assert.Equal(t, tt.name, tt.id.DisplayName())
		})
	}
}

func TestFreePlanRecord(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := FreePlanRecord("u1", now)

	assert.Equal(t, PlanGlowStart, rec.PlanID)
	assert.True(t, rec.IsActive)
	assert.False(t, rec.HasPaidPlan)
	assert.Equal(t, PlanStateFree, rec.State)
	assert.Empty(t, rec.SubscriptionID)
	assert.Equal(t, now, rec.UpdatedAt)
}

func TestUserPlanRecordExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	assert.True(t, (&UserPlanRecord{State: PlanStatePendingCancellation, ExpiresAt: &past}).Expired(now))
	assert.True(t, (&UserPlanRecord{State: PlanStatePendingCancellation, ExpiresAt: &now}).Expired(now))
	assert.False(t, (&UserPlanRecord{State: PlanStatePendingCancellation, ExpiresAt: &future}).Expired(now))
	assert.False(t, (&UserPlanRecord{State: PlanStateActive, ExpiresAt: &past}).Expired(now))
	assert.False(t, (&UserPlanRecord{State: PlanStatePendingCancellation}).Expired(now))
}

func TestRecordMarshalJSON(t *testing.T) {
	rec := Record{ID: "c1", Data: map[string]interface{}{"name": "Ana", FieldOwnerID: "u1"}}

	raw, err := json.Marshal(rec)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "c1", out["id"])
	assert.Equal(t, "Ana", out["name"])
	assert.Equal(t, "u1", rec.OwnerID())
}

func TestIsOwnerScopedCollection(t *testing.T) {
	assert.True(t, IsOwnerScopedCollection(CollectionAppointments))
	assert.False(t, IsOwnerScopedCollection("userPlans"))
}
