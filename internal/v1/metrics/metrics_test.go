package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestStoreOperations_Increments(t *testing.T) {
	StoreOperations.WithLabelValues("get", "success").Inc()
	val := testutil.ToFloat64(StoreOperations.WithLabelValues("get", "success"))
	if val < 1 {
		t.Errorf("expected StoreOperations to be at least 1, got %v", val)
	}
}

func TestStoreOperationDuration_Observes(t *testing.T) {
	StoreOperationDuration.WithLabelValues("get").Observe(0.01)
}

func TestRoomServiceRequests_Increments(t *testing.T) {
	RoomServiceRequests.WithLabelValues("CreateRoom", "success").Inc()
	val := testutil.ToFloat64(RoomServiceRequests.WithLabelValues("CreateRoom", "success"))
	if val < 1 {
		t.Errorf("expected RoomServiceRequests to be at least 1, got %v", val)
	}
}

func TestActiveSessions_IncDec(t *testing.T) {
	before := testutil.ToFloat64(ActiveSessions)
	IncActiveSessions()
	if testutil.ToFloat64(ActiveSessions) != before+1 {
		t.Errorf("expected ActiveSessions to increment")
	}
	DecActiveSessions()
	if testutil.ToFloat64(ActiveSessions) != before {
		t.Errorf("expected ActiveSessions to decrement back")
	}
}
