package lockset

import (
	"testing"

	"github.com/google/uuid"

	"github.com/talentbridge/talentbridge-backend/pkg/db/models"
	dbtypes "github.com/talentbridge/talentbridge-backend/pkg/db/types"
	"github.com/talentbridge/talentbridge-backend/pkg/enums"
)

func withdrawal(status enums.WithdrawalStatus, ids ...uuid.UUID) models.CommissionWithdrawal {
	return models.CommissionWithdrawal{ID: uuid.New(), Status: status, CommissionIDs: dbtypes.UUIDArray(ids)}
}

func TestResolveOnlyCountsLockingStatuses(t *testing.T) {
	pending, approved, processing := uuid.New(), uuid.New(), uuid.New()
	completed, cancelled := uuid.New(), uuid.New()

	set := Resolve([]models.CommissionWithdrawal{
		withdrawal(enums.WithdrawalStatusPending, pending),
		withdrawal(enums.WithdrawalStatusApproved, approved),
		withdrawal(enums.WithdrawalStatusProcessing, processing),
		withdrawal(enums.WithdrawalStatusCompleted, completed),
		withdrawal(enums.WithdrawalStatusCancelled, cancelled),
	})

	for _, id := range []uuid.UUID{pending, approved, processing} {
		if !set.Contains(id) {
			t.Fatalf("expected %s to be locked", id)
		}
	}
	for _, id := range []uuid.UUID{completed, cancelled} {
		if set.Contains(id) {
			t.Fatalf("expected %s to be released", id)
		}
	}
	if len(set) != 3 {
		t.Fatalf("expected 3 locked ids, got %d", len(set))
	}
}

func TestResolveTracksHolder(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	w := withdrawal(enums.WithdrawalStatusPending, a, b)
	set := Resolve([]models.CommissionWithdrawal{w})

	holder, ok := set.HeldBy(b)
	if !ok || holder != w.ID {
		t.Fatalf("expected %s to be held by %s, got %s %v", b, w.ID, holder, ok)
	}
	if _, ok := set.HeldBy(uuid.New()); ok {
		t.Fatal("unexpected holder for unknown id")
	}
}

func TestIntersectKeepsInputOrder(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	set := Resolve([]models.CommissionWithdrawal{withdrawal(enums.WithdrawalStatusApproved, c, a)})

	got := set.Intersect([]uuid.UUID{a, b, c})
	if len(got) != 2 || got[0] != a || got[1] != c {
		t.Fatalf("unexpected intersection %v", got)
	}
	if len(Resolve(nil).Intersect([]uuid.UUID{a})) != 0 {
		t.Fatal("empty set must not lock anything")
	}
}
