package withdrawals

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/talentbridge/talentbridge-backend/internal/commissions"
	"github.com/talentbridge/talentbridge-backend/internal/consultants"
	"github.com/talentbridge/talentbridge-backend/internal/ledger"
	"github.com/talentbridge/talentbridge-backend/internal/lockset"
	"github.com/talentbridge/talentbridge-backend/internal/pricing"
	"github.com/talentbridge/talentbridge-backend/pkg/db"
	"github.com/talentbridge/talentbridge-backend/pkg/db/dbtest"
	"github.com/talentbridge/talentbridge-backend/pkg/db/models"
	"github.com/talentbridge/talentbridge-backend/pkg/enums"
	pkgerrors "github.com/talentbridge/talentbridge-backend/pkg/errors"
	"github.com/talentbridge/talentbridge-backend/pkg/logger"
	"github.com/talentbridge/talentbridge-backend/pkg/metrics"
	"github.com/talentbridge/talentbridge-backend/pkg/outbox"
	pkgpagination "github.com/talentbridge/talentbridge-backend/pkg/pagination"
)

type fixture struct {
	svc         Service
	commissions commissions.Service
	ledger      ledger.Service
	conn        *gorm.DB
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client := db.FromGorm(dbtest.Open(t))
	conn := client.DB()
	logg := logger.New(logger.Options{ServiceName: "withdrawals-test", Output: io.Discard})
	notifier := outbox.NewService(conn, outbox.NewRepository(conn), logg, nil)
	workflow := metrics.NewWorkflowMetrics(prometheus.NewRegistry())

	ledgerRepo := ledger.NewRepository(conn)
	ledgerSvc, err := ledger.NewService(ledger.ServiceParams{
		Repo:            ledgerRepo,
		TxRunner:        client,
		Logger:          logg,
		DefaultCurrency: "USD",
	})
	require.NoError(t, err)

	consultantRepo := consultants.NewRepository(conn)
	resolver, err := pricing.NewResolver(pricing.ResolverParams{
		Consultants:     consultantRepo,
		Ledger:          ledgerRepo,
		DefaultRate:     decimal.RequireFromString("0.05"),
		DefaultCurrency: "USD",
	})
	require.NoError(t, err)

	commissionRepo := commissions.NewRepository(conn)
	locks := lockset.NewRepository(conn)
	commissionSvc, err := commissions.NewService(commissions.ServiceParams{
		Repo:            commissionRepo,
		Ledger:          ledgerSvc,
		Pricing:         resolver,
		Consultants:     consultantRepo,
		Locks:           locks,
		TxRunner:        client,
		Notifier:        notifier,
		Logger:          logg,
		Metrics:         workflow,
		DefaultCurrency: "USD",
	})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:            NewRepository(conn),
		Commissions:     commissionRepo,
		Locks:           locks,
		Ledger:          ledgerSvc,
		Sealer:          testSealer(t),
		TxRunner:        client,
		Notifier:        notifier,
		Logger:          logg,
		Metrics:         workflow,
		DefaultCurrency: "USD",
	})
	require.NoError(t, err)
	return fixture{svc: svc, commissions: commissionSvc, ledger: ledgerSvc, conn: conn}
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code(), typed.Error())
}

func newOwner() ledger.Owner {
	return ledger.Owner{Type: enums.OwnerTypeConsultant, ID: uuid.New()}
}

func (f fixture) award(t *testing.T, owner ledger.Owner, value string) uuid.UUID {
	t.Helper()
	v := dec(value)
	jobID := uuid.New()
	c, created, err := f.commissions.Award(context.Background(), commissions.AwardInput{
		ConsultantID: owner.ID,
		OwnerType:    owner.Type,
		Type:         enums.CommissionTypePlacement,
		JobID:        &jobID,
		Amount:       &v,
	})
	require.NoError(t, err)
	require.True(t, created)
	return c.ID
}

func (f fixture) ledgerBalance(t *testing.T, owner ledger.Owner) string {
	t.Helper()
	bal, err := f.ledger.GetBalance(context.Background(), owner)
	require.NoError(t, err)
	return bal.Balance.StringFixed(2)
}

func (f fixture) summary(t *testing.T, owner ledger.Owner) *BalanceSummary {
	t.Helper()
	s, err := f.svc.CalculateBalance(context.Background(), owner)
	require.NoError(t, err)
	return s
}

func (f fixture) countEvents(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&count).Error)
	return count
}

func paypal(amount string, ids ...uuid.UUID) RequestInput {
	return RequestInput{
		Amount:         dec(amount),
		CommissionIDs:  ids,
		PaymentMethod:  enums.PaymentMethodPayPal,
		PaymentDetails: PaymentDetails{"email": "ada@example.com"},
	}
}

func TestRequestLocksAndCancelReleases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := newOwner()
	first := f.award(t, owner, "200.00")
	second := f.award(t, owner, "300.00")

	before := f.summary(t, owner)
	assert.Equal(t, "500.00", before.AvailableBalance.StringFixed(2))
	assert.Len(t, before.AvailableCommissions, 2)

	w, err := f.svc.Request(ctx, owner, paypal("500.00", first, second))
	require.NoError(t, err)
	assert.Equal(t, enums.WithdrawalStatusPending, w.Status)
	assert.Equal(t, "500.00", w.Amount.StringFixed(2))

	during := f.summary(t, owner)
	assert.Equal(t, "0.00", during.AvailableBalance.StringFixed(2))
	assert.Equal(t, "500.00", during.LockedBalance.StringFixed(2))
	assert.Empty(t, during.AvailableCommissions)

	cancelled, err := f.svc.Cancel(ctx, w.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, enums.WithdrawalStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	after := f.summary(t, owner)
	assert.Equal(t, "500.00", after.AvailableBalance.StringFixed(2))
	assert.Equal(t, "0.00", after.LockedBalance.StringFixed(2))
	assert.Equal(t, "500.00", f.ledgerBalance(t, owner))
	assert.EqualValues(t, 1, f.countEvents(t, enums.EventWithdrawalRequested))
	assert.EqualValues(t, 1, f.countEvents(t, enums.EventWithdrawalCancelled))
}

func TestDuplicateAwardDoesNotInflateBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := newOwner()
	jobID := uuid.New()
	v := dec("120.00")
	input := commissions.AwardInput{
		ConsultantID: owner.ID,
		OwnerType:    owner.Type,
		Type:         enums.CommissionTypePlacement,
		JobID:        &jobID,
		Amount:       &v,
	}
	_, created, err := f.commissions.Award(ctx, input)
	require.NoError(t, err)
	require.True(t, created)
	_, created, err = f.commissions.Award(ctx, input)
	require.NoError(t, err)
	require.False(t, created)

	s := f.summary(t, owner)
	assert.Equal(t, "120.00", s.AvailableBalance.StringFixed(2))
	assert.Equal(t, "120.00", s.TotalEarned.StringFixed(2))
	assert.Equal(t, "120.00", f.ledgerBalance(t, owner))
}

func TestBalanceSummaryStaysInAccountCurrency(t *testing.T) {
	f := newFixture(t)
	owner := newOwner()
	f.award(t, owner, "100.00")
	foreign := f.award(t, owner, "30.00")
	require.NoError(t, f.conn.Model(&models.Commission{}).Where("id = ?", foreign).Updates(map[string]any{
		"currency":     "EUR",
		"status":       enums.CommissionStatusPending,
		"confirmed_at": nil,
	}).Error)

	s := f.summary(t, owner)
	assert.Equal(t, "USD", s.Currency)
	assert.Equal(t, "100.00", s.AvailableBalance.StringFixed(2))
	assert.Equal(t, "0.00", s.PendingBalance.StringFixed(2))
	assert.Equal(t, "100.00", s.TotalEarned.StringFixed(2))
}

func TestBalanceCurrencyPrefersCreditedCommissions(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name string
		rows []models.Commission
		want string
	}{
		{"no commissions", nil, "USD"},
		{"credited wins over older pending", []models.Commission{
			{Currency: "EUR", Status: enums.CommissionStatusPending},
			{Currency: "GBP", Status: enums.CommissionStatusConfirmed, ConfirmedAt: &now},
		}, "GBP"},
		{"cancelled rows are ignored", []models.Commission{
			{Currency: "EUR", Status: enums.CommissionStatusCancelled},
			{Currency: "KES", Status: enums.CommissionStatusPending},
		}, "KES"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, balanceCurrency(tc.rows, "USD"))
		})
	}
}

func TestExecuteRequiresApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := newOwner()
	id := f.award(t, owner, "80.00")
	w, err := f.svc.Request(ctx, owner, paypal("80.00", id))
	require.NoError(t, err)

	_, err = f.svc.Execute(ctx, w.ID, owner)
	requireCode(t, err, pkgerrors.CodeInvalidState)

	got, err := f.svc.Get(ctx, w.ID, &owner)
	require.NoError(t, err)
	assert.Equal(t, enums.WithdrawalStatusPending, got.Status)
	assert.Equal(t, "80.00", f.ledgerBalance(t, owner))
}

func TestFullPayoutFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := newOwner()
	first := f.award(t, owner, "60.00")
	second := f.award(t, owner, "40.00")
	untouched := f.award(t, owner, "25.00")

	w, err := f.svc.Request(ctx, owner, paypal("100.00", first, second))
	require.NoError(t, err)

	approved, err := f.svc.Approve(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.WithdrawalStatusApproved, approved.Status)

	processing, err := f.svc.Execute(ctx, w.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, enums.WithdrawalStatusProcessing, processing.Status)
	require.NotNil(t, processing.ProcessedAt)
	assert.Equal(t, "25.00", f.ledgerBalance(t, owner))

	completed, err := f.svc.Complete(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.WithdrawalStatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)

	again, err := f.svc.Complete(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.WithdrawalStatusCompleted, again.Status)
	assert.Equal(t, "25.00", f.ledgerBalance(t, owner))

	for _, id := range []uuid.UUID{first, second} {
		c, err := f.commissions.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, enums.CommissionStatusPaid, c.Status)
		assert.False(t, c.Locked)
	}

	s := f.summary(t, owner)
	assert.Equal(t, "25.00", s.AvailableBalance.StringFixed(2))
	assert.Equal(t, "100.00", s.TotalWithdrawn.StringFixed(2))
	assert.Equal(t, "125.00", s.TotalEarned.StringFixed(2))
	require.Len(t, s.AvailableCommissions, 1)
	assert.Equal(t, untouched, s.AvailableCommissions[0].ID)
	assert.EqualValues(t, 1, f.countEvents(t, enums.EventWithdrawalCompleted))
}

func TestNoDoubleWithdrawal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := newOwner()
	id := f.award(t, owner, "50.00")

	_, err := f.svc.Request(ctx, owner, paypal("50.00", id))
	require.NoError(t, err)

	_, err = f.svc.Request(ctx, owner, paypal("50.00", id))
	requireCode(t, err, pkgerrors.CodeIneligibleCommissions)
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "locked", details["reason"])
}

func TestRejectReleasesApprovedWithdrawal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := newOwner()
	id := f.award(t, owner, "50.00")
	w, err := f.svc.Request(ctx, owner, paypal("50.00", id))
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, w.ID)
	require.NoError(t, err)

	_, err = f.svc.Reject(ctx, w.ID, " ")
	requireCode(t, err, pkgerrors.CodeValidation)

	rejected, err := f.svc.Reject(ctx, w.ID, "details could not be verified")
	require.NoError(t, err)
	assert.Equal(t, enums.WithdrawalStatusCancelled, rejected.Status)
	require.NotNil(t, rejected.Notes)
	assert.Contains(t, *rejected.Notes, "rejected: details could not be verified")

	_, err = f.svc.Request(ctx, owner, paypal("50.00", id))
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.countEvents(t, enums.EventWithdrawalRejected))
}

func TestRequestRecomputesAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := newOwner()
	id := f.award(t, owner, "75.50")

	w, err := f.svc.Request(ctx, owner, paypal("9999.00", id))
	require.NoError(t, err)
	assert.Equal(t, "75.50", w.Amount.StringFixed(2))
	assert.Equal(t, "9999.00", w.RequestedAmount.StringFixed(2))
}

func TestRequestRejectsIneligibleCommissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := newOwner()
	mine := f.award(t, owner, "10.00")
	theirs := f.award(t, newOwner(), "10.00")

	_, err := f.svc.Request(ctx, owner, paypal("20.00", mine, theirs))
	requireCode(t, err, pkgerrors.CodeIneligibleCommissions)

	_, err = f.svc.Request(ctx, owner, paypal("10.00", uuid.New()))
	requireCode(t, err, pkgerrors.CodeIneligibleCommissions)

	_, err = f.svc.Request(ctx, owner, paypal("20.00", mine, mine))
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Request(ctx, owner, paypal("10.00"))
	requireCode(t, err, pkgerrors.CodeValidation)

	bad := paypal("10.00", mine)
	bad.PaymentDetails = PaymentDetails{}
	_, err = f.svc.Request(ctx, owner, bad)
	requireCode(t, err, pkgerrors.CodeValidation)

	for _, email := range []string{"@", "not an email @ all"} {
		malformed := paypal("10.00", mine)
		malformed.PaymentDetails = PaymentDetails{"email": email}
		_, err = f.svc.Request(ctx, owner, malformed)
		requireCode(t, err, pkgerrors.CodeValidation)
	}

	_, err = f.svc.Request(ctx, ledger.Owner{Type: enums.OwnerTypeCompany, ID: owner.ID}, paypal("10.00", mine))
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Request(ctx, owner, paypal("0", mine))
	requireCode(t, err, pkgerrors.CodeInvalidAmount)
}

func TestExecuteRejectsReversedCommission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := newOwner()
	keep := f.award(t, owner, "40.00")
	lost := f.award(t, owner, "20.00")
	w, err := f.svc.Request(ctx, owner, paypal("60.00", keep, lost))
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, w.ID)
	require.NoError(t, err)

	_, err = f.commissions.Clawback(ctx, lost, "placement fell through")
	require.NoError(t, err)

	_, err = f.svc.Execute(ctx, w.ID, owner)
	requireCode(t, err, pkgerrors.CodeIneligibleCommissions)
	assert.Equal(t, "40.00", f.ledgerBalance(t, owner))

	got, err := f.svc.Get(ctx, w.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, enums.WithdrawalStatusApproved, got.Status)
}

func TestOwnershipIsEnforced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := newOwner()
	stranger := newOwner()
	id := f.award(t, owner, "30.00")
	w, err := f.svc.Request(ctx, owner, paypal("30.00", id))
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, w.ID, stranger)
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.svc.Get(ctx, w.ID, &stranger)
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.svc.Approve(ctx, w.ID)
	require.NoError(t, err)
	_, err = f.svc.Execute(ctx, w.ID, stranger)
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.svc.Get(ctx, uuid.New(), nil)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestStateTransitionsAreStrict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := newOwner()
	id := f.award(t, owner, "30.00")
	w, err := f.svc.Request(ctx, owner, paypal("30.00", id))
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, w.ID)
	requireCode(t, err, pkgerrors.CodeInvalidState)

	_, err = f.svc.Approve(ctx, w.ID)
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, w.ID)
	requireCode(t, err, pkgerrors.CodeInvalidState)
	_, err = f.svc.Cancel(ctx, w.ID, owner)
	requireCode(t, err, pkgerrors.CodeInvalidState)

	_, err = f.svc.Execute(ctx, w.ID, owner)
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, w.ID, "too late")
	requireCode(t, err, pkgerrors.CodeInvalidState)
}

func TestResponsesMaskPaymentDetails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := newOwner()
	id := f.award(t, owner, "30.00")
	w, err := f.svc.Request(ctx, owner, RequestInput{
		Amount:        dec("30.00"),
		CommissionIDs: []uuid.UUID{id},
		PaymentMethod: enums.PaymentMethodBankTransfer,
		PaymentDetails: PaymentDetails{
			"account_name":   "Ada Lovelace",
			"account_number": "0012345678",
			"bank_name":      "First Bank",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "******5678", w.PaymentDetails["account_number"])

	var stored models.CommissionWithdrawal
	require.NoError(t, f.conn.Where("id = ?", w.ID).Take(&stored).Error)
	assert.NotContains(t, string(stored.PaymentDetails), "0012345678")

	got, err := f.svc.Get(ctx, w.ID, &owner)
	require.NoError(t, err)
	assert.Equal(t, "******5678", got.PaymentDetails["account_number"])
	assert.Equal(t, "First Bank", got.PaymentDetails["bank_name"])
}

func TestListByOwnerPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := newOwner()
	for i := 0; i < 3; i++ {
		id := f.award(t, owner, "10.00")
		_, err := f.svc.Request(ctx, owner, paypal("10.00", id))
		require.NoError(t, err)
	}

	page, err := f.svc.ListByOwner(ctx, ListParams{Owner: owner, Params: pkgpagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.Cursor)

	rest, err := f.svc.ListByOwner(ctx, ListParams{Owner: owner, Params: pkgpagination.Params{Limit: 2, Cursor: page.Cursor}})
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	assert.Empty(t, rest.Cursor)

	seen := map[uuid.UUID]bool{}
	for _, item := range append(page.Items, rest.Items...) {
		seen[item.ID] = true
	}
	assert.Len(t, seen, 3)

	approved := enums.WithdrawalStatusApproved
	none, err := f.svc.ListByOwner(ctx, ListParams{Owner: owner, Status: &approved})
	require.NoError(t, err)
	assert.Empty(t, none.Items)
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}
