package agreement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "fieldserve-service/internal/domain/agreement"
	"fieldserve-service/internal/domain/notification"

	"go.uber.org/zap"
)

type sentMail struct {
	to      string
	subject string
}

type fakeMailer struct {
	sent []sentMail
}

func (m *fakeMailer) Send(to, subject, _ string) error {
	m.sent = append(m.sent, sentMail{to: to, subject: subject})
	return nil
}

func newTestSweeper(f *fixture, mailer Mailer) *Sweeper {
	return NewSweeper(f.svc, mailer, time.Hour, zap.NewNop())
}

func TestSweepExpiresLapsedAgreement(t *testing.T) {
	f := newFixture(t, Policy{})
	a := f.createEndingIn(t, -24*time.Hour)

	newTestSweeper(f, nil).Sweep(context.Background())

	got, err := f.svc.Get(context.Background(), testCompanyID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, got.Agreement.Status)

	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, notification.TypeAgreementExpired, f.notifier.events[0].eventType)
}

func TestSweepAutoRenews(t *testing.T) {
	f := newFixture(t, Policy{ResetVisitsOnRenew: true})
	start := time.Now().Add(-24*time.Hour).AddDate(-1, 0, 0)
	a := f.create(t, &domain.CreateAgreementRequest{
		CustomerID:       10,
		PlanID:           1,
		Status:           domain.StatusActive,
		StartDate:        &start,
		BillingFrequency: domain.BillingAnnual,
		AutoRenew:        true,
	})
	oldEnd := a.EndDate

	newTestSweeper(f, nil).Sweep(context.Background())

	got, err := f.svc.Get(context.Background(), testCompanyID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, got.Agreement.Status)
	assert.Equal(t, oldEnd.AddDate(1, 0, 0), got.Agreement.EndDate)

	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, notification.TypeAgreementRenewed, f.notifier.events[0].eventType)
}

func TestSweepSuspendedExpiresDespiteAutoRenew(t *testing.T) {
	f := newFixture(t, Policy{})
	start := time.Now().Add(-24*time.Hour).AddDate(-1, 0, 0)
	a := f.create(t, &domain.CreateAgreementRequest{
		CustomerID:       10,
		PlanID:           1,
		Status:           domain.StatusActive,
		StartDate:        &start,
		BillingFrequency: domain.BillingAnnual,
		AutoRenew:        true,
	})

	version := a.Version
	suspended := domain.StatusSuspended
	_, err := f.svc.Update(context.Background(), testCompanyID, a.ID, &domain.UpdateAgreementRequest{
		Status:  &suspended,
		Version: &version,
	})
	require.NoError(t, err)

	newTestSweeper(f, nil).Sweep(context.Background())

	got, err := f.svc.Get(context.Background(), testCompanyID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, got.Agreement.Status)
}

func TestSweepRemindsOncePerTerm(t *testing.T) {
	f := newFixture(t, Policy{})
	mailer := &fakeMailer{}
	a := f.createEndingIn(t, 10*24*time.Hour)

	sweeper := newTestSweeper(f, mailer)
	sweeper.Sweep(context.Background())
	sweeper.Sweep(context.Background())

	// One reminder despite two passes.
	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, notification.TypeAgreementExpiring, f.notifier.events[0].eventType)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "dana@example.com", mailer.sent[0].to)

	got, err := f.repo.FindByID(context.Background(), testCompanyID, a.ID)
	require.NoError(t, err)
	assert.True(t, got.ExpiringNotifiedAt.Valid)
}

func TestSweepRemindsAgainAfterRenewal(t *testing.T) {
	f := newFixture(t, Policy{})
	a := f.createEndingIn(t, 10*24*time.Hour)

	sweeper := newTestSweeper(f, nil)
	sweeper.Sweep(context.Background())
	require.Len(t, f.notifier.events, 1)

	_, err := f.svc.Renew(context.Background(), testCompanyID, a.ID)
	require.NoError(t, err)

	// The new term is a year out, so no further reminder fires now.
	sweeper.Sweep(context.Background())
	assert.Len(t, f.notifier.events, 1)

	got, err := f.repo.FindByID(context.Background(), testCompanyID, a.ID)
	require.NoError(t, err)
	assert.False(t, got.ExpiringNotifiedAt.Valid)
}
