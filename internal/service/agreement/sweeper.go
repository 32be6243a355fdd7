package agreement

import (
	"context"
	"fmt"
	"time"

	"fieldserve-service/internal/domain/agreement"
	"fieldserve-service/internal/domain/notification"

	"go.uber.org/zap"
)

// Mailer sends the expiring-soon reminder to the customer. A nil mailer
// disables reminder mail without disabling the sweep.
type Mailer interface {
	Send(to, subject, bodyHTML string) error
}

// Sweeper is the background job behind natural expiry: agreements whose
// term lapsed are auto-renewed or expired, and agreements entering the
// 30-day window get a one-time reminder.
type Sweeper struct {
	svc      *Service
	mailer   Mailer
	interval time.Duration
	logger   *zap.Logger
}

func NewSweeper(svc *Service, mailer Mailer, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		svc:      svc,
		mailer:   mailer,
		interval: interval,
		logger:   logger,
	}
}

func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one pass. Failures on individual agreements are logged and
// skipped so one bad row cannot stall the rest.
func (w *Sweeper) Sweep(ctx context.Context) {
	now := time.Now()

	due, err := w.svc.agreementRepo.FindDue(ctx, now)
	if err != nil {
		w.logger.Error("expiry sweep: failed to load due agreements", zap.Error(err))
	}
	for i := range due {
		a := &due[i]
		if err := w.settle(ctx, a); err != nil {
			w.logger.Error("expiry sweep: failed to settle agreement",
				zap.Int64("agreement_id", a.ID),
				zap.Error(err),
			)
		}
	}

	entering, err := w.svc.agreementRepo.FindEnteringWindow(ctx, now)
	if err != nil {
		w.logger.Error("expiry sweep: failed to load expiring agreements", zap.Error(err))
		return
	}
	for i := range entering {
		w.remind(ctx, &entering[i], now)
	}
}

// settle resolves one lapsed agreement: auto-renew extends the term,
// everything else expires.
func (w *Sweeper) settle(ctx context.Context, a *agreement.ServiceAgreement) error {
	expectedVersion := a.Version

	if a.Status == agreement.StatusActive && a.AutoRenew {
		w.svc.applyRenewal(a)
		if err := w.svc.agreementRepo.Update(ctx, a, expectedVersion); err != nil {
			return err
		}
		w.logger.Info("agreement auto-renewed",
			zap.Int64("agreement_id", a.ID),
			zap.String("agreement_number", a.AgreementNumber),
			zap.Time("new_end_date", a.EndDate),
		)
		w.svc.notifier.AgreementEvent(ctx, a, notification.TypeAgreementRenewed,
			"Agreement auto-renewed",
			fmt.Sprintf("Agreement %s renewed through %s.", a.AgreementNumber, a.EndDate.Format("Jan 2, 2006")),
		)
		return nil
	}

	a.Status = agreement.StatusExpired
	if err := w.svc.agreementRepo.Update(ctx, a, expectedVersion); err != nil {
		return err
	}
	w.logger.Info("agreement expired",
		zap.Int64("agreement_id", a.ID),
		zap.String("agreement_number", a.AgreementNumber),
	)
	w.svc.notifier.AgreementEvent(ctx, a, notification.TypeAgreementExpired,
		"Agreement expired",
		fmt.Sprintf("Agreement %s expired on %s.", a.AgreementNumber, a.EndDate.Format("Jan 2, 2006")),
	)
	return nil
}

// remind sends the one-per-term expiring-soon notification and the
// customer reminder mail.
func (w *Sweeper) remind(ctx context.Context, a *agreement.ServiceAgreement, now time.Time) {
	w.svc.notifier.AgreementEvent(ctx, a, notification.TypeAgreementExpiring,
		"Agreement expiring soon",
		fmt.Sprintf("Agreement %s ends on %s.", a.AgreementNumber, a.EndDate.Format("Jan 2, 2006")),
	)

	if w.mailer != nil {
		cust, err := w.svc.customerRepo.FindByID(ctx, a.CompanyID, a.CustomerID)
		if err == nil && cust.Email.Valid {
			subject := "Your maintenance agreement is expiring soon"
			body := fmt.Sprintf(
				"<p>Hi %s,</p><p>Your service agreement %s ends on %s. Contact us to renew and keep your maintenance benefits.</p>",
				cust.Name, a.AgreementNumber, a.EndDate.Format("January 2, 2006"),
			)
			if err := w.mailer.Send(cust.Email.String, subject, body); err != nil {
				w.logger.Warn("failed to send renewal reminder mail",
					zap.Int64("agreement_id", a.ID),
					zap.Error(err),
				)
			}
		}
	}

	if err := w.svc.agreementRepo.MarkExpiryNotified(ctx, a.ID, now); err != nil {
		w.logger.Warn("failed to mark expiry reminder", zap.Int64("agreement_id", a.ID), zap.Error(err))
	}
}
