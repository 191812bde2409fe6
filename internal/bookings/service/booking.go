package service

import (
	"context"
	"errors"
	"sync"
	"time"
	bookingserrors "tripmarket/internal/bookings/errors"
	"tripmarket/internal/bookings/events"
	"tripmarket/internal/bookings/repository"
	"tripmarket/internal/bookings/validator"
	"tripmarket/internal/loyalty"
	offeringserrors "tripmarket/internal/offerings/errors"
	riderserrors "tripmarket/internal/riders/errors"
	riderrepo "tripmarket/internal/riders/repository"
	"tripmarket/pkg/config"
	apperrors "tripmarket/pkg/errors"
	"tripmarket/pkg/metrics"
	"tripmarket/pkg/model"
)

type BookingService interface {
	Kind() model.OfferingKind
	Create(ctx context.Context, riderID string, req *model.BookingRequest) (*model.BookingReceipt, error)
	GetByID(ctx context.Context, riderID string, id string) (*model.Booking, error)
	ListByRider(ctx context.Context, riderID string, limit int, offset int64) ([]*model.Booking, int64, error)
	Cancel(ctx context.Context, riderID string, id string) (*model.CancellationReceipt, error)
}

// OfferingLookup resolves the offering a booking is made against. It must
// read from the collection matching the booking repository's kind.
type OfferingLookup interface {
	FindByID(ctx context.Context, id string) (*model.Offering, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	offerings OfferingLookup
	riders    riderrepo.RiderRepository
	events    events.Publisher
	validator *validator.BookingValidator
	table     loyalty.Table
	cfg       *config.Config
	now       func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	offerings OfferingLookup,
	riders riderrepo.RiderRepository,
	publisher events.Publisher,
	validator *validator.BookingValidator,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		offerings: offerings,
		riders:    riders,
		events:    publisher,
		validator: validator,
		table:     loyalty.DefaultTable,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *bookingService) Kind() model.OfferingKind {
	return s.repo.Kind()
}

// Create books tickets for the calling rider. The price is read once, the
// wallet debit and point credit happen in the same transaction as the insert,
// and the event is published only after commit.
func (s *bookingService) Create(ctx context.Context, riderID string, req *model.BookingRequest) (*model.BookingReceipt, error) {
	if riderID == "" {
		return nil, apperrors.Unauthorized("Authentication required to book")
	}

	if err := s.validate(req); err != nil {
		s.count(metrics.OutcomeInvalid)
		return nil, err
	}

	offering, err := s.offerings.FindByID(ctx, req.OfferingID)
	if err != nil {
		s.count(metrics.OutcomeNotFound)
		return nil, s.translateOfferingError(err, req.OfferingID)
	}

	rider, err := s.riders.FindByID(ctx, riderID)
	if err != nil {
		s.count(metrics.OutcomeNotFound)
		return nil, s.translateRiderError(err, riderID, "Failed to retrieve rider")
	}

	now := s.now().UTC()
	scheduled, err := s.resolveSchedule(offering, req, now)
	if err != nil {
		s.count(metrics.OutcomeInvalid)
		return nil, err
	}

	amount := model.RoundMoney(offering.Price * float64(req.NumberOfTickets))
	if req.PaymentAmount != nil && model.RoundMoney(*req.PaymentAmount) != amount {
		s.count(metrics.OutcomeInvalid)
		return nil, apperrors.Validation("Payment amount does not match the offering price", map[string]any{
			"payment_amount": *req.PaymentAmount,
			"expected":       amount,
		})
	}

	var walletDebit float64
	if req.PaymentType == model.PaymentWallet {
		walletDebit = amount
		if model.RoundMoney(rider.Wallet) < amount {
			s.count(metrics.OutcomeInsufficientFunds)
			return nil, apperrors.InsufficientFunds(amount, rider.Wallet)
		}
	}

	badgeBefore := s.table.Normalize(loyalty.Badge(rider.LoyaltyBadge))
	accrual := s.table.Accrue(loyalty.StateOf(rider), amount)
	earned := accrual.Earned

	booking := &model.Booking{
		RiderID:         riderID,
		OfferingID:      offering.ID,
		OfferingKind:    s.Kind(),
		PaymentType:     req.PaymentType,
		PaymentAmount:   amount,
		UnitPrice:       offering.Price,
		Currency:        offering.Currency,
		NumberOfTickets: req.NumberOfTickets,
		ScheduledDate:   scheduled,
		PointsEarned:    earned,
		CreatedAt:       now.Truncate(time.Millisecond),
	}

	var updated *model.Rider
	err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		// the driver may rerun this function on a transient error
		booking.ID = ""

		if err := s.repo.Create(txCtx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}

		after, err := s.riders.ApplyPayment(txCtx, riderID, walletDebit, earned)
		if err != nil {
			if errors.Is(err, riderserrors.ErrInsufficientFunds) {
				return apperrors.InsufficientFunds(amount, s.currentWallet(txCtx, rider))
			}
			return s.translateRiderError(err, riderID, "Failed to apply payment")
		}

		settled := s.table.Promote(loyalty.StateOf(after))
		if settled.TotalPoints != accrual.State.TotalPoints {
			s.cfg.Log.Warn("Rider points changed concurrently, badge taken from stored totals",
				"rider_id", riderID,
				"expected_total", accrual.State.TotalPoints,
				"stored_total", settled.TotalPoints,
			)
		}
		if string(settled.Badge) != after.LoyaltyBadge {
			if err := s.riders.PromoteBadge(txCtx, riderID, string(settled.Badge), after.TotalPoints); err != nil {
				return apperrors.Internal("Failed to update loyalty badge", err)
			}
			after.LoyaltyBadge = string(settled.Badge)
		}

		updated = after
		return nil
	})
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeInsufficientFunds) {
			s.count(metrics.OutcomeInsufficientFunds)
		} else {
			s.count(metrics.OutcomeFailed)
		}
		s.cfg.Log.Error("Failed to create booking",
			"rider_id", riderID,
			"offering_id", offering.ID,
			"kind", s.Kind(),
			"error", err,
		)
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.Internal("Failed to create booking", err)
	}

	s.count(metrics.OutcomeCreated)
	metrics.WalletDebited.Add(walletDebit)
	metrics.PointsAccrued.WithLabelValues(string(badgeBefore)).Add(earned)

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"rider_id", riderID,
		"offering_id", offering.ID,
		"kind", s.Kind(),
		"payment_type", booking.PaymentType,
		"amount", amount,
		"points_earned", earned,
	)

	// committed: the event must outlive a disconnected client
	s.publish(context.WithoutCancel(ctx), events.NewBookingEvent(model.EventBookingCreated, booking, offering, rider, now))

	return &model.BookingReceipt{
		Booking: booking,
		Rider:   updated.Snapshot(),
	}, nil
}

// currentWallet re-reads the balance that made the conditional debit miss,
// falling back to the one read before the transaction.
func (s *bookingService) currentWallet(ctx context.Context, before *model.Rider) float64 {
	current, err := s.riders.FindByID(ctx, before.ID)
	if err != nil || current == nil {
		return before.Wallet
	}
	return current.Wallet
}

func (s *bookingService) GetByID(ctx context.Context, riderID string, id string) (*model.Booking, error) {
	if riderID == "" {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translateRepoError(err, id, "Failed to retrieve booking")
	}

	// other riders' bookings are reported as missing
	if booking.RiderID != riderID {
		return nil, apperrors.NotFoundWithID("Booking", id)
	}

	return booking, nil
}

func (s *bookingService) ListByRider(ctx context.Context, riderID string, limit int, offset int64) ([]*model.Booking, int64, error) {
	if riderID == "" {
		return nil, 0, apperrors.Unauthorized("Authentication required")
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByRider(ctx, riderID)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "rider_id", riderID, "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindByRider(ctx, riderID, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "rider_id", riderID, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

// Cancel deletes the booking and returns the paid amount to the wallet.
// Earned points are kept.
func (s *bookingService) Cancel(ctx context.Context, riderID string, id string) (*model.CancellationReceipt, error) {
	booking, err := s.GetByID(ctx, riderID, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if booking.ScheduledDate.Sub(now) <= s.cfg.BookingCancellationWindow {
		return nil, apperrors.Conflict("Booking can no longer be cancelled").WithDetails(map[string]any{
			"scheduled_date": booking.ScheduledDate,
			"window":         s.cfg.BookingCancellationWindow.String(),
		})
	}

	var updated *model.Rider
	err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, id); err != nil {
			return s.translateRepoError(err, id, "Failed to delete booking")
		}

		after, err := s.riders.Refund(txCtx, riderID, booking.PaymentAmount)
		if err != nil {
			return s.translateRiderError(err, riderID, "Failed to refund wallet")
		}

		updated = after
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to cancel booking", "id", id, "rider_id", riderID, "error", err)
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.Internal("Failed to cancel booking", err)
	}

	metrics.BookingCancellations.WithLabelValues(string(s.Kind())).Inc()
	s.cfg.Log.Info("Booking cancelled",
		"id", id,
		"rider_id", riderID,
		"refunded", booking.PaymentAmount,
	)

	s.publish(context.WithoutCancel(ctx), events.NewBookingEvent(model.EventBookingCancelled, booking, nil, nil, now))

	return &model.CancellationReceipt{
		BookingID: id,
		Refunded:  booking.PaymentAmount,
		Rider:     updated.Snapshot(),
	}, nil
}

func (s *bookingService) validate(req *model.BookingRequest) error {
	if err := s.validator.Validate(req); err != nil {
		s.cfg.Log.Warn("Booking validation failed",
			"offering_id", req.OfferingID,
			"error", err,
		)
		return apperrors.Validation("Booking validation failed", map[string]any{
			"error": err.Error(),
		})
	}
	if err := s.validator.ValidateSchedule(req, s.Kind()); err != nil {
		return apperrors.Validation("Booking validation failed", map[string]any{
			"error": err.Error(),
		})
	}
	return nil
}

// resolveSchedule returns the date the booking is for. Activities happen at
// their single timing; itineraries need a requested day that is offered.
func (s *bookingService) resolveSchedule(offering *model.Offering, req *model.BookingRequest, now time.Time) (time.Time, error) {
	if !offering.Bookable(now) {
		return time.Time{}, unavailable(offering.ID, "offering is inactive, flagged or already took place")
	}

	if s.Kind() == model.KindActivity {
		if offering.Timing == nil {
			return time.Time{}, unavailable(offering.ID, "activity has no timing")
		}
		scheduled := *offering.Timing
		if req.ScheduledDate != nil && !offering.OffersDate(*req.ScheduledDate) {
			return time.Time{}, unavailable(offering.ID, "activity does not take place on the requested date")
		}
		return scheduled, nil
	}

	day := req.ScheduledDate.UTC()
	onDay := false
	for _, d := range offering.Dates() {
		if !sameDay(d, day) {
			continue
		}
		onDay = true
		if d.After(now) {
			return d, nil
		}
	}
	if onDay {
		return time.Time{}, unavailable(offering.ID, "requested date is in the past")
	}
	return time.Time{}, unavailable(offering.ID, "itinerary is not available on the requested date")
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func unavailable(offeringID, reason string) error {
	return apperrors.Validation("Offering is not available for booking", map[string]any{
		"offering_id": offeringID,
		"reason":      reason,
	})
}

func (s *bookingService) publish(ctx context.Context, event model.BookingEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.cfg.Log.Warn("Failed to publish booking event",
			"type", event.Type,
			"booking_id", event.BookingID,
			"error", err,
		)
	}
}

func (s *bookingService) count(outcome string) {
	metrics.Bookings.WithLabelValues(string(s.Kind()), outcome).Inc()
}

func (s *bookingService) translateRepoError(err error, id string, message string) error {
	if errors.Is(err, bookingserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Booking", id)
	}
	if errors.Is(err, bookingserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid booking ID format")
	}
	s.cfg.Log.Error(message, "id", id, "error", err)
	return apperrors.Internal(message, err)
}

func (s *bookingService) translateOfferingError(err error, id string) error {
	if errors.Is(err, offeringserrors.ErrNotFound) || errors.Is(err, offeringserrors.ErrInvalidID) {
		return apperrors.NotFoundWithID("Offering", id)
	}
	s.cfg.Log.Error("Failed to retrieve offering", "offering_id", id, "kind", s.Kind(), "error", err)
	return apperrors.Internal("Failed to retrieve offering", err)
}

func (s *bookingService) translateRiderError(err error, id string, message string) error {
	if errors.Is(err, riderserrors.ErrNotFound) || errors.Is(err, riderserrors.ErrInvalidID) {
		return apperrors.NotFoundWithID("Rider", id)
	}
	s.cfg.Log.Error(message, "rider_id", id, "error", err)
	return apperrors.Internal(message, err)
}
