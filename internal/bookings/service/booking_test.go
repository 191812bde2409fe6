package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"
	bookingserrors "tripmarket/internal/bookings/errors"
	"tripmarket/internal/bookings/validator"
	"tripmarket/internal/loyalty"
	offeringserrors "tripmarket/internal/offerings/errors"
	riderserrors "tripmarket/internal/riders/errors"
	riderrepo "tripmarket/internal/riders/repository"
	"tripmarket/pkg/config"
	mongotx "tripmarket/pkg/db/mongo"
	apperrors "tripmarket/pkg/errors"
	"tripmarket/pkg/logger"
	"tripmarket/pkg/model"
)

// ────────────────────────────────────────────────
// In-memory transactional store
// ────────────────────────────────────────────────

// memStore backs both the booking and rider fakes. Transactions are
// serialized and roll back every change when the function fails.
type memStore struct {
	txMu     sync.Mutex
	mu       sync.Mutex
	seq      int
	bookings map[string]*model.Booking
	riders   map[string]*model.Rider
}

func newMemStore(riders ...*model.Rider) *memStore {
	s := &memStore{
		bookings: map[string]*model.Booking{},
		riders:   map[string]*model.Rider{},
	}
	for _, r := range riders {
		s.riders[r.ID] = r
	}
	return s
}

func (s *memStore) snapshot() (map[string]*model.Booking, map[string]*model.Rider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bookings := make(map[string]*model.Booking, len(s.bookings))
	for k, v := range s.bookings {
		cp := *v
		bookings[k] = &cp
	}
	riders := make(map[string]*model.Rider, len(s.riders))
	for k, v := range s.riders {
		cp := *v
		riders[k] = &cp
	}
	return bookings, riders
}

func (s *memStore) restore(bookings map[string]*model.Booking, riders map[string]*model.Rider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings = bookings
	s.riders = riders
}

func (s *memStore) rider(id string) model.Rider {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.riders[id]
}

func (s *memStore) riderPtr(id string) *model.Rider {
	r := s.rider(id)
	return &r
}

func (s *memStore) bookingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings)
}

type fakeBookingRepo struct {
	store *memStore
	kind  model.OfferingKind
}

func (r *fakeBookingRepo) Kind() model.OfferingKind { return r.kind }

func (r *fakeBookingRepo) Create(ctx context.Context, booking *model.Booking) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.seq++
	booking.ID = fmt.Sprintf("b%d", r.store.seq)
	cp := *booking
	r.store.bookings[booking.ID] = &cp
	return nil
}

func (r *fakeBookingRepo) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	b, ok := r.store.bookings[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrNotFound, id)
	}
	cp := *b
	return &cp, nil
}

func (r *fakeBookingRepo) FindByRider(ctx context.Context, riderID string, limit int, offset int64) ([]*model.Booking, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := []*model.Booking{}
	for _, b := range r.store.bookings {
		if b.RiderID == riderID {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= int64(len(out)) {
		return []*model.Booking{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeBookingRepo) CountByRider(ctx context.Context, riderID string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for _, b := range r.store.bookings {
		if b.RiderID == riderID {
			n++
		}
	}
	return n, nil
}

func (r *fakeBookingRepo) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.bookings[id]; !ok {
		return fmt.Errorf("%w: %s", bookingserrors.ErrNotFound, id)
	}
	delete(r.store.bookings, id)
	return nil
}

func (r *fakeBookingRepo) FindDueForReminder(ctx context.Context, from, to time.Time, limit int) ([]*model.Booking, error) {
	return nil, nil
}

func (r *fakeBookingRepo) MarkReminderSent(ctx context.Context, id string) error {
	return nil
}

func (r *fakeBookingRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	r.store.txMu.Lock()
	defer r.store.txMu.Unlock()

	bookings, riders := r.store.snapshot()
	if err := fn(ctx); err != nil {
		r.store.restore(bookings, riders)
		return err
	}
	return nil
}

type fakeRiderRepo struct {
	store *memStore
}

func (r *fakeRiderRepo) FindByID(ctx context.Context, id string) (*model.Rider, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	rider, ok := r.store.riders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", riderserrors.ErrNotFound, id)
	}
	cp := *rider
	return &cp, nil
}

func (r *fakeRiderRepo) ApplyPayment(ctx context.Context, id string, walletDebit, points float64) (*model.Rider, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	rider, ok := r.store.riders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", riderserrors.ErrNotFound, id)
	}
	if walletDebit > 0 && rider.Wallet < walletDebit {
		return nil, fmt.Errorf("%w: %s", riderserrors.ErrInsufficientFunds, id)
	}
	rider.Wallet = model.RoundMoney(rider.Wallet - walletDebit)
	rider.LoyaltyPoints = model.RoundMoney(rider.LoyaltyPoints + points)
	rider.TotalPoints = model.RoundMoney(rider.TotalPoints + points)
	cp := *rider
	return &cp, nil
}

func (r *fakeRiderRepo) PromoteBadge(ctx context.Context, id string, badge string, observedTotal float64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if rider, ok := r.store.riders[id]; ok && rider.TotalPoints == observedTotal {
		rider.LoyaltyBadge = badge
	}
	return nil
}

func (r *fakeRiderRepo) Refund(ctx context.Context, id string, amount float64) (*model.Rider, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	rider, ok := r.store.riders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", riderserrors.ErrNotFound, id)
	}
	rider.Wallet = model.RoundMoney(rider.Wallet + amount)
	cp := *rider
	return &cp, nil
}

func (r *fakeRiderRepo) RedeemPoints(ctx context.Context, id string, points, credit float64) (*model.Rider, error) {
	return nil, errors.New("not used")
}

// staleRiderRepo serves an outdated rider to the first read while writes and
// later reads go to the real store, as if another request spent the wallet
// in between.
type staleRiderRepo struct {
	*fakeRiderRepo
	stale *model.Rider
	reads int
}

func (r *staleRiderRepo) FindByID(ctx context.Context, id string) (*model.Rider, error) {
	r.reads++
	if r.reads > 1 {
		return r.fakeRiderRepo.FindByID(ctx, id)
	}
	cp := *r.stale
	return &cp, nil
}

type fakeOfferings map[string]*model.Offering

func (f fakeOfferings) FindByID(ctx context.Context, id string) (*model.Offering, error) {
	o, ok := f[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", offeringserrors.ErrNotFound, id)
	}
	return o, nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	events  []model.BookingEvent
	ctxErrs []error
	err     error
}

func (p *recordingPublisher) Publish(ctx context.Context, event model.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	p.ctxErrs = append(p.ctxErrs, ctx.Err())
	return p.err
}

// ────────────────────────────────────────────────
// Fixtures
// ────────────────────────────────────────────────

const (
	kayakID   = "507f1f77bcf86cd799439011"
	museumID  = "507f1f77bcf86cd799439012"
	pastID    = "507f1f77bcf86cd799439013"
	hiddenID  = "507f1f77bcf86cd799439014"
	missingID = "507f1f77bcf86cd799439099"
	nileID    = "507f1f77bcf86cd799439021"
)

var fixedNow = time.Date(2030, 3, 1, 9, 0, 0, 0, time.UTC)

func activityFixtures() fakeOfferings {
	inFiveDays := fixedNow.Add(5 * 24 * time.Hour)
	yesterday := fixedNow.Add(-24 * time.Hour)
	return fakeOfferings{
		kayakID:  {ID: kayakID, Kind: model.KindActivity, Name: "Sunset kayak", Price: 40, Currency: "EGP", Timing: &inFiveDays, Active: true, Appropriate: true},
		museumID: {ID: museumID, Kind: model.KindActivity, Name: "Museum pass", Price: 12.5, Timing: &inFiveDays, Active: false, Appropriate: true},
		pastID:   {ID: pastID, Kind: model.KindActivity, Name: "Yesterday's tour", Price: 10, Timing: &yesterday, Active: true, Appropriate: true},
		hiddenID: {ID: hiddenID, Kind: model.KindActivity, Name: "Flagged", Price: 10, Timing: &inFiveDays, Active: true, Appropriate: false},
	}
}

func itineraryFixtures() fakeOfferings {
	return fakeOfferings{
		nileID: {
			ID:          nileID,
			Kind:        model.KindItinerary,
			Name:        "Nile cruise",
			Price:       150,
			Active:      true,
			Appropriate: true,
			AvailableDates: []model.AvailableDate{
				{Date: fixedNow.Add(-48 * time.Hour)},
				{Date: time.Date(2030, 3, 10, 8, 0, 0, 0, time.UTC)},
				{Date: time.Date(2030, 3, 20, 8, 0, 0, 0, time.UTC)},
			},
		},
	}
}

type testEnv struct {
	svc       *bookingService
	store     *memStore
	publisher *recordingPublisher
}

func newTestEnv(kind model.OfferingKind, offerings fakeOfferings, riders ...*model.Rider) *testEnv {
	log := logger.New(logger.Config{Level: "error", Output: io.Discard, Service: "test"})
	cfg := &config.Config{
		Log:                       log,
		BookingCancellationWindow: 48 * time.Hour,
	}
	store := newMemStore(riders...)
	publisher := &recordingPublisher{}

	svc := NewBookingService(
		&fakeBookingRepo{store: store, kind: kind},
		offerings,
		&fakeRiderRepo{store: store},
		publisher,
		validator.NewBookingValidator(log),
		cfg,
	).(*bookingService)
	svc.now = func() time.Time { return fixedNow }

	return &testEnv{svc: svc, store: store, publisher: publisher}
}

func walletRequest(offeringID string, tickets int) *model.BookingRequest {
	return &model.BookingRequest{
		OfferingID:      offeringID,
		PaymentType:     model.PaymentWallet,
		NumberOfTickets: tickets,
	}
}

func ptr[T any](v T) *T { return &v }

// ────────────────────────────────────────────────
// Create
// ────────────────────────────────────────────────

func TestCreate_WalletBooking(t *testing.T) {
	env := newTestEnv(model.KindActivity, activityFixtures(),
		&model.Rider{ID: "r1", Wallet: 100, LoyaltyBadge: "Bronze", Phone: "+201001234567"})

	receipt, err := env.svc.Create(context.Background(), "r1", &model.BookingRequest{
		OfferingID:      kayakID,
		PaymentType:     model.PaymentWallet,
		PaymentAmount:   ptr(40.0),
		NumberOfTickets: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if receipt.Rider.Wallet != 60 {
		t.Errorf("wallet = %v, want 60", receipt.Rider.Wallet)
	}
	if receipt.Rider.LoyaltyPoints != 20 || receipt.Rider.TotalPoints != 20 {
		t.Errorf("points = %v/%v, want 20/20", receipt.Rider.LoyaltyPoints, receipt.Rider.TotalPoints)
	}
	if receipt.Booking.PaymentAmount != 40 || receipt.Booking.UnitPrice != 40 {
		t.Errorf("unexpected booking amounts %+v", receipt.Booking)
	}
	if receipt.Booking.PointsEarned != 20 {
		t.Errorf("points earned = %v, want 20", receipt.Booking.PointsEarned)
	}
	if receipt.Booking.ID == "" {
		t.Error("expected booking ID to be set")
	}

	stored := env.store.rider("r1")
	if stored.Wallet != 60 {
		t.Errorf("stored wallet = %v, want 60", stored.Wallet)
	}
	if env.store.bookingCount() != 1 {
		t.Errorf("expected 1 booking, got %d", env.store.bookingCount())
	}

	if len(env.publisher.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(env.publisher.events))
	}
	event := env.publisher.events[0]
	if event.Type != model.EventBookingCreated || event.BookingID != receipt.Booking.ID {
		t.Errorf("unexpected event %+v", event)
	}
	if event.RiderPhone != "+201001234567" {
		t.Errorf("event phone = %q", event.RiderPhone)
	}
}

func TestCreate_InsufficientFunds(t *testing.T) {
	env := newTestEnv(model.KindActivity, activityFixtures(),
		&model.Rider{ID: "r1", Wallet: 10, LoyaltyBadge: "Bronze"})

	_, err := env.svc.Create(context.Background(), "r1", walletRequest(kayakID, 1))

	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeInsufficientFunds {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if appErr.Details["required"] != 40.0 || appErr.Details["available"] != 10.0 {
		t.Errorf("unexpected details %v", appErr.Details)
	}
	if env.store.rider("r1").Wallet != 10 {
		t.Errorf("wallet changed to %v", env.store.rider("r1").Wallet)
	}
	if env.store.bookingCount() != 0 {
		t.Errorf("expected no booking, got %d", env.store.bookingCount())
	}
	if len(env.publisher.events) != 0 {
		t.Errorf("expected no event, got %d", len(env.publisher.events))
	}
}

func TestCreate_WalletSpentBeforeCommit(t *testing.T) {
	env := newTestEnv(model.KindActivity, activityFixtures(),
		&model.Rider{ID: "r1", Wallet: 10, LoyaltyBadge: "Bronze"})
	env.svc.riders = &staleRiderRepo{
		fakeRiderRepo: &fakeRiderRepo{store: env.store},
		stale:         &model.Rider{ID: "r1", Wallet: 100, LoyaltyBadge: "Bronze"},
	}

	_, err := env.svc.Create(context.Background(), "r1", walletRequest(kayakID, 1))

	appErr := apperrors.AsAppError(err)
	if appErr == nil || appErr.Code != apperrors.CodeInsufficientFunds {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if appErr.Details["available"] != 10.0 {
		t.Errorf("available = %v, want the balance that failed the debit", appErr.Details["available"])
	}
	if env.store.bookingCount() != 0 {
		t.Errorf("booking insert was not rolled back, %d bookings stored", env.store.bookingCount())
	}
	if got := env.store.rider("r1"); got.Wallet != 10 || got.TotalPoints != 0 {
		t.Errorf("rider mutated: %+v", got)
	}
}

func TestCreate_CardPaymentKeepsWallet(t *testing.T) {
	env := newTestEnv(model.KindActivity, activityFixtures(),
		&model.Rider{ID: "r1", Wallet: 10, LoyaltyBadge: "Silver", TotalPoints: 100000})

	receipt, err := env.svc.Create(context.Background(), "r1", &model.BookingRequest{
		OfferingID:      kayakID,
		PaymentType:     model.PaymentCreditCard,
		NumberOfTickets: 2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if receipt.Rider.Wallet != 10 {
		t.Errorf("wallet = %v, want 10", receipt.Rider.Wallet)
	}
	if receipt.Booking.PaymentAmount != 80 {
		t.Errorf("amount = %v, want 80", receipt.Booking.PaymentAmount)
	}
	if receipt.Rider.LoyaltyPoints != 80 || receipt.Rider.TotalPoints != 100080 {
		t.Errorf("silver earns one to one, got %+v", receipt.Rider)
	}
}

func TestCreate_BadgePromotion(t *testing.T) {
	env := newTestEnv(model.KindActivity, activityFixtures(),
		&model.Rider{ID: "r1", Wallet: 1000, TotalPoints: 99990, LoyaltyBadge: "Bronze"})

	receipt, err := env.svc.Create(context.Background(), "r1", walletRequest(kayakID, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if receipt.Booking.PointsEarned != 20 {
		t.Errorf("points earned at old rate = %v, want 20", receipt.Booking.PointsEarned)
	}
	if receipt.Rider.TotalPoints != 100010 {
		t.Errorf("total = %v, want 100010", receipt.Rider.TotalPoints)
	}
	if receipt.Rider.LoyaltyBadge != "Silver" {
		t.Errorf("badge = %s, want Silver", receipt.Rider.LoyaltyBadge)
	}
	if env.store.rider("r1").LoyaltyBadge != "Silver" {
		t.Errorf("stored badge = %s, want Silver", env.store.rider("r1").LoyaltyBadge)
	}
}

func TestCreate_ConcurrentWalletBookings(t *testing.T) {
	env := newTestEnv(model.KindActivity, activityFixtures(),
		&model.Rider{ID: "r1", Wallet: 100, LoyaltyBadge: "Bronze"})

	const attempts = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, rejected := 0, 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Create(context.Background(), "r1", walletRequest(kayakID, 1))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case apperrors.HasCode(err, apperrors.CodeInsufficientFunds):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 2 || rejected != attempts-2 {
		t.Errorf("succeeded=%d rejected=%d, want 2 and %d", succeeded, rejected, attempts-2)
	}
	rider := env.store.rider("r1")
	if rider.Wallet != 20 {
		t.Errorf("wallet = %v, want 20", rider.Wallet)
	}
	if env.store.bookingCount() != succeeded {
		t.Errorf("bookings = %d, want %d", env.store.bookingCount(), succeeded)
	}
	if rider.Wallet+float64(env.store.bookingCount())*40 != 100 {
		t.Errorf("wallet and bookings do not add up: wallet=%v bookings=%d", rider.Wallet, env.store.bookingCount())
	}
}

func TestCreate_PublishFailureKeepsBooking(t *testing.T) {
	env := newTestEnv(model.KindActivity, activityFixtures(),
		&model.Rider{ID: "r1", Wallet: 100, LoyaltyBadge: "Bronze"})
	env.publisher.err = errors.New("broker down")

	receipt, err := env.svc.Create(context.Background(), "r1", walletRequest(kayakID, 1))
	if err != nil {
		t.Fatalf("publish failure must not fail the booking: %v", err)
	}
	if receipt.Rider.Wallet != 60 {
		t.Errorf("wallet = %v, want 60", receipt.Rider.Wallet)
	}
}

func TestCreate_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		kind     model.OfferingKind
		riderID  string
		req      *model.BookingRequest
		wantCode string
	}{
		{
			name:     "anonymous",
			kind:     model.KindActivity,
			riderID:  "",
			req:      walletRequest(kayakID, 1),
			wantCode: apperrors.CodeUnauthorized,
		},
		{
			name:     "invalid request",
			kind:     model.KindActivity,
			riderID:  "r1",
			req:      walletRequest(kayakID, 0),
			wantCode: apperrors.CodeValidation,
		},
		{
			name:    "client amount differs from price",
			kind:    model.KindActivity,
			riderID: "r1",
			req: &model.BookingRequest{
				OfferingID:      kayakID,
				PaymentType:     model.PaymentWallet,
				PaymentAmount:   ptr(30.0),
				NumberOfTickets: 1,
			},
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "unknown offering",
			kind:     model.KindActivity,
			riderID:  "r1",
			req:      walletRequest(missingID, 1),
			wantCode: apperrors.CodeNotFound,
		},
		{
			name:     "unknown rider",
			kind:     model.KindActivity,
			riderID:  "ghost",
			req:      walletRequest(kayakID, 1),
			wantCode: apperrors.CodeNotFound,
		},
		{
			name:     "inactive offering",
			kind:     model.KindActivity,
			riderID:  "r1",
			req:      walletRequest(museumID, 1),
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "flagged offering",
			kind:     model.KindActivity,
			riderID:  "r1",
			req:      walletRequest(hiddenID, 1),
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "past activity",
			kind:     model.KindActivity,
			riderID:  "r1",
			req:      walletRequest(pastID, 1),
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "itinerary without date",
			kind:     model.KindItinerary,
			riderID:  "r1",
			req:      walletRequest(nileID, 1),
			wantCode: apperrors.CodeValidation,
		},
		{
			name:    "itinerary date not offered",
			kind:    model.KindItinerary,
			riderID: "r1",
			req: &model.BookingRequest{
				OfferingID:      nileID,
				PaymentType:     model.PaymentWallet,
				NumberOfTickets: 1,
				ScheduledDate:   ptr(time.Date(2030, 3, 11, 0, 0, 0, 0, time.UTC)),
			},
			wantCode: apperrors.CodeValidation,
		},
		{
			name:    "itinerary date already gone",
			kind:    model.KindItinerary,
			riderID: "r1",
			req: &model.BookingRequest{
				OfferingID:      nileID,
				PaymentType:     model.PaymentWallet,
				NumberOfTickets: 1,
				ScheduledDate:   ptr(fixedNow.Add(-48 * time.Hour)),
			},
			wantCode: apperrors.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offerings := activityFixtures()
			if tt.kind == model.KindItinerary {
				offerings = itineraryFixtures()
			}
			env := newTestEnv(tt.kind, offerings, &model.Rider{ID: "r1", Wallet: 1000, LoyaltyBadge: "Bronze"})

			_, err := env.svc.Create(context.Background(), tt.riderID, tt.req)

			if !apperrors.HasCode(err, tt.wantCode) {
				t.Errorf("expected %s, got %v", tt.wantCode, err)
			}
			if env.store.bookingCount() != 0 {
				t.Errorf("expected no booking, got %d", env.store.bookingCount())
			}
			if env.store.rider("r1").Wallet != 1000 {
				t.Errorf("wallet changed to %v", env.store.rider("r1").Wallet)
			}
		})
	}
}

func TestCreate_ItineraryUsesOfferedDate(t *testing.T) {
	env := newTestEnv(model.KindItinerary, itineraryFixtures(),
		&model.Rider{ID: "r1", Wallet: 1000, LoyaltyBadge: "Gold", TotalPoints: 600000})

	receipt, err := env.svc.Create(context.Background(), "r1", &model.BookingRequest{
		OfferingID:      nileID,
		PaymentType:     model.PaymentWallet,
		NumberOfTickets: 2,
		ScheduledDate:   ptr(time.Date(2030, 3, 20, 0, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2030, 3, 20, 8, 0, 0, 0, time.UTC)
	if !receipt.Booking.ScheduledDate.Equal(want) {
		t.Errorf("scheduled = %v, want %v", receipt.Booking.ScheduledDate, want)
	}
	if receipt.Booking.OfferingKind != model.KindItinerary {
		t.Errorf("kind = %s", receipt.Booking.OfferingKind)
	}
	if receipt.Rider.Wallet != 700 || receipt.Booking.PointsEarned != 450 {
		t.Errorf("wallet=%v points=%v, want 700 and 450", receipt.Rider.Wallet, receipt.Booking.PointsEarned)
	}
}

func TestCreate_ItineraryPicksLaterSlotSameDay(t *testing.T) {
	offerings := itineraryFixtures()
	offerings[nileID].AvailableDates = []model.AvailableDate{
		{Date: time.Date(2030, 3, 1, 6, 0, 0, 0, time.UTC)},
		{Date: time.Date(2030, 3, 1, 18, 0, 0, 0, time.UTC)},
	}
	env := newTestEnv(model.KindItinerary, offerings,
		&model.Rider{ID: "r1", Wallet: 1000, LoyaltyBadge: "Bronze"})

	receipt, err := env.svc.Create(context.Background(), "r1", &model.BookingRequest{
		OfferingID:      nileID,
		PaymentType:     model.PaymentWallet,
		NumberOfTickets: 1,
		ScheduledDate:   ptr(time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2030, 3, 1, 18, 0, 0, 0, time.UTC)
	if !receipt.Booking.ScheduledDate.Equal(want) {
		t.Errorf("scheduled = %v, want %v", receipt.Booking.ScheduledDate, want)
	}

	offerings[nileID].AvailableDates = offerings[nileID].AvailableDates[:1]
	_, err = env.svc.Create(context.Background(), "r1", &model.BookingRequest{
		OfferingID:      nileID,
		PaymentType:     model.PaymentWallet,
		NumberOfTickets: 1,
		ScheduledDate:   ptr(time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC)),
	})
	if !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("expected validation error when every slot that day has passed, got %v", err)
	}
}

func TestCreate_MatchesLoyaltyAccrual(t *testing.T) {
	riders := []*model.Rider{
		{ID: "bronze", Wallet: 500, LoyaltyPoints: 7, TotalPoints: 1000, LoyaltyBadge: "Bronze"},
		{ID: "edge", Wallet: 500, TotalPoints: 99990, LoyaltyBadge: "Bronze"},
		{ID: "gold", Wallet: 500, LoyaltyPoints: 3, TotalPoints: 700000, LoyaltyBadge: "Gold"},
		{ID: "blank", Wallet: 500},
	}

	for _, before := range riders {
		t.Run(before.ID, func(t *testing.T) {
			cp := *before
			env := newTestEnv(model.KindActivity, activityFixtures(), &cp)

			receipt, err := env.svc.Create(context.Background(), before.ID, walletRequest(kayakID, 3))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			want := loyalty.DefaultTable.Accrue(loyalty.StateOf(before), 120)
			if receipt.Booking.PointsEarned != want.Earned {
				t.Errorf("earned = %v, want %v", receipt.Booking.PointsEarned, want.Earned)
			}
			if got := loyalty.StateOf(env.store.riderPtr(before.ID)); got != want.State {
				t.Errorf("stored state = %+v, want %+v", got, want.State)
			}
		})
	}
}

func TestCreate_PublishesAfterClientLeaves(t *testing.T) {
	env := newTestEnv(model.KindActivity, activityFixtures(),
		&model.Rider{ID: "r1", Wallet: 100, LoyaltyBadge: "Bronze"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := env.svc.Create(ctx, "r1", walletRequest(kayakID, 1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(env.publisher.ctxErrs) != 1 || env.publisher.ctxErrs[0] != nil {
		t.Errorf("event published with a cancelled context: %v", env.publisher.ctxErrs)
	}
}

// ────────────────────────────────────────────────
// Read and cancel
// ────────────────────────────────────────────────

func TestGetByID_OtherRiderIsNotFound(t *testing.T) {
	env := newTestEnv(model.KindActivity, activityFixtures(),
		&model.Rider{ID: "r1", Wallet: 100},
		&model.Rider{ID: "r2", Wallet: 100},
	)
	receipt, err := env.svc.Create(context.Background(), "r1", walletRequest(kayakID, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := env.svc.GetByID(context.Background(), "r1", receipt.Booking.ID); err != nil {
		t.Errorf("owner lookup failed: %v", err)
	}
	if _, err := env.svc.GetByID(context.Background(), "r2", receipt.Booking.ID); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("expected not found for another rider, got %v", err)
	}
}

func TestListByRider(t *testing.T) {
	env := newTestEnv(model.KindActivity, activityFixtures(),
		&model.Rider{ID: "r1", Wallet: 1000},
		&model.Rider{ID: "r2", Wallet: 1000},
	)
	for _, riderID := range []string{"r1", "r1", "r2", "r1"} {
		if _, err := env.svc.Create(context.Background(), riderID, walletRequest(kayakID, 1)); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}

	bookings, total, err := env.svc.ListByRider(context.Background(), "r1", 2, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(bookings) != 2 {
		t.Errorf("page size = %d, want 2", len(bookings))
	}
	for _, b := range bookings {
		if b.RiderID != "r1" {
			t.Errorf("listed booking of rider %s", b.RiderID)
		}
	}
}

func TestCancel_RefundsWallet(t *testing.T) {
	env := newTestEnv(model.KindActivity, activityFixtures(),
		&model.Rider{ID: "r1", Wallet: 100, LoyaltyBadge: "Bronze"})
	receipt, err := env.svc.Create(context.Background(), "r1", walletRequest(kayakID, 1))
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	cancelled, err := env.svc.Cancel(context.Background(), "r1", receipt.Booking.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cancelled.Refunded != 40 || cancelled.Rider.Wallet != 100 {
		t.Errorf("refund=%v wallet=%v, want 40 and 100", cancelled.Refunded, cancelled.Rider.Wallet)
	}
	if cancelled.Rider.TotalPoints != 20 {
		t.Errorf("points must not be reversed, total = %v", cancelled.Rider.TotalPoints)
	}
	if env.store.bookingCount() != 0 {
		t.Errorf("booking still stored")
	}
	last := env.publisher.events[len(env.publisher.events)-1]
	if last.Type != model.EventBookingCancelled {
		t.Errorf("last event = %s, want %s", last.Type, model.EventBookingCancelled)
	}
}

func TestCancel_InsideWindow(t *testing.T) {
	env := newTestEnv(model.KindActivity, activityFixtures(),
		&model.Rider{ID: "r1", Wallet: 100})
	receipt, err := env.svc.Create(context.Background(), "r1", walletRequest(kayakID, 1))
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	// four days later the activity is only a day away
	env.svc.now = func() time.Time { return fixedNow.Add(4 * 24 * time.Hour) }

	_, err = env.svc.Cancel(context.Background(), "r1", receipt.Booking.ID)
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if env.store.bookingCount() != 1 {
		t.Error("booking removed despite rejected cancellation")
	}
	if env.store.rider("r1").Wallet != 60 {
		t.Errorf("wallet = %v, want 60", env.store.rider("r1").Wallet)
	}
}

func TestCancel_UnknownBooking(t *testing.T) {
	env := newTestEnv(model.KindActivity, activityFixtures(), &model.Rider{ID: "r1"})

	_, err := env.svc.Cancel(context.Background(), "r1", "nope")
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

var _ riderrepo.RiderRepository = (*staleRiderRepo)(nil)
