package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"
	"tripmarket/internal/discovery"
	offeringserrors "tripmarket/internal/offerings/errors"
	"tripmarket/internal/offerings/repository"
	"tripmarket/internal/offerings/validator"
	riderserrors "tripmarket/internal/riders/errors"
	"tripmarket/pkg/config"
	apperrors "tripmarket/pkg/errors"
	"tripmarket/pkg/logger"
	"tripmarket/pkg/model"
)

var testNow = time.Date(2030, 3, 1, 12, 0, 0, 0, time.UTC)

type mockOfferingRepository struct {
	kind              model.OfferingKind
	offerings         []*model.Offering
	findPoolFunc      func(ctx context.Context, filter repository.PoolFilter) ([]*model.Offering, error)
	appendCommentFunc func(ctx context.Context, id string, comment model.Comment, expectedCount int, rating float64) error
	lastFilter        repository.PoolFilter
}

func (m *mockOfferingRepository) Kind() model.OfferingKind {
	if m.kind == "" {
		return model.KindActivity
	}
	return m.kind
}

func (m *mockOfferingRepository) FindByID(ctx context.Context, id string) (*model.Offering, error) {
	if id == "bad" {
		return nil, fmt.Errorf("%w: %s", offeringserrors.ErrInvalidID, id)
	}
	for _, o := range m.offerings {
		if o.ID == id {
			copied := *o
			copied.Comments = append([]model.Comment(nil), o.Comments...)
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", offeringserrors.ErrNotFound, id)
}

func (m *mockOfferingRepository) FindPool(ctx context.Context, filter repository.PoolFilter) ([]*model.Offering, error) {
	m.lastFilter = filter
	if m.findPoolFunc != nil {
		return m.findPoolFunc(ctx, filter)
	}
	var out []*model.Offering
	for _, o := range m.offerings {
		if filter.OwnerID != "" && o.OwnerID != filter.OwnerID {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (m *mockOfferingRepository) AppendComment(ctx context.Context, id string, comment model.Comment, expectedCount int, rating float64) error {
	if m.appendCommentFunc != nil {
		return m.appendCommentFunc(ctx, id, comment, expectedCount, rating)
	}
	return nil
}

type mockCategoryRepository struct {
	err error
}

func (m *mockCategoryRepository) FindBySlugs(ctx context.Context, slugs []string) ([]*model.Category, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*model.Category, 0, len(slugs))
	for _, s := range slugs {
		out = append(out, &model.Category{Slug: s, Name: s})
	}
	return out, nil
}

type mockRiderLookup struct {
	riders map[string]*model.Rider
}

func (m *mockRiderLookup) FindByID(ctx context.Context, id string) (*model.Rider, error) {
	if r, ok := m.riders[id]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("%w: %s", riderserrors.ErrNotFound, id)
}

func ptr[T any](v T) *T { return &v }

func offering(id, owner string, price float64, daysAhead int, categories ...string) *model.Offering {
	timing := testNow.AddDate(0, 0, daysAhead)
	return &model.Offering{
		ID:          id,
		Kind:        model.KindActivity,
		Name:        "Offering " + id,
		Price:       price,
		Timing:      &timing,
		Categories:  categories,
		OwnerID:     owner,
		Active:      true,
		Appropriate: true,
		CreatedAt:   testNow.Add(-time.Duration(len(id)) * time.Hour),
	}
}

func fixtures() []*model.Offering {
	hidden := offering("hidden", "guide-1", 10, 5, "beach")
	hidden.Appropriate = false
	return []*model.Offering{
		offering("a", "guide-1", 100, 3, "beach"),
		offering("b", "guide-2", 300, 4, "museums"),
		offering("c", "guide-1", 50, -2, "beach"),
		offering("d", "guide-2", 80, 6, "food", "beach"),
		hidden,
	}
}

func newTestService(repo *mockOfferingRepository, riders *mockRiderLookup, categories *mockCategoryRepository) *offeringService {
	if riders == nil {
		riders = &mockRiderLookup{}
	}
	if categories == nil {
		categories = &mockCategoryRepository{}
	}
	cfg := &config.Config{
		Log: logger.New(logger.Config{
			Level:   "error",
			Format:  logger.JSON,
			Output:  io.Discard,
			Service: "test",
		}),
	}
	svc := NewOfferingService(repo, categories, riders, validator.NewCommentValidator(), cfg).(*offeringService)
	svc.now = func() time.Time { return testNow }
	return svc
}

func summaryIDs(summaries []*model.OfferingSummary) []string {
	out := make([]string, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, s.ID)
	}
	return out
}

func equalIDs(got []string, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestDiscover_Normal(t *testing.T) {
	tests := []struct {
		name  string
		query discovery.Query
		want  []string
	}{
		{
			name:  "visible upcoming only",
			query: discovery.Query{Sort: discovery.SortSpec{Field: discovery.SortByPrice, Ascending: true}},
			want:  []string{"d", "a", "b"},
		},
		{
			name: "category and price",
			query: discovery.Query{
				Criteria: discovery.Criteria{Categories: []string{"beach"}, MaxPrice: ptr(90.0)},
				Sort:     discovery.SortSpec{Field: discovery.SortByPrice, Ascending: true},
			},
			want: []string{"d"},
		},
		{
			name: "search intersects criteria",
			query: discovery.Query{
				Criteria: discovery.Criteria{Categories: []string{"beach"}},
				Search:   "food",
				Sort:     discovery.SortSpec{Field: discovery.SortByPrice, Ascending: true},
			},
			want: []string{"d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockOfferingRepository{offerings: fixtures()}
			svc := newTestService(repo, nil, nil)

			got, total, err := svc.Discover(context.Background(), "", tt.query, 10, 0)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !equalIDs(summaryIDs(got), tt.want...) {
				t.Errorf("got %v, want %v", summaryIDs(got), tt.want)
			}
			if total != int64(len(tt.want)) {
				t.Errorf("total = %d, want %d", total, len(tt.want))
			}
			if !repo.lastFilter.ListedOnly || repo.lastFilter.UpcomingAfter == nil {
				t.Errorf("expected visible pool prefilter, got %+v", repo.lastFilter)
			}
		})
	}
}

func TestDiscover_OwnIncludesPastAndHidden(t *testing.T) {
	repo := &mockOfferingRepository{offerings: fixtures()}
	svc := newTestService(repo, nil, nil)

	q := discovery.Query{Mode: discovery.ModeOwn, Sort: discovery.SortSpec{Field: discovery.SortByPrice, Ascending: true}}
	got, _, err := svc.Discover(context.Background(), "guide-1", q, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equalIDs(summaryIDs(got), "hidden", "c", "a") {
		t.Errorf("got %v", summaryIDs(got))
	}

	_, _, err = svc.Discover(context.Background(), "", q, 10, 0)
	if !apperrors.HasCode(err, apperrors.CodeUnauthorized) {
		t.Errorf("expected unauthorized for anonymous own listing, got %v", err)
	}
}

func TestDiscover_PreferenceRanksMatchesFirst(t *testing.T) {
	riders := &mockRiderLookup{riders: map[string]*model.Rider{
		"rider-1": {ID: "rider-1", Preference: model.Preference{Categories: []string{"museums"}}},
	}}
	svc := newTestService(&mockOfferingRepository{offerings: fixtures()}, riders, nil)

	q := discovery.Query{Mode: discovery.ModePreference, Sort: discovery.SortSpec{Field: discovery.SortByPrice, Ascending: true}}
	got, total, err := svc.Discover(context.Background(), "rider-1", q, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equalIDs(summaryIDs(got), "b", "d", "a") {
		t.Errorf("got %v, want preferred b first then the rest by price", summaryIDs(got))
	}
	if total != 3 {
		t.Errorf("ranking must keep the whole pool, total = %d", total)
	}

	_, _, err = svc.Discover(context.Background(), "ghost", q, 10, 0)
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("expected not found for unknown rider, got %v", err)
	}
}

func TestMissing(t *testing.T) {
	riders := &mockRiderLookup{riders: map[string]*model.Rider{
		"rider-1": {ID: "rider-1", Preference: model.Preference{Budget: ptr(90.0)}},
	}}
	svc := newTestService(&mockOfferingRepository{offerings: fixtures()}, riders, nil)

	q := discovery.Query{Sort: discovery.SortSpec{Field: discovery.SortByPrice, Ascending: true}}
	got, _, err := svc.Missing(context.Background(), "rider-1", q, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equalIDs(summaryIDs(got), "a", "b") {
		t.Errorf("got %v, want the offerings over budget", summaryIDs(got))
	}

	_, _, err = svc.Missing(context.Background(), "", q, 10, 0)
	if !apperrors.HasCode(err, apperrors.CodeUnauthorized) {
		t.Errorf("expected unauthorized, got %v", err)
	}
}

func TestMissing_AppliesSearch(t *testing.T) {
	pool := fixtures()
	pool[0].Name = "Louvre night walk"
	pool[1].Name = "Louvre tour"
	riders := &mockRiderLookup{riders: map[string]*model.Rider{
		"rider-1": {ID: "rider-1", Preference: model.Preference{Categories: []string{"museums"}}},
	}}
	svc := newTestService(&mockOfferingRepository{offerings: pool}, riders, nil)

	q := discovery.Query{Search: "louvre", Sort: discovery.SortSpec{Field: discovery.SortByPrice, Ascending: true}}

	missing, _, err := svc.Missing(context.Background(), "rider-1", q, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equalIDs(summaryIDs(missing), "a") {
		t.Errorf("got %v, want only the searched offering outside the preference", summaryIDs(missing))
	}

	q.Mode = discovery.ModePreference
	ranked, _, err := svc.Discover(context.Background(), "rider-1", q, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equalIDs(summaryIDs(ranked), "b", "a") {
		t.Errorf("got %v, want preferred b then a", summaryIDs(ranked))
	}
}

func TestDiscover_StoreFailure(t *testing.T) {
	repo := &mockOfferingRepository{
		findPoolFunc: func(ctx context.Context, filter repository.PoolFilter) ([]*model.Offering, error) {
			return nil, errors.New("connection reset")
		},
	}
	svc := newTestService(repo, nil, nil)

	_, _, err := svc.Discover(context.Background(), "", discovery.Query{}, 10, 0)
	if !apperrors.HasCode(err, apperrors.CodeInternal) {
		t.Errorf("expected internal error, got %v", err)
	}
}

func TestGetByID(t *testing.T) {
	t.Run("attaches categories", func(t *testing.T) {
		svc := newTestService(&mockOfferingRepository{offerings: fixtures()}, nil, nil)

		got, err := svc.GetByID(context.Background(), "d")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got.CategoryDetails) != 2 || got.CategoryDetails[0].Slug != "food" {
			t.Errorf("unexpected category details %+v", got.CategoryDetails)
		}
	})

	t.Run("category lookup failure degrades", func(t *testing.T) {
		svc := newTestService(&mockOfferingRepository{offerings: fixtures()}, nil, &mockCategoryRepository{err: errors.New("cache down")})

		got, err := svc.GetByID(context.Background(), "d")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got.CategoryDetails) != 0 {
			t.Errorf("expected no details, got %d", len(got.CategoryDetails))
		}
	})

	errorCases := []struct {
		id       string
		wantCode string
	}{
		{"", apperrors.CodeInvalidInput},
		{"bad", apperrors.CodeInvalidInput},
		{"missing", apperrors.CodeNotFound},
	}
	for _, tt := range errorCases {
		t.Run("error "+tt.id, func(t *testing.T) {
			svc := newTestService(&mockOfferingRepository{offerings: fixtures()}, nil, nil)
			_, err := svc.GetByID(context.Background(), tt.id)
			if !apperrors.HasCode(err, tt.wantCode) {
				t.Errorf("expected %s, got %v", tt.wantCode, err)
			}
		})
	}
}

func TestAddComment(t *testing.T) {
	rated := offering("a", "guide-1", 100, 3, "beach")
	rated.Rating = 4
	rated.Comments = []model.Comment{{AuthorID: "x", Rating: ptr(4.0)}, {AuthorID: "y", Rating: ptr(4.0)}}

	var gotCount int
	var gotRating float64
	var gotComment model.Comment
	repo := &mockOfferingRepository{
		offerings: []*model.Offering{rated},
		appendCommentFunc: func(ctx context.Context, id string, comment model.Comment, expectedCount int, rating float64) error {
			gotComment, gotCount, gotRating = comment, expectedCount, rating
			return nil
		},
	}
	svc := newTestService(repo, nil, nil)

	updated, err := svc.AddComment(context.Background(), "a", "", &model.Comment{Rating: ptr(1.0), Text: "  too   crowded "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotCount != 2 {
		t.Errorf("expected count guard 2, got %d", gotCount)
	}
	if gotRating != 3 {
		t.Errorf("rating = %v, want 3", gotRating)
	}
	if gotComment.AuthorID != model.AnonymousAuthor {
		t.Errorf("author = %q, want anonymous", gotComment.AuthorID)
	}
	if gotComment.Text != "too crowded" {
		t.Errorf("text not normalized: %q", gotComment.Text)
	}
	if len(updated.Comments) != 3 || updated.Rating != 3 {
		t.Errorf("unexpected updated offering: %d comments rating %v", len(updated.Comments), updated.Rating)
	}
}

func TestAddComment_RetriesOnRace(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		wantCalls int
		wantCode  string
	}{
		{name: "wins on second attempt", failures: 1, wantCalls: 2},
		{name: "gives up", failures: maxCommentAttempts, wantCalls: maxCommentAttempts, wantCode: apperrors.CodeConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			repo := &mockOfferingRepository{
				offerings: fixtures(),
				appendCommentFunc: func(ctx context.Context, id string, comment model.Comment, expectedCount int, rating float64) error {
					calls++
					if calls <= tt.failures {
						return fmt.Errorf("%w: %s", offeringserrors.ErrConcurrentUpdate, id)
					}
					return nil
				},
			}
			svc := newTestService(repo, nil, nil)

			_, err := svc.AddComment(context.Background(), "a", "rider-1", &model.Comment{Rating: ptr(5.0)})
			if tt.wantCode == "" && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantCode != "" && !apperrors.HasCode(err, tt.wantCode) {
				t.Errorf("expected %s, got %v", tt.wantCode, err)
			}
			if calls != tt.wantCalls {
				t.Errorf("append called %d times, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestAddComment_Invalid(t *testing.T) {
	called := false
	repo := &mockOfferingRepository{
		offerings: fixtures(),
		appendCommentFunc: func(ctx context.Context, id string, comment model.Comment, expectedCount int, rating float64) error {
			called = true
			return nil
		},
	}
	svc := newTestService(repo, nil, nil)

	for _, c := range []*model.Comment{{}, {Rating: ptr(6.0)}} {
		_, err := svc.AddComment(context.Background(), "a", "rider-1", c)
		if !apperrors.HasCode(err, apperrors.CodeValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	}
	if called {
		t.Error("invalid comments must not be written")
	}
}

func TestRunningRating(t *testing.T) {
	tests := []struct {
		current float64
		count   int
		added   float64
		want    float64
	}{
		{0, 0, 4, 4},
		{4, 2, 1, 3},
		{4.5, 2, 4, 4.33},
	}
	for _, tt := range tests {
		if got := runningRating(tt.current, tt.count, tt.added); got != tt.want {
			t.Errorf("runningRating(%v, %d, %v) = %v, want %v", tt.current, tt.count, tt.added, got, tt.want)
		}
	}
}
