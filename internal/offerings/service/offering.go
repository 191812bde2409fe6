package service

import (
	"context"
	"errors"
	"math"
	"time"
	"tripmarket/internal/discovery"
	offeringserrors "tripmarket/internal/offerings/errors"
	"tripmarket/internal/offerings/repository"
	"tripmarket/internal/offerings/validator"
	riderserrors "tripmarket/internal/riders/errors"
	"tripmarket/pkg/config"
	apperrors "tripmarket/pkg/errors"
	"tripmarket/pkg/metrics"
	"tripmarket/pkg/model"
	"tripmarket/pkg/sanitizer"
)

const maxCommentAttempts = 3

type OfferingService interface {
	Kind() model.OfferingKind
	Discover(ctx context.Context, riderID string, q discovery.Query, limit int, offset int64) ([]*model.OfferingSummary, int64, error)
	Missing(ctx context.Context, riderID string, q discovery.Query, limit int, offset int64) ([]*model.OfferingSummary, int64, error)
	GetByID(ctx context.Context, id string) (*model.OfferingSummary, error)
	AddComment(ctx context.Context, id string, authorID string, comment *model.Comment) (*model.Offering, error)
}

// RiderLookup resolves the rider whose stored preference drives preference mode.
type RiderLookup interface {
	FindByID(ctx context.Context, id string) (*model.Rider, error)
}

type offeringService struct {
	repo       repository.OfferingRepository
	categories repository.CategoryRepository
	riders     RiderLookup
	validator  *validator.CommentValidator
	cfg        *config.Config
	now        func() time.Time
}

func NewOfferingService(
	repo repository.OfferingRepository,
	categories repository.CategoryRepository,
	riders RiderLookup,
	validator *validator.CommentValidator,
	cfg *config.Config,
) OfferingService {
	return &offeringService{
		repo:       repo,
		categories: categories,
		riders:     riders,
		validator:  validator,
		cfg:        cfg,
		now:        time.Now,
	}
}

func (s *offeringService) Kind() model.OfferingKind {
	return s.repo.Kind()
}

func (s *offeringService) Discover(ctx context.Context, riderID string, q discovery.Query, limit int, offset int64) ([]*model.OfferingSummary, int64, error) {
	var pool []*model.Offering
	var err error

	switch q.Mode {
	case discovery.ModeOwn:
		if riderID == "" {
			return nil, 0, apperrors.Unauthorized("Authentication required to list own offerings")
		}
		pool, err = s.loadPool(ctx, repository.PoolFilter{OwnerID: riderID})
		if err != nil {
			return nil, 0, err
		}
		pool = discovery.Filter(pool, discovery.All(q.Criteria.Predicate(), discovery.Search(q.Search)))
		discovery.Sort(pool, q.Sort)

	case discovery.ModePreference:
		pref, err := s.preferenceOf(ctx, riderID)
		if err != nil {
			return nil, 0, err
		}
		pool, err = s.loadVisiblePool(ctx)
		if err != nil {
			return nil, 0, err
		}
		pool = discovery.Filter(pool, discovery.Search(q.Search))
		discovery.Sort(pool, q.Sort)
		pool = discovery.Rank(pool, discovery.PreferenceCriteria(pref, s.Kind()).Predicate()).Ordered()

	default:
		pool, err = s.loadVisiblePool(ctx)
		if err != nil {
			return nil, 0, err
		}
		filtered := discovery.Filter(pool, q.Criteria.Predicate())
		searched := discovery.Filter(pool, discovery.Search(q.Search))
		pool = discovery.Intersect(filtered, searched)
		discovery.Sort(pool, q.Sort)
	}

	metrics.DiscoveryResults.WithLabelValues(string(s.Kind()), q.Mode.String()).Observe(float64(len(pool)))
	s.cfg.Log.Debug("Discovery completed",
		"kind", s.Kind(),
		"mode", q.Mode.String(),
		"results_count", len(pool),
	)

	return s.page(ctx, pool, limit, offset)
}

// Missing lists visible offerings that the rider's preference filters out.
func (s *offeringService) Missing(ctx context.Context, riderID string, q discovery.Query, limit int, offset int64) ([]*model.OfferingSummary, int64, error) {
	pref, err := s.preferenceOf(ctx, riderID)
	if err != nil {
		return nil, 0, err
	}

	pool, err := s.loadVisiblePool(ctx)
	if err != nil {
		return nil, 0, err
	}
	pool = discovery.Filter(pool, discovery.Search(q.Search))
	discovery.Sort(pool, q.Sort)

	preferred := discovery.Filter(pool, discovery.PreferenceCriteria(pref, s.Kind()).Predicate())
	missing := discovery.Difference(pool, preferred)

	s.cfg.Log.Debug("Anti-filter completed",
		"kind", s.Kind(),
		"rider_id", riderID,
		"pool_count", len(pool),
		"missing_count", len(missing),
	)

	return s.page(ctx, missing, limit, offset)
}

func (s *offeringService) GetByID(ctx context.Context, id string) (*model.OfferingSummary, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Offering ID cannot be empty")
	}

	offering, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translateRepoError(err, id, "Failed to retrieve offering")
	}

	summaries := s.summarize(ctx, []*model.Offering{offering})
	return summaries[0], nil
}

// AddComment appends comment and folds its rating into the running average.
// The write is conditional on the comment count read, and retried a few
// times when another comment lands in between.
func (s *offeringService) AddComment(ctx context.Context, id string, authorID string, comment *model.Comment) (*model.Offering, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Offering ID cannot be empty")
	}

	comment.Text = sanitizer.TrimAndNormalize(comment.Text)
	comment.Liked = sanitizer.TrimAndNormalize(comment.Liked)
	comment.Disliked = sanitizer.TrimAndNormalize(comment.Disliked)

	if err := s.validator.Validate(comment); err != nil {
		s.cfg.Log.Warn("Comment validation failed",
			"offering_id", id,
			"error", err,
		)
		return nil, apperrors.Validation("Comment validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	comment.AuthorID = authorID
	if comment.AuthorID == "" {
		comment.AuthorID = model.AnonymousAuthor
	}
	comment.CreatedAt = s.now().UTC().Truncate(time.Millisecond)

	for attempt := 1; attempt <= maxCommentAttempts; attempt++ {
		offering, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, s.translateRepoError(err, id, "Failed to retrieve offering")
		}

		count := len(offering.Comments)
		rating := runningRating(offering.Rating, count, *comment.Rating)

		err = s.repo.AppendComment(ctx, id, *comment, count, rating)
		if errors.Is(err, offeringserrors.ErrConcurrentUpdate) {
			s.cfg.Log.Debug("Comment lost a race, retrying",
				"offering_id", id,
				"attempt", attempt,
			)
			continue
		}
		if err != nil {
			return nil, s.translateRepoError(err, id, "Failed to add comment")
		}

		offering.Comments = append(offering.Comments, *comment)
		offering.Rating = rating

		s.cfg.Log.Info("Comment added",
			"offering_id", id,
			"author_id", comment.AuthorID,
			"rating", rating,
		)
		return offering, nil
	}

	return nil, apperrors.Conflict("Offering was modified concurrently, please retry")
}

func runningRating(current float64, count int, added float64) float64 {
	avg := (current*float64(count) + added) / float64(count+1)
	return math.Round(avg*100) / 100
}

func (s *offeringService) loadVisiblePool(ctx context.Context) ([]*model.Offering, error) {
	now := s.now()
	pool, err := s.loadPool(ctx, repository.PoolFilter{ListedOnly: true, UpcomingAfter: &now})
	if err != nil {
		return nil, err
	}
	// The store query is a coarse prefilter; visibility is decided here.
	return discovery.Filter(pool, discovery.All(discovery.Listed(), discovery.Upcoming(now))), nil
}

func (s *offeringService) loadPool(ctx context.Context, filter repository.PoolFilter) ([]*model.Offering, error) {
	pool, err := s.repo.FindPool(ctx, filter)
	if err != nil {
		s.cfg.Log.Error("Failed to load offerings",
			"kind", s.Kind(),
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve offerings", err)
	}
	return pool, nil
}

func (s *offeringService) preferenceOf(ctx context.Context, riderID string) (model.Preference, error) {
	if riderID == "" {
		return model.Preference{}, apperrors.Unauthorized("Authentication required for preference based discovery")
	}

	rider, err := s.riders.FindByID(ctx, riderID)
	if err != nil {
		if errors.Is(err, riderserrors.ErrNotFound) || errors.Is(err, riderserrors.ErrInvalidID) {
			return model.Preference{}, apperrors.NotFoundWithID("Rider", riderID)
		}
		s.cfg.Log.Error("Failed to load rider preference",
			"rider_id", riderID,
			"error", err,
		)
		return model.Preference{}, apperrors.Internal("Failed to retrieve rider preference", err)
	}

	return rider.Preference, nil
}

func (s *offeringService) page(ctx context.Context, pool []*model.Offering, limit int, offset int64) ([]*model.OfferingSummary, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	return s.summarize(ctx, discovery.Paginate(pool, limit, offset)), int64(len(pool)), nil
}

// summarize attaches category details. A category lookup failure degrades to
// summaries without details.
func (s *offeringService) summarize(ctx context.Context, offerings []*model.Offering) []*model.OfferingSummary {
	seen := map[string]struct{}{}
	var slugs []string
	for _, o := range offerings {
		for _, c := range o.Categories {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				slugs = append(slugs, c)
			}
		}
	}

	bySlug := map[string]*model.Category{}
	if len(slugs) > 0 {
		categories, err := s.categories.FindBySlugs(ctx, slugs)
		if err != nil {
			s.cfg.Log.Warn("Failed to load categories", "slugs", slugs, "error", err)
		}
		for _, c := range categories {
			bySlug[c.Slug] = c
		}
	}

	summaries := make([]*model.OfferingSummary, 0, len(offerings))
	for _, o := range offerings {
		details := make([]*model.Category, 0, len(o.Categories))
		for _, slug := range o.Categories {
			if c, ok := bySlug[slug]; ok {
				details = append(details, c)
			}
		}
		summaries = append(summaries, &model.OfferingSummary{Offering: o, CategoryDetails: details})
	}

	return summaries
}

func (s *offeringService) translateRepoError(err error, id string, message string) error {
	if errors.Is(err, offeringserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Offering", id)
	}
	if errors.Is(err, offeringserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid offering ID format")
	}
	s.cfg.Log.Error(message,
		"id", id,
		"kind", s.Kind(),
		"error", err,
	)
	return apperrors.Internal(message, err)
}
