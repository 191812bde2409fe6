package service

import (
	"context"
	"errors"
	"tripmarket/internal/loyalty"
	riderserrors "tripmarket/internal/riders/errors"
	"tripmarket/internal/riders/repository"
	"tripmarket/internal/riders/validator"
	"tripmarket/pkg/config"
	apperrors "tripmarket/pkg/errors"
	"tripmarket/pkg/metrics"
	"tripmarket/pkg/model"
)

type RiderService interface {
	Loyalty(ctx context.Context, riderID string) (*model.LoyaltySummary, error)
	Redeem(ctx context.Context, riderID string, req *model.RedeemRequest) (*model.RedeemReceipt, error)
}

type riderService struct {
	repo      repository.RiderRepository
	validator *validator.RedeemValidator
	table     loyalty.Table
	cfg       *config.Config
}

func NewRiderService(
	repo repository.RiderRepository,
	validator *validator.RedeemValidator,
	cfg *config.Config,
) RiderService {
	return &riderService{
		repo:      repo,
		validator: validator,
		table:     loyalty.DefaultTable,
		cfg:       cfg,
	}
}

func (s *riderService) Loyalty(ctx context.Context, riderID string) (*model.LoyaltySummary, error) {
	if riderID == "" {
		return nil, apperrors.Unauthorized("Authentication required")
	}

	rider, err := s.repo.FindByID(ctx, riderID)
	if err != nil {
		return nil, s.translateRepoError(err, riderID, "Failed to retrieve rider")
	}

	badge := s.table.Normalize(loyalty.Badge(rider.LoyaltyBadge))
	snapshot := rider.Snapshot()
	snapshot.LoyaltyBadge = string(badge)

	summary := &model.LoyaltySummary{
		RiderSnapshot:   snapshot,
		Multiplier:      s.table.TierMultiplier(badge),
		RedeemableValue: loyalty.CreditFor(rider.LoyaltyPoints),
		TableVersion:    s.table.Version,
	}
	if next, ok := s.table.Next(badge); ok {
		summary.NextBadge = string(next.Badge)
		summary.PointsToNext = model.RoundMoney(max(next.MinTotal-rider.TotalPoints, 0))
	}

	return summary, nil
}

// Redeem converts spendable points into wallet credit. Cumulative points and
// the badge are left alone.
func (s *riderService) Redeem(ctx context.Context, riderID string, req *model.RedeemRequest) (*model.RedeemReceipt, error) {
	if riderID == "" {
		return nil, apperrors.Unauthorized("Authentication required")
	}

	if err := s.validator.Validate(req); err != nil {
		s.cfg.Log.Warn("Redeem request validation failed",
			"rider_id", riderID,
			"error", err,
		)
		return nil, apperrors.Validation("Redeem request validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	rider, err := s.repo.FindByID(ctx, riderID)
	if err != nil {
		return nil, s.translateRepoError(err, riderID, "Failed to retrieve rider")
	}

	redemption, ok := s.table.Redeem(loyalty.StateOf(rider), req.Points)
	if !ok {
		return nil, apperrors.InsufficientPoints(req.Points, rider.LoyaltyPoints)
	}
	if redemption.Credit <= 0 {
		return nil, apperrors.InvalidInput("Too few points to convert into wallet credit")
	}

	updated, err := s.repo.RedeemPoints(ctx, riderID, redemption.Points, redemption.Credit)
	if err != nil {
		if errors.Is(err, riderserrors.ErrInsufficientPoints) {
			return nil, apperrors.InsufficientPoints(req.Points, rider.LoyaltyPoints)
		}
		return nil, s.translateRepoError(err, riderID, "Failed to redeem points")
	}

	metrics.PointsRedeemed.Add(redemption.Points)
	s.cfg.Log.Info("Loyalty points redeemed",
		"rider_id", riderID,
		"points", redemption.Points,
		"credit", redemption.Credit,
	)

	return &model.RedeemReceipt{
		PointsRedeemed: redemption.Points,
		WalletCredit:   redemption.Credit,
		Rider:          updated.Snapshot(),
	}, nil
}

func (s *riderService) translateRepoError(err error, id string, message string) error {
	if errors.Is(err, riderserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Rider", id)
	}
	if errors.Is(err, riderserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid rider ID format")
	}
	s.cfg.Log.Error(message,
		"rider_id", id,
		"error", err,
	)
	return apperrors.Internal(message, err)
}
