// Package referral ведёт реферальный учёт: регистрацию пользователей,
// зачёт приведённых рефералов и начисление бесплатных профилей.
package referral

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/profile-sales-bot/internal/lib/fraud"
	"github.com/magabrotheeeer/profile-sales-bot/internal/models"
)

// Repository описывает контракт хранилища пользователей.
type Repository interface {
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	CreateUser(ctx context.Context, user models.User) error
	FindUserByReferralCode(ctx context.Context, code string) (*models.User, error)
	HasReferralFingerprint(ctx context.Context, referrerID int64, fingerprint string) (bool, error)
	IncrementReferralCount(ctx context.Context, userID int64) (int, error)
	SetFreeAllocations(ctx context.Context, userID int64, n int) error
	SetChannelVerified(ctx context.Context, userID int64, verified bool) error
}

// Service — реферальный учёт.
type Service struct {
	repo      Repository
	threshold int
	log       *slog.Logger
}

// New создает новый экземпляр Service. threshold — сколько засчитанных
// рефералов стоит один бесплатный профиль.
func New(repo Repository, threshold int, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		threshold: threshold,
		log:       log,
	}
}

// RegisterInput — данные первого контакта пользователя с ботом.
type RegisterInput struct {
	UserID       int64
	Username     string
	DisplayName  string
	Locale       string
	ReferralCode string // код из deep-link, пустой при прямом заходе
}

// RegisterResult сообщает обработчику, что произошло при регистрации.
type RegisterResult struct {
	User *models.User
	// Counted выставлен, если реферал был засчитан рефереру.
	Counted bool
	// ReferrerID и NewAllocations заполнены, когда зачёт пересёк порог
	// и реферер заработал новые бесплатные профили.
	ReferrerID     int64
	NewAllocations int
}

// Register создает пользователя при первом контакте и, если он пришёл по
// реферальной ссылке, решает, засчитывать ли реферал. Повторный вызов для
// уже известного пользователя ничего не меняет. Реферал засчитывается,
// только если реферер существует, отпечатки различаются, такой отпечаток
// ещё не встречался среди рефералов этого реферера и новый пользователь
// не помечен VPN-эвристикой.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	const op = "services.referral.Register"

	existing, err := s.repo.GetUser(ctx, in.UserID)
	if err == nil {
		return &RegisterResult{User: existing}, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	fingerprint := fraud.Fingerprint(in.Username, in.DisplayName, in.Locale)
	flaggedVPN := fraud.LooksLikeVPN(in.Username, in.DisplayName)

	user := models.User{
		UserID:       in.UserID,
		Username:     in.Username,
		DisplayName:  in.DisplayName,
		Locale:       in.Locale,
		ReferralCode: fraud.ReferralCode(in.UserID),
		Fingerprint:  fingerprint,
		FlaggedVPN:   flaggedVPN,
	}

	var referrer *models.User
	if in.ReferralCode != "" {
		referrer, err = s.findEligibleReferrer(ctx, in.ReferralCode, in.UserID, fingerprint, flaggedVPN)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	if referrer != nil {
		user.ReferredBy = &referrer.UserID
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user registered",
		slog.Int64("user_id", in.UserID),
		slog.Bool("flagged_vpn", flaggedVPN))

	result := &RegisterResult{User: &user}
	if referrer == nil {
		return result, nil
	}

	newCount, err := s.repo.IncrementReferralCount(ctx, referrer.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	result.Counted = true
	result.ReferrerID = referrer.UserID

	// Начисление выводится из атомарного счётчика, а не из снимка строки
	// пользователя: при параллельных регистрациях порог пересекает ровно
	// один вызов, и двойного начисления не происходит.
	earned := newCount / s.threshold
	if delta := earned - (newCount-1)/s.threshold; delta > 0 {
		if err := s.repo.SetFreeAllocations(ctx, referrer.UserID, earned); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result.NewAllocations = delta
		s.log.Info("referrer earned free allocations",
			slog.Int64("referrer_id", referrer.UserID),
			slog.Int("total", earned))
	}
	return result, nil
}

// MarkChannelVerified запоминает подтверждённую подписку на канал,
// чтобы не спрашивать мессенджер при каждой покупке.
func (s *Service) MarkChannelVerified(ctx context.Context, userID int64) error {
	const op = "services.referral.MarkChannelVerified"

	if err := s.repo.SetChannelVerified(ctx, userID, true); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// User возвращает пользователя по его идентификатору.
func (s *Service) User(ctx context.Context, userID int64) (*models.User, error) {
	return s.repo.GetUser(ctx, userID)
}

// findEligibleReferrer возвращает реферера, которому можно засчитать
// нового пользователя, либо nil, если зачёт не проходит проверки.
func (s *Service) findEligibleReferrer(ctx context.Context, code string, newUserID int64, fingerprint string, flaggedVPN bool) (*models.User, error) {
	referrer, err := s.repo.FindUserByReferralCode(ctx, code)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if referrer.UserID == newUserID {
		return nil, nil
	}
	if flaggedVPN {
		s.log.Warn("referral blocked by vpn heuristic",
			slog.Int64("referrer_id", referrer.UserID),
			slog.Int64("user_id", newUserID))
		return nil, nil
	}
	if referrer.Fingerprint == fingerprint {
		return nil, nil
	}
	seen, err := s.repo.HasReferralFingerprint(ctx, referrer.UserID, fingerprint)
	if err != nil {
		return nil, err
	}
	if seen {
		s.log.Warn("referral blocked by repeated fingerprint",
			slog.Int64("referrer_id", referrer.UserID),
			slog.Int64("user_id", newUserID))
		return nil, nil
	}
	return referrer, nil
}
