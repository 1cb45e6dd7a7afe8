package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/profile-sales-bot/internal/models"
)

const selectUserQuery = `SELECT user_id, username, display_name, locale, referral_code,
			      referred_by, referral_count, free_allocations, fingerprint,
			      flagged_vpn, has_paid, channel_verified, joined_at
			  FROM users`

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var referredBy sql.NullInt64
	if err := row.Scan(&u.UserID, &u.Username, &u.DisplayName, &u.Locale, &u.ReferralCode,
		&referredBy, &u.ReferralCount, &u.FreeAllocations, &u.Fingerprint,
		&u.FlaggedVPN, &u.HasPaid, &u.ChannelVerified, &u.JoinedAt); err != nil {
		return nil, err
	}
	if referredBy.Valid {
		u.ReferredBy = &referredBy.Int64
	}
	return u, nil
}

// CreateUser сохраняет нового пользователя. ReferredBy записывается здесь
// один раз и впоследствии не обновляется.
func (s *Storage) CreateUser(ctx context.Context, user models.User) error {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (user_id, username, display_name, locale, referral_code,
			      referred_by, fingerprint, flagged_vpn)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := s.DB.ExecContext(ctx, query,
		user.UserID, user.Username, user.DisplayName, user.Locale, user.ReferralCode,
		user.ReferredBy, user.Fingerprint, user.FlaggedVPN); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetUser возвращает пользователя по его Telegram ID.
func (s *Storage) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	user, err := scanUser(s.DB.QueryRowContext(ctx, selectUserQuery+` WHERE user_id = $1`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// FindUserByReferralCode возвращает пользователя по его реферальному коду.
func (s *Storage) FindUserByReferralCode(ctx context.Context, code string) (*models.User, error) {
	const op = "storage.FindUserByReferralCode"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	user, err := scanUser(s.DB.QueryRowContext(ctx, selectUserQuery+` WHERE referral_code = $1`, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// HasReferralFingerprint сообщает, есть ли среди приведённых данным
// реферером пользователей кто-то с таким же отпечатком устройства.
func (s *Storage) HasReferralFingerprint(ctx context.Context, referrerID int64, fingerprint string) (bool, error) {
	const op = "storage.HasReferralFingerprint"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE referred_by = $1 AND fingerprint = $2)`
	if err := s.DB.QueryRowContext(ctx, query, referrerID, fingerprint).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// IncrementReferralCount увеличивает счётчик рефералов и возвращает
// новое значение.
func (s *Storage) IncrementReferralCount(ctx context.Context, userID int64) (int, error) {
	const op = "storage.IncrementReferralCount"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newCount int
	query := `UPDATE users SET referral_count = referral_count + 1
			  WHERE user_id = $1
			  RETURNING referral_count`
	if err := s.DB.QueryRowContext(ctx, query, userID).Scan(&newCount); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newCount, nil
}

// SetFreeAllocations обновляет кэш заработанных бесплатных профилей.
func (s *Storage) SetFreeAllocations(ctx context.Context, userID int64, n int) error {
	const op = "storage.SetFreeAllocations"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if _, err := s.DB.ExecContext(ctx,
		`UPDATE users SET free_allocations = $1 WHERE user_id = $2`, n, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetChannelVerified отмечает подтверждение подписки на канал.
func (s *Storage) SetChannelVerified(ctx context.Context, userID int64, verified bool) error {
	const op = "storage.SetChannelVerified"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if _, err := s.DB.ExecContext(ctx,
		`UPDATE users SET channel_verified = $1 WHERE user_id = $2`, verified, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListTopReferrers возвращает реферальный рейтинг: топ-N по числу рефералов.
func (s *Storage) ListTopReferrers(ctx context.Context, limit int) ([]*models.ReferralRank, error) {
	const op = "storage.ListTopReferrers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_id, display_name, referral_count
			  FROM users
			  WHERE referral_count > 0
			  ORDER BY referral_count DESC, user_id
			  LIMIT $1`
	rows, err := s.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var ranks []*models.ReferralRank
	for rows.Next() {
		r := &models.ReferralRank{}
		if err := rows.Scan(&r.UserID, &r.DisplayName, &r.ReferralCount); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ranks = append(ranks, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ranks, nil
}
