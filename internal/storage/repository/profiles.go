package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/profile-sales-bot/internal/models"
)

// CreateProfiles вставляет пачку профилей одной транзакцией и возвращает
// количество добавленных записей.
func (s *Storage) CreateProfiles(ctx context.Context, profiles []models.Profile) (int, error) {
	const op = "storage.CreateProfiles"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `INSERT INTO profiles (email, password, profile_pin, profile_name, status)
			  VALUES ($1, $2, $3, $4, $5)`
	for _, p := range profiles {
		if _, err := tx.ExecContext(ctx, query,
			p.Email, p.Password, p.PIN, p.Name, models.ProfileStatusUnsold); err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return len(profiles), nil
}

// CountProfilesByStatus возвращает количество профилей с заданным статусом.
func (s *Storage) CountProfilesByStatus(ctx context.Context, status string) (int, error) {
	const op = "storage.CountProfilesByStatus"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var count int
	query := `SELECT COUNT(*) FROM profiles WHERE status = $1`
	if err := s.DB.QueryRowContext(ctx, query, status).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// GetProfile возвращает профиль по ID.
func (s *Storage) GetProfile(ctx context.Context, id int) (*models.Profile, error) {
	const op = "storage.GetProfile"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, email, password, profile_pin, profile_name, status, sold_at, sold_to_user_id
			  FROM profiles WHERE id = $1`
	p := &models.Profile{}
	var soldAt sql.NullTime
	var soldTo sql.NullInt64
	err := s.DB.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Email, &p.Password, &p.PIN, &p.Name, &p.Status, &soldAt, &soldTo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if soldAt.Valid {
		p.SoldAt = &soldAt.Time
	}
	if soldTo.Valid {
		p.SoldToUserID = &soldTo.Int64
	}
	return p, nil
}

// AllocateProfile атомарно привязывает один непроданный профиль к заказу:
// блокирует заказ и профиль с наименьшим ID, переводит заказ в approved,
// профиль в sold и пишет запись о продаже. Все изменения видны либо
// целиком, либо никак.
//
// Возвращает models.ErrAlreadyProcessed вместе с ранее привязанным
// профилем, если заказ уже одобрен; models.ErrOutOfStock, если склад пуст
// (заказ при этом остаётся в прежнем статусе).
func (s *Storage) AllocateProfile(ctx context.Context, orderID int) (*models.Delivery, error) {
	const op = "storage.AllocateProfile"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	order, err := scanOrder(tx.QueryRowContext(ctx,
		selectOrderQuery+` WHERE id = $1 FOR UPDATE`, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if order.Status == models.OrderStatusApproved {
		// Второй одобряющий администратор: отдаём уже привязанный профиль.
		profile, perr := s.GetProfile(ctx, *order.BoundProfileID)
		if perr != nil {
			return nil, fmt.Errorf("%s: %w", op, perr)
		}
		return &models.Delivery{Order: *order, Profile: *profile}, models.ErrAlreadyProcessed
	}

	p := &models.Profile{}
	query := `SELECT id, email, password, profile_pin, profile_name
			  FROM profiles WHERE status = $1
			  ORDER BY id LIMIT 1
			  FOR UPDATE`
	err = tx.QueryRowContext(ctx, query, models.ProfileStatusUnsold).Scan(
		&p.ID, &p.Email, &p.Password, &p.PIN, &p.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrOutOfStock)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx,
		`UPDATE profiles SET status = $1, sold_at = $2, sold_to_user_id = $3 WHERE id = $4`,
		models.ProfileStatusSold, now, order.BuyerID, p.ID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $1, bound_profile_id = $2
		 WHERE id = $3 AND status IN ($4, $5)`,
		models.OrderStatusApproved, p.ID, orderID,
		models.OrderStatusPending, models.OrderStatusRejected)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("%s: %w", op, models.ErrAlreadyProcessed)
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO sales (user_id, username, trxid, amount, profile_id) VALUES ($1, $2, $3, $4, $5)`,
		order.BuyerID, order.BuyerUsername, order.TrxID, order.Amount, p.ID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE users SET has_paid = TRUE WHERE user_id = $1`, order.BuyerID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	order.Status = models.OrderStatusApproved
	order.BoundProfileID = &p.ID
	p.Status = models.ProfileStatusSold
	p.SoldAt = &now
	p.SoldToUserID = &order.BuyerID
	return &models.Delivery{Order: *order, Profile: *p}, nil
}
