package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/profile-sales-bot/internal/models"
)

// ListAdmins возвращает всех администраторов.
func (s *Storage) ListAdmins(ctx context.Context) ([]*models.Admin, error) {
	const op = "storage.ListAdmins"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT user_id, added_by, added_at FROM admins`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var admins []*models.Admin
	for rows.Next() {
		a := &models.Admin{}
		if err := rows.Scan(&a.UserID, &a.AddedBy, &a.AddedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		admins = append(admins, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return admins, nil
}

// AddAdmin сохраняет нового администратора. Повторное добавление
// существующего — no-op.
func (s *Storage) AddAdmin(ctx context.Context, userID, addedBy int64, at time.Time) error {
	const op = "storage.AddAdmin"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO admins (user_id, added_by, added_at)
			  VALUES ($1, $2, $3)
			  ON CONFLICT (user_id) DO NOTHING`
	if _, err := s.DB.ExecContext(ctx, query, userID, addedBy, at); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
