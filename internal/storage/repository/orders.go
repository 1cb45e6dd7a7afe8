package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/profile-sales-bot/internal/models"
)

const selectOrderQuery = `SELECT id, buyer_id, buyer_username, trxid, amount, payer_last4, evidence_ref,
			      status, reject_reason, appeal_text, appealed_at, bound_profile_id, submitted_at
			  FROM orders`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	o := &models.Order{}
	var rejectReason, appealText sql.NullString
	var appealedAt sql.NullTime
	var boundProfileID sql.NullInt64
	if err := row.Scan(&o.ID, &o.BuyerID, &o.BuyerUsername, &o.TrxID, &o.Amount, &o.PayerLast4, &o.EvidenceRef,
		&o.Status, &rejectReason, &appealText, &appealedAt, &boundProfileID, &o.SubmittedAt); err != nil {
		return nil, err
	}
	if rejectReason.Valid {
		o.RejectReason = &rejectReason.String
	}
	if appealText.Valid {
		o.AppealText = &appealText.String
	}
	if appealedAt.Valid {
		o.AppealedAt = &appealedAt.Time
	}
	if boundProfileID.Valid {
		id := int(boundProfileID.Int64)
		o.BoundProfileID = &id
	}
	return o, nil
}

// CreateOrder вставляет новый заказ в статусе pending и возвращает его ID.
func (s *Storage) CreateOrder(ctx context.Context, order models.Order) (int, error) {
	const op = "storage.CreateOrder"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO orders (buyer_id, buyer_username, trxid, amount, payer_last4, evidence_ref, status)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		order.BuyerID, order.BuyerUsername, order.TrxID, order.Amount, order.PayerLast4,
		order.EvidenceRef, models.OrderStatusPending).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetOrder возвращает заказ по ID.
func (s *Storage) GetOrder(ctx context.Context, id int) (*models.Order, error) {
	const op = "storage.GetOrder"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	order, err := scanOrder(s.DB.QueryRowContext(ctx, selectOrderQuery+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return order, nil
}

// RejectOrder переводит заказ в rejected с причиной. Одобренный заказ
// отклонить нельзя; возвращает количество изменённых строк, по которому
// вызывающий различает "уже одобрен" и "не найден".
func (s *Storage) RejectOrder(ctx context.Context, id int, reason string) (int, error) {
	const op = "storage.RejectOrder"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE orders SET status = $1, reject_reason = $2
			  WHERE id = $3 AND status IN ($4, $5)`
	result, err := s.DB.ExecContext(ctx, query,
		models.OrderStatusRejected, reason, id,
		models.OrderStatusPending, models.OrderStatusRejected)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// SetAppeal записывает текст апелляции. Условия в WHERE гарантируют, что
// апелляция возможна только владельцем заказа, только по отклонённому
// заказу и только один раз; статус заказа при этом не меняется.
func (s *Storage) SetAppeal(ctx context.Context, id int, buyerID int64, text string, at time.Time) (int, error) {
	const op = "storage.SetAppeal"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE orders SET appeal_text = $1, appealed_at = $2
			  WHERE id = $3 AND buyer_id = $4 AND status = $5 AND appeal_text IS NULL`
	result, err := s.DB.ExecContext(ctx, query, text, at, id, buyerID, models.OrderStatusRejected)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ExistsApprovedTrxID сообщает, привязан ли идентификатор транзакции
// к какому-либо другому одобренному заказу.
func (s *Storage) ExistsApprovedTrxID(ctx context.Context, trxID string, excludeOrderID int) (bool, error) {
	const op = "storage.ExistsApprovedTrxID"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM orders WHERE trxid = $1 AND status = $2 AND id <> $3)`
	if err := s.DB.QueryRowContext(ctx, query, trxID, models.OrderStatusApproved, excludeOrderID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// ListPendingOrders возвращает последние необработанные заказы.
func (s *Storage) ListPendingOrders(ctx context.Context, limit int) ([]*models.Order, error) {
	const op = "storage.ListPendingOrders"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx,
		selectOrderQuery+` WHERE status = $1 ORDER BY submitted_at DESC LIMIT $2`,
		models.OrderStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return orders, nil
}

// CountSales возвращает общее число записей о продажах.
func (s *Storage) CountSales(ctx context.Context) (int, error) {
	const op = "storage.CountSales"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var count int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM sales`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}
