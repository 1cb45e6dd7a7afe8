// Package order реализует машину состояний покупки: от нажатия "Купить"
// до создания заказа в статусе pending. Промежуточное состояние живёт
// в кэше как черновик и не касается базы данных до последнего шага.
package order

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/profile-sales-bot/internal/lib/ocr"
	"github.com/magabrotheeeer/profile-sales-bot/internal/lib/sl"
	"github.com/magabrotheeeer/profile-sales-bot/internal/models"
)

// Черновик живёт полчаса: брошенная покупка истекает сама.
const draftTTL = 30 * time.Minute

// Repository описывает контракт хранилища, нужный машине состояний.
type Repository interface {
	CountProfilesByStatus(ctx context.Context, status string) (int, error)
	CreateOrder(ctx context.Context, order models.Order) (int, error)
}

// Cache хранит черновики покупок между шагами диалога.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Service — машина состояний покупки.
type Service struct {
	repo     Repository
	cache    Cache
	verifier *ocr.Verifier // nil, если OCR-путь выключен конфигом
	price    int
	log      *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, cache Cache, verifier *ocr.Verifier, price int, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		verifier: verifier,
		price:    price,
		log:      log,
	}
}

func draftKey(buyerID int64) string {
	return fmt.Sprintf("draft:%d", buyerID)
}

func (s *Service) loadDraft(buyerID int64) (*models.OrderDraft, error) {
	var draft models.OrderDraft
	found, err := s.cache.Get(draftKey(buyerID), &draft)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.ErrNoDraft
	}
	return &draft, nil
}

func (s *Service) saveDraft(draft *models.OrderDraft) error {
	return s.cache.Set(draftKey(draft.BuyerID), draft, draftTTL)
}

// Draft возвращает текущий черновик покупателя или models.ErrNoDraft.
func (s *Service) Draft(buyerID int64) (*models.OrderDraft, error) {
	return s.loadDraft(buyerID)
}

// BeginPurchase начинает покупку: проверяет наличие непроданных профилей
// и заводит черновик в состоянии сбора скриншота. Заказ в базе не создаётся.
func (s *Service) BeginPurchase(ctx context.Context, buyerID int64, username string) error {
	const op = "services.order.BeginPurchase"

	count, err := s.repo.CountProfilesByStatus(ctx, models.ProfileStatusUnsold)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if count == 0 {
		return models.ErrOutOfStock
	}

	draft := &models.OrderDraft{
		BuyerID:   buyerID,
		Username:  username,
		State:     models.DraftStateEvidence,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.saveDraft(draft); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("purchase started", slog.Int64("buyer_id", buyerID))
	return nil
}

// SubmitEvidence принимает скриншот оплаты. Любое сообщение без фото
// отклоняется, состояние черновика при этом не меняется.
func (s *Service) SubmitEvidence(ctx context.Context, buyerID int64, fileRef string, isPhoto bool) error {
	const op = "services.order.SubmitEvidence"

	draft, err := s.loadDraft(buyerID)
	if err != nil {
		return err
	}
	if draft.State != models.DraftStateEvidence {
		return models.ErrWrongDraftStep
	}
	if !isPhoto {
		return models.ErrInvalidEvidence
	}
	draft.EvidenceRef = fileRef
	draft.State = models.DraftStateIdentifier
	if err := s.saveDraft(draft); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SubmitIdentifier принимает идентификатор транзакции. Формат не
// проверяется: ручной путь оставляет проверку человеку. Пустое после
// нормализации значение отклоняется, иначе заказ обойдёт проверку
// на дубликат TrxID.
func (s *Service) SubmitIdentifier(ctx context.Context, buyerID int64, text string) error {
	const op = "services.order.SubmitIdentifier"

	draft, err := s.loadDraft(buyerID)
	if err != nil {
		return err
	}
	if draft.State != models.DraftStateIdentifier {
		return models.ErrWrongDraftStep
	}
	trxID := strings.ToUpper(strings.TrimSpace(text))
	if trxID == "" {
		return models.ErrEmptyInput
	}
	draft.TrxID = trxID
	draft.State = models.DraftStateSecondary
	if err := s.saveDraft(draft); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SubmitSecondary принимает последние цифры номера и завершает сбор данных:
// создает заказ в статусе pending и удаляет черновик. Это единственный
// переход машины состояний, который пишет в базу.
func (s *Service) SubmitSecondary(ctx context.Context, buyerID int64, text string) (*models.Order, error) {
	const op = "services.order.SubmitSecondary"

	draft, err := s.loadDraft(buyerID)
	if err != nil {
		return nil, err
	}
	if draft.State != models.DraftStateSecondary {
		return nil, models.ErrWrongDraftStep
	}

	order := models.Order{
		BuyerID:       draft.BuyerID,
		BuyerUsername: draft.Username,
		TrxID:         draft.TrxID,
		Amount:        s.price,
		PayerLast4:    strings.TrimSpace(text),
		EvidenceRef:   draft.EvidenceRef,
		Status:        models.OrderStatusPending,
		SubmittedAt:   time.Now().UTC(),
	}
	id, err := s.repo.CreateOrder(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	order.ID = id

	if err := s.cache.Invalidate(draftKey(buyerID)); err != nil {
		s.log.Warn("failed to drop draft", slog.Int64("buyer_id", buyerID), sl.Err(err))
	}
	s.log.Info("order submitted",
		slog.Int("order_id", id),
		slog.Int64("buyer_id", buyerID))
	return &order, nil
}

// AutoVerify — OCR-путь: по скриншоту извлекает идентификатор транзакции
// и сумму и сразу создает pending-заказ. Если извлечь данные не удалось,
// черновик возвращается к сбору скриншота и покупатель идёт ручным путём.
func (s *Service) AutoVerify(ctx context.Context, buyerID int64, img []byte) (*models.Order, error) {
	const op = "services.order.AutoVerify"

	if s.verifier == nil {
		return nil, models.ErrExtractionFailed
	}
	draft, err := s.loadDraft(buyerID)
	if err != nil {
		return nil, err
	}

	trxID, amount, err := s.verifier.Verify(ctx, img)
	if err != nil {
		draft.State = models.DraftStateEvidence
		draft.EvidenceRef = ""
		if saveErr := s.saveDraft(draft); saveErr != nil {
			s.log.Warn("failed to reset draft", slog.Int64("buyer_id", buyerID), sl.Err(saveErr))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	order := models.Order{
		BuyerID:       draft.BuyerID,
		BuyerUsername: draft.Username,
		TrxID:         trxID,
		Amount:        amount,
		EvidenceRef:   draft.EvidenceRef,
		Status:        models.OrderStatusPending,
		SubmittedAt:   time.Now().UTC(),
	}
	id, err := s.repo.CreateOrder(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	order.ID = id

	if err := s.cache.Invalidate(draftKey(buyerID)); err != nil {
		s.log.Warn("failed to drop draft", slog.Int64("buyer_id", buyerID), sl.Err(err))
	}
	s.log.Info("order auto-verified",
		slog.Int("order_id", id),
		slog.Int64("buyer_id", buyerID),
		slog.String("trxid", trxID))
	return &order, nil
}

// Cancel удаляет черновик покупателя. Идемпотентна: отмена без черновика
// не считается ошибкой, записи заказов не трогаются никогда.
func (s *Service) Cancel(ctx context.Context, buyerID int64) error {
	const op = "services.order.Cancel"

	if err := s.cache.Invalidate(draftKey(buyerID)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
