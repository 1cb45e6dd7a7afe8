// Package inventory обслуживает админскую панель: массовую загрузку
// профилей, статистику склада и реферальный рейтинг.
package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/profile-sales-bot/internal/lib/sl"
	"github.com/magabrotheeeer/profile-sales-bot/internal/models"
)

// Ключи и время жизни кэшированной статистики. TTL короткий: статистика
// справочная, устаревшая на минуту цифра никому не мешает.
const (
	statsCacheKey       = "stats:inventory"
	leaderboardCacheKey = "stats:leaderboard"
	statsCacheTTL       = time.Minute
)

// Repository описывает контракт хранилища для инвентаря и статистики.
type Repository interface {
	CreateProfiles(ctx context.Context, profiles []models.Profile) (int, error)
	CountProfilesByStatus(ctx context.Context, status string) (int, error)
	CountSales(ctx context.Context) (int, error)
	ListTopReferrers(ctx context.Context, limit int) ([]*models.ReferralRank, error)
}

// Cache хранит посчитанную статистику между запросами.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Stats — сводка склада и продаж для админской панели.
type Stats struct {
	Unsold     int `json:"unsold"`
	Sold       int `json:"sold"`
	TotalSales int `json:"total_sales"`
}

// Service — инвентарь и статистика.
type Service struct {
	repo     Repository
	cache    Cache
	validate *validator.Validate
	log      *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, cache Cache, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		validate: validator.New(),
		log:      log,
	}
}

// AddBulk разбирает построчный список "email:password:pin[:name]" и
// сохраняет корректные строки. Строки с неверным числом полей или
// некорректной почтой пропускаются и попадают в счётчик skipped,
// остальные вставляются одной транзакцией. Возвращает (added, skipped).
func (s *Service) AddBulk(ctx context.Context, text string) (int, int, error) {
	const op = "services.inventory.AddBulk"

	var profiles []models.Profile
	skipped := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		profile, ok := s.parseLine(line)
		if !ok {
			skipped++
			continue
		}
		profiles = append(profiles, profile)
	}

	if len(profiles) == 0 {
		return 0, skipped, nil
	}

	added, err := s.repo.CreateProfiles(ctx, profiles)
	if err != nil {
		return 0, skipped, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.cache.Invalidate(statsCacheKey); err != nil {
		s.log.Warn("failed to invalidate stats cache", sl.Err(err))
	}
	s.log.Info("profiles added",
		slog.Int("added", added),
		slog.Int("skipped", skipped))
	return added, skipped, nil
}

// parseLine разбирает одну строку загрузки: три или четыре поля через
// двоеточие, первое поле — валидная почта. Четвёртое поле (имя профиля)
// опционально.
func (s *Service) parseLine(line string) (models.Profile, bool) {
	parts := strings.Split(line, ":")
	if len(parts) != 3 && len(parts) != 4 {
		return models.Profile{}, false
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return models.Profile{}, false
	}
	if err := s.validate.Var(parts[0], "email"); err != nil {
		return models.Profile{}, false
	}

	profile := models.Profile{
		Email:    parts[0],
		Password: parts[1],
		PIN:      parts[2],
		Name:     "Default",
		Status:   models.ProfileStatusUnsold,
	}
	if len(parts) == 4 && parts[3] != "" {
		profile.Name = parts[3]
	}
	return profile, true
}

// Stats возвращает сводку склада и продаж, кэшируя её на минуту.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	const op = "services.inventory.Stats"

	var cached Stats
	found, err := s.cache.Get(statsCacheKey, &cached)
	if err != nil {
		s.log.Warn("stats cache read failed", sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	unsold, err := s.repo.CountProfilesByStatus(ctx, models.ProfileStatusUnsold)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sold, err := s.repo.CountProfilesByStatus(ctx, models.ProfileStatusSold)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	totalSales, err := s.repo.CountSales(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	stats := &Stats{Unsold: unsold, Sold: sold, TotalSales: totalSales}
	if err := s.cache.Set(statsCacheKey, stats, statsCacheTTL); err != nil {
		s.log.Warn("failed to cache stats", sl.Err(err))
	}
	return stats, nil
}

// Leaderboard возвращает top-n рефереров, кэшируя результат на минуту.
func (s *Service) Leaderboard(ctx context.Context, n int) ([]*models.ReferralRank, error) {
	const op = "services.inventory.Leaderboard"

	key := fmt.Sprintf("%s:%d", leaderboardCacheKey, n)
	var cached []*models.ReferralRank
	found, err := s.cache.Get(key, &cached)
	if err != nil {
		s.log.Warn("leaderboard cache read failed", sl.Err(err))
	}
	if found {
		return cached, nil
	}

	ranks, err := s.repo.ListTopReferrers(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Set(key, ranks, statsCacheTTL); err != nil {
		s.log.Warn("failed to cache leaderboard", sl.Err(err))
	}
	return ranks, nil
}
