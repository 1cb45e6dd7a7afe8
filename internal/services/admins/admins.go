// Package admins содержит справочник администраторов. Справочник
// загружается из базы на старте, дальше проверки идут по множеству
// в памяти; добавление администратора обновляет и базу, и множество,
// а Reload перечитывает справочник целиком.
package admins

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/magabrotheeeer/profile-sales-bot/internal/models"
)

// Repository описывает контракт хранилища администраторов.
type Repository interface {
	ListAdmins(ctx context.Context) ([]*models.Admin, error)
	AddAdmin(ctx context.Context, userID, addedBy int64, at time.Time) error
}

// Directory — справочник администраторов. Владелец из конфигурации
// является администратором всегда и не хранится в базе.
type Directory struct {
	repo    Repository
	ownerID int64

	mu  sync.RWMutex
	ids map[int64]struct{}
}

// New загружает справочник из хранилища.
func New(ctx context.Context, repo Repository, ownerID int64) (*Directory, error) {
	const op = "services.admins.New"

	records, err := repo.ListAdmins(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ids := make(map[int64]struct{}, len(records))
	for _, r := range records {
		ids[r.UserID] = struct{}{}
	}
	return &Directory{
		repo:    repo,
		ownerID: ownerID,
		ids:     ids,
	}, nil
}

// IsAdmin сообщает, является ли пользователь администратором.
func (d *Directory) IsAdmin(userID int64) bool {
	if userID == d.ownerID {
		return true
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.ids[userID]
	return ok
}

// Add делает пользователя администратором: пишет запись в базу
// и добавляет его во множество в памяти.
func (d *Directory) Add(ctx context.Context, userID, addedBy int64) error {
	const op = "services.admins.Add"

	if err := d.repo.AddAdmin(ctx, userID, addedBy, time.Now().UTC()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	d.mu.Lock()
	d.ids[userID] = struct{}{}
	d.mu.Unlock()
	return nil
}

// Reload перечитывает справочник из базы. Нужен процессам, которые
// держат собственную копию справочника и не видят администраторов,
// добавленных ботом после их старта.
func (d *Directory) Reload(ctx context.Context) error {
	const op = "services.admins.Reload"

	records, err := d.repo.ListAdmins(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	ids := make(map[int64]struct{}, len(records))
	for _, r := range records {
		ids[r.UserID] = struct{}{}
	}
	d.mu.Lock()
	d.ids = ids
	d.mu.Unlock()
	return nil
}

// List возвращает всех администраторов, включая владельца.
func (d *Directory) List() []int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]int64, 0, len(d.ids)+1)
	out = append(out, d.ownerID)
	for id := range d.ids {
		if id != d.ownerID {
			out = append(out, id)
		}
	}
	return out
}
