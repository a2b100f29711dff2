package student

import (
	"context"
	"fmt"
)

// Repository defines the operations for persisting and retrieving Student entities.
type Repository interface {
	Create(ctx context.Context, s *Student) error
	GetByTelegramID(ctx context.Context, telegramID int64) (*Student, error)
	Update(ctx context.Context, s *Student) error // FirstName, LastName, cohort fields and IsActive
	ListActive(ctx context.Context) ([]*Student, error)
	ListAll(ctx context.Context) ([]*Student, error)
}

var ErrNotFound = fmt.Errorf("student not found")
var ErrDuplicateTelegramID = fmt.Errorf("student with this Telegram ID already exists")
