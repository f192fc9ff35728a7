package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repos bundles every repository bound to the same *gorm.DB (or tx).
type Repos struct {
	Users         UserRepository
	Catalog       CatalogRepository
	Budgets       BudgetRepository
	Requirements  RequirementRepository
	Groups        GroupRepository
	Attachments   AttachmentRepository
	Payments      PaymentRepository
	Invoices      InvoiceRepository
	History       HistoryRepository
	Notifications NotificationRepository
}

func newRepos(db *gorm.DB) Repos {
	return Repos{
		Users:         NewUserRepository(db),
		Catalog:       NewCatalogRepository(db),
		Budgets:       NewBudgetRepository(db),
		Requirements:  NewRequirementRepository(db),
		Groups:        NewGroupRepository(db),
		Attachments:   NewAttachmentRepository(db),
		Payments:      NewPaymentRepository(db),
		Invoices:      NewInvoiceRepository(db),
		History:       NewHistoryRepository(db),
		Notifications: NewNotificationRepository(db),
	}
}

// Store is the unit of work. Outside a transaction use the embedded Repos;
// inside WithinTx use only the Repos passed to fn.
type Store struct {
	Repos
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{Repos: newRepos(db), db: db}
}

// DB exposes the handle for health checks.
func (s *Store) DB() *gorm.DB { return s.db }

// WithinTx runs fn in one database transaction. Any error rolls back.
func (s *Store) WithinTx(ctx context.Context, fn func(r Repos) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newRepos(tx))
	})
}
