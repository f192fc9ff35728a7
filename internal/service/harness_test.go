package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"miscompras/internal/dto"
	"miscompras/internal/infra"
	"miscompras/internal/model"
	"miscompras/internal/repository"
	"miscompras/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type env struct {
	db       *gorm.DB
	store    *repository.Store
	files    *infra.LocalStorage
	notifier NotificationService
	reqs     RequirementService
	groups   GroupService
	payments PaymentService
	invoices InvoiceService
	budgets  BudgetService

	admin   model.User
	user    model.User
	fixture testutil.Fixture
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewDB(t)
	files, err := infra.NewLocalStorage(t.TempDir(), "/uploads")
	require.NoError(t, err)
	store := repository.NewStore(db)
	notifier := NewNotificationService(store.Users, store.Notifications, nil, "http://localhost:3000")

	e := &env{
		db:       db,
		store:    store,
		files:    files,
		notifier: notifier,
		reqs:     NewRequirementService(store, files, notifier),
		groups:   NewGroupService(store, files, infra.NewPDFRenderer(files), notifier),
		payments: NewPaymentService(store),
		invoices: NewInvoiceService(store),
		budgets:  NewBudgetService(store),
	}
	e.admin = testutil.CreateUser(t, db, model.RoleAdmin, "admin@museo.local")
	e.user = testutil.CreateUser(t, db, model.RoleUser, "user@museo.local")
	e.fixture = testutil.Seed(t, db, e.admin.ID, 1000000)
	return e
}

func actorOf(u model.User) Actor {
	return Actor{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

func (e *env) draft(title string, total int64) dto.CreateRequirementRequest {
	return dto.CreateRequirementRequest{
		Title:       title,
		Quantity:    1,
		ProjectID:   e.fixture.Project.ID,
		AreaID:      e.fixture.Area.ID,
		TotalAmount: decimal.NewFromInt(total),
	}
}

// newRequirement creates a requirement as e.user.
func (e *env) newRequirement(t *testing.T, total int64) *model.Requirement {
	t.Helper()
	rq, err := e.reqs.Create(context.Background(), actorOf(e.user), e.draft("Compra de insumos", total), nil)
	require.NoError(t, err)
	return rq
}

func (e *env) count(t *testing.T, m interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(m).Where(query, args...).Count(&n).Error)
	return n
}

func (e *env) reload(t *testing.T, id uuid.UUID) model.Requirement {
	t.Helper()
	var rq model.Requirement
	require.NoError(t, e.db.Where("id = ?", id).First(&rq).Error)
	return rq
}

func upload(name, content string) dto.FileUpload {
	return dto.FileUpload{
		Name:     name,
		MimeType: "text/plain",
		Size:     int64(len(content)),
		Open:     func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(content)), nil },
	}
}

type failingRenderer struct{}

func (failingRenderer) RenderGroupSummary(context.Context, infra.GroupSummary) (infra.StoredFile, error) {
	return infra.StoredFile{}, errors.New("renderer down")
}
