package service

import (
	"context"
	"testing"
	"time"

	"miscompras/internal/apierror"
	"miscompras/internal/dto"
	"miscompras/internal/model"
	"miscompras/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBudget_DirectorOnly(t *testing.T) {
	e := newEnv(t)
	director := testutil.CreateUser(t, e.db, model.RoleDirector, "director@museo.local")
	req := dto.CreateBudgetRequest{
		ProjectID: e.fixture.Project.ID,
		AreaID:    e.fixture.Area.ID,
		Amount:    decimal.NewFromInt(5000),
		Year:      time.Now().Year() + 1,
	}

	_, err := e.budgets.Create(context.Background(), actorOf(e.admin), req)
	assert.Equal(t, apierror.KindForbidden, apierror.KindOf(err))

	b, err := e.budgets.Create(context.Background(), actorOf(director), req)
	require.NoError(t, err)
	assert.True(t, b.Available.Equal(b.Amount))
	assert.Equal(t, director.ID, b.CreatedByID)

	req.Amount = decimal.Zero
	_, err = e.budgets.Create(context.Background(), actorOf(director), req)
	assert.Equal(t, apierror.CodeInvalidAmount, apierror.CodeOf(err))
}

func TestListBudgets_Filters(t *testing.T) {
	e := newEnv(t)
	other := testutil.Seed(t, e.db, e.admin.ID, 10)

	all, err := e.budgets.List(context.Background(), dto.BudgetFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byArea, err := e.budgets.List(context.Background(), dto.BudgetFilter{AreaID: other.Area.ID.String()})
	require.NoError(t, err)
	require.Len(t, byArea, 1)
	assert.Equal(t, other.Budget.ID, byArea[0].ID)

	_, err = e.budgets.List(context.Background(), dto.BudgetFilter{ProjectID: "no-uuid"})
	assert.Equal(t, apierror.KindInvalidInput, apierror.KindOf(err))
}

func TestResolveBudget_FallsBackToLatestYear(t *testing.T) {
	e := newEnv(t)
	// only a budget from a past year exists for this pair
	f := testutil.Seed(t, e.db, e.admin.ID, 100)
	require.NoError(t, e.db.Model(&f.Budget).Update("year", time.Now().Year()-1).Error)

	d := e.draft("Anterior", 10)
	d.ProjectID, d.AreaID = f.Project.ID, f.Area.ID
	rq, err := e.reqs.Create(context.Background(), actorOf(e.user), d, nil)
	require.NoError(t, err)
	require.NotNil(t, rq.BudgetID)
	assert.Equal(t, f.Budget.ID, *rq.BudgetID)
}

func TestResolveBudget_ExplicitMustExist(t *testing.T) {
	e := newEnv(t)
	d := e.draft("X", 10)
	missing := uuid.New()
	d.BudgetID = &missing

	_, err := e.reqs.Create(context.Background(), actorOf(e.user), d, nil)
	assert.Equal(t, apierror.KindNotFound, apierror.KindOf(err))
}

func TestGetBudget_NotFound(t *testing.T) {
	e := newEnv(t)
	_, err := e.budgets.Get(context.Background(), uuid.New())
	assert.Equal(t, apierror.KindNotFound, apierror.KindOf(err))
}
