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

func pay(amount int64) dto.CreatePaymentRequest {
	return dto.CreatePaymentRequest{Amount: decimal.NewFromInt(amount)}
}

func (e *env) multiPayRequirement(t *testing.T, total int64) *model.Requirement {
	t.Helper()
	rq := e.newRequirement(t, total)
	_, err := e.payments.ToggleMultiple(context.Background(), actorOf(e.user), rq.ID, true)
	require.NoError(t, err)
	return rq
}

func TestCreatePayment_Cap(t *testing.T) {
	e := newEnv(t)
	rq := e.multiPayRequirement(t, 12000)
	ctx := context.Background()

	for i := 1; i <= model.MaxPaymentsPerRequirement; i++ {
		p, err := e.payments.Create(ctx, actorOf(e.user), rq.ID, pay(1000))
		require.NoError(t, err, "payment %d", i)
		assert.Equal(t, i, p.PaymentNumber)
	}

	_, err := e.payments.Create(ctx, actorOf(e.user), rq.ID, pay(1))
	assert.Equal(t, apierror.KindBusinessRule, apierror.KindOf(err))
	assert.Equal(t, apierror.CodeMaxPaymentsReached, apierror.CodeOf(err))
	assert.EqualValues(t, 12, e.count(t, &model.Payment{}, "requirement_id = ?", rq.ID))
}

func TestCreatePayment_SinglePaymentGate(t *testing.T) {
	e := newEnv(t)
	rq := e.newRequirement(t, 1000)
	ctx := context.Background()

	_, err := e.payments.Create(ctx, actorOf(e.user), rq.ID, pay(100))
	require.NoError(t, err)

	_, err = e.payments.Create(ctx, actorOf(e.user), rq.ID, pay(1))
	assert.Equal(t, apierror.CodeMultiplePaymentsDisabled, apierror.CodeOf(err))
}

func TestCreatePayment_SumInvariant(t *testing.T) {
	e := newEnv(t)
	rq := e.multiPayRequirement(t, 1000)
	ctx := context.Background()

	_, err := e.payments.Create(ctx, actorOf(e.user), rq.ID, pay(600))
	require.NoError(t, err)

	_, err = e.payments.Create(ctx, actorOf(e.user), rq.ID, pay(401))
	assert.Equal(t, apierror.CodeAmountExceedsRequirement, apierror.CodeOf(err))
	assert.EqualValues(t, 1, e.count(t, &model.Payment{}, "requirement_id = ?", rq.ID))

	_, err = e.payments.Create(ctx, actorOf(e.user), rq.ID, pay(400))
	require.NoError(t, err)
}

func TestCreatePayment_FallsBackToActualAmount(t *testing.T) {
	e := newEnv(t)
	rq := e.multiPayRequirement(t, 0)
	_, err := e.reqs.Update(context.Background(), actorOf(e.admin), rq.ID,
		dto.UpdateRequirementRequest{ActualAmount: dto.Some(decimal.NewFromInt(500))}, nil)
	require.NoError(t, err)

	_, err = e.payments.Create(context.Background(), actorOf(e.user), rq.ID, pay(501))
	assert.Equal(t, apierror.CodeAmountExceedsRequirement, apierror.CodeOf(err))
}

func TestCreatePayment_NoTotalNoCap(t *testing.T) {
	e := newEnv(t)
	rq := e.newRequirement(t, 0)

	_, err := e.payments.Create(context.Background(), actorOf(e.user), rq.ID, pay(99999))
	require.NoError(t, err)
	assert.Equal(t, model.ProcurementPendiente, e.reload(t, rq.ID).ProcurementStatus)
}

func TestCreatePayment_InvalidInput(t *testing.T) {
	e := newEnv(t)
	rq := e.newRequirement(t, 100)

	for _, amount := range []int64{0, -5} {
		_, err := e.payments.Create(context.Background(), actorOf(e.user), rq.ID, pay(amount))
		assert.Equal(t, apierror.KindInvalidInput, apierror.KindOf(err))
		assert.Equal(t, apierror.CodeInvalidAmount, apierror.CodeOf(err))
	}

	_, err := e.payments.Create(context.Background(), actorOf(e.user), uuid.New(), pay(1))
	assert.Equal(t, apierror.KindNotFound, apierror.KindOf(err))
}

func TestCreatePayment_StatusLogOnlyOnChange(t *testing.T) {
	e := newEnv(t)
	rq := e.multiPayRequirement(t, 1000)
	ctx := context.Background()
	statusLogs := func() int64 {
		return e.count(t, &model.HistoryLog{}, "requirement_id = ? AND action = ?", rq.ID, model.ActionStatusUpdated)
	}

	_, err := e.payments.Create(ctx, actorOf(e.user), rq.ID, pay(300))
	require.NoError(t, err)
	assert.Equal(t, model.ProcurementEnTramite, e.reload(t, rq.ID).ProcurementStatus)
	assert.EqualValues(t, 1, statusLogs())

	_, err = e.payments.Create(ctx, actorOf(e.user), rq.ID, pay(300))
	require.NoError(t, err)
	assert.EqualValues(t, 1, statusLogs(), "still EN_TRAMITE")

	_, err = e.payments.Create(ctx, actorOf(e.user), rq.ID, pay(400))
	require.NoError(t, err)
	assert.Equal(t, model.ProcurementFinalizado, e.reload(t, rq.ID).ProcurementStatus)
	assert.EqualValues(t, 2, statusLogs())

	assert.EqualValues(t, 3, e.count(t, &model.HistoryLog{}, "requirement_id = ? AND action = ?", rq.ID, model.ActionPaymentRegistered))
}

func TestCreatePayment_DefaultsAndExplicitDate(t *testing.T) {
	e := newEnv(t)
	rq := e.multiPayRequirement(t, 1000)
	date := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	p, err := e.payments.Create(context.Background(), actorOf(e.user), rq.ID, dto.CreatePaymentRequest{
		Amount:        decimal.NewFromInt(10),
		InvoiceNumber: strPtr("F-9"),
		PaymentDate:   &dto.Date{Time: date},
	})
	require.NoError(t, err)
	assert.True(t, p.PaymentDate.Equal(date))
	assert.Equal(t, "F-9", *p.InvoiceNumber)
}

func TestUpdatePayment_ExcludesItselfFromSum(t *testing.T) {
	e := newEnv(t)
	rq := e.multiPayRequirement(t, 1000)
	ctx := context.Background()

	p1, err := e.payments.Create(ctx, actorOf(e.user), rq.ID, pay(400))
	require.NoError(t, err)
	_, err = e.payments.Create(ctx, actorOf(e.user), rq.ID, pay(400))
	require.NoError(t, err)

	got, err := e.payments.Update(ctx, actorOf(e.user), p1.ID, dto.UpdatePaymentRequest{Amount: dto.Some(decimal.NewFromInt(600))})
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(600)))

	_, err = e.payments.Update(ctx, actorOf(e.user), p1.ID, dto.UpdatePaymentRequest{Amount: dto.Some(decimal.NewFromInt(601))})
	assert.Equal(t, apierror.CodeAmountExceedsRequirement, apierror.CodeOf(err))

	_, err = e.payments.Update(ctx, actorOf(e.user), p1.ID, dto.UpdatePaymentRequest{Observations: dto.Some("ajuste")})
	require.NoError(t, err)

	var stored model.Payment
	require.NoError(t, e.db.Where("id = ?", p1.ID).First(&stored).Error)
	assert.True(t, stored.Amount.Equal(decimal.NewFromInt(600)), "amount untouched by sparse patch")
	require.NotNil(t, stored.Observations)
	assert.Equal(t, "ajuste", *stored.Observations)
}

func TestDeletePayment(t *testing.T) {
	e := newEnv(t)
	rq := e.newRequirement(t, 100)
	ctx := context.Background()
	p, err := e.payments.Create(ctx, actorOf(e.user), rq.ID, pay(100))
	require.NoError(t, err)
	require.Equal(t, model.ProcurementFinalizado, e.reload(t, rq.ID).ProcurementStatus)

	err = e.payments.Delete(ctx, actorOf(e.user), p.ID)
	assert.Equal(t, apierror.KindForbidden, apierror.KindOf(err))

	leader := testutil.CreateUser(t, e.db, model.RoleLeader, "lider@museo.local")
	require.NoError(t, e.payments.Delete(ctx, actorOf(leader), p.ID))

	assert.EqualValues(t, 0, e.count(t, &model.Payment{}, "id = ?", p.ID))
	assert.EqualValues(t, 1, e.count(t, &model.HistoryLog{}, "requirement_id = ? AND action = ?", rq.ID, model.ActionPaymentDeleted))
	assert.Equal(t, model.ProcurementFinalizado, e.reload(t, rq.ID).ProcurementStatus, "status is not reversed")

	err = e.payments.Delete(ctx, actorOf(leader), p.ID)
	assert.Equal(t, apierror.KindNotFound, apierror.KindOf(err))
}

func TestToggleMultiple(t *testing.T) {
	e := newEnv(t)
	rq := e.newRequirement(t, 100)

	got, err := e.payments.ToggleMultiple(context.Background(), actorOf(e.user), rq.ID, true)
	require.NoError(t, err)
	assert.True(t, got.HasMultiplePayments)

	got, err = e.payments.ToggleMultiple(context.Background(), actorOf(e.user), rq.ID, false)
	require.NoError(t, err)
	assert.False(t, got.HasMultiplePayments)

	_, err = e.payments.ToggleMultiple(context.Background(), actorOf(e.user), uuid.New(), true)
	assert.Equal(t, apierror.KindNotFound, apierror.KindOf(err))
}
