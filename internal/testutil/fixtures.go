package testutil

import (
	"context"
	"testing"
	"time"

	"miscompras/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Fixture is a minimal catalog: one project, one area and a budget for the
// current year.
type Fixture struct {
	Project model.Project
	Area    model.Area
	Budget  model.Budget
}

// CreateUser inserts an active user with the given role.
func CreateUser(t *testing.T, db *gorm.DB, role, email string) model.User {
	t.Helper()
	u := model.User{Email: email, Name: "Usuario " + role, PasswordHash: "x", Role: role, Active: true}
	require.NoError(t, db.Create(&u).Error)
	return u
}

// Seed creates the catalog rows. The budget is owned by creator and starts
// with available == amount.
func Seed(t *testing.T, db *gorm.DB, creator uuid.UUID, amount int64) Fixture {
	t.Helper()
	f := Fixture{
		Project: model.Project{Name: "Proyecto " + uuid.NewString()[:8], Active: true},
		Area:    model.Area{Name: "Area " + uuid.NewString()[:8]},
	}
	require.NoError(t, db.Create(&f.Project).Error)
	require.NoError(t, db.Create(&f.Area).Error)
	f.Budget = model.Budget{
		Year:        time.Now().Year(),
		ProjectID:   f.Project.ID,
		AreaID:      f.Area.ID,
		Amount:      decimal.NewFromInt(amount),
		Available:   decimal.NewFromInt(amount),
		CreatedByID: creator,
	}
	require.NoError(t, db.Create(&f.Budget).Error)
	return f
}

// Available reloads a budget's available balance.
func Available(t *testing.T, db *gorm.DB, budgetID uuid.UUID) decimal.Decimal {
	t.Helper()
	var b model.Budget
	require.NoError(t, db.WithContext(context.Background()).Where("id = ?", budgetID).First(&b).Error)
	return b.Available
}
