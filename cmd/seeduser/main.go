// cmd/seeduser/main.go creates or updates the bootstrap admin plus a demo
// area, project and budget for the current year.
// Uso: go run ./cmd/seeduser
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"miscompras/internal/config"
	"miscompras/internal/infra"
	"miscompras/internal/model"
	"miscompras/internal/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	email := envOr("SEED_ADMIN_EMAIL", "admin@miscompras.local")
	password := envOr("SEED_ADMIN_PASSWORD", "admin1234")

	hash, err := service.HashPassword(password)
	if err != nil {
		log.Fatal().Err(err).Msg("bcrypt")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}

	ctx := context.Background()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		admin := model.User{Email: email, Name: "Administrador", PasswordHash: hash, Role: model.RoleAdmin, Active: true}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"password_hash", "role", "active"}),
		}).Create(&admin).Error; err != nil {
			return fmt.Errorf("admin: %w", err)
		}
		if err := tx.Where("email = ?", email).First(&admin).Error; err != nil {
			return err
		}

		area := model.Area{Name: "Administracion"}
		if err := firstOrCreate(tx, &area, "name = ?", area.Name); err != nil {
			return fmt.Errorf("area: %w", err)
		}
		project := model.Project{Name: "Funcionamiento", Active: true}
		if err := firstOrCreate(tx, &project, "name = ?", project.Name); err != nil {
			return fmt.Errorf("project: %w", err)
		}

		year := time.Now().Year()
		budget := model.Budget{
			Year:        year,
			ProjectID:   project.ID,
			AreaID:      area.ID,
			Amount:      decimal.NewFromInt(10_000_000),
			Available:   decimal.NewFromInt(10_000_000),
			CreatedByID: admin.ID,
		}
		return firstOrCreate(tx, &budget, "year = ? AND project_id = ? AND area_id = ?", year, project.ID, area.ID)
	})
	if err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}
	log.Info().Str("email", email).Msg("admin user and demo catalog ready")
}

// firstOrCreate loads the row matching query into dst or inserts dst.
func firstOrCreate(tx *gorm.DB, dst interface{}, query string, args ...interface{}) error {
	err := tx.Where(query, args...).First(dst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.Create(dst).Error
	}
	return err
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
