package repository

import (
	"context"

	"miscompras/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogRepository covers the reference tables used by forms: areas,
// projects, categories and suppliers.
type CatalogRepository interface {
	CreateArea(ctx context.Context, a *model.Area) error
	CreateProject(ctx context.Context, p *model.Project) error
	CreateCategory(ctx context.Context, c *model.Category) error
	CreateSupplier(ctx context.Context, s *model.Supplier) error
	FindAreaByName(ctx context.Context, name string) (*model.Area, error)
	FindProjectByName(ctx context.Context, name string) (*model.Project, error)
	ListAreas(ctx context.Context) ([]model.Area, error)
	ListProjects(ctx context.Context) ([]model.Project, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	ListSuppliers(ctx context.Context) ([]model.Supplier, error)
	// AreaIDsDirectedBy returns the areas whose director is userID.
	AreaIDsDirectedBy(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

type catalogRepo struct{ db *gorm.DB }

func NewCatalogRepository(db *gorm.DB) CatalogRepository { return &catalogRepo{db: db} }

func (r *catalogRepo) CreateArea(ctx context.Context, a *model.Area) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *catalogRepo) CreateProject(ctx context.Context, p *model.Project) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *catalogRepo) CreateCategory(ctx context.Context, c *model.Category) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *catalogRepo) CreateSupplier(ctx context.Context, s *model.Supplier) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *catalogRepo) FindAreaByName(ctx context.Context, name string) (*model.Area, error) {
	var a model.Area
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&a).Error
	return &a, err
}

func (r *catalogRepo) FindProjectByName(ctx context.Context, name string) (*model.Project, error) {
	var p model.Project
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&p).Error
	return &p, err
}

func (r *catalogRepo) ListAreas(ctx context.Context) ([]model.Area, error) {
	var out []model.Area
	err := r.db.WithContext(ctx).Order("name").Find(&out).Error
	return out, err
}

func (r *catalogRepo) ListProjects(ctx context.Context) ([]model.Project, error) {
	var out []model.Project
	err := r.db.WithContext(ctx).Where("active = ?", true).Order("name").Find(&out).Error
	return out, err
}

func (r *catalogRepo) ListCategories(ctx context.Context) ([]model.Category, error) {
	var out []model.Category
	err := r.db.WithContext(ctx).Order("name").Find(&out).Error
	return out, err
}

func (r *catalogRepo) ListSuppliers(ctx context.Context) ([]model.Supplier, error) {
	var out []model.Supplier
	err := r.db.WithContext(ctx).Where("active = ?", true).Order("name").Find(&out).Error
	return out, err
}

func (r *catalogRepo) AreaIDsDirectedBy(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var areas []model.Area
	if err := r.db.WithContext(ctx).Select("id").Where("director_id = ?", userID).Find(&areas).Error; err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(areas))
	for _, a := range areas {
		ids = append(ids, a.ID)
	}
	return ids, nil
}
