package service

import (
	"context"

	"miscompras/internal/model"
	"miscompras/internal/repository"
)

// CatalogService serves the reference lists used by the request forms.
type CatalogService interface {
	Areas(ctx context.Context) ([]model.Area, error)
	Projects(ctx context.Context) ([]model.Project, error)
	Categories(ctx context.Context) ([]model.Category, error)
	Suppliers(ctx context.Context) ([]model.Supplier, error)
}

type catalogService struct {
	repo repository.CatalogRepository
}

func NewCatalogService(repo repository.CatalogRepository) CatalogService {
	return &catalogService{repo: repo}
}

func (s *catalogService) Areas(ctx context.Context) ([]model.Area, error) {
	out, err := s.repo.ListAreas(ctx)
	return out, internal("listar areas", err)
}

func (s *catalogService) Projects(ctx context.Context) ([]model.Project, error) {
	out, err := s.repo.ListProjects(ctx)
	return out, internal("listar proyectos", err)
}

func (s *catalogService) Categories(ctx context.Context) ([]model.Category, error) {
	out, err := s.repo.ListCategories(ctx)
	return out, internal("listar categorias", err)
}

func (s *catalogService) Suppliers(ctx context.Context) ([]model.Supplier, error) {
	out, err := s.repo.ListSuppliers(ctx)
	return out, internal("listar proveedores", err)
}
