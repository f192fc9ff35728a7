package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"miscompras/internal/apierror"
	"miscompras/internal/dto"
	"miscompras/internal/infra"
	"miscompras/internal/policy"
	"miscompras/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID    uuid.UUID
	Email string
	Name  string
	Role  string
}

func (a Actor) can(c policy.Capability) bool { return policy.Can(a.Role, c) }

func requireActor(a Actor) error {
	if a.ID == uuid.Nil {
		return apierror.Unauthenticated("Autenticacion requerida")
	}
	return nil
}

// FileStore persists uploads and generated documents. *infra.LocalStorage
// implements it.
type FileStore interface {
	Save(ctx context.Context, name string, r io.Reader) (infra.StoredFile, error)
	Remove(path string) error
}

// DocumentRenderer produces the group summary document. *infra.PDFRenderer
// implements it.
type DocumentRenderer interface {
	RenderGroupSummary(ctx context.Context, s infra.GroupSummary) (infra.StoredFile, error)
}

// notFoundOr maps gorm.ErrRecordNotFound to NOT_FOUND and anything else to
// INTERNAL. Typed errors pass through untouched.
func notFoundOr(err error, msg string) error {
	if err == nil {
		return nil
	}
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierror.NotFound(msg)
	}
	return apierror.Internal(msg, err)
}

// internal wraps a persistence failure unless it is already typed.
func internal(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		return err
	}
	return apierror.Internal(op, err)
}

// storedUpload is a saved file plus its declared content type.
type storedUpload struct {
	infra.StoredFile
	MimeType string
}

// saveUploads stores every file or none: on failure the ones already written
// are removed.
func saveUploads(ctx context.Context, store FileStore, files []dto.FileUpload) ([]storedUpload, error) {
	saved := make([]storedUpload, 0, len(files))
	for _, f := range files {
		stored, err := saveOne(ctx, store, f)
		if err != nil {
			removeFiles(store, saved)
			return nil, apierror.Dependency("No se pudo guardar el archivo "+f.Name, err)
		}
		saved = append(saved, storedUpload{StoredFile: stored, MimeType: f.MimeType})
	}
	return saved, nil
}

func saveOne(ctx context.Context, store FileStore, f dto.FileUpload) (infra.StoredFile, error) {
	rc, err := f.Open()
	if err != nil {
		return infra.StoredFile{}, err
	}
	defer rc.Close()
	return store.Save(ctx, f.Name, rc)
}

// removeFiles deletes files best-effort, logging failures.
func removeFiles(store FileStore, files []storedUpload) {
	for _, f := range files {
		removePath(store, f.Path)
	}
}

func removePath(store FileStore, path string) {
	if err := store.Remove(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("could not remove file")
	}
}

// resolveVisibility builds the read filter for actor: global viewers see all,
// others see their own rows plus the areas they direct.
func resolveVisibility(ctx context.Context, catalog repository.CatalogRepository, actor Actor) (repository.Visibility, error) {
	if actor.can(policy.ViewAll) {
		return repository.Visibility{All: true}, nil
	}
	areas, err := catalog.AreaIDsDirectedBy(ctx, actor.ID)
	if err != nil {
		return repository.Visibility{}, internal("consultar areas dirigidas", err)
	}
	return repository.Visibility{UserID: actor.ID, AreaIDs: areas}, nil
}

func strPtr(s string) *string { return &s }

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func fmtMoney(d decimal.Decimal) string { return "$" + d.StringFixed(2) }
