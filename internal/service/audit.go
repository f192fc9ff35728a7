package service

import (
	"context"
	"fmt"
	"strings"

	"miscompras/internal/model"
	"miscompras/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// logRequirement appends an audit entry keyed to one requirement.
func logRequirement(ctx context.Context, r repository.Repos, requirementID uuid.UUID, action, details string, actor Actor) error {
	h := &model.HistoryLog{
		RequirementID: &requirementID,
		Action:        action,
		Details:       details,
		ActorEmail:    actorEmail(actor),
	}
	return internal("registrar historial", r.History.Create(ctx, h))
}

// logGroup appends an audit entry keyed to a group, listing every affected
// requirement.
func logGroup(ctx context.Context, r repository.Repos, groupID uuid.UUID, affected []uuid.UUID, action, details string, actor Actor) error {
	h := &model.HistoryLog{
		GroupID:                &groupID,
		AffectedRequirementIDs: model.UUIDList(affected),
		Action:                 action,
		Details:                details,
		ActorEmail:             actorEmail(actor),
	}
	return internal("registrar historial", r.History.Create(ctx, h))
}

func actorEmail(a Actor) *string {
	if a.Email == "" {
		return nil
	}
	return strPtr(a.Email)
}

func actorLabel(a Actor) string {
	if a.Name != "" {
		return a.Name
	}
	if a.Email != "" {
		return a.Email
	}
	return a.ID.String()
}

func joinDetails(parts []string) string { return strings.Join(parts, " | ") }

// attachStored creates one Attachment row per stored file.
func attachStored(ctx context.Context, r repository.Repos, requirementID uuid.UUID, files []storedUpload) error {
	for _, f := range files {
		a := &model.Attachment{
			RequirementID: requirementID,
			FileName:      f.Name,
			FileURL:       f.URL,
			FilePath:      f.Path,
			Size:          f.Size,
		}
		if f.MimeType != "" {
			a.MimeType = strPtr(f.MimeType)
		}
		if err := r.Attachments.Create(ctx, a); err != nil {
			return internal(fmt.Sprintf("adjuntar %s", f.Name), err)
		}
	}
	return nil
}

// removeAttachmentFiles deletes the files of already-deleted attachment rows,
// keeping files still referenced by another row.
func removeAttachmentFiles(ctx context.Context, store FileStore, attachments repository.AttachmentRepository, removed []model.Attachment) {
	for _, a := range removed {
		if a.FilePath == "" {
			continue
		}
		n, err := attachments.CountByPath(ctx, a.FilePath)
		if err != nil {
			log.Warn().Err(err).Str("path", a.FilePath).Msg("could not check shared attachment")
			continue
		}
		if n > 0 {
			continue
		}
		removePath(store, a.FilePath)
	}
}
