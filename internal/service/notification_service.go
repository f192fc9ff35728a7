package service

import (
	"context"
	"fmt"

	"miscompras/internal/apierror"
	"miscompras/internal/model"
	"miscompras/internal/repository"
	"miscompras/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// EmailQueue is satisfied by *worker.Dispatcher.
type EmailQueue interface {
	EnqueueEmail(ctx context.Context, job worker.EmailJob) error
}

// NotificationDraft is the content shared by every recipient of a fan-out.
type NotificationDraft struct {
	Title         string
	Message       string
	Type          string
	RequirementID *uuid.UUID
}

type NotificationService interface {
	// NotifyRoles notifies every active user holding one of roles, except
	// exclude. Failures are logged, never returned.
	NotifyRoles(ctx context.Context, roles []string, exclude *uuid.UUID, n NotificationDraft)
	// NotifyUsers notifies the given users (deduplicated). Failures are logged.
	NotifyUsers(ctx context.Context, userIDs []uuid.UUID, n NotificationDraft)
	ListMine(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]model.Notification, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

type notificationService struct {
	users  repository.UserRepository
	notifs repository.NotificationRepository
	emails EmailQueue
	appURL string
}

// NewNotificationService builds the fan-out. emails may be nil (no email).
func NewNotificationService(users repository.UserRepository, notifs repository.NotificationRepository, emails EmailQueue, appURL string) NotificationService {
	return &notificationService{users: users, notifs: notifs, emails: emails, appURL: appURL}
}

func (s *notificationService) NotifyRoles(ctx context.Context, roles []string, exclude *uuid.UUID, n NotificationDraft) {
	recipients, err := s.users.ListActiveByRoles(ctx, roles)
	if err != nil {
		log.Error().Err(err).Strs("roles", roles).Msg("notification fan-out: list recipients")
		return
	}
	for i := range recipients {
		if exclude != nil && recipients[i].ID == *exclude {
			continue
		}
		s.deliver(ctx, &recipients[i], n)
	}
}

func (s *notificationService) NotifyUsers(ctx context.Context, userIDs []uuid.UUID, n NotificationDraft) {
	seen := make(map[uuid.UUID]bool, len(userIDs))
	for _, id := range userIDs {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		u, err := s.users.FindByID(ctx, id)
		if err != nil {
			log.Warn().Err(err).Str("user_id", id.String()).Msg("notification: recipient not found")
			continue
		}
		s.deliver(ctx, u, n)
	}
}

func (s *notificationService) deliver(ctx context.Context, u *model.User, n NotificationDraft) {
	typ := n.Type
	if typ == "" {
		typ = model.NotificationInfo
	}
	row := &model.Notification{
		UserID:        u.ID,
		Title:         n.Title,
		Message:       n.Message,
		Type:          typ,
		RequirementID: n.RequirementID,
	}
	if n.RequirementID != nil {
		row.Link = strPtr("/requirements/" + n.RequirementID.String())
	}
	if err := s.notifs.Create(ctx, row); err != nil {
		log.Error().Err(err).Str("user_id", u.ID.String()).Msg("notification: insert failed")
	}

	if s.emails == nil || u.Email == "" {
		return
	}
	job := worker.EmailJob{
		To:      u.Email,
		Subject: "[MisCompras] " + n.Title,
		Text:    s.emailBody(u, n),
	}
	if err := s.emails.EnqueueEmail(ctx, job); err != nil {
		log.Warn().Err(err).Str("to", u.Email).Msg("notification: email enqueue failed")
	}
}

func (s *notificationService) emailBody(u *model.User, n NotificationDraft) string {
	body := fmt.Sprintf("Hola %s,\n\n%s\n", u.Name, n.Message)
	if n.RequirementID != nil && s.appURL != "" {
		body += fmt.Sprintf("\nVer detalle: %s/requirements/%s\n", s.appURL, n.RequirementID)
	}
	return body + "\n-- MisCompras"
}

func (s *notificationService) ListMine(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]model.Notification, error) {
	out, err := s.notifs.ListByUser(ctx, userID, unreadOnly)
	return out, internal("listar notificaciones", err)
}

func (s *notificationService) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	return notFoundOr(s.notifs.MarkRead(ctx, userID, id), "Notificacion no encontrada")
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.notifs.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, apierror.Internal("marcar notificaciones", err)
	}
	return n, nil
}
