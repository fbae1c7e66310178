package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/karat/internal/audit/domain"
	"github.com/smallbiznis/karat/internal/audit/masking"
	"github.com/smallbiznis/karat/internal/auditcontext"
	"github.com/smallbiznis/karat/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, action string, details map[string]any) error {
	action = strings.TrimSpace(action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}

	payload := masking.MaskSensitive(details)
	if requestID := auditcontext.RequestIDFromContext(ctx); requestID != "" {
		payload["request_id"] = requestID
	}

	entry := auditdomain.AuditLog{
		ID:        s.genID.Generate(),
		ActorID:   auditcontext.ActorIDFromContext(ctx),
		Action:    action,
		Details:   datatypes.JSONMap(payload),
		CreatedAt: time.Now().UTC(),
	}
	if ip := auditcontext.IPAddressFromContext(ctx); ip != "" {
		entry.IPAddress = &ip
	}

	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) ListRecent(ctx context.Context, limit int) ([]auditdomain.AuditLog, error) {
	items, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{Limit: clampLimit(limit)})
	if err != nil {
		return nil, err
	}
	return deref(items), nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	var cursor *auditdomain.AuditCursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil {
			return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidPageToken
		}
		cursor = &auditdomain.AuditCursor{ID: id, CreatedAt: createdAt}
	}

	pageSize := clampLimit(req.PageSize)
	items, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		Action: req.Action,
		Cursor: cursor,
		Limit:  pageSize + 1,
	})
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(item *auditdomain.AuditLog) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(items) > pageSize {
		items = items[:pageSize]
	}

	resp := auditdomain.ListAuditLogResponse{AuditLogs: deref(items)}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Clear(ctx context.Context) error {
	removed, err := s.repo.DeleteAll(ctx, s.db)
	if err != nil {
		s.log.Error("failed to clear audit logs", zap.Error(err))
		return err
	}
	s.log.Info("audit logs cleared", zap.Int64("removed", removed))

	_ = s.Record(ctx, auditdomain.ActionAuditLogsCleared, map[string]any{"removed": removed})
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return auditdomain.DefaultListLimit
	}
	if limit > auditdomain.MaxListLimit {
		return auditdomain.MaxListLimit
	}
	return limit
}

func deref(items []*auditdomain.AuditLog) []auditdomain.AuditLog {
	logs := make([]auditdomain.AuditLog, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		logs = append(logs, *item)
	}
	return logs
}
