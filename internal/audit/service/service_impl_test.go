package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/karat/internal/audit/domain"
	"github.com/smallbiznis/karat/internal/audit/repository"
	"github.com/smallbiznis/karat/internal/auditcontext"
	"github.com/smallbiznis/karat/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupAuditService(t *testing.T) (auditdomain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&auditdomain.AuditLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
	return svc, db
}

func TestRecordAttributesActorAndMasksCredentials(t *testing.T) {
	svc, _ := setupAuditService(t)

	ctx := auditcontext.WithActor(context.Background(), auditcontext.ActorTypeAPIKey, "77")
	ctx = auditcontext.WithRequestID(ctx, "req-1")
	require.NoError(t, svc.Record(ctx, auditdomain.ActionVendorAdded, map[string]any{
		"name":    "Metals Live",
		"api_key": "live_abcdef123456",
	}))
	require.NoError(t, svc.Record(context.Background(), auditdomain.ActionRatesUpdated, nil))

	logs, err := svc.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	assert.Equal(t, auditdomain.ActionRatesUpdated, logs[0].Action)
	assert.Equal(t, auditdomain.SystemActorID, logs[0].ActorID)

	assert.Equal(t, int64(77), logs[1].ActorID)
	assert.Equal(t, "live_****3456", logs[1].Details["api_key"])
	assert.Equal(t, "req-1", logs[1].Details["request_id"])
}

func TestRecordRejectsEmptyAction(t *testing.T) {
	svc, _ := setupAuditService(t)
	assert.ErrorIs(t, svc.Record(context.Background(), "  ", nil), auditdomain.ErrInvalidAction)
}

func TestListRecentIsNewestFirstAndLimited(t *testing.T) {
	svc, _ := setupAuditService(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, svc.Record(context.Background(), fmt.Sprintf("action-%d", i), nil))
	}

	logs, err := svc.ListRecent(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, "action-4", logs[0].Action)
	assert.Equal(t, "action-2", logs[2].Action)
}

func TestClearLeavesItsOwnEntry(t *testing.T) {
	svc, _ := setupAuditService(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Record(context.Background(), "Inventory Updated", nil))
	}

	require.NoError(t, svc.Clear(context.Background()))

	logs, err := svc.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, auditdomain.ActionAuditLogsCleared, logs[0].Action)
	assert.Equal(t, "3", fmt.Sprint(logs[0].Details["removed"]))
}

func TestListPaginatesWithCursor(t *testing.T) {
	svc, _ := setupAuditService(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, svc.Record(context.Background(), "Material Added", map[string]any{"i": i}))
	}

	first, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{PageSize: 2},
	})
	require.NoError(t, err)
	require.Len(t, first.AuditLogs, 2)
	require.True(t, first.HasMore)

	second, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken},
	})
	require.NoError(t, err)
	require.Len(t, second.AuditLogs, 2)
	assert.NotEqual(t, first.AuditLogs[1].ID, second.AuditLogs[0].ID)
	assert.Less(t, int64(second.AuditLogs[0].ID), int64(first.AuditLogs[1].ID))

	_, err = svc.List(context.Background(), auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{PageToken: "not-a-token"},
	})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)
}

func TestRecordReturnsStorageError(t *testing.T) {
	svc, db := setupAuditService(t)
	require.NoError(t, db.Migrator().DropTable(&auditdomain.AuditLog{}))

	assert.Error(t, svc.Record(context.Background(), "Vendor Deleted", nil))
}
