package service_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/karat/internal/audit/domain"
	"github.com/smallbiznis/karat/internal/material/domain"
	"github.com/smallbiznis/karat/internal/material/repository"
	"github.com/smallbiznis/karat/internal/material/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingAudit struct {
	actions []string
}

func (r *recordingAudit) Record(ctx context.Context, action string, details map[string]any) error {
	r.actions = append(r.actions, action)
	return nil
}

func (r *recordingAudit) ListRecent(ctx context.Context, limit int) ([]auditdomain.AuditLog, error) {
	return nil, nil
}

func (r *recordingAudit) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	return auditdomain.ListAuditLogResponse{}, nil
}

func (r *recordingAudit) Clear(ctx context.Context) error { return nil }

func setupService(t *testing.T) (domain.Service, *recordingAudit) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Material{}))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	audit := &recordingAudit{}
	return service.New(service.Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     repository.Provide(),
		AuditSvc: audit,
	}), audit
}

func TestCreateDerivesFractionsAndDefaults(t *testing.T) {
	svc, audit := setupService(t)

	m, err := svc.Create(context.Background(), domain.CreateRequest{
		Name: "Gold",
		Purities: map[string]domain.PurityInput{
			"18": {Label: "18K"},
			"22": {Label: "22K"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "gold", m.Code)
	assert.Equal(t, domain.DefaultUnit, m.Unit)
	assert.InDelta(t, 0.75, m.PurityOptions()["18"].Fraction, 1e-12)
	assert.Equal(t, []string{auditdomain.ActionMaterialAdded}, audit.actions)

	loaded, err := svc.GetByName(context.Background(), "GOLD")
	require.NoError(t, err)
	assert.Equal(t, m.ID, loaded.ID)
	assert.Equal(t, "18K", domain.PurityLabel(*loaded, "18"))
}

func TestCreateRejectsDuplicateNameCaseInsensitively(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Create(context.Background(), domain.CreateRequest{Name: "silver"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), domain.CreateRequest{Name: "Silver"})
	assert.ErrorIs(t, err, domain.ErrDuplicateMaterial)
}

func TestCreateRejectsInvalidPurity(t *testing.T) {
	svc, _ := setupService(t)

	bad := 1.5
	_, err := svc.Create(context.Background(), domain.CreateRequest{
		Name:     "Palladium",
		Purities: map[string]domain.PurityInput{"500": {Label: "500", Fraction: &bad}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPurity)

	_, err = svc.Create(context.Background(), domain.CreateRequest{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestUpdateAndDelete(t *testing.T) {
	svc, audit := setupService(t)

	m, err := svc.Create(context.Background(), domain.CreateRequest{Name: "platinum"})
	require.NoError(t, err)

	unit := "ounces"
	updated, err := svc.Update(context.Background(), m.ID.String(), domain.UpdateRequest{
		Unit:     &unit,
		Purities: map[string]domain.PurityInput{"950": {Label: "950 Platinum"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "ounces", updated.Unit)
	assert.InDelta(t, 0.95, domain.PurityFraction(*updated, "950"), 1e-12)

	require.NoError(t, svc.Delete(context.Background(), m.ID.String()))
	_, err = svc.Get(context.Background(), m.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, []string{
		auditdomain.ActionMaterialAdded,
		auditdomain.ActionMaterialUpdated,
		auditdomain.ActionMaterialDeleted,
	}, audit.actions)
}

func TestGetRejectsMalformedID(t *testing.T) {
	svc, _ := setupService(t)
	_, err := svc.Get(context.Background(), "not-an-id")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}
