package dao

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/grand-thief-cash/resurrector/bundle"
	"github.com/grand-thief-cash/resurrector/internal/application/components/gormdb"
	"github.com/grand-thief-cash/resurrector/model"
)

func openStore(t *testing.T, path string) (RegistrationDao, func()) {
	t.Helper()
	db, err := gormdb.Open(context.Background(), &gormdb.DataSourceConfig{Path: path}, logger.Discard)
	require.NoError(t, err)
	d := NewRegistrationDaoWithDB(db)
	require.NoError(t, d.Start(context.Background()))
	require.NoError(t, d.InitializeSchema(context.Background()))
	return d, func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	}
}

func req(ns, name string, events ...string) model.RegistrationRequest {
	return model.RegistrationRequest{
		Identity:     model.Identity{Namespace: ns, Name: name},
		EndpointKind: model.EndpointService,
		NotifyOn:     events,
	}
}

func find(t *testing.T, list []model.RegistrationRequest, id model.Identity) model.RegistrationRequest {
	t.Helper()
	for _, r := range list {
		if r.Identity == id {
			return r
		}
	}
	t.Fatalf("identity %s not loaded", id)
	return model.RegistrationRequest{}
}

func TestUpsertLoadAllRoundTrip(t *testing.T) {
	d, closeDB := openStore(t, filepath.Join(t.TempDir(), "registry.db"))
	defer closeDB()
	ctx := context.Background()

	full := req("pkg.a", "Worker", "ping", "boot")
	full.EndpointKind = model.EndpointActivity
	full.ActivationAction = "resurrector.TIME_TO_WAKEUP"
	full.Payload = bundle.New().
		Set("retries", bundle.Int32(3)).
		Set("nested", bundle.Nested(bundle.New().Set("ids", bundle.Int64Array(1, 2))))
	wildcard := req("pkg.b", "Sync")
	emptyPayload := req("pkg.c", "Probe", "x")
	emptyPayload.Payload = bundle.New()

	for _, r := range []model.RegistrationRequest{wildcard, full, emptyPayload} {
		require.NoError(t, d.Upsert(ctx, r))
	}
	// idempotent
	require.NoError(t, d.InitializeSchema(ctx))

	loaded, err := d.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	for _, want := range []model.RegistrationRequest{full, wildcard, emptyPayload} {
		got := find(t, loaded, want.Identity)
		assert.True(t, want.Equal(got), "%s: want %+v got %+v", want.Identity, want, got)
	}
	assert.Nil(t, find(t, loaded, wildcard.Identity).Payload)
	assert.Empty(t, find(t, loaded, wildcard.Identity).ActivationAction)
}

func TestUpsertReplacesLinksWholesale(t *testing.T) {
	d, closeDB := openStore(t, filepath.Join(t.TempDir(), "registry.db"))
	defer closeDB()
	ctx := context.Background()

	first := req("pkg.a", "Worker", "A", "C")
	first.Payload = bundle.New().Set("v", bundle.Int32(1))
	require.NoError(t, d.Upsert(ctx, first))
	require.NoError(t, d.Upsert(ctx, req("pkg.a", "Worker", "B")))

	loaded, err := d.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, []string{"B"}, loaded[0].NotifyOn)
	assert.Nil(t, loaded[0].Payload)
}

func TestRegistrationsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")
	d, closeDB := openStore(t, path)
	require.NoError(t, d.Upsert(context.Background(), req("pkg.a", "Worker")))
	closeDB()

	d2, closeDB2 := openStore(t, path)
	defer closeDB2()
	loaded, err := d2.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.True(t, loaded[0].IsWildcard())
}

func TestUpsertFailureRollsBackAndWrapsErrStore(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	db, err := gorm.Open(gormmysql.New(gormmysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}),
		&gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	boom := errors.New("disk full")
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `registrations`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM `notifier_links`").WillReturnError(boom)
	mock.ExpectRollback()

	d := NewRegistrationDaoWithDB(db)
	err = d.Upsert(context.Background(), req("pkg.a", "Worker", "A"))
	assert.ErrorIs(t, err, ErrStore)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadAllFailureWrapsErrStore(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	db, err := gorm.Open(gormmysql.New(gormmysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}),
		&gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `notifier_links`").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err = NewRegistrationDaoWithDB(db).LoadAll(context.Background())
	assert.ErrorIs(t, err, ErrStore)
	assert.NoError(t, mock.ExpectationsWereMet())
}
