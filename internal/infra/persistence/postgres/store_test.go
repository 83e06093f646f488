package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"specimencore/internal/blob"
	"specimencore/internal/infra/persistence/postgres/testutil"
	"specimencore/internal/infra/persistence/snapshot"
	"specimencore/internal/media"
	"specimencore/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStub(t *testing.T) (*sql.DB, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	return db, conn
}

func TestNewStoreCreatesStateTable(t *testing.T) {
	_, conn := openStub(t)
	store, err := NewStore(context.Background(), "", domain.NewRulesEngine(), nil)
	require.NoError(t, err)
	assert.NotNil(t, store.DB())
	var sawDDL bool
	for _, stmt := range conn.Execs {
		if strings.Contains(strings.ToUpper(stmt), "CREATE TABLE IF NOT EXISTS STATE") {
			sawDDL = true
		}
	}
	assert.True(t, sawDDL, "execs: %v", conn.Execs)
}

func TestRunInTransactionPersistsAndReloads(t *testing.T) {
	ctx := context.Background()
	db, conn := openStub(t)
	vault := media.NewVault(blob.NewMemory(), nil)
	store, err := NewStore(ctx, "", nil, vault)
	require.NoError(t, err)

	var id string
	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		c, err := tx.CreateCollection(domain.Collection{Locality: "Shark Bay", CollectorName: "J. Smith", OverviewImage: []byte("drawer")})
		if err != nil {
			return err
		}
		id = c.ID
		tx.SetSession(domain.Session{CurrentCollectionID: c.ID})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, snapshot.Buckets, conn.Buckets())

	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	reopened, err := NewStore(ctx, "", nil, vault)
	require.NoError(t, err)
	got, ok := reopened.GetCollection(id)
	require.True(t, ok)
	assert.Equal(t, []byte("drawer"), got.OverviewImage)
	assert.Equal(t, id, reopened.Session().CurrentCollectionID)
}

func TestPersistFailuresSurface(t *testing.T) {
	ctx := context.Background()
	create := func(tx domain.Transaction) error {
		_, err := tx.CreateCollection(domain.Collection{Locality: "x"})
		return err
	}

	_, conn := openStub(t)
	store, err := NewStore(ctx, "", nil, nil)
	require.NoError(t, err)

	conn.FailUpsert = true
	_, err = store.RunInTransaction(ctx, create)
	assert.ErrorContains(t, err, "upsert collections")
	conn.FailUpsert = false

	conn.FailCommit = true
	_, err = store.RunInTransaction(ctx, create)
	assert.ErrorContains(t, err, "commit")
	conn.FailCommit = false
	assert.Empty(t, conn.Buckets())

	conn.FailBegin = true
	_, err = store.RunInTransaction(ctx, create)
	assert.ErrorContains(t, err, "begin tx")
}

func TestNewStoreErrors(t *testing.T) {
	ctx := context.Background()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, errors.New("boom") })
	_, err := NewStore(ctx, "", nil, nil)
	restore()
	assert.ErrorContains(t, err, "open postgres")

	_, conn := openStub(t)
	conn.FailPing = true
	_, err = NewStore(ctx, "", nil, nil)
	assert.ErrorContains(t, err, "ping postgres")

	_, conn = openStub(t)
	conn.RowsErr = errors.New("rows")
	_, err = NewStore(ctx, "", nil, nil)
	assert.ErrorContains(t, err, "iterate state")
}
