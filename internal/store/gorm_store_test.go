// path: internal/store/gorm_store_test.go
package store

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockStore(t *testing.T) (*gormStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)

	return &gormStore{db: db}, mock
}

func TestClaimDuePosts_NoneDue(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`UPDATE posts`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	posts, err := s.ClaimDuePosts(context.Background(), time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, posts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimDuePosts_ClaimsAndLoads(t *testing.T) {
	s, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery(`UPDATE posts`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id))
	mock.ExpectQuery(`SELECT \* FROM "posts"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "content", "status"}).
			AddRow(id, "hello world", string(PostStatusPublishing)))
	mock.ExpectQuery(`SELECT \* FROM "post_media_links"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "post_id", "media_id"}))
	mock.ExpectQuery(`SELECT \* FROM "platform_targets"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "post_id", "platform"}))

	posts, err := s.ClaimDuePosts(context.Background(), time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, id, posts[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetPostStatus_NotFound(t *testing.T) {
	s, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "posts" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := s.SetPostStatus(context.Background(), id, PostStatusPublished)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepStuckPublishing_ReportsCount(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "posts" SET`).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	n, err := s.SweepStuckPublishing(context.Background(), 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateMediaAsset_AssignsID(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "media_assets"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	asset := &MediaAsset{StoragePath: "local/a.png", MimeType: "image/png", SizeBytes: 42}
	err := s.CreateMediaAsset(context.Background(), asset)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, asset.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMediaAsset(t *testing.T) {
	s, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "media_assets"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.DeleteMediaAsset(context.Background(), id)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMediaInUse_NoReferences(t *testing.T) {
	s, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "post_media_links"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT "platform_targets"\."id",.* FROM "platform_targets"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "post_id", "platform"}))

	inUse, err := s.MediaInUse(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, inUse)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePost_NotEditableOncePublished(t *testing.T) {
	s, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "posts"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(id, string(PostStatusPublished)))
	mock.ExpectRollback()

	err := s.UpdatePost(context.Background(), &Post{ID: id, Content: "edited"})
	assert.ErrorIs(t, err, ErrNotEditable)
}
