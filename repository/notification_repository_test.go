package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"marketplace-service/models"
	"marketplace-service/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type NotificationRepositoryTestSuite struct {
	suite.Suite
	mock sqlmock.Sqlmock
	repo repository.NotificationRepo
}

func (s *NotificationRepositoryTestSuite) SetupTest() {
	db, mock, err := sqlmock.New()
	s.Require().NoError(err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	s.Require().NoError(err)

	s.mock = mock
	s.repo = repository.NewNotificationRepository(gormDB)
}

func (s *NotificationRepositoryTestSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
}

func TestNotificationRepository(t *testing.T) {
	suite.Run(t, new(NotificationRepositoryTestSuite))
}

func (s *NotificationRepositoryTestSuite) TestCreate_Batch() {
	s.mock.ExpectBegin()
	s.mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "notifications"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))
	s.mock.ExpectCommit()

	err := s.repo.Create(context.Background(),
		&models.Notification{UserID: "seller-1", Type: models.NotificationNewOrder, Title: "New order"},
		&models.Notification{UserID: "seller-2", Type: models.NotificationNewOrder, Title: "New order"},
	)
	s.NoError(err)
}

func (s *NotificationRepositoryTestSuite) TestCreate_NothingToInsert() {
	s.NoError(s.repo.Create(context.Background()))
}

func (s *NotificationRepositoryTestSuite) TestList_UnreadOnly() {
	now := time.Now()
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "notifications"`)).
		WithArgs("user-1", false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "notifications"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "type", "title", "message", "reference_id", "read", "created_at"}).
			AddRow(7, "user-1", models.NotificationOrderStatus, "Order shipped", "", "abc", false, now))

	items, total, err := s.repo.List(context.Background(), models.NotificationFilter{UserID: "user-1", UnreadOnly: true})
	s.NoError(err)
	s.Equal(int64(1), total)
	s.Require().Len(items, 1)
	s.Equal(uint(7), items[0].ID)
	s.Equal("Order shipped", items[0].Title)
}

func (s *NotificationRepositoryTestSuite) TestCountUnread() {
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "notifications"`)).
		WithArgs("user-1", false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := s.repo.CountUnread(context.Background(), "user-1")
	s.NoError(err)
	s.Equal(int64(4), n)
}

func (s *NotificationRepositoryTestSuite) TestMarkRead_Success() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(`UPDATE "notifications" SET "read"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	s.NoError(s.repo.MarkRead(context.Background(), "user-1", 7))
}

func (s *NotificationRepositoryTestSuite) TestMarkRead_OtherUsersNotification() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(`UPDATE "notifications" SET "read"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectCommit()

	s.ErrorIs(s.repo.MarkRead(context.Background(), "user-2", 7), repository.ErrNotFound)
}

func (s *NotificationRepositoryTestSuite) TestMarkAllRead() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(`UPDATE "notifications" SET "read"`)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	s.mock.ExpectCommit()

	n, err := s.repo.MarkAllRead(context.Background(), "user-1")
	s.NoError(err)
	s.Equal(int64(3), n)
}
