package database

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leasedesk/internal/models"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return NewStore(sqlx.NewDb(mockDB, "sqlmock")), mock
}

func TestNew_EmptyDatabaseURL(t *testing.T) {
	db, err := New("")
	assert.Error(t, err)
	assert.Nil(t, db)
	assert.Contains(t, err.Error(), "DATABASE_URL environment variable not set")
}

func TestLookupEmailAddress(t *testing.T) {
	userID := "U1"

	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		wantErr   error
		check     func(t *testing.T, addr *models.EmailAddress)
	}{
		{
			name: "resolves user-owned address",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "email_address", "team_id", "user_id", "is_primary"}).
					AddRow("A1", "desk@agency.example.com", nil, userID, true)
				mock.ExpectQuery("SELECT id, email_address, team_id, user_id, is_primary").
					WithArgs("desk@agency.example.com").
					WillReturnRows(rows)
			},
			check: func(t *testing.T, addr *models.EmailAddress) {
				assert.Equal(t, "A1", addr.ID)
				assert.Nil(t, addr.TeamID)
				require.NotNil(t, addr.UserID)
				assert.Equal(t, "U1", *addr.UserID)
				assert.Equal(t, "U1", addr.OwnerID())
			},
		},
		{
			name: "unmapped address returns ErrAddressNotFound",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT id, email_address, team_id, user_id, is_primary").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: ErrAddressNotFound,
		},
		{
			name: "connection failure is wrapped",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT id, email_address, team_id, user_id, is_primary").
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: sql.ErrConnDone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			tt.setupMock(mock)

			addr, err := store.LookupEmailAddress(context.Background(), "desk@agency.example.com")

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, addr)
			} else {
				require.NoError(t, err)
				tt.check(t, addr)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCheckInboxUsage(t *testing.T) {
	userID := "U1"

	tests := []struct {
		name         string
		limitReached bool
	}{
		{"limit not reached", false},
		{"limit reached", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			mock.ExpectQuery("SELECT limit_reached FROM increment_inbox_usage").
				WithArgs(userID, nil).
				WillReturnRows(sqlmock.NewRows([]string{"limit_reached"}).AddRow(tt.limitReached))

			reached, err := store.CheckInboxUsage(context.Background(), &userID, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.limitReached, reached)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestOwnerNotificationEmails_User(t *testing.T) {
	store, mock := newMockStore(t)
	userID := "U1"

	mock.ExpectQuery("SELECT email FROM users WHERE id").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("owner@agency.example.com"))

	emails, err := store.OwnerNotificationEmails(context.Background(), &models.EmailAddress{UserID: &userID})
	require.NoError(t, err)
	assert.Equal(t, []string{"owner@agency.example.com"}, emails)
}

func TestOwnerNotificationEmails_Team(t *testing.T) {
	store, mock := newMockStore(t)
	teamID := "T1"

	mock.ExpectQuery("SELECT u.email").
		WithArgs(teamID).
		WillReturnRows(sqlmock.NewRows([]string{"email"}).
			AddRow("a@agency.example.com").
			AddRow("b@agency.example.com"))

	emails, err := store.OwnerNotificationEmails(context.Background(), &models.EmailAddress{TeamID: &teamID})
	require.NoError(t, err)
	assert.Equal(t, []string{"a@agency.example.com", "b@agency.example.com"}, emails)
}

func TestCreateThread(t *testing.T) {
	store, mock := newMockStore(t)
	userID := "U1"

	mock.ExpectExec("INSERT INTO email_threads").
		WillReturnResult(sqlmock.NewResult(0, 1))

	thread := &models.EmailThread{
		Subject:  "Inquiry",
		Status:   models.StatusReceived,
		Priority: models.PriorityNormal,
		UserID:   &userID,
	}
	err := store.CreateThread(context.Background(), thread)
	require.NoError(t, err)
	assert.NotEmpty(t, thread.ID)
	assert.False(t, thread.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertMessage(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO email_messages").
		WillReturnResult(sqlmock.NewResult(0, 1))

	msg := &models.EmailMessage{
		ThreadID:    "TH1",
		FromAddress: "jane@x.com",
		ToAddress:   "desk@agency.example.com",
		Subject:     "Inquiry",
		Body:        "Hi\n",
		Status:      models.StatusReceived,
	}
	err := store.InsertMessage(context.Background(), msg)
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertAttachments_StopsOnFirstFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO email_attachments").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO email_attachments").
		WillReturnError(sql.ErrConnDone)

	attachments := []models.EmailAttachment{
		{MessageID: "pm-1", FileName: "lease.pdf", FileType: "application/pdf", FileSize: 1024, StoragePath: "attachments/pm-1/lease.pdf"},
		{MessageID: "pm-1", FileName: "id.png", FileType: "image/png", FileSize: 2048, StoragePath: "attachments/pm-1/id.png"},
	}
	err := store.InsertAttachments(context.Background(), attachments)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id.png")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkMessagePartial(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE email_messages SET status").
		WithArgs(models.StatusPartial, "M1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.MarkMessagePartial(context.Background(), "M1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsEmailProcessed(t *testing.T) {
	t.Run("already processed", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("SELECT 1 FROM processed_emails").
			WithArgs("gm-1").
			WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

		processed, err := store.IsEmailProcessed(context.Background(), "gm-1")
		require.NoError(t, err)
		assert.True(t, processed)
	})

	t.Run("not processed", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("SELECT 1 FROM processed_emails").
			WithArgs("gm-2").
			WillReturnError(sql.ErrNoRows)

		processed, err := store.IsEmailProcessed(context.Background(), "gm-2")
		require.NoError(t, err)
		assert.False(t, processed)
	})
}

func TestInsertDeliveryLog(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO email_delivery_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	entry := &models.EmailDeliveryLog{
		MessageID: "M1",
		EventType: "send",
		Recipient: "jane@x.com",
		Status:    models.StatusSent,
		RawData:   `{"MessageID":"pm-1"}`,
	}
	require.NoError(t, store.InsertDeliveryLog(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateMessageSent(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE email_messages").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.UpdateMessageSent(context.Background(), "M1", "pm-outbound-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActiveWorkflows_DecodesJSONColumns(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "agent_id", "name", "active", "email_filter", "actions"}).
		AddRow("W1", "U1", "Inquiries", true,
			[]byte(`{"subject_contains":["inquiry"],"body_contains":["interested"]}`),
			[]byte(`{"send_application_link":true,"custom_message":"Thanks!"}`))
	mock.ExpectQuery("SELECT id, agent_id, name, active, email_filter, actions").
		WithArgs("U1").
		WillReturnRows(rows)

	workflows, err := store.ActiveWorkflows(context.Background(), "U1")
	require.NoError(t, err)
	require.Len(t, workflows, 1)
	assert.Equal(t, []string{"inquiry"}, workflows[0].Filter.SubjectContains)
	assert.True(t, workflows[0].Actions.SendApplicationLink)
	assert.Equal(t, "Thanks!", workflows[0].Actions.CustomMessage)
}
