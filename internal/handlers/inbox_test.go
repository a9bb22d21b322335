package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leasedesk/internal/database"
	"leasedesk/internal/models"
)

func newMockStore(t *testing.T) (*database.Store, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return database.NewStore(sqlx.NewDb(mockDB, "sqlmock")), mock
}

var threadListColumns = []string{
	"id", "subject", "last_message_at", "status", "priority", "needs_follow_up",
	"lead_email", "lead_name", "lead_phone", "team_id", "user_id", "created_at",
}

func TestListThreadsHandler(t *testing.T) {
	now := time.Now().UTC()

	t.Run("team scoped listing", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT id, subject, last_message_at`).
			WithArgs("TEAM1", 50, 0).
			WillReturnRows(sqlmock.NewRows(threadListColumns).
				AddRow("T1", "Rental enquiry", now, "received", "normal", false,
					nil, nil, nil, "TEAM1", nil, now))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM email_threads`).
			WithArgs("TEAM1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/api/threads?team_id=TEAM1", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, ListThreadsHandler(store)(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp models.ThreadListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Total)
		require.Len(t, resp.Threads, 1)
		assert.Equal(t, "T1", resp.Threads[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing owner scope", func(t *testing.T) {
		store, _ := newMockStore(t)

		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/api/threads", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, ListThreadsHandler(store)(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("limit is capped", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT id, subject, last_message_at`).
			WithArgs("U1", maxThreadLimit, 0).
			WillReturnRows(sqlmock.NewRows(threadListColumns))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM email_threads`).
			WithArgs("U1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/api/threads?user_id=U1&limit=9999", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, ListThreadsHandler(store)(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestThreadMessagesHandler(t *testing.T) {
	now := time.Now().UTC()

	t.Run("returns messages", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT id, subject, last_message_at`).
			WithArgs("T1").
			WillReturnRows(sqlmock.NewRows(threadListColumns).
				AddRow("T1", "Rental enquiry", now, "received", "normal", false,
					nil, nil, nil, "TEAM1", nil, now))
		mock.ExpectQuery(`SELECT id, thread_id, message_id`).
			WithArgs("T1").
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "thread_id", "message_id", "from_address", "from_name", "to_address",
				"subject", "body", "body_html", "status", "is_read", "has_attachments",
				"is_contact_form", "lead_email", "lead_name", "lead_phone",
				"ai_generated", "ai_confidence", "received_at", "sent_at", "created_at",
			}).AddRow(
				"M1", "T1", nil, "jane@example.com", "Jane", "inbox@acme.co.za",
				"Rental enquiry", "Hello", "", "received", false, false,
				false, nil, nil, nil, false, nil, now, nil, now))

		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/api/threads/T1/messages", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("T1")

		require.NoError(t, ThreadMessagesHandler(store)(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp models.ThreadMessagesResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "T1", resp.ThreadID)
		require.Len(t, resp.Messages, 1)
		assert.Equal(t, "M1", resp.Messages[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown thread", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT id, subject, last_message_at`).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(threadListColumns))

		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/api/threads/missing/messages", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("missing")

		require.NoError(t, ThreadMessagesHandler(store)(c))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
