package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leasedesk/internal/models"
	"leasedesk/internal/outbound"
)

type stubSendDispatcher struct {
	req *outbound.Request
	id  string
	err error
}

func (d *stubSendDispatcher) Dispatch(ctx context.Context, req outbound.Request) (string, error) {
	d.req = &req
	return d.id, d.err
}

func TestSendEmailHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		dispatcher     *stubSendDispatcher
		expectedStatus int
		checkResponse  func(t *testing.T, resp models.SendResponse)
	}{
		{
			name:           "successful send",
			body:           `{"messageId":"M1","to":"jane@example.com","subject":"Re: Enquiry","body":"Hello"}`,
			dispatcher:     &stubSendDispatcher{id: "pm-123"},
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, resp models.SendResponse) {
				assert.True(t, resp.Success)
				assert.Equal(t, "pm-123", resp.MessageID)
			},
		},
		{
			name:           "malformed body",
			body:           `{"messageId":`,
			dispatcher:     &stubSendDispatcher{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing required fields",
			body:           `{"to":"jane@example.com"}`,
			dispatcher:     &stubSendDispatcher{},
			expectedStatus: http.StatusBadRequest,
			checkResponse: func(t *testing.T, resp models.SendResponse) {
				assert.Contains(t, resp.Error, "messageId")
			},
		},
		{
			name:           "dispatch failure",
			body:           `{"messageId":"M1","to":"jane@example.com","subject":"s","body":"b"}`,
			dispatcher:     &stubSendDispatcher{err: assert.AnError},
			expectedStatus: http.StatusInternalServerError,
			checkResponse: func(t *testing.T, resp models.SendResponse) {
				assert.False(t, resp.Success)
				assert.Equal(t, "Failed to send email", resp.Error)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/api/emails/send", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			handler := SendEmailHandler(tt.dispatcher)
			err := handler(c)

			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, rec.Code)

			if tt.checkResponse != nil {
				var resp models.SendResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				tt.checkResponse(t, resp)
			}
		})
	}
}
