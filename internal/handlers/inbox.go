package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"leasedesk/internal/database"
	"leasedesk/internal/models"
)

const (
	defaultThreadLimit = 50
	maxThreadLimit     = 200
)

// ListThreadsHandler returns the owner's threads, most recent first.
// Ownership is scoped by team_id or user_id query parameter.
func ListThreadsHandler(store *database.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		teamID := optionalParam(c, "team_id")
		userID := optionalParam(c, "user_id")
		if teamID == nil && userID == nil {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "team_id or user_id query parameter is required",
			})
		}

		limit := intParam(c, "limit", defaultThreadLimit)
		if limit > maxThreadLimit {
			limit = maxThreadLimit
		}
		offset := intParam(c, "offset", 0)

		ctx := c.Request().Context()
		threads, err := store.ListThreads(ctx, teamID, userID, limit, offset)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list threads")
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": "Failed to list threads",
			})
		}
		total, err := store.CountThreads(ctx, teamID, userID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to count threads")
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": "Failed to list threads",
			})
		}

		return c.JSON(http.StatusOK, models.ThreadListResponse{
			Threads: threads,
			Total:   total,
			Limit:   limit,
			Offset:  offset,
		})
	}
}

// ThreadMessagesHandler returns every message of one thread in insertion
// order.
func ThreadMessagesHandler(store *database.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		threadID := c.Param("id")
		ctx := c.Request().Context()

		if _, err := store.GetThread(ctx, threadID); err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "Thread not found",
			})
		}

		messages, err := store.ListMessages(ctx, threadID)
		if err != nil {
			log.Error().Err(err).Str("thread_id", threadID).Msg("Failed to list messages")
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": "Failed to list messages",
			})
		}

		return c.JSON(http.StatusOK, models.ThreadMessagesResponse{
			ThreadID: threadID,
			Messages: messages,
		})
	}
}

func optionalParam(c echo.Context, name string) *string {
	v := c.QueryParam(name)
	if v == "" {
		return nil
	}
	return &v
}

func intParam(c echo.Context, name string, fallback int) int {
	v := c.QueryParam(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
