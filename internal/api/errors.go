package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/peerboard/internal/board"
	"github.com/danmuck/peerboard/internal/engine"
)

var notices = []struct {
	err  error
	text string
}{
	{board.ErrEmptyName, "Enter the name first."},
	{board.ErrEmptyTitle, "Enter a title first."},
	{board.ErrEmptyComment, "Write a comment first."},
	{board.ErrUnknownCategory, "Pick categories from the list."},
	{board.ErrInvalidDate, "Dates must look like YYYY-MM-DD."},
	{board.ErrDateOrder, "The end date is before the start date."},
}

// Notice returns the on-screen text for a local validation error.
func Notice(err error) (string, bool) {
	for _, n := range notices {
		if errors.Is(err, n.err) {
			return n.text, true
		}
	}
	return "", false
}

func respondError(c *gin.Context, err error) {
	if text, ok := Notice(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"notice": text})
		return
	}
	switch {
	case errors.Is(err, engine.ErrUnknownTask):
		c.JSON(http.StatusNotFound, gin.H{"error": "todo not found"})
	case errors.Is(err, engine.ErrLoopStopped),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "room unavailable"})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("api request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
