package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"stellar-micro-donation/internal/adapter/http/dto"
	"stellar-micro-donation/internal/core/ports"
	"stellar-micro-donation/pkg/apperror"
	"stellar-micro-donation/pkg/response"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

// bindJSON decodes and validates the body into req, then sanitizes it.
// On failure the error response has already been written.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, apperror.ErrPayloadTooLarge())
			return false
		}
		response.Error(c, apperror.Validation(err.Error()))
		return false
	}
	dto.SanitizeStruct(req)
	return true
}

// queryInt parses an optional integer query parameter.
func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.Validation(name + " must be an integer")
	}
	return n, nil
}

// parseWindow reads the optional from/to query parameters. Both accept
// RFC 3339 timestamps or plain dates; a plain "to" date covers the whole day.
func parseWindow(c *gin.Context) (ports.StatsWindow, error) {
	var w ports.StatsWindow
	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		t, err := parseTime(raw, false)
		if err != nil {
			return w, apperror.Validation("from must be RFC 3339 or YYYY-MM-DD")
		}
		w.From = &t
	}
	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		t, err := parseTime(raw, true)
		if err != nil {
			return w, apperror.Validation("to must be RFC 3339 or YYYY-MM-DD")
		}
		w.To = &t
	}
	if w.From != nil && w.To != nil && w.From.After(*w.To) {
		return w, apperror.Validation("from must not be after to")
	}
	return w, nil
}

func parseTime(raw string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
