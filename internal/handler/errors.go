package handler

import (
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/aditya/go-boleia/internal/errors"
	"github.com/aditya/go-boleia/internal/logger"
	"github.com/aditya/go-boleia/pkg/utils"
	"go.uber.org/zap"
)

const (
	DriverIDHeader = "X-Driver-ID"
	defaultLimit   = 20
	maxLimit       = 100
)

// handleError writes the API envelope for err. Infrastructure failures are
// logged here and nowhere else.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := apperrors.FromError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	utils.Error(w, apiErr)
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.BadRequest(key + " must be an integer")
	}
	return v, nil
}

func queryFloat(r *http.Request, key string) (*float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperrors.BadRequest(key + " must be a number")
	}
	return &v, nil
}

func limitParam(r *http.Request) (int, error) {
	limit, err := queryInt(r, "limit", defaultLimit)
	if err != nil {
		return 0, err
	}
	if limit < 1 || limit > maxLimit {
		return 0, apperrors.BadRequest("limit must be between 1 and 100")
	}
	return limit, nil
}

func driverID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(DriverIDHeader))
	if !utils.IsValidUUID(id) {
		return "", apperrors.BadRequest(DriverIDHeader + " header must be a driver uuid")
	}
	return id, nil
}
