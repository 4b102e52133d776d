package utils

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/aditya/go-boleia/internal/errors"
)

// ErrorBody is the envelope every error response uses.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ListResponse wraps collection responses.
type ListResponse struct {
	Data  interface{} `json:"data"`
	Count int         `json:"count"`
}

// JSON sends a JSON response
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Success sends a success response
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, data)
}

// List sends a 200 response with the items and their count.
func List(w http.ResponseWriter, data interface{}, count int) {
	JSON(w, http.StatusOK, ListResponse{Data: data, Count: count})
}

// Error sends an error response
func Error(w http.ResponseWriter, err *apperrors.APIError) {
	JSON(w, err.StatusCode, ErrorBody{Error: err.Code, Message: err.Message})
}

// BadRequest sends a 400 error
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, apperrors.BadRequest(message))
}

// NotFound sends a 404 error
func NotFound(w http.ResponseWriter, resource string) {
	Error(w, apperrors.NotFound(resource))
}

// InternalError sends a 500 error
func InternalError(w http.ResponseWriter, message string) {
	Error(w, apperrors.InternalError(message))
}

// Created sends a 201 response
func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}
