package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"panda-assistant/internal/usecase"
)

const (
	headerCorrelationID = "X-Correlation-Id"
	headerSessionID     = "X-Session-Id"
	invalidCommandMsg   = "Please provide a valid command."
)

type CommandInterpreter interface {
	Interpret(ctx context.Context, in usecase.CommandInput) (usecase.CommandOutput, error)
}

type Handler struct {
	uc     CommandInterpreter
	logger *slog.Logger
}

type commandRequest struct {
	Command string `json:"command"`
}

type commandResponse struct {
	Response string `json:"response"`
	URL      string `json:"url,omitempty"`
	Intent   string `json:"intent,omitempty"`
}

// errorResponse still carries prose in response so clients can show it as-is.
type errorResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

func NewHandler(uc CommandInterpreter) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: use case must not be nil")
	}
	return &Handler{uc: uc, logger: slog.Default()}, nil
}

// Handle serves POST /voice-command from API Gateway.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := headerValue(req.Headers, headerCorrelationID)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	sessionID := headerValue(req.Headers, headerSessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	log := h.logger.With("correlationId", correlationID)

	switch req.HTTPMethod {
	case http.MethodOptions:
		return respond(http.StatusNoContent, "", correlationID, sessionID), nil
	case http.MethodPost:
	default:
		return jsonResponse(http.StatusMethodNotAllowed, errorResponse{
			Response: usecase.GeneralErrorMsg,
			Error:    "METHOD_NOT_ALLOWED",
		}, correlationID, sessionID), nil
	}

	raw := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			log.Warn("invalid base64 body", "err", err)
			return jsonResponse(http.StatusBadRequest, errorResponse{
				Response: invalidCommandMsg,
				Error:    string(usecase.ErrorInvalidInput),
			}, correlationID, sessionID), nil
		}
		raw = decoded
	}

	var body commandRequest
	if err := json.Unmarshal(raw, &body); err != nil {
		log.Warn("invalid request body", "err", err)
		return jsonResponse(http.StatusBadRequest, errorResponse{
			Response: invalidCommandMsg,
			Error:    string(usecase.ErrorInvalidInput),
		}, correlationID, sessionID), nil
	}

	out, err := h.uc.Interpret(ctx, usecase.CommandInput{Command: body.Command, SessionID: sessionID})
	if err != nil {
		status, code, prose := mapError(err)
		log.Error("command failed", "status", status, "err", err)
		return jsonResponse(status, errorResponse{Response: prose, Error: code}, correlationID, sessionID), nil
	}

	log.Info("command interpreted", "sessionId", out.SessionID, "intent", out.Intent)
	return jsonResponse(http.StatusOK, commandResponse{
		Response: out.Response,
		URL:      out.URL,
		Intent:   out.Intent,
	}, correlationID, out.SessionID), nil
}

func mapError(err error) (int, string, string) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return http.StatusInternalServerError, string(usecase.ErrorInternal), usecase.GeneralErrorMsg
	}
	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest, string(ucErr.Code), invalidCommandMsg
	case usecase.ErrorUpstream:
		return http.StatusBadGateway, string(ucErr.Code), usecase.GeneralErrorMsg
	default:
		return http.StatusInternalServerError, string(usecase.ErrorInternal), usecase.GeneralErrorMsg
	}
}

func jsonResponse(status int, v any, correlationID, sessionID string) events.APIGatewayProxyResponse {
	b, err := json.Marshal(v)
	if err != nil {
		return respond(http.StatusInternalServerError, `{"response":"`+usecase.GeneralErrorMsg+`","error":"INTERNAL_ERROR"}`, correlationID, sessionID)
	}
	return respond(status, string(b), correlationID, sessionID)
}

func respond(status int, body, correlationID, sessionID string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":                 "application/json",
			"Access-Control-Allow-Origin":  "*",
			"Access-Control-Allow-Headers": "Content-Type, X-Session-Id, X-Correlation-Id",
			headerCorrelationID:            correlationID,
			headerSessionID:                sessionID,
		},
		Body: body,
	}
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
