package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/florianilch/larkbridge/internal/lark"
	"github.com/florianilch/larkbridge/internal/tenanttoken"
	"github.com/florianilch/larkbridge/internal/tools"
)

const maxToolRequestBytes = 1 << 20

// ToolHandler serves POST /tools/{name}. The request body is the tool's
// JSON arguments and the response body is its JSON result.
type ToolHandler struct {
	Registry *tools.Registry
}

// Compile-time check to ensure ToolHandler implements http.Handler
var _ http.Handler = (*ToolHandler)(nil)

// ServeHTTP implements http.Handler.
func (h *ToolHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := r.PathValue("name")

	args, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxToolRequestBytes))
	if err != nil {
		writeJSONError(ctx, w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.Registry.Call(ctx, name, json.RawMessage(args))
	if err != nil {
		h.writeError(ctx, w, name, err)
		return
	}

	writeJSON(ctx, w, result, http.StatusOK)
}

func (h *ToolHandler) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, h.Registry.List(), http.StatusOK)
}

// writeError maps a tool failure to a status. Authentication failures are
// reported as such and never as a failure of the tool itself.
func (h *ToolHandler) writeError(ctx context.Context, w http.ResponseWriter, name string, err error) {
	var (
		argErr *tools.ArgumentError
		apiErr *lark.APIError
	)
	switch {
	case errors.Is(err, tools.ErrUnknownTool):
		writeJSONError(ctx, w, err.Error(), http.StatusNotFound)
	case errors.As(err, &argErr):
		writeJSONError(ctx, w, err.Error(), http.StatusBadRequest)
	case isAuthFailure(err):
		slog.ErrorContext(ctx, "tool authentication failed", "tool", name, "error", err)
		writeJSONError(ctx, w, "authentication failed: "+err.Error(), http.StatusBadGateway)
	case errors.As(err, &apiErr):
		slog.WarnContext(ctx, "tool rejected by open API", "tool", name, "code", apiErr.Code, "msg", apiErr.Msg)
		writeJSON(ctx, w, ErrorResponse{Error: apiErr.Error(), Code: apiErr.Code}, http.StatusBadGateway)
	case errors.Is(err, context.Canceled):
		// client went away
	default:
		slog.ErrorContext(ctx, "tool failed", "tool", name, "error", err)
		writeJSONError(ctx, w, err.Error(), http.StatusBadGateway)
	}
}

// isAuthFailure reports whether err stems from obtaining a tenant access token.
func isAuthFailure(err error) bool {
	var (
		authErr   *tenanttoken.AuthError
		rejection *tenanttoken.RejectionError
	)
	return errors.As(err, &authErr) ||
		errors.As(err, &rejection) ||
		errors.Is(err, tenanttoken.ErrMissingCredentials) ||
		errors.Is(err, tenanttoken.ErrTransport) ||
		errors.Is(err, tenanttoken.ErrMalformedResponse)
}
