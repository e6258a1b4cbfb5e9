package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clipstage/share-access-service/internal/application"
	"github.com/clipstage/share-access-service/internal/domain"
)

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ready")
}

// requestContext assembles the caller facts every access operation
// needs: client IP, cookies and any bearer token that rode along.
func requestContext(r *http.Request) application.RequestContext {
	cookies := map[string]string{}
	for _, c := range r.Cookies() {
		cookies[c.Name] = c.Value
	}
	return application.RequestContext{
		ClientIP:    readIP(r),
		Cookies:     cookies,
		BearerToken: bearerTokenFromHeader(r.Header.Get("Authorization")),
	}
}

func shareIDFromURL(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "share_id"))
	if err != nil {
		return uuid.Nil, errors.New("invalid share_id")
	}
	return id, nil
}

func (h *Handler) verifyPassword(w http.ResponseWriter, r *http.Request) {
	shareID, err := shareIDFromURL(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	var req struct {
		Passcode string `json:"passcode"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	res, err := h.service.VerifyPassword(r.Context(), requestContext(r), shareID, req.Passcode)
	if err != nil {
		writeDomainError(r.Context(), w, "verify_password", err)
		return
	}
	h.writeVerifyResult(w, res)
}

func (h *Handler) requestOTP(w http.ResponseWriter, r *http.Request) {
	shareID, err := shareIDFromURL(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	ack, err := h.service.RequestOTP(r.Context(), requestContext(r), shareID, req.Email)
	if err != nil {
		writeDomainError(r.Context(), w, "request_otp", err)
		return
	}
	writeMessage(w, http.StatusOK, ack.Message)
}

func (h *Handler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	shareID, err := shareIDFromURL(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	res, err := h.service.VerifyOTP(r.Context(), requestContext(r), shareID, req.Email, req.Code)
	if err != nil {
		writeDomainError(r.Context(), w, "verify_otp", err)
		return
	}
	h.writeVerifyResult(w, res)
}

func (h *Handler) writeVerifyResult(w http.ResponseWriter, res application.VerifyResult) {
	if res.SessionCreated {
		h.setSessionCookie(w, res.SessionID)
	}
	payload := map[string]any{
		"share_token": res.ShareToken,
		"permissions": res.Permissions,
		"guest":       res.Guest,
	}
	if res.ExpiresIn > 0 {
		payload["expires_in"] = res.ExpiresIn
	}
	writeSuccess(w, http.StatusOK, payload)
}

func (h *Handler) authStatus(w http.ResponseWriter, r *http.Request) {
	shareID, err := shareIDFromURL(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	status, err := h.service.GetAuthStatus(r.Context(), requestContext(r), shareID)
	if err != nil {
		writeDomainError(r.Context(), w, "auth_status", err)
		return
	}

	payload := map[string]any{
		"share_id":      status.ShareID,
		"requires_auth": status.RequiresAuth,
		"auth_mode":     strings.ToLower(string(status.AuthMode)),
		"authenticated": status.Authenticated,
	}
	if status.Authenticated {
		payload["method"] = status.Method
		payload["permissions"] = status.Permissions
		payload["guest"] = status.Guest
	}
	writeSuccess(w, http.StatusOK, payload)
}

func (h *Handler) issueContentToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ShareID string `json:"share_id"`
		AssetID string `json:"asset_id"`
		Quality string `json:"quality"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	res, err := h.service.IssueContentToken(r.Context(), requestContext(r), application.ContentTokenRequest{
		ShareID: req.ShareID,
		AssetID: req.AssetID,
		Quality: req.Quality,
	})
	if err != nil {
		writeDomainError(r.Context(), w, "issue_content_token", err)
		return
	}
	if res.SessionCreated {
		h.setSessionCookie(w, res.SessionID)
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"content_token":    res.Token,
		"expires_in":       res.ExpiresIn,
		"quality":          res.Quality,
		"download_allowed": res.DownloadAllowed,
	})
}

func (h *Handler) revokeSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RevokeCurrentSession(r.Context(), requestContext(r)); err != nil {
		writeDomainError(r.Context(), w, "revoke_session", err)
		return
	}
	h.clearSessionCookie(w)
	writeMessage(w, http.StatusOK, "session ended")
}

type securityEventItem struct {
	EventID    uuid.UUID      `json:"event_id"`
	Type       string         `json:"event_type"`
	Severity   string         `json:"severity"`
	ShareID    *uuid.UUID     `json:"share_id,omitempty"`
	IPAddress  string         `json:"ip_address,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	WasBlocked bool           `json:"was_blocked"`
	OccurredAt time.Time      `json:"occurred_at"`
}

func (h *Handler) listSecurityEvents(w http.ResponseWriter, r *http.Request) {
	q := application.SecurityEventQuery{
		Severity: r.URL.Query().Get("severity"),
		ShareID:  r.URL.Query().Get("share_id"),
		Type:     r.URL.Query().Get("type"),
		Limit:    parseIntDefault(r.URL.Query().Get("limit"), 0),
	}
	if days := parseIntDefault(r.URL.Query().Get("days"), 0); days > 0 {
		q.Since = time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	}

	events, err := h.service.ListSecurityEvents(r.Context(), q)
	if err != nil {
		writeDomainError(r.Context(), w, "list_security_events", err)
		return
	}

	items := make([]securityEventItem, 0, len(events))
	for _, e := range events {
		items = append(items, toSecurityEventItem(e))
	}
	writeSuccess(w, http.StatusOK, map[string]any{"events": items})
}

func toSecurityEventItem(e domain.SecurityEvent) securityEventItem {
	return securityEventItem{
		EventID:    e.EventID,
		Type:       e.Type,
		Severity:   string(e.Severity),
		ShareID:    e.ShareID,
		IPAddress:  e.IPAddress,
		Details:    e.Details,
		WasBlocked: e.WasBlocked,
		OccurredAt: e.OccurredAt,
	}
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}

func parseIntDefault(raw string, fallback int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func readIP(r *http.Request) string {
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	host := strings.TrimSpace(r.RemoteAddr)
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}
