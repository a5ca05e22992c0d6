package http

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joshdurbin/dynamic-qr/internal/domain"
	"github.com/joshdurbin/dynamic-qr/internal/service"
)

// Visitor identity cookies set on the scan path.
const (
	contactCookie = "fq_contact_id"
	sessionCookie = "fq_session_id"

	contactCookieMaxAge = 365 * 24 * 60 * 60
)

// Handler holds the HTTP handlers for the QR engine
type Handler struct {
	qr        service.QRService
	serverURL string
}

// NewHandler creates a new HTTP handler
func NewHandler(qr service.QRService, serverURL string) *Handler {
	return &Handler{
		qr:        qr,
		serverURL: strings.TrimRight(serverURL, "/"),
	}
}

// codeResponse decorates a QR code with its derived URLs
type codeResponse struct {
	*domain.QRCode
	ScanURL  string `json:"scan_url"`
	ImageURL string `json:"image_url"`
}

func (h *Handler) codeResponse(code *domain.QRCode) codeResponse {
	return codeResponse{
		QRCode:   code,
		ScanURL:  h.serverURL + "/r/" + code.Token,
		ImageURL: h.serverURL + "/api/qr/" + code.ID + "/image",
	}
}

// CreateQR handles POST /api/qr
func (h *Handler) CreateQR(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[ERROR] Invalid JSON in create request: %v", err)
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.DefaultURL == "" {
		http.Error(w, "default_redirect_url is required", http.StatusBadRequest)
		return
	}

	code, err := h.qr.Create(r.Context(), &req)
	if err != nil {
		h.writeError(w, "create qr code", err)
		return
	}

	h.writeJSON(w, http.StatusCreated, h.codeResponse(code))
}

// ListQR handles GET /api/qr
func (h *Handler) ListQR(w http.ResponseWriter, r *http.Request) {
	filter := domain.ListFilter{
		CampaignID:   r.URL.Query().Get("campaign_id"),
		State:        domain.State(r.URL.Query().Get("state")),
		JourneyState: domain.JourneyState(r.URL.Query().Get("journey_state")),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		filter.Limit = limit
	}

	codes, err := h.qr.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, "list qr codes", err)
		return
	}

	responses := make([]codeResponse, len(codes))
	for i, code := range codes {
		responses[i] = h.codeResponse(code)
	}

	h.writeJSON(w, http.StatusOK, responses)
}

// GetQR handles GET /api/qr/{id}
func (h *Handler) GetQR(w http.ResponseWriter, r *http.Request, id string) {
	code, err := h.qr.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, "get qr code", err)
		return
	}

	h.writeJSON(w, http.StatusOK, h.codeResponse(code))
}

// UpdateQR handles PATCH /api/qr/{id}
func (h *Handler) UpdateQR(w http.ResponseWriter, r *http.Request, id string) {
	var req domain.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[ERROR] Invalid JSON in update request: %v", err)
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	code, err := h.qr.Update(r.Context(), id, &req)
	if err != nil {
		h.writeError(w, "update qr code", err)
		return
	}

	h.writeJSON(w, http.StatusOK, h.codeResponse(code))
}

// ActivateQR handles POST /api/qr/{id}/activate
func (h *Handler) ActivateQR(w http.ResponseWriter, r *http.Request, id string) {
	code, err := h.qr.Activate(r.Context(), id)
	if err != nil {
		h.writeError(w, "activate qr code", err)
		return
	}

	h.writeJSON(w, http.StatusOK, h.codeResponse(code))
}

// CreateVersion handles POST /api/qr/{id}/versions
func (h *Handler) CreateVersion(w http.ResponseWriter, r *http.Request, id string) {
	var req domain.VersionCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[ERROR] Invalid JSON in version request: %v", err)
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	code, err := h.qr.CreateVersion(r.Context(), id, &req)
	if err != nil {
		h.writeError(w, "create version", err)
		return
	}

	h.writeJSON(w, http.StatusCreated, h.codeResponse(code))
}

// GetAnalytics handles GET /api/qr/{id}/analytics
func (h *Handler) GetAnalytics(w http.ResponseWriter, r *http.Request, id string) {
	analytics, err := h.qr.Analytics(r.Context(), id)
	if err != nil {
		h.writeError(w, "get analytics", err)
		return
	}

	h.writeJSON(w, http.StatusOK, analytics)
}

// GetImage handles GET /api/qr/{id}/image
func (h *Handler) GetImage(w http.ResponseWriter, r *http.Request, id string) {
	size := 0
	if raw := r.URL.Query().Get("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "size must be an integer", http.StatusBadRequest)
			return
		}
		size = parsed
	}

	png, err := h.qr.Image(r.Context(), id, size)
	if err != nil {
		h.writeError(w, "render qr image", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(png); err != nil {
		log.Printf("Error writing image response: %v", err)
	}
}

// CampaignAnalytics handles GET /api/campaigns/{id}/analytics
func (h *Handler) CampaignAnalytics(w http.ResponseWriter, r *http.Request, campaignID string) {
	analytics, err := h.qr.CampaignAnalytics(r.Context(), campaignID)
	if err != nil {
		h.writeError(w, "get campaign analytics", err)
		return
	}

	h.writeJSON(w, http.StatusOK, analytics)
}

// CampaignCodes handles GET /api/campaigns/{id}/qr
func (h *Handler) CampaignCodes(w http.ResponseWriter, r *http.Request, campaignID string) {
	codes, err := h.qr.List(r.Context(), domain.ListFilter{CampaignID: campaignID})
	if err != nil {
		h.writeError(w, "list campaign qr codes", err)
		return
	}

	responses := make([]codeResponse, len(codes))
	for i, code := range codes {
		responses[i] = h.codeResponse(code)
	}

	h.writeJSON(w, http.StatusOK, responses)
}

// Scan handles GET /r/{token} - resolves the scan and redirects
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	token := strings.TrimPrefix(r.URL.Path, "/r/")
	if token == "" || strings.Contains(token, "/") {
		http.NotFound(w, r)
		return
	}

	visitorID, newVisitor := h.visitorID(r)
	sessionID, newSession := h.sessionID(r)

	req := &domain.ScanRequest{
		VisitorID:  visitorID,
		UserAgent:  r.UserAgent(),
		IPAddress:  clientIP(r),
		Location:   scanLocation(r),
		Referrer:   r.Referer(),
		DeviceType: deviceType(r.UserAgent()),
		SessionID:  sessionID,
	}

	destination, _, err := h.qr.ProcessScan(r.Context(), token, req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			http.NotFound(w, r)
		case errors.Is(err, domain.ErrExpired):
			http.Error(w, "This QR code has expired", http.StatusGone)
		case errors.Is(err, domain.ErrNotActive):
			http.Error(w, "This QR code is not active", http.StatusConflict)
		default:
			log.Printf("[ERROR] Failed to process scan for token '%s': %v", token, err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	if newVisitor {
		http.SetCookie(w, &http.Cookie{
			Name:     contactCookie,
			Value:    visitorID,
			Path:     "/",
			MaxAge:   contactCookieMaxAge,
			HttpOnly: true,
		})
	}
	if newSession {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    sessionID,
			Path:     "/",
			HttpOnly: true,
		})
	}

	http.Redirect(w, r, destination, http.StatusFound)
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// QRHandler handles both POST /api/qr and GET /api/qr
func (h *Handler) QRHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.CreateQR(w, r)
	case http.MethodGet:
		h.ListQR(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// QRDetailHandler dispatches /api/qr/{id} and its sub-resources
func (h *Handler) QRDetailHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/qr/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "QR code id is required", http.StatusBadRequest)
		return
	}
	id := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.GetQR(w, r, id)
	case len(parts) == 1 && (r.Method == http.MethodPatch || r.Method == http.MethodPut):
		h.UpdateQR(w, r, id)
	case len(parts) == 2 && parts[1] == "activate" && r.Method == http.MethodPost:
		h.ActivateQR(w, r, id)
	case len(parts) == 2 && parts[1] == "versions" && r.Method == http.MethodPost:
		h.CreateVersion(w, r, id)
	case len(parts) == 2 && parts[1] == "analytics" && r.Method == http.MethodGet:
		h.GetAnalytics(w, r, id)
	case len(parts) == 2 && parts[1] == "image" && r.Method == http.MethodGet:
		h.GetImage(w, r, id)
	case len(parts) == 1 || len(parts) == 2:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		http.NotFound(w, r)
	}
}

// CampaignHandler dispatches /api/campaigns/{id} sub-resources
func (h *Handler) CampaignHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/campaigns/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}

	switch parts[1] {
	case "analytics":
		h.CampaignAnalytics(w, r, parts[0])
	case "qr":
		h.CampaignCodes(w, r, parts[0])
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// writeError maps domain sentinel errors to HTTP status codes
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotActive), errors.Is(err, domain.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrExpired):
		status = http.StatusGone
	}

	if status == http.StatusInternalServerError {
		log.Printf("[ERROR] Failed to %s: %v", op, err)
		http.Error(w, "Internal server error", status)
		return
	}

	http.Error(w, err.Error(), status)
}

// visitorID reads the contact cookie, minting a fresh id when absent
func (h *Handler) visitorID(r *http.Request) (string, bool) {
	if cookie, err := r.Cookie(contactCookie); err == nil && cookie.Value != "" {
		return cookie.Value, false
	}
	return uuid.NewString(), true
}

// sessionID reads the session cookie, minting a fresh id when absent
func (h *Handler) sessionID(r *http.Request) (string, bool) {
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value, false
	}
	return uuid.NewString(), true
}

// deviceType gives the coarse device classification used by device rules
func deviceType(userAgent string) string {
	if userAgent == "" {
		return ""
	}
	if strings.Contains(strings.ToLower(userAgent), "mobile") {
		return "mobile"
	}
	return "desktop"
}

// scanLocation collects geo attributes forwarded by an upstream proxy
func scanLocation(r *http.Request) map[string]string {
	location := make(map[string]string)
	for header, key := range map[string]string{
		"X-Geo-Country": "country",
		"X-Geo-Region":  "region",
		"X-Geo-City":    "city",
	} {
		if value := r.Header.Get(header); value != "" {
			location[key] = value
		}
	}
	if len(location) == 0 {
		return nil
	}
	return location
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
