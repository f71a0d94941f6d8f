package notification_api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"ms-reconciliation/internal/auth"
	"ms-reconciliation/internal/logger"
	"ms-reconciliation/internal/models"
	"ms-reconciliation/internal/notification"
	"ms-reconciliation/internal/utils"
)

// accepted is the exact acknowledgement body the provider expects. It goes
// back for every well-formed webhook call, whatever happened to the items:
// per-item failures are recorded and retried by the provider, never
// surfaced as a delivery failure.
const accepted = "[accepted]"

type Handler struct {
	Service   *notification.ReconciliationService
	Logger    *logger.Logger
	StoreMode string
}

func NewHandler(service *notification.ReconciliationService, log *logger.Logger, storeMode string) *Handler {
	return &Handler{
		Service:   service,
		Logger:    log,
		StoreMode: storeMode,
	}
}

// HandleNotifications is the provider webhook. Every item in the batch is
// reconciled on its own goroutine; the response waits for all of them.
func (h *Handler) HandleNotifications(c *gin.Context) {
	var req models.NotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid notification payload", err.Error()))
		return
	}

	h.Logger.Info("WEBHOOK", fmt.Sprintf("Received %d notification item(s) (live=%s)", len(req.NotificationItems), req.Live))
	h.processItems(c.Request.Context(), req.NotificationItems)

	c.JSON(http.StatusOK, gin.H{"notificationResponse": accepted})
}

// HandleNotificationsChi is the Chi-compatible version of HandleNotifications
func (h *Handler) HandleNotificationsChi(w http.ResponseWriter, r *http.Request) {
	var req models.NotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, "Invalid notification payload", err.Error(), http.StatusBadRequest)
		return
	}

	h.Logger.Info("WEBHOOK", fmt.Sprintf("Received %d notification item(s) (live=%s)", len(req.NotificationItems), req.Live))
	h.processItems(r.Context(), req.NotificationItems)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"notificationResponse": accepted}); err != nil {
		h.Logger.Error("WEBHOOK", fmt.Sprintf("Error writing response: %v", err))
	}
}

// processItems fans the batch out, one goroutine per item, and waits for
// all of them. Outcomes are logged and published inside the service; a
// failed item never affects its siblings. The provider redelivers on its
// own schedule, so a client disconnect must not cancel reconciliations
// already underway; only the engine's retry budgets bound them.
func (h *Handler) processItems(ctx context.Context, items []models.NotificationItem) {
	ctx = context.WithoutCancel(ctx)
	var wg sync.WaitGroup
	for i := range items {
		n := items[i].NotificationRequestItem
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Service.ProcessNotification(ctx, &n)
		}()
	}
	wg.Wait()
}

// Health reports liveness and which store the service reconciles against.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"store_mode": h.StoreMode,
	})
}

// HealthChi is the Chi-compatible version of Health
func (h *Handler) HealthChi(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status":     "ok",
		"store_mode": h.StoreMode,
	}); err != nil {
		h.Logger.Error("HEALTH", fmt.Sprintf("Error writing response: %v", err))
	}
}

// ReplayNotificationChi reruns the engine for a single notification item,
// synchronously, and returns the outcome. Sits behind the OIDC middleware;
// the caller subject goes into the audit log.
func (h *Handler) ReplayNotificationChi(w http.ResponseWriter, r *http.Request) {
	caller := "unknown"
	if token, err := auth.ExtractTokenFromRequest(r); err == nil {
		if sub, err := auth.ExtractSubjectFromJWT(token); err == nil {
			caller = sub
		}
	}

	var item models.NotificationItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		h.writeErrorResponse(w, "Invalid notification item", err.Error(), http.StatusBadRequest)
		return
	}
	n := &item.NotificationRequestItem
	if n.PSPReference == "" && n.MerchantReference == "" {
		h.writeErrorResponse(w, "Invalid notification item", "NotificationRequestItem is empty", http.StatusBadRequest)
		return
	}

	h.Logger.Info("ADMIN", fmt.Sprintf("Replay of notification %s [%s] requested by %s", n.PSPReference, n.EventCode, caller))

	if err := h.Service.ProcessNotification(r.Context(), n); err != nil {
		h.writeErrorResponse(w, "Replay failed", err.Error(), http.StatusUnprocessableEntity)
		return
	}

	h.writeSuccessResponse(w, "Notification reconciled", map[string]string{
		"pspReference": n.PSPReference,
		"eventCode":    n.EventCode,
	})
}

// Helper methods for consistent response formatting
func (h *Handler) writeErrorResponse(w http.ResponseWriter, message, details string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := map[string]interface{}{
		"status":  "error",
		"message": message,
		"details": details,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Error writing response: %v", err))
	}
}

func (h *Handler) writeSuccessResponse(w http.ResponseWriter, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	response := map[string]interface{}{
		"status":  "success",
		"message": message,
		"data":    data,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Error writing response: %v", err))
	}
}
