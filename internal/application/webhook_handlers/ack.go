package webhook_handlers

import (
	"encoding/json"
	"net/http"
)

// maxNotificationBytes caps inbound webhook bodies. Providers in the catalog
// stay well under this; anything larger is not a payment notification.
const maxNotificationBytes = 1 << 20

type ackResponse struct {
	Received  bool `json:"received"`
	Verified  bool `json:"verified"`
	Processed bool `json:"processed"`
}

type rejectResponse struct {
	Received bool   `json:"received"`
	Error    string `json:"error"`
}

// acknowledge closes a webhook exchange with 200 regardless of the verdict.
// Providers retry on non-2xx; a rejection or internal failure must never
// trigger a retry storm.
func acknowledge(w http.ResponseWriter, verified, processed bool) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(ackResponse{
		Received:  true,
		Verified:  verified,
		Processed: processed,
	})
}

// rejectMalformed closes the exchange with 400. Only structural defects the
// provider should not retry earn this path.
func rejectMalformed(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(rejectResponse{
		Received: false,
		Error:    reason,
	})
}
