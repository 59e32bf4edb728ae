package catalog

import (
	"encoding/json"
	"time"
)

const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// ProductEvent announces a committed catalog change. Product is nil for
// deletions; Actor is empty when writes are unauthenticated.
type ProductEvent struct {
	Type    string    `json:"type"`
	ID      string    `json:"id"`
	Product *Product  `json:"product,omitempty"`
	Actor   string    `json:"actor,omitempty"`
	At      time.Time `json:"at"`
}

func (e ProductEvent) Subject() string { return "product." + e.Type }

func (e ProductEvent) Payload() ([]byte, error) { return json.Marshal(e) }
