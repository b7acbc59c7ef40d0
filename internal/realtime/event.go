// Package realtime fans typed events out to every connected websocket
// client. There is no replay: a client that connects after an event was
// published must reload state through the list endpoints.
package realtime

// Event is the wire envelope pushed to subscribers.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

const (
	EventMenuItemAdded    = "MENU_ITEM_ADDED"
	EventMenuItemUpdated  = "MENU_ITEM_UPDATED"
	EventMenuItemDeleted  = "MENU_ITEM_DELETED"
	EventMenuStatusUpdate = "MENU_STATUS_UPDATE"
	EventOrderCreated     = "ORDER_CREATED"
	EventOrderUpdated     = "ORDER_UPDATED"
	EventOrderDeleted     = "ORDER_DELETED"
	EventOrderStatus      = "ORDER_STATUS_CHANGED"
	EventOrdersCleared    = "ORDERS_CLEARED"
)

// MenuStatusPayload is the payload of MENU_STATUS_UPDATE. Name is included
// so clients can match affected order line items without a second fetch.
type MenuStatusPayload struct {
	ID          string `json:"id"`
	IsAvailable bool   `json:"is_available"`
	Name        string `json:"name"`
}

// IDPayload is the payload of events that only reference an entity.
type IDPayload struct {
	ID string `json:"id"`
}

// ClearedPayload is the payload of ORDERS_CLEARED.
type ClearedPayload struct {
	Table  string `json:"table"`
	Status string `json:"status"`
}
