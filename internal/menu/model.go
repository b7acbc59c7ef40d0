package menu

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

var ErrNotFound = errors.New("menu item not found")

// ValidationError reports a missing required field on a create request.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// Item is a sellable dish. Orders reference items by Name, not ID, so a
// rename does not relink historical orders.
type Item struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Image       string `json:"image,omitempty"`
	IsAvailable bool   `json:"is_available"`
}

// Upload is an incoming image file for a create/update request.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

var lastMilli atomic.Int64

// nowMilli returns a strictly increasing unix-millisecond value so that
// ids minted in the same millisecond never collide.
func nowMilli() int64 {
	for {
		now := time.Now().UnixMilli()
		last := lastMilli.Load()
		if now <= last {
			now = last + 1
		}
		if lastMilli.CompareAndSwap(last, now) {
			return now
		}
	}
}

func newID() string {
	return fmt.Sprintf("menu_%d", nowMilli())
}
