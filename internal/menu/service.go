package menu

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"shabu-order/internal/realtime"
)

// ImageStore is the blob storage the menu needs: upload a file and get back
// a stable URI, delete by that URI. Deletion is advisory; a failure never
// blocks the menu mutation.
type ImageStore interface {
	Upload(ctx context.Context, filename, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, ref string) error
}

// Publisher pushes an event to all live subscribers.
type Publisher interface {
	Publish(evt realtime.Event)
}

// OrderReconciler retracts a now-unavailable item from all pending orders.
type OrderReconciler interface {
	Reconcile(itemName string)
}

// Service owns menu mutations and the availability policy around them.
type Service struct {
	repo   Repository
	images ImageStore
	pub    Publisher
	rec    OrderReconciler
	coll   *collate.Collator

	// serializes toggles so a flip and its reconciliation form one unit
	toggleMu sync.Mutex
}

func NewService(repo Repository, images ImageStore, pub Publisher, rec OrderReconciler) *Service {
	return &Service{
		repo:   repo,
		images: images,
		pub:    pub,
		rec:    rec,
		// menu names are Thai; byte order would interleave them wrongly
		coll: collate.New(language.Thai),
	}
}

// List returns a name-ordered snapshot of the menu.
func (s *Service) List(ctx context.Context) ([]Item, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return s.coll.CompareString(items[i].Name, items[j].Name) < 0
	})
	return items, nil
}

func (s *Service) Create(ctx context.Context, name, category string, image *Upload) (*Item, error) {
	name = strings.TrimSpace(name)
	category = strings.TrimSpace(category)
	if name == "" {
		return nil, &ValidationError{Field: "name"}
	}
	if category == "" {
		return nil, &ValidationError{Field: "category"}
	}

	imageURL := ""
	if image != nil {
		url, err := s.images.Upload(ctx, image.Filename, image.ContentType, image.Data)
		if err != nil {
			return nil, fmt.Errorf("upload image: %w", err)
		}
		imageURL = url
	}

	it := &Item{
		ID:          newID(),
		Name:        name,
		Category:    category,
		Image:       imageURL,
		IsAvailable: true,
	}
	if err := s.repo.Create(ctx, it); err != nil {
		return nil, err
	}
	s.pub.Publish(realtime.Event{Type: realtime.EventMenuItemAdded, Payload: it})
	return it, nil
}

func (s *Service) Update(ctx context.Context, id, name, category string, image *Upload) (*Item, error) {
	old, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	imageURL := old.Image
	if image != nil {
		if old.Image != "" {
			if err := s.images.Delete(ctx, old.Image); err != nil {
				log.Printf("[menu] delete old image %s failed: %v", old.Image, err)
			}
		}
		url, err := s.images.Upload(ctx, image.Filename, image.ContentType, image.Data)
		if err != nil {
			return nil, fmt.Errorf("upload image: %w", err)
		}
		imageURL = url
	}

	it := &Item{ID: id, Name: strings.TrimSpace(name), Category: strings.TrimSpace(category), Image: imageURL}
	if err := s.repo.Update(ctx, it); err != nil {
		return nil, err
	}
	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.pub.Publish(realtime.Event{Type: realtime.EventMenuItemUpdated, Payload: updated})
	return updated, nil
}

// Toggle flips availability. When the item goes out of stock the pending
// orders are reconciled before anyone is told about the new menu state, so
// every emitted event reflects a consistent post-mutation snapshot.
func (s *Service) Toggle(ctx context.Context, id string) (*Item, error) {
	s.toggleMu.Lock()
	defer s.toggleMu.Unlock()

	it, err := s.repo.Toggle(ctx, id)
	if err != nil {
		return nil, err
	}
	if !it.IsAvailable {
		s.rec.Reconcile(it.Name)
	}
	s.pub.Publish(realtime.Event{Type: realtime.EventMenuStatusUpdate, Payload: realtime.MenuStatusPayload{
		ID:          it.ID,
		IsAvailable: it.IsAvailable,
		Name:        it.Name,
	}})
	return it, nil
}

func (s *Service) Delete(ctx context.Context, id string) (*Item, error) {
	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	if removed.Image != "" {
		// the store row is the source of truth; blob cleanup is advisory
		if err := s.images.Delete(ctx, removed.Image); err != nil {
			log.Printf("[menu] delete image %s failed: %v", removed.Image, err)
		}
	}
	s.pub.Publish(realtime.Event{Type: realtime.EventMenuItemDeleted, Payload: realtime.IDPayload{ID: id}})
	return removed, nil
}
