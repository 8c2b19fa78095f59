// Package gallery lists saved photos and deletes them after confirmation.
package gallery

import (
	"context"
	"fmt"
	"sync"

	"github.com/andresmejia3/goober/internal/api"
	"github.com/andresmejia3/goober/internal/logger"
	"github.com/andresmejia3/goober/internal/metrics"
	"github.com/andresmejia3/goober/internal/types"
)

const (
	DeletePrompt     = "Are you sure you want to delete this photo?"
	MsgDeleted       = "Photo deleted successfully"
	MsgDeleteFailed  = "Error deleting photo"
	EmptyHeading     = "No photos yet"
	EmptyBody        = "Go back to the detector and save some photos!"
	EmptyCountLabel  = "No photos saved"
	ErrorHeading     = "Error loading photos"
	ErrorBody        = "Please try again."
	serverErrorLabel = "Error: "
)

// Service is the subset of the photo service the gallery needs.
type Service interface {
	ListPhotos(ctx context.Context) ([]types.Photo, error)
	DeletePhoto(ctx context.Context, id int) (*types.MessageResult, error)
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// Notifier shows the single user-facing message.
type Notifier interface {
	Show(text string, isError bool)
}

// Panel is what the gallery body currently shows.
type Panel int

const (
	PanelLoading Panel = iota
	PanelPhotos
	PanelEmpty
	PanelError
)

func (p Panel) String() string {
	switch p {
	case PanelLoading:
		return "loading"
	case PanelPhotos:
		return "photos"
	case PanelEmpty:
		return "empty"
	case PanelError:
		return "error"
	}
	return "unknown"
}

// Card is one rendered photo.
type Card struct {
	PhotoID   int
	Title     string
	Filename  string
	ImageURL  string
	SavedAt   string
	FaceCount int
}

// FacesLabel is the card's face count line.
func (c Card) FacesLabel() string {
	return fmt.Sprintf("Faces detected: %d", c.FaceCount)
}

// View is the gallery page state. It is rebuilt from scratch on every load.
type View struct {
	CountLabel string
	Panel      Panel
	Heading    string
	Body       string
	Cards      []Card
}

// Card finds the card rendered for a photo id.
func (v View) Card(id int) (Card, bool) {
	for _, c := range v.Cards {
		if c.PhotoID == id {
			return c, true
		}
	}
	return Card{}, false
}

// CountLabel formats the photo count line.
func CountLabel(n int) string {
	switch n {
	case 0:
		return EmptyCountLabel
	case 1:
		return "1 photo saved"
	default:
		return fmt.Sprintf("%d photos saved", n)
	}
}

// DeleteOutcome tells the caller what DeletePhoto did.
type DeleteOutcome int

const (
	// DeleteCancelled means the user declined; nothing was sent.
	DeleteCancelled DeleteOutcome = iota
	DeleteSucceeded
	// DeleteRejected means the service answered with an error field.
	DeleteRejected
	// DeleteFailed means the request never got an answer.
	DeleteFailed
)

func (o DeleteOutcome) String() string {
	switch o {
	case DeleteCancelled:
		return "cancelled"
	case DeleteSucceeded:
		return "deleted"
	case DeleteRejected:
		return "rejected"
	case DeleteFailed:
		return "failed"
	}
	return "unknown"
}

// Option configures a Controller.
type Option func(*Controller)

// WithPhotoBaseURL makes cards carry an absolute image URL.
func WithPhotoBaseURL(base string) Option {
	return func(c *Controller) { c.photoBase = base }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// Controller owns the gallery view.
type Controller struct {
	service   Service
	confirm   Confirmer
	notify    Notifier
	metrics   *metrics.Metrics
	photoBase string

	mu   sync.Mutex
	view View
}

func New(service Service, confirm Confirmer, notify Notifier, opts ...Option) *Controller {
	c := &Controller{
		service: service,
		confirm: confirm,
		notify:  notify,
		view:    View{Panel: PanelLoading},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// View returns the current view.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// LoadPhotos fetches the photo list and rebuilds the view. On failure the view
// shows the error panel, keeps the previous count label and the error is returned.
func (c *Controller) LoadPhotos(ctx context.Context) (View, error) {
	c.mu.Lock()
	prevCount := c.view.CountLabel
	c.view = View{CountLabel: prevCount, Panel: PanelLoading}
	c.mu.Unlock()

	photos, err := c.service.ListPhotos(ctx)
	if err != nil {
		logger.Warn("Gallery", "loading photos: %v", err)
		v := View{
			CountLabel: prevCount,
			Panel:      PanelError,
			Heading:    ErrorHeading,
			Body:       ErrorBody,
		}
		c.setView(v)
		return v, err
	}

	v := c.build(photos)
	c.setView(v)
	logger.Debug("Gallery", "loaded %d photos", len(photos))
	return v, nil
}

func (c *Controller) build(photos []types.Photo) View {
	if len(photos) == 0 {
		return View{
			CountLabel: EmptyCountLabel,
			Panel:      PanelEmpty,
			Heading:    EmptyHeading,
			Body:       EmptyBody,
		}
	}

	cards := make([]Card, 0, len(photos))
	for _, p := range photos {
		card := Card{
			PhotoID:   p.ID,
			Title:     fmt.Sprintf("Photo %d", p.ID),
			Filename:  p.Filename,
			SavedAt:   p.SavedAt,
			FaceCount: p.FaceCount,
		}
		if c.photoBase != "" {
			card.ImageURL = c.photoBase + "/photos/" + p.Filename
		}
		if t, err := p.SavedTime(); err == nil {
			card.SavedAt = t.Format("2006-01-02 15:04:05")
		}
		cards = append(cards, card)
	}
	return View{
		CountLabel: CountLabel(len(photos)),
		Panel:      PanelPhotos,
		Cards:      cards,
	}
}

func (c *Controller) setView(v View) {
	c.mu.Lock()
	c.view = v
	c.mu.Unlock()
}

// DeletePhoto confirms with the user, then deletes exactly once. It does not
// reload the list.
func (c *Controller) DeletePhoto(ctx context.Context, id int) (DeleteOutcome, error) {
	if !c.confirm.Confirm(ctx, DeletePrompt) {
		c.metrics.ObserveDelete(metrics.OutcomeCancelled)
		logger.Debug("Gallery", "delete of photo %d declined", id)
		return DeleteCancelled, nil
	}

	res, err := c.service.DeletePhoto(ctx, id)
	if err != nil {
		c.metrics.ObserveDelete(metrics.OutcomeTransport)
		logger.Warn("Gallery", "deleting photo %d: %v", id, err)
		c.notify.Show(MsgDeleteFailed, true)
		return DeleteFailed, err
	}
	if res.Error != "" {
		c.metrics.ObserveDelete(metrics.OutcomeServerError)
		c.notify.Show(serverErrorLabel+res.Error, true)
		return DeleteRejected, &api.ServiceError{Op: "delete_photo", Message: res.Error}
	}

	c.metrics.ObserveDelete(metrics.OutcomeOK)
	c.notify.Show(MsgDeleted, false)
	return DeleteSucceeded, nil
}
