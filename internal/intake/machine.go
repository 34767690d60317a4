// Package intake drives the step-by-step collection of a listing draft from a chat user.
package intake

import (
	"errors"
	"strings"
	"time"

	"github.com/spec-kit/marketplace-bot/internal/domain"
	apperrors "github.com/spec-kit/marketplace-bot/pkg/util/errorutil"
)

// State is a step of the intake flow.
type State string

const (
	StateAwaitingTitle       State = "awaiting_title"
	StateAwaitingDescription State = "awaiting_description"
	StateAwaitingPhoto       State = "awaiting_photo"
	StateAwaitingCategory    State = "awaiting_category"
	StateAwaitingShopPrice   State = "awaiting_shop_price"
	StateAwaitingMyPrice     State = "awaiting_my_price"
	StateAwaitingQuantity    State = "awaiting_quantity"
	StateComplete            State = "complete"
)

// ErrSessionComplete is returned when input arrives for a session that already finished.
var ErrSessionComplete = errors.New("intake session already complete")

// InputKind distinguishes what the user sent.
type InputKind int

const (
	InputText InputKind = iota + 1
	InputMedia
	InputSkip
)

// Input is one message from the user while a session is active.
type Input struct {
	Kind     InputKind
	Text     string
	MediaRef string
}

// Text builds a text input.
func Text(s string) Input { return Input{Kind: InputText, Text: s} }

// Media builds a media input carrying the transport's reference to the uploaded file.
func Media(ref string) Input { return Input{Kind: InputMedia, MediaRef: ref} }

// Skip builds the explicit "no photo" input.
func Skip() Input { return Input{Kind: InputSkip} }

// CategoryResolver maps user text to a category key.
type CategoryResolver func(input string) (domain.Category, bool)

// ResolveCategoryKey accepts an exact category key, ignoring case and surrounding space.
func ResolveCategoryKey(input string) (domain.Category, bool) {
	c := domain.Category(strings.ToLower(strings.TrimSpace(input)))
	return c, c.Valid()
}

// Session is the in-flight intake of one user.
type Session struct {
	UserID    int64        `json:"user_id"`
	State     State        `json:"state"`
	Draft     domain.Draft `json:"draft"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// NewSession starts a fresh session awaiting the title.
func NewSession(userID int64, now time.Time) *Session {
	return &Session{UserID: userID, State: StateAwaitingTitle, UpdatedAt: now}
}

// Apply consumes one input. Valid input fills the draft and advances the state; invalid input
// returns an INVALID_DRAFT error and leaves the session untouched.
func (s *Session) Apply(in Input, resolve CategoryResolver) error {
	if resolve == nil {
		resolve = ResolveCategoryKey
	}

	switch s.State {
	case StateAwaitingTitle:
		text, err := requireText(in, "title")
		if err != nil {
			return err
		}
		s.Draft.Title = text
		s.State = StateAwaitingDescription

	case StateAwaitingDescription:
		text, err := requireText(in, "description")
		if err != nil {
			return err
		}
		s.Draft.Description = text
		s.State = StateAwaitingPhoto

	case StateAwaitingPhoto:
		switch in.Kind {
		case InputMedia:
			if strings.TrimSpace(in.MediaRef) == "" {
				return apperrors.NewInvalidDraft("photo", "empty media reference")
			}
			ref := in.MediaRef
			s.Draft.PhotoRef = &ref
		case InputSkip:
			s.Draft.PhotoRef = nil
		default:
			return apperrors.NewInvalidDraft("photo", "send a photo or skip")
		}
		s.State = StateAwaitingCategory

	case StateAwaitingCategory:
		text, err := requireText(in, "category")
		if err != nil {
			return err
		}
		category, ok := resolve(text)
		if !ok {
			return apperrors.NewInvalidDraft("category", "unknown category")
		}
		s.Draft.Category = category
		s.State = StateAwaitingShopPrice

	case StateAwaitingShopPrice:
		amount, err := parsePrice(in, "shop_price")
		if err != nil {
			return err
		}
		s.Draft.ShopPrice = amount
		s.State = StateAwaitingMyPrice

	case StateAwaitingMyPrice:
		amount, err := parsePrice(in, "sell_price")
		if err != nil {
			return err
		}
		s.Draft.SellPrice = amount
		s.State = StateAwaitingQuantity

	case StateAwaitingQuantity:
		text, err := requireText(in, "quantity")
		if err != nil {
			return err
		}
		quantity, err := domain.ParseQuantity(text)
		if err != nil {
			return apperrors.NewInvalidDraft("quantity", "must be a whole number greater than zero")
		}
		s.Draft.Quantity = quantity
		s.State = StateComplete

	case StateComplete:
		return ErrSessionComplete

	default:
		return errors.New("unknown intake state " + string(s.State))
	}
	return nil
}

func requireText(in Input, field string) (string, error) {
	if in.Kind != InputText {
		return "", apperrors.NewInvalidDraft(field, "expected text")
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return "", apperrors.NewInvalidDraft(field, "must not be empty")
	}
	return text, nil
}

func parsePrice(in Input, field string) (domain.Amount, error) {
	text, err := requireText(in, field)
	if err != nil {
		return 0, err
	}
	amount, err := domain.ParseAmount(text)
	if err != nil {
		return 0, apperrors.NewInvalidDraft(field, "must be a positive number")
	}
	return amount, nil
}
