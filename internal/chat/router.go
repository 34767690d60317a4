package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-bot/internal/domain"
	"github.com/spec-kit/marketplace-bot/internal/intake"
	"github.com/spec-kit/marketplace-bot/internal/service"
	apperrors "github.com/spec-kit/marketplace-bot/pkg/util/errorutil"
)

// Router maps inbound chat events to marketplace operations and replies through the Messenger.
type Router struct {
	users     *service.UserService
	listings  *service.ListingService
	intake    *intake.Manager
	messenger Messenger
	render    *Renderer
	logger    *zap.Logger
}

// RouterDependencies bundles collaborators for the router.
type RouterDependencies struct {
	Users     *service.UserService
	Listings  *service.ListingService
	Intake    *intake.Manager
	Messenger Messenger
	Renderer  *Renderer
	Logger    *zap.Logger
}

// NewRouter builds a Router.
func NewRouter(deps RouterDependencies) *Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	render := deps.Renderer
	if render == nil {
		render = NewRenderer(nil)
	}
	return &Router{
		users:     deps.Users,
		listings:  deps.Listings,
		intake:    deps.Intake,
		messenger: deps.Messenger,
		render:    render,
		logger:    logger,
	}
}

// Handle processes one inbound event. Domain failures are answered in chat and not returned;
// the returned error covers malformed events and infrastructure failures.
func (r *Router) Handle(ctx context.Context, event InboundEvent) error {
	if err := event.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}

	user, err := r.users.Touch(ctx, event.From.ID, event.From.DisplayName, event.From.Handle)
	if err != nil {
		return err
	}

	switch event.Kind {
	case EventUserInteracted:
		return r.send(ctx, user.ID, r.render.Welcome(user))
	case EventTextReceived:
		return r.handleText(ctx, user, strings.TrimSpace(event.Text))
	case EventMediaReceived:
		return r.handleMedia(ctx, user, event.MediaRef)
	case EventActionInvoked:
		action, err := ParseAction(event.Action)
		if err != nil {
			return apperrors.NewValidationError(err.Error(), nil)
		}
		return r.handleAction(ctx, user, action)
	}
	return nil
}

func (r *Router) handleText(ctx context.Context, user *domain.User, text string) error {
	if handled, err := r.handleCommand(ctx, user, text); handled || err != nil {
		return err
	}

	if _, err := r.intake.Active(ctx, user.ID); err == nil {
		in := intake.Text(text)
		if text == MenuSkipPhoto || strings.EqualFold(text, "/skip") {
			in = intake.Skip()
		}
		return r.feedIntake(ctx, user, in)
	} else if !errors.Is(err, intake.ErrNoSession) {
		return err
	}

	return r.send(ctx, user.ID, Message{
		Text:     "🤔 Unknown command. Use the menu below.",
		Keyboard: r.render.MainKeyboard(user.IsAdmin()),
	})
}

// handleCommand runs menu entries and slash commands. They take priority over an active intake.
func (r *Router) handleCommand(ctx context.Context, user *domain.User, text string) (bool, error) {
	switch {
	case text == "/start":
		return true, r.send(ctx, user.ID, r.render.Welcome(user))
	case text == "/cancel" || text == MenuCancel:
		return true, r.cancelIntake(ctx, user)
	case strings.HasPrefix(text, "/promote"):
		return true, r.promote(ctx, user, strings.TrimSpace(strings.TrimPrefix(text, "/promote")))
	case text == MenuMain:
		return true, r.send(ctx, user.ID, Message{Text: "🏠 Main menu", Keyboard: r.render.MainKeyboard(user.IsAdmin())})
	case text == MenuCatalog:
		return true, r.send(ctx, user.ID, r.render.CategoryPicker())
	case text == MenuAddListing:
		return true, r.startIntake(ctx, user)
	case text == MenuMyListings:
		return true, r.myListings(ctx, user)
	case text == MenuAdminPanel:
		return true, r.adminOnly(ctx, user, func() error {
			return r.send(ctx, user.ID, Message{Text: "⚙️ Admin panel", Keyboard: r.render.AdminKeyboard()})
		})
	case text == MenuPending:
		return true, r.pending(ctx, user)
	case text == MenuAddAdmin:
		return true, r.adminOnly(ctx, user, func() error {
			return r.send(ctx, user.ID, Message{Text: "👤 Send /promote followed by the user id, e.g. /promote 123456"})
		})
	case text == MenuStats:
		return true, r.stats(ctx, user)
	}
	return false, nil
}

func (r *Router) handleMedia(ctx context.Context, user *domain.User, mediaRef string) error {
	if _, err := r.intake.Active(ctx, user.ID); err != nil {
		if errors.Is(err, intake.ErrNoSession) {
			return r.send(ctx, user.ID, Message{
				Text:     "📸 To attach a photo, start a new listing first.",
				Keyboard: r.render.MainKeyboard(user.IsAdmin()),
			})
		}
		return err
	}
	return r.feedIntake(ctx, user, intake.Media(mediaRef))
}

func (r *Router) handleAction(ctx context.Context, user *domain.User, action Action) error {
	switch action.Verb {
	case ActionApprove:
		_, err := r.listings.Approve(ctx, action.ListingID, user.ID)
		return r.alertResult(ctx, user.ID, err, fmt.Sprintf("✅ Listing #%d approved", action.ListingID))
	case ActionReject:
		_, err := r.listings.Reject(ctx, action.ListingID, user.ID)
		return r.alertResult(ctx, user.ID, err, fmt.Sprintf("❌ Listing #%d rejected", action.ListingID))
	case ActionDetails:
		listing, owner, err := r.listings.Details(ctx, action.ListingID, user.ID)
		if err != nil {
			return r.alertResult(ctx, user.ID, err, "")
		}
		msg := r.render.Details(*listing, owner)
		if listing.PhotoRef != nil {
			return r.sendMedia(ctx, user.ID, *listing.PhotoRef, msg)
		}
		return r.send(ctx, user.ID, msg)
	case ActionContact:
		seller, err := r.listings.SellerContact(ctx, action.ListingID)
		if err != nil {
			return r.alertResult(ctx, user.ID, err, "")
		}
		if handle := seller.HandleOrEmpty(); handle != "" {
			return r.alert(ctx, user.ID, "Contact the seller: @"+handle)
		}
		return r.alert(ctx, user.ID, "The seller has no public username")
	case ActionBrowse:
		return r.browse(ctx, user, action.Category)
	}
	return nil
}

func (r *Router) startIntake(ctx context.Context, user *domain.User) error {
	session, err := r.intake.Start(ctx, user.ID)
	if err != nil {
		return err
	}
	return r.send(ctx, user.ID, r.render.Prompt(session.State))
}

func (r *Router) cancelIntake(ctx context.Context, user *domain.User) error {
	existed, err := r.intake.Cancel(ctx, user.ID)
	if err != nil {
		return err
	}
	text := "Nothing to cancel."
	if existed {
		text = "✖️ Listing creation cancelled."
	}
	return r.send(ctx, user.ID, Message{Text: text, Keyboard: r.render.MainKeyboard(user.IsAdmin())})
}

func (r *Router) feedIntake(ctx context.Context, user *domain.User, in intake.Input) error {
	out, err := r.intake.Handle(ctx, user.ID, in)
	if err != nil {
		if errors.Is(err, intake.ErrNoSession) {
			return r.send(ctx, user.ID, Message{Text: "Your listing draft expired. Please start again.",
				Keyboard: r.render.MainKeyboard(user.IsAdmin())})
		}
		r.logger.Error("intake input failed", zap.Int64("user_id", user.ID), zap.Error(err))
		return r.send(ctx, user.ID, Message{Text: "⚠️ Could not save your listing right now. Please send that again."})
	}

	switch {
	case out.Rejected != nil:
		prompt := r.render.Prompt(out.State)
		prompt.Text = "❌ " + rejectionReason(out.Rejected) + "\n" + prompt.Text
		return r.send(ctx, user.ID, prompt)
	case out.Listing != nil:
		return r.send(ctx, user.ID, r.render.Submitted(out.Listing, user.IsAdmin()))
	default:
		return r.send(ctx, user.ID, r.render.Prompt(out.State))
	}
}

func (r *Router) myListings(ctx context.Context, user *domain.User) error {
	listings, err := r.listings.OwnedBy(ctx, user.ID)
	if err != nil {
		return err
	}
	if len(listings) == 0 {
		return r.send(ctx, user.ID, Message{Text: "📭 You have no listings yet."})
	}
	for _, l := range listings {
		if err := r.send(ctx, user.ID, r.render.OwnListing(l)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) browse(ctx context.Context, user *domain.User, category domain.Category) error {
	listings, err := r.listings.Catalog(ctx, &category)
	if err != nil {
		return err
	}
	if len(listings) == 0 {
		return r.send(ctx, user.ID, Message{Text: "📭 No listings in " + r.render.catalog.Label(category) + " yet."})
	}
	for _, l := range listings {
		msg := r.render.CatalogCard(l)
		if l.PhotoRef != nil {
			err = r.sendMedia(ctx, user.ID, *l.PhotoRef, msg)
		} else {
			err = r.send(ctx, user.ID, msg)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) pending(ctx context.Context, user *domain.User) error {
	listings, err := r.listings.Pending(ctx, user.ID)
	if err != nil {
		return r.replyError(ctx, user.ID, err)
	}
	if len(listings) == 0 {
		return r.send(ctx, user.ID, Message{Text: "✨ No listings awaiting moderation."})
	}
	for _, l := range listings {
		if err := r.send(ctx, user.ID, r.render.PendingCard(l)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) stats(ctx context.Context, user *domain.User) error {
	stats, err := r.listings.Stats(ctx, user.ID)
	if err != nil {
		return r.replyError(ctx, user.ID, err)
	}
	return r.send(ctx, user.ID, r.render.Stats(stats))
}

func (r *Router) promote(ctx context.Context, user *domain.User, arg string) error {
	targetID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || targetID <= 0 {
		return r.adminOnly(ctx, user, func() error {
			return r.send(ctx, user.ID, Message{Text: "❌ Please send a numeric user id, e.g. /promote 123456"})
		})
	}
	changed, err := r.listings.PromoteAdmin(ctx, targetID, user.ID)
	if err != nil {
		return r.replyError(ctx, user.ID, err)
	}
	text := fmt.Sprintf("✅ User %d is now an administrator.", targetID)
	if !changed {
		text = fmt.Sprintf("User %d already is an administrator.", targetID)
	}
	return r.send(ctx, user.ID, Message{Text: text, Keyboard: r.render.AdminKeyboard()})
}

func (r *Router) adminOnly(ctx context.Context, user *domain.User, fn func() error) error {
	if !user.IsAdmin() {
		return r.send(ctx, user.ID, Message{Text: "❌ You don't have administrator rights."})
	}
	return fn()
}

func (r *Router) alertResult(ctx context.Context, recipientID int64, err error, success string) error {
	if err == nil {
		return r.alert(ctx, recipientID, success)
	}
	text, ok := userFacing(err)
	if !ok {
		return err
	}
	return r.alert(ctx, recipientID, text)
}

func (r *Router) replyError(ctx context.Context, recipientID int64, err error) error {
	text, ok := userFacing(err)
	if !ok {
		return err
	}
	return r.send(ctx, recipientID, Message{Text: text})
}

func (r *Router) send(ctx context.Context, recipientID int64, msg Message) error {
	return r.messenger.SendText(ctx, recipientID, msg)
}

func (r *Router) sendMedia(ctx context.Context, recipientID int64, mediaRef string, msg Message) error {
	return r.messenger.SendMedia(ctx, recipientID, mediaRef, msg)
}

func (r *Router) alert(ctx context.Context, recipientID int64, text string) error {
	return r.messenger.SendAlert(ctx, recipientID, text)
}

// userFacing translates domain errors into chat replies. ok is false for unexpected errors.
func userFacing(err error) (string, bool) {
	switch {
	case errors.Is(err, apperrors.ErrForbidden):
		return "❌ You don't have administrator rights.", true
	case errors.Is(err, apperrors.ErrNotFound):
		return "Not found.", true
	case errors.Is(err, apperrors.ErrInvalidTransition):
		return "This listing has already been moderated.", true
	case errors.Is(err, apperrors.ErrInvalidDraft):
		return "❌ " + rejectionReason(err), true
	}
	return "", false
}

func rejectionReason(err error) string {
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		return "Invalid input."
	}
	switch domainErr.Details["field"] {
	case "shop_price", "sell_price":
		return "Please enter a valid price greater than zero (e.g. 1500 or 99.90)."
	case "quantity":
		return "Please enter a whole number greater than zero."
	case "category":
		return "Please choose a category from the keyboard."
	case "photo":
		return "Please send a photo or skip this step."
	}
	return "Please send some text."
}
