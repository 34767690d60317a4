package chat

import (
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/spec-kit/marketplace-bot/internal/domain"
	"github.com/spec-kit/marketplace-bot/internal/intake"
)

// Reply keyboard labels.
const (
	MenuCatalog    = "📱 Catalog"
	MenuAddListing = "➕ Add listing"
	MenuMyListings = "📋 My listings"
	MenuAdminPanel = "⚙️ Admin panel"
	MenuPending    = "📝 Pending moderation"
	MenuAddAdmin   = "👤 Add admin"
	MenuStats      = "📊 Statistics"
	MenuMain       = "🔙 Main menu"
	MenuSkipPhoto  = "⏭️ Skip photo"
	MenuCancel     = "✖️ Cancel"
)

// Renderer formats domain values as chat messages. All user-supplied text is escaped.
type Renderer struct {
	catalog *Catalog
	// markup limits composed HTML messages to the tags the chat transport renders.
	markup *bluemonday.Policy
}

// NewRenderer builds a renderer over catalog.
func NewRenderer(catalog *Catalog) *Renderer {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	markup := bluemonday.NewPolicy().AllowElements("b", "i", "u", "s", "code", "pre")
	return &Renderer{catalog: catalog, markup: markup}
}

// Escape makes user text safe for HTML messages while keeping it literal.
func (r *Renderer) Escape(s string) string {
	return html.EscapeString(s)
}

func (r *Renderer) compose(format string, args ...any) string {
	return r.markup.Sanitize(fmt.Sprintf(format, args...))
}

// MainKeyboard is the top-level reply keyboard; admins get the admin panel entry.
func (r *Renderer) MainKeyboard(isAdmin bool) [][]string {
	rows := [][]string{{MenuCatalog}, {MenuAddListing}, {MenuMyListings}}
	if isAdmin {
		rows = append(rows, []string{MenuAdminPanel})
	}
	return rows
}

// AdminKeyboard is the admin panel reply keyboard.
func (r *Renderer) AdminKeyboard() [][]string {
	return [][]string{{MenuPending}, {MenuAddAdmin}, {MenuStats}, {MenuMain}}
}

// Welcome greets the user and shows their role.
func (r *Renderer) Welcome(user *domain.User) Message {
	name := r.Escape(user.DisplayName)
	if name == "" {
		name = "there"
	}
	role := "user"
	if user.IsAdmin() {
		role = "administrator"
	}
	return Message{
		Text: r.compose("👋 Hi, %s!\n\nWelcome to the marketplace. Your role: <b>%s</b>\n\nChoose an action:",
			name, role),
		HTML:     true,
		Keyboard: r.MainKeyboard(user.IsAdmin()),
	}
}

// CategoryPicker lists categories as inline browse buttons.
func (r *Renderer) CategoryPicker() Message {
	var rows [][]Button
	for _, category := range domain.Categories() {
		rows = append(rows, []Button{{
			Text:   r.catalog.Label(category),
			Action: Action{Verb: ActionBrowse, Category: category}.Encode(),
		}})
	}
	return Message{Text: "📂 Choose a category:", Buttons: rows}
}

// CatalogCard renders an approved listing for buyers with a contact button.
func (r *Renderer) CatalogCard(l domain.Listing) Message {
	return Message{
		Text: r.compose("%s", r.card(l)),
		HTML: true,
		Buttons: [][]Button{{{
			Text:   "💬 Contact seller",
			Action: Action{Verb: ActionContact, ListingID: l.ID}.Encode(),
		}}},
	}
}

// OwnListing renders one of the user's own listings with its status.
func (r *Renderer) OwnListing(l domain.Listing) Message {
	return Message{
		Text: r.compose("%s\n%s <b>Status:</b> %s\n📅 %s",
			r.card(l), statusIcon(l.Status), statusLabel(l.Status), l.CreatedAt.Format("2006-01-02 15:04")),
		HTML: true,
	}
}

// PendingCard renders a queued listing for moderators.
func (r *Renderer) PendingCard(l domain.Listing) Message {
	return Message{
		Text:    r.compose("🆔 <b>#%d</b> from user %d\n%s", l.ID, l.OwnerID, r.card(l)),
		HTML:    true,
		Buttons: r.moderationButtons(l.ID),
	}
}

// Details renders the full listing record for an admin.
func (r *Renderer) Details(l domain.Listing, owner *domain.User) Message {
	handle := "not set"
	if h := owner.HandleOrEmpty(); h != "" {
		handle = "@" + r.Escape(h)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📋 <b>Listing #%d</b>\n\n", l.ID)
	fmt.Fprintf(&b, "👤 <b>Seller:</b> %s (%s)\n", r.Escape(owner.DisplayName), handle)
	fmt.Fprintf(&b, "🆔 <b>Seller id:</b> %d\n\n", owner.ID)
	b.WriteString(r.card(l))
	fmt.Fprintf(&b, "\n📊 <b>Status:</b> %s\n", statusLabel(l.Status))
	fmt.Fprintf(&b, "📅 <b>Created:</b> %s", l.CreatedAt.Format("2006-01-02 15:04"))
	if l.ApprovedAt != nil {
		fmt.Fprintf(&b, "\n✅ <b>Approved:</b> %s", l.ApprovedAt.Format("2006-01-02 15:04"))
	}
	return Message{Text: r.compose("%s", b.String()), HTML: true}
}

// Stats renders the admin statistics summary.
func (r *Renderer) Stats(s *domain.Stats) Message {
	var b strings.Builder
	b.WriteString("📊 <b>Statistics</b>\n\n")
	fmt.Fprintf(&b, "👥 <b>Users:</b>\n• Total: %d\n• Admins: %d\n\n", s.TotalUsers, s.TotalAdmins)
	fmt.Fprintf(&b, "📝 <b>Listings:</b>\n• Total: %d\n• Pending: %d\n• Approved: %d\n• Rejected: %d\n\n",
		s.TotalListings,
		s.ByStatus[domain.ListingStatusPending],
		s.ByStatus[domain.ListingStatusApproved],
		s.ByStatus[domain.ListingStatusRejected])
	b.WriteString("📂 <b>Approved by category:</b>\n")
	for _, category := range domain.Categories() {
		if n := s.ApprovedByCategory[category]; n > 0 {
			fmt.Fprintf(&b, "• %s: %d\n", r.catalog.Label(category), n)
		}
	}
	return Message{Text: r.compose("%s", b.String()), HTML: true, Keyboard: r.AdminKeyboard()}
}

// SubmissionAlert tells an admin a new listing awaits moderation.
func (r *Renderer) SubmissionAlert(l domain.Listing) Message {
	return Message{
		Text: r.compose("🔔 <b>New listing awaiting moderation</b>\n\n🆔 #%d\n🛍️ %s\n📂 %s\n👤 user %d",
			l.ID, r.Escape(l.Title), r.catalog.Label(l.Category), l.OwnerID),
		HTML:    true,
		Buttons: r.moderationButtons(l.ID),
	}
}

// DecisionNotice tells an owner what happened to their listing.
func (r *Renderer) DecisionNotice(l domain.Listing) Message {
	title := r.Escape(l.Title)
	if l.Status == domain.ListingStatusApproved {
		return Message{Text: r.compose("✅ Your listing «%s» was approved and published!", title), HTML: true}
	}
	return Message{Text: r.compose("❌ Your listing «%s» was rejected by a moderator.", title), HTML: true}
}

// Prompt asks for the input expected in state.
func (r *Renderer) Prompt(state intake.State) Message {
	cancel := []string{MenuCancel}
	switch state {
	case intake.StateAwaitingTitle:
		return Message{Text: "📝 Enter the listing title:", Keyboard: [][]string{cancel}}
	case intake.StateAwaitingDescription:
		return Message{Text: "📄 Enter a description:", Keyboard: [][]string{cancel}}
	case intake.StateAwaitingPhoto:
		return Message{Text: "📸 Send a photo or skip this step:", Keyboard: [][]string{{MenuSkipPhoto}, cancel}}
	case intake.StateAwaitingCategory:
		var rows [][]string
		for _, label := range r.catalog.Labels() {
			rows = append(rows, []string{label})
		}
		return Message{Text: "📂 Choose a category:", Keyboard: append(rows, cancel)}
	case intake.StateAwaitingShopPrice:
		return Message{Text: "💰 Enter the shop price:", Keyboard: [][]string{cancel}}
	case intake.StateAwaitingMyPrice:
		return Message{Text: "💵 Enter your price:", Keyboard: [][]string{cancel}}
	case intake.StateAwaitingQuantity:
		return Message{Text: "📦 Enter the quantity:", Keyboard: [][]string{cancel}}
	default:
		return Message{Text: "Choose an action:"}
	}
}

// Submitted confirms a completed intake.
func (r *Renderer) Submitted(l *domain.Listing, isAdmin bool) Message {
	return Message{
		Text: r.compose("✅ Listing #%d «%s» was sent for moderation. You will be notified once it is reviewed.",
			l.ID, r.Escape(l.Title)),
		HTML:     true,
		Keyboard: r.MainKeyboard(isAdmin),
	}
}

func (r *Renderer) card(l domain.Listing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🛍️ <b>%s</b>\n", r.Escape(l.Title))
	fmt.Fprintf(&b, "📂 %s\n", r.catalog.Label(l.Category))
	fmt.Fprintf(&b, "📄 %s\n\n", r.Escape(l.Description))
	fmt.Fprintf(&b, "💰 Shop price: %s\n", l.ShopPrice)
	fmt.Fprintf(&b, "💵 Seller price: %s\n", l.SellPrice)
	fmt.Fprintf(&b, "📦 Quantity: %d", l.Quantity)
	return b.String()
}

func (r *Renderer) moderationButtons(listingID int64) [][]Button {
	return [][]Button{
		{
			{Text: "✅ Approve", Action: Action{Verb: ActionApprove, ListingID: listingID}.Encode()},
			{Text: "❌ Reject", Action: Action{Verb: ActionReject, ListingID: listingID}.Encode()},
		},
		{
			{Text: "👁️ Details", Action: Action{Verb: ActionDetails, ListingID: listingID}.Encode()},
		},
	}
}

func statusLabel(s domain.ListingStatus) string {
	switch s {
	case domain.ListingStatusPending:
		return "pending moderation"
	case domain.ListingStatusApproved:
		return "approved"
	case domain.ListingStatusRejected:
		return "rejected"
	}
	return string(s)
}

func statusIcon(s domain.ListingStatus) string {
	switch s {
	case domain.ListingStatusApproved:
		return "✅"
	case domain.ListingStatusRejected:
		return "❌"
	}
	return "⏳"
}
