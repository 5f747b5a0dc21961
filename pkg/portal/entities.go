package portal

import "github.com/tendant/venue-admin/pkg/media"

const (
	VenueBucket = "venues"
	PostBucket  = "posts"
)

func venueImage(folder string) media.Constraints {
	return media.Constraints{
		Bucket:       VenueBucket,
		Folder:       folder,
		MaxSizeInMB:  5,
		AllowedTypes: []string{"image/png", "image/jpeg", "image/webp"},
	}
}

// venue adds the fields shared by clubs, restaurants and lounges
func venue(b *SchemaBuilder, folder string) *SchemaBuilder {
	return b.
		String("name", Required(), MaxLen(120), Searchable(), Label("Name")).
		Text("description", MaxLen(4000), Label("Description")).
		String("address", MaxLen(255), Searchable(), Label("Address")).
		String("city", MaxLen(80), Filterable(), Searchable(), Label("City")).
		String("phone", MaxLen(40), Label("Phone")).
		String("website", MaxLen(255), Label("Website")).
		String("opening_hours", MaxLen(255), Label("Opening hours")).
		Number("price_level", Min(0), Filterable(), Label("Price level")).
		Bool("is_active", Filterable(), Label("Active")).
		Bool("is_featured", Filterable(), Label("Featured")).
		Attachment("logo_url", venueImage(folder+"/logos"), Label("Logo"), Placeholder("Upload a logo or paste a URL")).
		Attachment("cover_image", venueImage(folder+"/covers"), Label("Cover image"), Placeholder("Upload a cover image or paste a URL"))
}

var (
	// Clubs are night clubs
	Clubs = venue(NewSchema("clubs").Label("Clubs"), "clubs").
		Tags("genres", Filterable(), Label("Music genres")).
		Tags("amenities", Filterable(), Label("Amenities")).
		String("dress_code", MaxLen(120), Label("Dress code")).
		Number("min_age", Min(0), Label("Minimum age")).
		MustBuild()

	// Restaurants are dining venues
	Restaurants = venue(NewSchema("restaurants").Label("Restaurants"), "restaurants").
		Tags("cuisines", Filterable(), Label("Cuisines")).
		Tags("amenities", Filterable(), Label("Amenities")).
		Bool("accepts_reservations", Filterable(), Label("Accepts reservations")).
		MustBuild()

	// Lounges are bars and lounges
	Lounges = venue(NewSchema("lounges").Label("Lounges"), "lounges").
		Tags("amenities", Filterable(), Label("Amenities")).
		Tags("drinks", Label("Signature drinks")).
		MustBuild()

	// LiveShows are scheduled performances at a venue
	LiveShows = NewSchema("live_shows").Label("Live shows").
			String("title", Required(), MaxLen(160), Searchable(), Label("Title")).
			Text("description", MaxLen(4000), Label("Description")).
			String("venue_name", MaxLen(120), Searchable(), Label("Venue")).
			String("city", MaxLen(80), Filterable(), Label("City")).
			String("starts_at", Required(), MaxLen(40), Label("Starts at")).
			Number("ticket_price", Min(0), Label("Ticket price")).
			Tags("genres", Filterable(), Label("Genres")).
			Tags("performers", Label("Performers")).
			Bool("is_active", Filterable(), Label("Active")).
			Attachment("cover_image", venueImage("live-shows"), Label("Poster"), Placeholder("Upload a poster or paste a URL")).
			MustBuild()

	// SubscriptionPlans are the paid tiers offered to app users
	SubscriptionPlans = NewSchema("subscription_plans").Label("Subscription plans").
				String("name", Required(), MaxLen(80), Searchable(), Label("Name")).
				Text("description", MaxLen(2000), Label("Description")).
				Number("price", Required(), Min(0), Label("Price")).
				String("currency", MaxLen(3), Label("Currency")).
				String("billing_period", OneOf("monthly", "quarterly", "yearly"), Filterable(), Label("Billing period")).
				Tags("benefits", Label("Benefits")).
				Bool("is_active", Filterable(), Label("Active")).
				MustBuild()

	// Posts make up the blogger feed
	Posts = NewSchema("posts").Label("Posts").
		String("title", Required(), MaxLen(200), Searchable(), Label("Title")).
		Text("content", Required(), Searchable(), Label("Content")).
		String("author_name", MaxLen(120), Searchable(), Filterable(), Label("Author")).
		Tags("tags", Filterable(), Label("Tags")).
		Bool("is_published", Filterable(), Label("Published")).
		Attachment("cover_image", media.Constraints{
			Bucket:       PostBucket,
			Folder:       "covers",
			MaxSizeInMB:  5,
			AllowedTypes: []string{"image/png", "image/jpeg", "image/webp", "image/gif"},
		}, Label("Cover image"), Placeholder("Upload an image or paste a URL")).
		MustBuild()
)

// BuiltinSchemas returns the schemas of every entity managed by the portal
func BuiltinSchemas() []*Schema {
	return []*Schema{Clubs, Restaurants, Lounges, LiveShows, SubscriptionPlans, Posts}
}
