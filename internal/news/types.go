package news

import "time"

const (
	// LocationUnknown marks an alert whose location could not be determined.
	// It never matches any user location.
	LocationUnknown = "לא ידוע"

	// NoDetailsDescription replaces a missing feed item description.
	NoDetailsDescription = "אין פרטים נוספים"
)

// FeedItem is a raw syndicated-feed entry prior to classification.
type FeedItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
	PubDate     string `json:"pub_date"` // ISO-8601, normalized by the feed layer
	GUID        string `json:"guid,omitempty"`
	Source      string `json:"source,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// Alert is a classified feed item.
type Alert struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Location        string    `json:"location"`
	Timestamp       time.Time `json:"timestamp"`
	Source          string    `json:"source"`
	Link            string    `json:"link"`
	IsSecurityEvent bool      `json:"is_security_event"`
	ImageURL        string    `json:"image_url,omitempty"`
	Language        string    `json:"language,omitempty"`
	ClassifiedBy    string    `json:"classified_by,omitempty"`

	// FeedTitle is the headline as syndicated, before any classifier rewrite.
	// Title dedup keys are derived from it.
	FeedTitle string `json:"-"`
}

// HasKnownLocation reports whether the alert carries a real place name.
func (a Alert) HasKnownLocation() bool {
	return a.Location != "" && a.Location != LocationUnknown
}

// UserLocationProfile is a user's stored location as read from the profile store.
type UserLocationProfile struct {
	UserID    string `json:"user_id"`
	Location  string `json:"location"`
	PushToken string `json:"push_token,omitempty"`
}
