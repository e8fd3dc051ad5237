package classify

import (
	"context"
	"reflect"
	"testing"

	"horse.fit/newsalert/internal/location"
	"horse.fit/newsalert/internal/news"
)

func newTestKeywordClassifier() *KeywordClassifier {
	return NewKeywordClassifier(DefaultSecurityKeywords(), location.DefaultTables())
}

func TestKeywordClassifier_SecurityEventWithLocation(t *testing.T) {
	t.Parallel()

	k := newTestKeywordClassifier()
	got, err := k.Classify(context.Background(), news.FeedItem{
		Title:       "אזעקות צבע אדום ברמת גן ובגבעתיים",
		Description: "שיגור רקטות מרצועת עזה",
	})
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if !got.IsSecurityEvent || got.Method != MethodKeyword {
		t.Fatalf("expected keyword security event, got %+v", got)
	}
	if got.Location != "רמת גן" {
		t.Fatalf("expected first place in text, got %q", got.Location)
	}
}

func TestKeywordClassifier_AliasIsCanonicalized(t *testing.T) {
	t.Parallel()

	k := newTestKeywordClassifier()
	if got := k.SpotLocation("פיצוץ חשוד בת״א, המשטרה בזירה"); got != "תל אביב-יפו" {
		t.Fatalf("expected canonical tel aviv, got %q", got)
	}
	if got := k.SpotLocation("Explosion reported in Tel-Aviv"); got != "תל אביב-יפו" {
		t.Fatalf("expected canonical tel aviv for english text, got %q", got)
	}
}

func TestKeywordClassifier_NotSecurity(t *testing.T) {
	t.Parallel()

	k := newTestKeywordClassifier()
	got, _ := k.Classify(context.Background(), news.FeedItem{
		Title:       "ירידה במחירי הדירות בחיפה",
		Description: "העירייה פרסמה נתונים חדשים",
	})
	if got.IsSecurityEvent {
		t.Fatalf("expected non-security item, matched %v", k.MatchedKeywords("ירידה במחירי הדירות בחיפה העירייה פרסמה נתונים חדשים"))
	}
	if got.Location != "חיפה" {
		t.Fatalf("expected haifa to be spotted with prefix, got %q", got.Location)
	}
}

func TestKeywordClassifier_UnknownLocation(t *testing.T) {
	t.Parallel()

	k := newTestKeywordClassifier()
	if got := k.SpotLocation("Rocket sirens somewhere in the desert"); got != news.LocationUnknown {
		t.Fatalf("expected unknown location, got %q", got)
	}
}

func TestKeywordClassifier_MatchedKeywordsOrder(t *testing.T) {
	t.Parallel()

	k := newTestKeywordClassifier()
	got := k.MatchedKeywords("Drone infiltration followed by Sirens")
	want := []string{"drone", "infiltration", "sirens"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected keywords: got %v want %v", got, want)
	}
}

func TestFirstWholeWord(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		word string
		want bool
	}{
		{"ירי לעבר", "ירי", true},
		{"והירי נמשך", "ירי", false},
		{"בירי חי", "ירי", true},
		{"עירייה", "ירי", false},
		{"counterattack", "attack", false},
	}
	for _, tc := range cases {
		_, got := firstWholeWord(tc.text, tc.word)
		if got != tc.want {
			t.Fatalf("firstWholeWord(%q, %q) = %v, want %v", tc.text, tc.word, got, tc.want)
		}
	}
}
