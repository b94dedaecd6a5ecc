package generation

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestMockListingContent(t *testing.T) {
	content := MockListingContent(3)

	if !strings.Contains(content.MLSDescription, "3 thoughtfully designed spaces") {
		t.Fatalf("description does not reflect the image count: %q", content.MLSDescription[:80])
	}
	if len(content.Hashtags) != 5 {
		t.Fatalf("hashtags = %d, want 5", len(content.Hashtags))
	}
	for _, tag := range content.Hashtags {
		if !strings.HasPrefix(tag, "#") {
			t.Fatalf("hashtag %q is not prefixed", tag)
		}
	}
	if content.SocialCaption == "" || content.CarouselText == "" {
		t.Fatal("mock content has empty fields")
	}
}

func TestListingContentJSONFieldNames(t *testing.T) {
	raw := `{
		"mlsDescription": "desc",
		"hashtags": ["#a1"],
		"socialCaption": "caption",
		"carouselText": "carousel"
	}`

	var content ListingContent
	if err := json.Unmarshal([]byte(raw), &content); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if content.MLSDescription != "desc" || content.SocialCaption != "caption" || content.CarouselText != "carousel" {
		t.Fatalf("content = %+v", content)
	}
}
