package convert

import (
	"strings"
	"testing"

	"github.com/lysyi3m/rss25sb/app/feed"
)

const atomXML = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xml:lang="en-us">
  <title>Example Atom</title>
  <link href="https://example.org/"/>
  <updated>2025-05-18T10:00:00Z</updated>
  <entry>
    <title>Atom entry</title>
    <id>urn:uuid:60a76c80-d399-11d9-b93C-0003939e0af6</id>
    <updated>2025-05-18T09:00:00Z</updated>
    <author><name>Jane Doe</name><email>jane@example.org</email></author>
    <category term="tech"/>
    <content type="html">&lt;p&gt;Hello&lt;/p&gt;</content>
  </entry>
</feed>`

const rssXML = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Example RSS</title>
    <link>https://example.com</link>
    <language>en-us</language>
    <item>
      <title>RSS item</title>
      <link>https://example.com/item1</link>
      <description>Item description</description>
      <guid>https://example.com/550e8400-e29b-41d4-a716-446655440000</guid>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
      <enclosure url="https://example.com/photo.png" length="1234" type="image/png"/>
    </item>
  </channel>
</rss>`

func TestIsForeignFeed(t *testing.T) {
	if !IsForeignFeed([]byte(rssXML)) {
		t.Error("Expected RSS to be detected")
	}
	if !IsForeignFeed([]byte(atomXML)) {
		t.Error("Expected Atom to be detected")
	}
	rss25 := `<feed xmlns="http://univ.fr/rss25" lang="fr" version="24"><title>x</title></feed>`
	if IsForeignFeed([]byte(rss25)) {
		t.Error("An rss25 document must not be treated as a foreign feed")
	}
	if IsForeignFeed([]byte(`<note>hello</note>`)) {
		t.Error("Expected arbitrary XML to be rejected")
	}
}

func TestGenericConvertRSS(t *testing.T) {
	converted, err := NewGeneric("http://localhost:8080").Convert([]byte(rssXML))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if converted.Lang != "en-US" {
		t.Errorf("Expected lang 'en-US', got %q", converted.Lang)
	}
	if len(converted.Items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(converted.Items))
	}

	item := converted.Items[0]
	if item.GUID != "https://example.com/550e8400-e29b-41d4-a716-446655440000" {
		t.Errorf("Expected canonical guid to be kept, got %q", item.GUID)
	}
	if item.Published == nil {
		t.Error("Expected published date")
	}
	if item.Content.Type != "text" || item.Content.Src != "Item description" {
		t.Errorf("Expected text content from description, got %+v", item.Content)
	}
	if item.Image == nil || item.Image.Type != "image/png" || *item.Image.Length != 1234 {
		t.Errorf("Expected image from enclosure, got %+v", item.Image)
	}
	if len(item.Categories) != 1 || item.Categories[0].Term != defaultCategory {
		t.Errorf("Expected default category, got %+v", item.Categories)
	}
	if len(item.People) != 1 || item.People[0].Name != "Example RSS" {
		t.Errorf("Expected feed title as default author, got %+v", item.People)
	}
}

func TestGenericConvertAtom(t *testing.T) {
	converted, err := NewGeneric("http://localhost:8080/").Convert([]byte(atomXML))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	item := converted.Items[0]
	if !feed.IsValidGuid(item.GUID) || !strings.HasPrefix(item.GUID, "http://localhost:8080/") {
		t.Errorf("Expected synthesized guid under the base URL, got %q", item.GUID)
	}
	if item.Updated == nil {
		t.Error("Expected updated date")
	}
	if item.Content.Type != "html" || !strings.Contains(item.Content.Src, "<p>Hello</p>") {
		t.Errorf("Expected html content, got %+v", item.Content)
	}
	if len(item.People) != 1 || item.People[0].Email != "jane@example.org" {
		t.Errorf("Expected author Jane Doe, got %+v", item.People)
	}
	if item.Categories[0].Term != "tech" {
		t.Errorf("Expected category 'tech', got %+v", item.Categories)
	}

	again, _ := NewGeneric("http://localhost:8080/").Convert([]byte(atomXML))
	if again.Items[0].GUID != item.GUID {
		t.Error("Expected synthesized guids to be stable across conversions")
	}
}

func TestNormalizeLanguage(t *testing.T) {
	tests := map[string]string{
		"en-us":  "en-US",
		"fr":     "fr",
		"es-419": "es-419",
		"":       "und",
	}
	for in, want := range tests {
		if got := normalizeLanguage(in); got != want {
			t.Errorf("normalizeLanguage(%q) = %q, expected %q", in, got, want)
		}
	}
}

const unconventionalRSS = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Hacker News: Front Page</title>
    <link>https://news.example.com/</link>
    <item>
      <title>Show HN: a thing</title>
      <link>https://news.example.com/item?id=1</link>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
      <enclosure url="https://news.example.com/a.webp" length="99" type="image/webp"/>
    </item>
    <item>
      <title>Second</title>
      <link>https://news.example.com/item?id=2</link>
      <author>o'brien2@example.com (Pat O'Brien 2nd)</author>
      <pubDate>Mon, 03 Jul 2023 11:00:00 GMT</pubDate>
      <enclosure url="https://news.example.com/b.PNG" length="12" type="image/PNG"/>
    </item>
  </channel>
</rss>`

func TestGenericConvertKeepsCanonicalValues(t *testing.T) {
	converted, err := NewGeneric("http://localhost:8080").Convert([]byte(unconventionalRSS))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(converted.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(converted.Items))
	}

	first := converted.Items[0]
	if first.Image != nil {
		t.Errorf("Expected webp enclosure to be dropped, got %+v", first.Image)
	}
	if len(first.People) != 1 || first.People[0].Name != "Hacker News Front Page" {
		t.Errorf("Expected feed title reduced to a person name, got %+v", first.People)
	}

	second := converted.Items[1]
	if second.Image == nil || second.Image.Type != "image/png" {
		t.Errorf("Expected png enclosure, got %+v", second.Image)
	}
	for _, item := range converted.Items {
		for _, p := range item.People {
			if !feed.IsValidPersonName(p.Name) {
				t.Errorf("Expected a valid person name, got %q", p.Name)
			}
			if p.Email != "" && !feed.IsValidEmail(p.Email) {
				t.Errorf("Expected a valid email, got %q", p.Email)
			}
		}
	}
}

func TestPersonName(t *testing.T) {
	tests := map[string]string{
		"Pat O'Brien 2nd":         "Pat O Brien nd",
		"Hacker News: Front Page": "Hacker News Front Page",
		"Rédaction":               "Rédaction",
		"2024":                    "Anonymous",
		"":                        "Anonymous",
	}
	for in, want := range tests {
		if got := personName(in, "Anonymous"); got != want {
			t.Errorf("personName(%q) = %q, expected %q", in, got, want)
		}
	}

	long := strings.Repeat("abcdefghij ", 10)
	if got := personName(long, "x"); len([]rune(got)) > 64 || !feed.IsValidPersonName(got) {
		t.Errorf("Expected a name cut at a word boundary, got %q", got)
	}
}
