package feed

import (
	"bytes"
	"encoding/xml"
	"strings"
	"time"
)

const (
	Namespace = "http://univ.fr/rss25"
	Version   = "25"
)

// Canonical rss25 document types

type Feed struct {
	XMLName   xml.Name  `xml:"http://univ.fr/rss25 feed"`
	Lang      string    `xml:"lang,attr"`
	Version   string    `xml:"version,attr"`
	Title     string    `xml:"title"`
	PubDate   time.Time `xml:"pubDate"`
	Copyright string    `xml:"copyright"`
	Links     []Link    `xml:"link"`
	Items     []Item    `xml:"item"`
}

type Link struct {
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
	Href string `xml:"href,attr"`
}

type Item struct {
	GUID       string     `xml:"guid"`
	Title      string     `xml:"title"`
	Categories []Category `xml:"category"`
	Published  *time.Time `xml:"published"`
	Updated    *time.Time `xml:"updated"`
	Image      *Image     `xml:"image"`
	Content    Content    `xml:"content"`
	People     []Person   `xml:",any"` // author and contributor elements, in document order
}

type Category struct {
	Term string `xml:"term,attr"`
}

type Image struct {
	Type   string `xml:"type,attr"`
	Href   string `xml:"href,attr"`
	Alt    string `xml:"alt,attr"`
	Length *int64 `xml:"length,attr"`
}

type Content struct {
	Type string `xml:"type,attr"`
	Src  string `xml:"src,attr"`
}

type Role string

const (
	RoleAuthor      Role = "author"
	RoleContributor Role = "contributor"
)

// Person is an author or a contributor; Role records which one.
type Person struct {
	Role  Role   `xml:"-"`
	Name  string `xml:"name,attr"`
	Email string `xml:"email,attr"`
	URI   string `xml:"uri,attr"`
}

func (p *Person) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	type plain Person
	var raw plain
	if err := d.DecodeElement(&raw, &start); err != nil {
		return err
	}
	*p = Person(raw)
	p.Role = Role(start.Name.Local)
	return nil
}

// xmlTime binds a dateTime element, ignoring surrounding whitespace.
type xmlTime time.Time

func (x *xmlTime) UnmarshalText(text []byte) error {
	var t time.Time
	if err := t.UnmarshalText(bytes.TrimSpace(text)); err != nil {
		return err
	}
	*x = xmlTime(t)
	return nil
}

func (f *Feed) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	type plain Feed
	var raw struct {
		plain
		PubDate xmlTime `xml:"pubDate"`
	}
	if err := d.DecodeElement(&raw, &start); err != nil {
		return err
	}
	*f = Feed(raw.plain)
	f.PubDate = time.Time(raw.PubDate)
	return nil
}

func (i *Item) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	type plain Item
	var raw struct {
		plain
		Published *xmlTime `xml:"published"`
		Updated   *xmlTime `xml:"updated"`
	}
	if err := d.DecodeElement(&raw, &start); err != nil {
		return err
	}
	*i = Item(raw.plain)
	i.Published = (*time.Time)(raw.Published)
	i.Updated = (*time.Time)(raw.Updated)
	return nil
}

// Authors returns the people tagged as authors, in order.
func (i Item) Authors() []Person {
	return i.peopleWithRole(RoleAuthor)
}

// Contributors returns the people tagged as contributors, in order.
func (i Item) Contributors() []Person {
	return i.peopleWithRole(RoleContributor)
}

func (i Item) peopleWithRole(role Role) []Person {
	people := []Person{}
	for _, p := range i.People {
		if p.Role == role {
			people = append(people, p)
		}
	}
	return people
}

// normalize trims text values the way the schema reads them and replaces
// nil lists with empty ones.
func (f *Feed) normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.Copyright = strings.TrimSpace(f.Copyright)

	if f.Links == nil {
		f.Links = []Link{}
	}
	if f.Items == nil {
		f.Items = []Item{}
	}
	for i := range f.Items {
		f.Items[i].GUID = strings.TrimSpace(f.Items[i].GUID)
		f.Items[i].Title = strings.TrimSpace(f.Items[i].Title)
		if f.Items[i].Categories == nil {
			f.Items[i].Categories = []Category{}
		}
		if f.Items[i].People == nil {
			f.Items[i].People = []Person{}
		}
	}
}
