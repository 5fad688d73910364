package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"time"
)

// Metadata holds the feed-level fields of a generated document.
type Metadata struct {
	Title     string
	Lang      string
	Copyright string
	PubDate   time.Time
	Links     []Link
}

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Run renders a complete rss25 feed document.
func (g *Generator) Run(meta Metadata, items []Item) (string, error) {
	if meta.Title == "" {
		return "", fmt.Errorf("feed title is required")
	}
	if meta.Lang == "" {
		return "", fmt.Errorf("feed language is required")
	}

	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	fmt.Fprintf(&buf, `<feed xmlns="%s" lang="%s" version="%s">`, Namespace, g.escape(meta.Lang), Version)
	buf.WriteString("\n")

	g.writeElement(&buf, "title", meta.Title, 2)
	g.writeElement(&buf, "pubDate", g.formatTime(meta.PubDate), 2)
	g.writeElement(&buf, "copyright", meta.Copyright, 2)

	for _, link := range meta.Links {
		fmt.Fprintf(&buf, "  <link rel=\"%s\" type=\"%s\" href=\"%s\"/>\n",
			g.escape(link.Rel), g.escape(link.Type), g.escape(link.Href))
	}

	for _, item := range items {
		g.writeItem(&buf, item, 2, false)
	}

	buf.WriteString("</feed>\n")

	return buf.String(), nil
}

// RunItem renders a single item as a standalone rss25 document.
func (g *Generator) RunItem(item Item) (string, error) {
	if item.GUID == "" {
		return "", fmt.Errorf("item guid is required")
	}

	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	g.writeItem(&buf, item, 0, true)

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, item Item, indent int, standalone bool) {
	g.indent(buf, indent)
	if standalone {
		fmt.Fprintf(buf, "<item xmlns=\"%s\">\n", Namespace)
	} else {
		buf.WriteString("<item>\n")
	}

	inner := indent + 2
	g.writeElement(buf, "guid", item.GUID, inner)
	g.writeElement(buf, "title", item.Title, inner)

	for _, category := range item.Categories {
		g.indent(buf, inner)
		fmt.Fprintf(buf, "<category term=\"%s\"/>\n", g.escape(category.Term))
	}

	if item.Published != nil {
		g.writeElement(buf, "published", g.formatTime(*item.Published), inner)
	}
	if item.Updated != nil {
		g.writeElement(buf, "updated", g.formatTime(*item.Updated), inner)
	}

	if item.Image != nil {
		g.indent(buf, inner)
		fmt.Fprintf(buf, "<image type=\"%s\" href=\"%s\" alt=\"%s\"",
			g.escape(item.Image.Type), g.escape(item.Image.Href), g.escape(item.Image.Alt))
		if item.Image.Length != nil {
			fmt.Fprintf(buf, " length=\"%s\"", strconv.FormatInt(*item.Image.Length, 10))
		}
		buf.WriteString("/>\n")
	}

	g.indent(buf, inner)
	fmt.Fprintf(buf, "<content type=\"%s\"", g.escape(item.Content.Type))
	if item.Content.Src != "" {
		fmt.Fprintf(buf, " src=\"%s\"", g.escape(item.Content.Src))
	}
	buf.WriteString("/>\n")

	for _, person := range item.People {
		g.indent(buf, inner)
		fmt.Fprintf(buf, "<%s name=\"%s\"", person.Role, g.escape(person.Name))
		if person.Email != "" {
			fmt.Fprintf(buf, " email=\"%s\"", g.escape(person.Email))
		}
		if person.URI != "" {
			fmt.Fprintf(buf, " uri=\"%s\"", g.escape(person.URI))
		}
		buf.WriteString("/>\n")
	}

	g.indent(buf, indent)
	buf.WriteString("</item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	g.indent(buf, indent)

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) indent(buf *bytes.Buffer, n int) {
	for i := 0; i < n; i++ {
		buf.WriteByte(' ')
	}
}

func (g *Generator) escape(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func (g *Generator) formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}
