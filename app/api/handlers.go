package api

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/rss25sb/app/cfg"
	"github.com/lysyi3m/rss25sb/app/database"
	"github.com/lysyi3m/rss25sb/app/feed"
	"github.com/lysyi3m/rss25sb/app/ingest"
)

const (
	xmlContentType = "application/xml; charset=utf-8"

	// written when a response document cannot be marshalled
	fallbackErrorXML = `<?xml version="1.0" encoding="UTF-8"?>
<error><status>ERROR</status><description>internal error</description></error>`
)

func NewHandler(itemRepo database.ItemRepository, ingester IngesterInterface,
	generator GeneratorInterface, appCfg *cfg.Cfg) *Handler {
	return &Handler{
		itemRepo:  itemRepo,
		ingester:  ingester,
		generator: generator,
		cfg:       appCfg,
	}
}

func (h *Handler) GetIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Title":     h.cfg.FeedTitle,
		"Version":   h.cfg.Version,
		"Developer": h.cfg.Developer,
	})
}

func (h *Handler) GetHelp(c *gin.Context) {
	c.HTML(http.StatusOK, "help.html", gin.H{
		"Title":      h.cfg.FeedTitle,
		"Operations": Operations,
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   h.cfg.Version,
		"status":    "ok",
	}

	count, err := h.itemRepo.Count(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "count_items", "error", err)
		health["status"] = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}
	health["items"] = count

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetSummaryXML(c *gin.Context) {
	items, err := h.itemRepo.FindAll(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "find_all", "error", err)
		h.writeError(c, http.StatusInternalServerError, nil, "failed to load items")
		return
	}

	response := ItemsResponse{Items: make([]ItemSummary, 0, len(items))}
	for _, item := range items {
		response.Items = append(response.Items, ItemSummary{
			ID:    item.ID,
			Title: item.Title,
			GUID:  item.GUID,
			Date:  item.Published.Format(time.RFC3339),
		})
	}

	h.writeXML(c, http.StatusOK, response)
}

func (h *Handler) GetSummaryHTML(c *gin.Context) {
	items, err := h.itemRepo.FindAll(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "find_all", "error", err)
		h.renderError(c, http.StatusInternalServerError, "failed to load items")
		return
	}

	c.HTML(http.StatusOK, "items.html", gin.H{
		"Title": h.cfg.FeedTitle,
		"Items": items,
	})
}

func (h *Handler) GetItemXML(c *gin.Context) {
	var uri itemURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.writeError(c, http.StatusBadRequest, nil, fmt.Sprintf("invalid item id %q", c.Param("id")))
		return
	}

	item, err := h.itemRepo.FindByID(c.Request.Context(), uri.ID)
	if err != nil {
		slog.Error("Database error", "operation", "find_by_id", "id", uri.ID, "error", err)
		h.writeError(c, http.StatusInternalServerError, &uri.ID, "failed to load item")
		return
	}

	if item == nil {
		h.writeError(c, http.StatusNotFound, &uri.ID, "item not found")
		return
	}

	doc, err := h.generator.RunItem(feed.ToItem(*item))
	if err != nil {
		slog.Error("Item generation error", "id", uri.ID, "error", err)
		h.writeError(c, http.StatusInternalServerError, &uri.ID, "failed to render item")
		return
	}

	c.Data(http.StatusOK, xmlContentType, []byte(doc))
}

func (h *Handler) GetItemHTML(c *gin.Context) {
	var uri itemURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.renderError(c, http.StatusBadRequest, fmt.Sprintf("invalid item id %q", c.Param("id")))
		return
	}

	item, err := h.itemRepo.FindByID(c.Request.Context(), uri.ID)
	if err != nil {
		slog.Error("Database error", "operation", "find_by_id", "id", uri.ID, "error", err)
		h.renderError(c, http.StatusInternalServerError, "failed to load item")
		return
	}

	if item == nil {
		h.renderError(c, http.StatusNotFound, fmt.Sprintf("item %d not found", uri.ID))
		return
	}

	c.HTML(http.StatusOK, "item.html", gin.H{
		"Title": h.cfg.FeedTitle,
		"Item":  item,
	})
}

func (h *Handler) GetFeed(c *gin.Context) {
	records, err := h.itemRepo.FindAll(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "find_all", "error", err)
		h.writeError(c, http.StatusInternalServerError, nil, "failed to load items")
		return
	}

	items := make([]feed.Item, 0, len(records))
	pubDate := time.Now()
	for i, record := range records {
		if i == 0 {
			pubDate = record.Published
		}
		items = append(items, feed.ToItem(record))
	}

	meta := feed.Metadata{
		Title:     h.cfg.FeedTitle,
		Lang:      h.cfg.FeedLanguage,
		Copyright: h.cfg.FeedCopyright,
		PubDate:   pubDate,
		Links: []feed.Link{
			{Rel: "self", Type: "application/xml", Href: h.cfg.PublicURL() + "/rss25SB/feed"},
			{Rel: "alternate", Type: "text/html", Href: h.cfg.PublicURL() + "/rss25SB/resume/html"},
		},
	}

	doc, err := h.generator.Run(meta, items)
	if err != nil {
		slog.Error("Feed generation error", "error", err)
		h.writeError(c, http.StatusInternalServerError, nil, "failed to render feed")
		return
	}

	c.Header("X-Feed-Items", strconv.Itoa(len(items)))
	c.Data(http.StatusOK, xmlContentType, []byte(doc))
}

func (h *Handler) GetInsertForm(c *gin.Context) {
	c.HTML(http.StatusOK, "upload.html", gin.H{
		"Title":         h.cfg.FeedTitle,
		"MaxUploadSize": h.cfg.MaxUploadSize,
	})
}

func (h *Handler) PostInsert(c *gin.Context) {
	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadSize))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(c, http.StatusRequestEntityTooLarge, nil,
				fmt.Sprintf("feed exceeds %d bytes", maxErr.Limit))
			return
		}
		h.writeError(c, http.StatusBadRequest, nil, "failed to read request body")
		return
	}

	if len(data) == 0 {
		h.writeError(c, http.StatusBadRequest, nil, "request body is empty")
		return
	}

	outcome := h.ingester.Run(c.Request.Context(), data)

	switch outcome.Status {
	case ingest.StatusCreated:
		h.writeXML(c, http.StatusCreated, InsertedResponse{
			IDs:         outcome.IDs,
			Status:      statusInserted,
			Description: outcome.Message,
		})
	case ingest.StatusNoNewContent:
		c.Status(http.StatusNoContent)
	default:
		h.writeError(c, outcome.HTTPStatus(), nil, outcome.Message)
	}
}

func (h *Handler) PostInsertHTML(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		h.renderError(c, http.StatusBadRequest, "no file was uploaded")
		return
	}

	if header.Size > h.cfg.MaxUploadSize {
		h.renderError(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("feed exceeds %d bytes", h.cfg.MaxUploadSize))
		return
	}

	file, err := header.Open()
	if err != nil {
		slog.Error("Failed to open uploaded file", "file", header.Filename, "error", err)
		h.renderError(c, http.StatusInternalServerError, "failed to read uploaded file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		slog.Error("Failed to read uploaded file", "file", header.Filename, "error", err)
		h.renderError(c, http.StatusInternalServerError, "failed to read uploaded file")
		return
	}

	outcome := h.ingester.Run(c.Request.Context(), data)

	// An HTML reply needs a body, so "no new content" is shown with 200.
	status := outcome.HTTPStatus()
	if outcome.Status == ingest.StatusNoNewContent {
		status = http.StatusOK
	}

	c.HTML(status, "insert.html", gin.H{
		"Title":    h.cfg.FeedTitle,
		"Filename": header.Filename,
		"Outcome":  outcome,
		"Success":  outcome.Succeeded(),
	})
}

func (h *Handler) DeleteItem(c *gin.Context) {
	var uri itemURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.writeError(c, http.StatusBadRequest, nil, fmt.Sprintf("invalid item id %q", c.Param("id")))
		return
	}

	deleted, err := h.itemRepo.DeleteByID(c.Request.Context(), uri.ID)
	if err != nil {
		slog.Error("Database error", "operation", "delete", "id", uri.ID, "error", err)
		h.writeError(c, http.StatusInternalServerError, &uri.ID, "failed to delete item")
		return
	}

	if !deleted {
		h.writeError(c, http.StatusNotFound, &uri.ID, "item not found")
		return
	}

	slog.Info("Item deleted", "id", uri.ID)

	h.writeXML(c, http.StatusOK, DeletedResponse{
		ID:          uri.ID,
		Status:      statusDeleted,
		Description: fmt.Sprintf("item %d deleted", uri.ID),
	})
}

func (h *Handler) NotFound(c *gin.Context) {
	h.writeError(c, http.StatusNotFound, nil,
		fmt.Sprintf("no resource at %s %s", c.Request.Method, c.Request.URL.Path))
}

func (h *Handler) writeError(c *gin.Context, status int, id *int64, description string) {
	h.writeXML(c, status, ErrorResponse{
		ID:          id,
		Status:      statusError,
		Description: description,
	})
}

func (h *Handler) writeXML(c *gin.Context, status int, v any) {
	body, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		slog.Error("XML marshalling error", "error", err)
		c.Data(http.StatusInternalServerError, xmlContentType, []byte(fallbackErrorXML))
		return
	}

	c.Data(status, xmlContentType, append([]byte(xml.Header), body...))
}

func (h *Handler) renderError(c *gin.Context, status int, message string) {
	c.HTML(status, "error.html", gin.H{
		"Title":   h.cfg.FeedTitle,
		"Status":  status,
		"Message": message,
	})
}
