package api

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Operations lists the public routes, in the order the help page shows them.
var Operations = []Operation{
	{"GET", "/", "Home page"},
	{"GET", "/help", "This page"},
	{"GET", "/health", "Service health as JSON"},
	{"GET", "/rss25SB/resume/xml", "Summary of every stored item (XML)"},
	{"GET", "/rss25SB/resume/html", "Summary of every stored item (HTML)"},
	{"GET", "/rss25SB/resume/xml/:id", "One item as an rss25 document"},
	{"GET", "/rss25SB/html/:id", "One item as an HTML page"},
	{"GET", "/rss25SB/feed", "Every stored item as a complete rss25 feed"},
	{"GET", "/rss25SB/insert", "Upload form"},
	{"POST", "/rss25SB/insert", "Insert the items of an XML feed sent as the request body"},
	{"POST", "/rss25SB/insert/html", "Insert the items of an uploaded XML file"},
	{"DELETE", "/rss25SB/delete/:id", "Delete one item"},
}

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health"},
	}))

	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.SetHTMLTemplate(loadTemplates())

	setupRoutes(r, handler)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler) {
	r.GET("/", handler.GetIndex)
	r.GET("/help", handler.GetHelp)
	r.GET("/health", handler.GetHealth)

	rss := r.Group("/rss25SB")
	{
		rss.GET("/resume/xml", handler.GetSummaryXML)
		rss.GET("/resume/html", handler.GetSummaryHTML)
		rss.GET("/resume/xml/:id", handler.GetItemXML)
		rss.GET("/html/:id", handler.GetItemHTML)
		rss.GET("/feed", handler.GetFeed)

		rss.GET("/insert", handler.GetInsertForm)
		rss.POST("/insert", handler.PostInsert)
		rss.POST("/insert/html", handler.PostInsertHTML)

		rss.DELETE("/delete/:id", handler.DeleteItem)
	}

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	r.NoRoute(handler.NotFound)
}

func loadTemplates() *template.Template {
	funcMap := template.FuncMap{
		"date": func(t time.Time) string {
			return t.Local().Format("02/01/2006 15:04")
		},
		"iso": func(t time.Time) string {
			return t.Format(time.RFC3339)
		},
	}

	return template.Must(template.New("").Funcs(funcMap).ParseFS(templatesFS, "templates/*.html"))
}
