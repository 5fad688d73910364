package cfg

type Cfg struct {
	// Storage
	DBPath     string
	SchemaFile string

	// HTTP server
	Port          string
	BaseUrl       string
	MaxUploadSize int64

	// Ingestion
	AcceptForeignFeeds bool
	SeedDemo           bool

	// Exported feed metadata
	FeedTitle     string
	FeedLanguage  string
	FeedCopyright string
	Developer     string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}

// PublicURL returns the base URL clients use to reach the service.
func (c *Cfg) PublicURL() string {
	if c.BaseUrl != "" {
		return c.BaseUrl
	}
	return "http://localhost:" + c.Port
}
