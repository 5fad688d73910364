package cfg

import (
	"cmp"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage
	DBPath     string `long:"db-path" env:"DB_PATH" default:"./data/rss25.db" description:"Path to the SQLite database file"`
	SchemaFile string `long:"schema-file" env:"SCHEMA_FILE" description:"rss25 schema definition (YAML); the embedded schema is used when empty"`

	// HTTP server
	Port          string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl       string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://rss25.example.com)"`
	MaxUploadSize int64  `long:"max-upload-size" env:"MAX_UPLOAD_SIZE" default:"10485760" description:"Maximum accepted size of a submitted feed in bytes"`

	// Ingestion
	AcceptForeignFeeds bool `long:"accept-foreign-feeds" env:"ACCEPT_FOREIGN_FEEDS" description:"Convert any RSS/Atom feed that is not rss25"`
	SeedDemo           bool `long:"seed-demo" env:"SEED_DEMO" description:"Insert a demo item when the database is empty"`

	// Exported feed metadata
	FeedTitle     string `long:"feed-title" env:"FEED_TITLE" default:"rss25SB" description:"Title of the exported feed"`
	FeedLanguage  string `long:"feed-language" env:"FEED_LANGUAGE" default:"fr" description:"Language of the exported feed"`
	FeedCopyright string `long:"feed-copyright" env:"FEED_COPYRIGHT" default:"rss25SB" description:"Copyright notice of the exported feed"`
	Developer     string `long:"developer" env:"DEVELOPER" default:"rss25SB team" description:"Developer name shown on the index page"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Europe/Paris)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs parses the given command-line arguments together with the
// environment.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if raw.MaxUploadSize <= 0 {
		return nil, fmt.Errorf("max upload size must be positive, got %d", raw.MaxUploadSize)
	}

	cfg := &Cfg{
		DBPath:             raw.DBPath,
		SchemaFile:         raw.SchemaFile,
		Port:               raw.Port,
		BaseUrl:            strings.TrimRight(raw.BaseUrl, "/"),
		MaxUploadSize:      raw.MaxUploadSize,
		AcceptForeignFeeds: raw.AcceptForeignFeeds,
		SeedDemo:           raw.SeedDemo,
		FeedTitle:          raw.FeedTitle,
		FeedLanguage:       raw.FeedLanguage,
		FeedCopyright:      raw.FeedCopyright,
		Developer:          raw.Developer,
		Timezone:           raw.Timezone,
		Debug:              raw.Debug,
		Version:            GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
