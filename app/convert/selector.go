package convert

import (
	"fmt"
	"log/slog"

	"github.com/lysyi3m/rss25sb/app/feed"
)

// Route pairs a detection predicate with the converter it selects.
type Route struct {
	Name      string
	Match     func(raw []byte) bool
	Converter Converter
}

// Selector dispatches a document to the first route whose predicate matches.
type Selector struct {
	routes []Route
}

func NewSelector(routes ...Route) *Selector {
	return &Selector{routes: routes}
}

var _ Converter = (*Selector)(nil)

func (s *Selector) Convert(raw []byte) (*feed.Feed, error) {
	for _, route := range s.routes {
		if !route.Match(raw) {
			continue
		}

		slog.Debug("Feed source detected", "source", route.Name)

		converted, err := route.Converter.Convert(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to convert %s feed: %w", route.Name, err)
		}
		return converted, nil
	}

	return nil, fmt.Errorf("no converter matched the document: %w", ErrUnsupportedSource)
}

// Routes returns the names of the registered routes, in evaluation order.
func (s *Selector) Routes() []string {
	names := make([]string, 0, len(s.routes))
	for _, route := range s.routes {
		names = append(names, route.Name)
	}
	return names
}
