// Package links resolves share URLs for the synced document from
// configured route templates, so hosts can hand out "open in browser"
// and raw-content links without hardcoding their snippet service's URL
// scheme.
package links

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	urlkit "github.com/goliatone/go-urlkit"
)

var ErrManagerRequired = errors.New("links: route manager required")

const (
	defaultGroup   = "snippets"
	defaultWebName = "web"
	defaultRawName = "raw"
	defaultIDParam = "id"
)

// DefaultConfig builds a route config for the common snippet-store
// layout: /<id> for the web view and /<id>/raw for raw content.
func DefaultConfig(baseURL string) *urlkit.Config {
	return &urlkit.Config{
		Groups: []urlkit.GroupConfig{
			{
				Name:    defaultGroup,
				BaseURL: baseURL,
				Paths: map[string]string{
					defaultWebName: "/:id",
					defaultRawName: "/:id/raw",
				},
			},
		},
	}
}

// Options configure the resolver. Zero-valued names fall back to the
// snippets/web/raw/id defaults.
type Options struct {
	Manager  *urlkit.RouteManager
	Group    string
	WebRoute string
	RawRoute string
	IDParam  string
}

// ShareLinks carries the resolved URLs for one document.
type ShareLinks struct {
	Web string
	Raw string
}

// Resolver builds document share URLs through a go-urlkit RouteManager.
type Resolver struct {
	manager  *urlkit.RouteManager
	group    string
	webRoute string
	rawRoute string
	idParam  string

	mu     sync.RWMutex
	cached *urlkit.Group
}

// NewResolver constructs a resolver backed by go-urlkit.
func NewResolver(opts Options) (*Resolver, error) {
	if opts.Manager == nil {
		return nil, ErrManagerRequired
	}
	group := strings.TrimSpace(opts.Group)
	if group == "" {
		group = defaultGroup
	}
	webRoute := strings.TrimSpace(opts.WebRoute)
	if webRoute == "" {
		webRoute = defaultWebName
	}
	rawRoute := strings.TrimSpace(opts.RawRoute)
	if rawRoute == "" {
		rawRoute = defaultRawName
	}
	idParam := strings.TrimSpace(opts.IDParam)
	if idParam == "" {
		idParam = defaultIDParam
	}
	return &Resolver{
		manager:  opts.Manager,
		group:    group,
		webRoute: webRoute,
		rawRoute: rawRoute,
		idParam:  idParam,
	}, nil
}

// WebURL resolves the browser-facing URL for a document id.
func (r *Resolver) WebURL(documentID string) (string, error) {
	return r.build(r.webRoute, documentID)
}

// RawURL resolves the raw-content URL for a document id.
func (r *Resolver) RawURL(documentID string) (string, error) {
	return r.build(r.rawRoute, documentID)
}

// Links resolves both URLs for a document id.
func (r *Resolver) Links(documentID string) (ShareLinks, error) {
	web, err := r.WebURL(documentID)
	if err != nil {
		return ShareLinks{}, err
	}
	raw, err := r.RawURL(documentID)
	if err != nil {
		return ShareLinks{}, err
	}
	return ShareLinks{Web: web, Raw: raw}, nil
}

func (r *Resolver) build(route, documentID string) (string, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return "", fmt.Errorf("links: document id required")
	}

	group, err := r.lookupGroup()
	if err != nil {
		return "", err
	}
	builder, err := safeBuilder(group, route)
	if err != nil {
		return "", err
	}
	builder.WithParam(r.idParam, documentID)
	return builder.Build()
}

func (r *Resolver) lookupGroup() (*urlkit.Group, error) {
	r.mu.RLock()
	cached := r.cached
	r.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	group, err := safeGroup(r.manager, r.group)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cached = group
	r.mu.Unlock()
	return group, nil
}

// urlkit panics on unknown groups and routes; surface those as errors.
func safeGroup(manager *urlkit.RouteManager, name string) (group *urlkit.Group, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("links: route group %q not found", name)
		}
	}()
	group = manager.Group(name)
	return group, err
}

func safeBuilder(group *urlkit.Group, route string) (builder *urlkit.Builder, err error) {
	if group == nil {
		return nil, fmt.Errorf("links: route group is nil")
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("links: route %q not found: %v", route, rec)
		}
	}()
	builder = group.Builder(route)
	return builder, err
}
