package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// DefaultURL is the fixed versions endpoint.
const DefaultURL = "https://puli.io/download/versions.json"

// Error indicates the version manifest was unreachable or malformed. It is
// retryable up to the orchestrator's bounded limit.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("version catalog: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("version catalog: %s", e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Fetcher is the transport dependency: a single GET returning body bytes.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

//go:embed versions.schema.json
var versionsSchemaJSON string

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(versionsSchemaJSON))
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("versions.schema.json", doc); err != nil {
		return nil, err
	}
	return compiler.Compile("versions.schema.json")
})

// Client fetches and parses the remote version catalog.
type Client struct {
	fetcher Fetcher
	url     string
}

// NewClient creates a catalog client over the given transport. An empty url
// falls back to DefaultURL.
func NewClient(fetcher Fetcher, url string) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{fetcher: fetcher, url: url}
}

// Fetch retrieves the manifest and returns the parsed catalog, sorted
// ascending. The manifest must be a JSON array of version strings; any other
// shape is an *Error.
func (c *Client) Fetch(ctx context.Context) (Catalog, error) {
	body, err := c.fetcher.Fetch(ctx, c.url)
	if err != nil {
		return Catalog{}, &Error{Reason: "manifest unreachable", Err: err}
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return Catalog{}, &Error{Reason: "manifest is not valid JSON", Err: err}
	}

	schema, err := compileSchema()
	if err != nil {
		return Catalog{}, &Error{Reason: "compile manifest schema", Err: err}
	}
	if err := schema.Validate(doc); err != nil {
		return Catalog{}, &Error{Reason: "manifest is not a list of version strings", Err: err}
	}

	entries, ok := doc.([]any)
	if !ok {
		return Catalog{}, &Error{Reason: "manifest is not a list structure"}
	}

	versions := make([]string, 0, len(entries))
	for _, entry := range entries {
		s, ok := entry.(string)
		if !ok {
			return Catalog{}, &Error{Reason: fmt.Sprintf("manifest entry %v is not a string", entry)}
		}
		versions = append(versions, s)
	}

	return NewCatalog(versions), nil
}
