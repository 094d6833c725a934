package intake

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/sells-group/rumoo/internal/model"
)

//go:embed schema/ingest.json
var ingestSchemaJSON []byte

var (
	schemaOnce   sync.Once
	ingestSchema *jsonschema.Schema
	schemaErr    error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("ingest.json", bytes.NewReader(ingestSchemaJSON)); err != nil {
			schemaErr = eris.Wrap(err, "intake: add ingest schema")
			return
		}
		ingestSchema, schemaErr = c.Compile("ingest.json")
		if schemaErr != nil {
			schemaErr = eris.Wrap(schemaErr, "intake: compile ingest schema")
		}
	})
	return ingestSchema, schemaErr
}

// Request is a decoded ingest body. Exactly one of Listing and URL is used;
// Listing takes precedence when both are present.
type Request struct {
	Listing *model.ListingCapture `json:"listing,omitempty"`
	URL     string                `json:"url,omitempty"`
}

// Mode reports the intake mode the request selects.
func (r Request) Mode() model.IngestMode {
	if r.Listing != nil {
		return model.IngestModeFullCapture
	}
	return model.IngestModeURLOnly
}

// FullCapture builds a request for an already captured listing.
func FullCapture(l model.ListingCapture) Request { return Request{Listing: &l} }

// URLOnly builds a request for a shared listing URL.
func URLOnly(url string) Request { return Request{URL: url} }

// DecodeRequest validates body against the ingest schema and decodes it.
// Bodies of any other shape yield *InvalidRequestError.
func DecodeRequest(body []byte) (Request, error) {
	schema, err := compiledSchema()
	if err != nil {
		return Request{}, err
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return Request{}, &InvalidRequestError{Details: err.Error()}
	}
	if err := schema.Validate(doc); err != nil {
		return Request{}, &InvalidRequestError{Details: err.Error()}
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return Request{}, &InvalidRequestError{Details: err.Error()}
	}
	if req.Listing != nil {
		req.URL = ""
	}
	return req, nil
}
