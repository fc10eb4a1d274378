package collection

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/abdul-hamid-achik/sheetspec/packages/core/model"
	"github.com/google/uuid"
)

const (
	// DefaultName is the collection name used when none is configured
	DefaultName = "Excel-driven API Tests"
	// SchemaV21 identifies the Postman collection format
	SchemaV21 = "https://schema.getpostman.com/json/collection/v2.1.0/collection.json"
)

// Assertion subjects and operators emitted by Build.
const (
	SubjectStatus   = "status"
	SubjectDuration = "duration"

	OpEquals   = "=="
	OpLessThan = "<"
)

type Collection struct {
	Info Info   `json:"info"`
	Item []Item `json:"item"`
}

type Info struct {
	PostmanID string `json:"_postman_id,omitempty"`
	Name      string `json:"name"`
	Schema    string `json:"schema"`
}

type Item struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Request    Request     `json:"request"`
	Event      []Event     `json:"event"`
	Assertions []Assertion `json:"assertions"`
}

type Request struct {
	Method string `json:"method"`
	URL    string `json:"url"`
}

type Event struct {
	Listen string `json:"listen"`
	Script Script `json:"script"`
}

type Script struct {
	Type string   `json:"type"`
	Exec []string `json:"exec"`
}

// Assertion is a check evaluated against a response after execution.
type Assertion struct {
	Subject  string `json:"subject"`
	Operator string `json:"operator"`
	Expected any    `json:"expected"`
}

type builder struct {
	newID func() string
}

// Option configures Build.
type Option func(*builder)

// WithIDGenerator replaces the uuid generator used for item and
// collection ids.
func WithIDGenerator(fn func() string) Option {
	return func(b *builder) {
		b.newID = fn
	}
}

// Build converts cases into a collection, one item per case in input
// order. It performs no validation: a case without a URL still produces an
// item, which will fail when executed.
func Build(name string, cases []model.TestCase, opts ...Option) *Collection {
	b := &builder{
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(b)
	}
	if name == "" {
		name = DefaultName
	}

	c := &Collection{
		Info: Info{
			PostmanID: b.newID(),
			Name:      name,
			Schema:    SchemaV21,
		},
		Item: make([]Item, 0, len(cases)),
	}
	for _, tc := range cases {
		c.Item = append(c.Item, b.item(tc))
	}
	return c
}

func (b *builder) item(tc model.TestCase) Item {
	method := tc.Method
	if method == "" {
		method = model.DefaultMethod
	}

	status := strconv.Itoa(tc.ExpectedStatusCode)
	limit := formatNumber(tc.ExpectedTimeMs)

	return Item{
		ID:   b.newID(),
		Name: tc.DisplayName(),
		Request: Request{
			Method: method,
			URL:    tc.URL,
		},
		Event: []Event{{
			Listen: "test",
			Script: Script{
				Type: "text/javascript",
				Exec: []string{
					fmt.Sprintf(`pm.test("Status is %s", function () {`, status),
					fmt.Sprintf(`    pm.response.to.have.status(%s);`, status),
					`});`,
					fmt.Sprintf(`pm.test("Response time < %sms", function () {`, limit),
					fmt.Sprintf(`    pm.expect(pm.response.responseTime).to.be.below(%s);`, limit),
					`});`,
				},
			},
		}},
		Assertions: []Assertion{
			{Subject: SubjectStatus, Operator: OpEquals, Expected: tc.ExpectedStatusCode},
			{Subject: SubjectDuration, Operator: OpLessThan, Expected: tc.ExpectedTimeMs},
		},
	}
}

// Bind returns a copy of cases with each ID set to the id of the item
// built from it. cases must be the slice passed to Build.
func (c *Collection) Bind(cases []model.TestCase) []model.TestCase {
	bound := make([]model.TestCase, len(cases))
	copy(bound, cases)
	for i := range bound {
		if i < len(c.Item) {
			bound[i].ID = c.Item[i].ID
		}
	}
	return bound
}

// Save writes the collection as indented JSON.
func (c *Collection) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing collection: %w", err)
	}
	return nil
}

// Load reads a collection previously written by Save.
func Load(path string) (*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading collection: %w", err)
	}
	var c Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing collection: %w", err)
	}
	return &c, nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
