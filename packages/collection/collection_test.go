package collection

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/abdul-hamid-achik/sheetspec/packages/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCases() []model.TestCase {
	return []model.TestCase{
		{APIName: "Users", TestCase: "list", Method: "GET", URL: "http://x/a", ExpectedStatusCode: 200, ExpectedTimeMs: 500},
		{APIName: "Users", TestCase: "create", Method: "POST", URL: "http://x/b", ExpectedStatusCode: 201, ExpectedTimeMs: 750.5},
		{APIName: "Health", TestCase: "ping", URL: "http://x/c", ExpectedStatusCode: 204, ExpectedTimeMs: 100},
	}
}

func sequentialIDs() Option {
	n := 0
	return WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	})
}

func TestBuild(t *testing.T) {
	c := Build("", sampleCases(), sequentialIDs())

	assert.Equal(t, DefaultName, c.Info.Name)
	assert.Equal(t, SchemaV21, c.Info.Schema)
	assert.Equal(t, "id-1", c.Info.PostmanID)
	require.Len(t, c.Item, 3)

	first := c.Item[0]
	assert.Equal(t, "id-2", first.ID)
	assert.Equal(t, "Users - list", first.Name)
	assert.Equal(t, Request{Method: "GET", URL: "http://x/a"}, first.Request)
	assert.Equal(t, []Assertion{
		{Subject: SubjectStatus, Operator: OpEquals, Expected: 200},
		{Subject: SubjectDuration, Operator: OpLessThan, Expected: 500.0},
	}, first.Assertions)

	require.Len(t, first.Event, 1)
	assert.Equal(t, "test", first.Event[0].Listen)
	assert.Equal(t, []string{
		`pm.test("Status is 200", function () {`,
		`    pm.response.to.have.status(200);`,
		`});`,
		`pm.test("Response time < 500ms", function () {`,
		`    pm.expect(pm.response.responseTime).to.be.below(500);`,
		`});`,
	}, first.Event[0].Script.Exec)

	assert.Contains(t, c.Item[1].Event[0].Script.Exec, `    pm.expect(pm.response.responseTime).to.be.below(750.5);`)
	assert.Equal(t, "GET", c.Item[2].Request.Method, "empty method defaults to GET")
}

func TestBuild_PreservesOrder(t *testing.T) {
	cases := sampleCases()
	c := Build("orders", cases)
	for i, tc := range cases {
		assert.Equal(t, tc.URL, c.Item[i].Request.URL)
	}
}

func TestBuild_Idempotent(t *testing.T) {
	cases := sampleCases()
	a := Build("run", cases)
	b := Build("run", cases)

	require.Len(t, b.Item, len(a.Item))
	assert.NotEqual(t, a.Info.PostmanID, b.Info.PostmanID)
	for i := range a.Item {
		assert.NotEqual(t, a.Item[i].ID, b.Item[i].ID)
		assert.Equal(t, a.Item[i].Name, b.Item[i].Name)
		assert.Equal(t, a.Item[i].Request, b.Item[i].Request)
		assert.Equal(t, a.Item[i].Event, b.Item[i].Event)
		assert.Equal(t, a.Item[i].Assertions, b.Item[i].Assertions)
	}
}

func TestBuild_EmptyURL(t *testing.T) {
	c := Build("", []model.TestCase{{APIName: "Broken", TestCase: "no url", ExpectedStatusCode: 200, ExpectedTimeMs: 10}})
	require.Len(t, c.Item, 1)
	assert.Equal(t, "", c.Item[0].Request.URL)
	assert.NoError(t, c.Validate())
}

func TestBuild_Empty(t *testing.T) {
	c := Build("", nil)
	assert.Empty(t, c.Item)
	assert.NoError(t, c.Validate())
}

func TestBind(t *testing.T) {
	cases := sampleCases()
	c := Build("", cases, sequentialIDs())

	bound := c.Bind(cases)
	require.Len(t, bound, len(cases))
	for i := range bound {
		assert.Equal(t, c.Item[i].ID, bound[i].ID)
		assert.Empty(t, cases[i].ID, "input must not be mutated")
	}
}

func TestSaveLoad(t *testing.T) {
	c := Build("saved", sampleCases())
	path := filepath.Join(t.TempDir(), "collection.json")

	require.NoError(t, c.Save(path))
	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, c.Info, loaded.Info)
	require.Len(t, loaded.Item, len(c.Item))
	assert.Equal(t, c.Item[0].Request, loaded.Item[0].Request)
	assert.Equal(t, float64(200), loaded.Item[0].Assertions[0].Expected)
}

func TestValidateDocument(t *testing.T) {
	t.Run("missing request method", func(t *testing.T) {
		err := ValidateDocument([]byte(`{"info":{"name":"x","schema":"https://example.com/s.json"},"item":[{"name":"a","request":{"url":"http://x"}}]}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "method")
	})

	t.Run("missing info", func(t *testing.T) {
		err := ValidateDocument([]byte(`{"item":[]}`))
		assert.Error(t, err)
	})
}
