package newman

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/sheetspec/packages/collection"
	"github.com/abdul-hamid-achik/sheetspec/packages/core/runner"
	"github.com/abdul-hamid-achik/sheetspec/packages/http"
	"github.com/tidwall/gjson"
)

var ErrInvalidReport = errors.New("not a newman JSON report")

// Load reads and parses a report file.
func Load(path string) ([]runner.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading newman report: %w", err)
	}
	return Parse(data)
}

// Parse converts report executions to request events in report order.
// The returned slice does not include a done event.
func Parse(data []byte) ([]runner.Event, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidReport
	}
	executions := gjson.GetBytes(data, "run.executions")
	if !executions.IsArray() {
		return nil, fmt.Errorf("%w: run.executions missing", ErrInvalidReport)
	}

	var events []runner.Event
	executions.ForEach(func(key, exec gjson.Result) bool {
		events = append(events, toEvent(int(key.Int()), exec))
		return true
	})
	return events, nil
}

// Replay returns a closed channel holding events followed by a done event,
// shaped like the output of runner.Run.
func Replay(events []runner.Event) <-chan runner.Event {
	ch := make(chan runner.Event, len(events)+1)
	for _, ev := range events {
		ch <- ev
	}
	ch <- runner.DoneEvent()
	close(ch)
	return ch
}

func toEvent(idx int, exec gjson.Result) runner.Event {
	method := exec.Get("request.method").String()
	if method == "" {
		method = exec.Get("item.request.method").String()
	}

	ev := runner.Event{
		Kind:  runner.EventRequest,
		Index: idx,
		Item: collection.Item{
			ID:   exec.Get("item.id").String(),
			Name: exec.Get("item.name").String(),
			Request: collection.Request{
				Method: method,
				URL:    requestURL(exec),
			},
		},
	}

	if reqErr := exec.Get("requestError"); reqErr.Exists() && reqErr.Type != gjson.Null {
		msg := reqErr.Get("message").String()
		if msg == "" {
			msg = reqErr.String()
		}
		ev.Err = fmt.Errorf("request error: %s", msg)
		return ev
	}

	resp := exec.Get("response")
	if !resp.Exists() {
		ev.Err = errors.New("execution has no response")
		return ev
	}

	ms := resp.Get("responseTime").Float()
	ev.Response = &http.Response{
		StatusCode: int(resp.Get("code").Int()),
		Status:     resp.Get("status").String(),
		Body:       streamBytes(resp.Get("stream")),
		Duration:   time.Duration(ms * float64(time.Millisecond)),
	}
	return ev
}

// requestURL prefers the raw url; newman often omits it and keeps only
// the parsed parts.
func requestURL(exec gjson.Result) string {
	u := exec.Get("request.url")
	if u.Type == gjson.String {
		return u.String()
	}
	if raw := u.Get("raw").String(); raw != "" {
		return raw
	}

	var b strings.Builder
	if protocol := u.Get("protocol").String(); protocol != "" {
		b.WriteString(protocol)
		b.WriteString("://")
	}
	b.WriteString(joinParts(u.Get("host"), "."))
	if port := u.Get("port").String(); port != "" {
		b.WriteString(":")
		b.WriteString(port)
	}
	if path := joinParts(u.Get("path"), "/"); path != "" {
		b.WriteString("/")
		b.WriteString(path)
	}

	var query []string
	u.Get("query").ForEach(func(_, q gjson.Result) bool {
		if q.Get("disabled").Bool() {
			return true
		}
		pair := q.Get("key").String()
		if v := q.Get("value"); v.Exists() && v.Type != gjson.Null {
			pair += "=" + v.String()
		}
		query = append(query, pair)
		return true
	})
	if len(query) > 0 {
		b.WriteString("?")
		b.WriteString(strings.Join(query, "&"))
	}
	return b.String()
}

func joinParts(v gjson.Result, sep string) string {
	if !v.IsArray() {
		return v.String()
	}
	var parts []string
	v.ForEach(func(_, p gjson.Result) bool {
		parts = append(parts, p.String())
		return true
	})
	return strings.Join(parts, sep)
}

// streamBytes decodes a serialised Node Buffer ({"type":"Buffer","data":[...]}).
func streamBytes(stream gjson.Result) []byte {
	if stream.Type == gjson.String {
		return []byte(stream.String())
	}
	data := stream.Get("data")
	if !data.IsArray() {
		return nil
	}
	out := make([]byte, 0, len(data.Array()))
	data.ForEach(func(_, b gjson.Result) bool {
		out = append(out, byte(b.Int()))
		return true
	})
	return out
}
