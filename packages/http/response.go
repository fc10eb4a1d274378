package http

import "time"

type Response struct {
	StatusCode int
	Status     string
	Body       []byte
	Duration   time.Duration
}

func (r *Response) BodyString() string {
	return string(r.Body)
}

// DurationMs returns the response time in milliseconds with sub-millisecond
// precision.
func (r *Response) DurationMs() float64 {
	return float64(r.Duration.Microseconds()) / 1000
}
