// Package assertions evaluates collection assertions against responses.
//
// Supported subjects:
//   - status: the response status code
//   - duration: the response time in milliseconds
//   - header <Name>: a response header value
//   - body, body.<path>: the raw body, or a JSON path into it
//
// Comparisons are loose about representation: a status of 200 equals the
// expected value "200". Duration checks use strict inequality, so a
// response exactly at the threshold fails "<".
package assertions
