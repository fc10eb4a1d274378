// Package collection builds Postman v2.1 collection documents from test
// cases.
//
// Each test case becomes one request item carrying two assertions bound at
// build time: the response status must equal the expected status, and the
// response time must be strictly below the expected time. The assertions
// are stored twice: as data for the in-process runner, and as a pm.test
// script so the document stays runnable by Postman and newman.
package collection
