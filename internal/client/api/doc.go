// Package api is the remote side of the client: an Interface describing every
// read and write the fetch layer needs, and HTTPClient, its implementation
// over the service's JSON REST API.
//
// All errors returned by HTTPClient match one of the sentinels below with
// errors.Is.
package api
