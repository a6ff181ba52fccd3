// Package app assembles the client from its configuration: logger, local
// store, settings, API client, auth service and the fetch constructor. An
// App is built once at startup and passed explicitly to whatever needs it.
package app
