package api

import _ "embed"

// OpenAPI is the HTTP API description served at /openapi.yml.
//
//go:embed openapi.yml
var OpenAPI []byte
