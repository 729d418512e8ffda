// Package api holds the OpenAPI contract served and enforced by the HTTP
// adapter.
package api

import _ "embed"

//go:embed openapi.yaml
var OpenAPISpec []byte
