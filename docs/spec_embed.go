// Package docs embeds the OpenAPI description of the pokedex HTTP API.
package docs

import _ "embed"

// OpenAPISpec is the document served at /openapi.yaml.
//
//go:embed openapi.yaml
var OpenAPISpec []byte
