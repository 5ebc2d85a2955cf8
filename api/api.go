// Package api embeds the OpenAPI description of the portal API.
package api

import (
	_ "embed"
)

//go:embed openapi.yml
var OpenAPI []byte
