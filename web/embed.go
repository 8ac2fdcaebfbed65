// Package web holds the embedded templates and static assets for the HTTP
// server, so the binary ships self-contained.
package web

import "embed"

//go:embed templates
var TemplateFiles embed.FS

//go:embed static
var StaticFiles embed.FS
