// Package web embeds the HTML templates and static assets served by the mixtape site.
package web

import "embed"

// TemplatesFS contains the layouts, pages and partials.
//
//go:embed all:templates
var TemplatesFS embed.FS

// StaticFS contains the stylesheet.
//
//go:embed all:static
var StaticFS embed.FS
