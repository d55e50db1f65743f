// Package web embeds the page templates and static assets of the dashboard.
package web

import "embed"

// TemplatesFS holds templates/*.html; _layout.html defines the shared
// header and footer.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the chart script.
//
//go:embed static/*
var StaticFS embed.FS
