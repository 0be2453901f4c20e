// Package views holds the HTML templates rendered by the web handlers.
package views

import "embed"

//go:embed *.html layouts/*.html partials/*.html
var FS embed.FS
