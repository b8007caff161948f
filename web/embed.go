package webassets

import "embed"

// FS contains the embedded login page and its client script.

//go:embed login.html login.js
var FS embed.FS
