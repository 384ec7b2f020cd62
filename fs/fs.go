package appfs

import "embed"

// FS holds embedded app assets (email templates).
//go:embed all:templates
var FS embed.FS
