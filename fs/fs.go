package appfs

import "embed"

// FS bundles the assets the app needs at runtime: database migrations, email
// templates and the common passwords list.
//
//go:embed migrations assets
var FS embed.FS
