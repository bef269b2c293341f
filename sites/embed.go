package sites

import "embed"

//go:embed defaults/*.json
var defaultFS embed.FS
