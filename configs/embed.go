// Package configs holds the files the installer copies into the runtime directory.
package configs

import "embed"

//go:embed catalog.yaml
var FS embed.FS
