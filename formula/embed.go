// Package formula embeds the formulas that ship with keg.
package formula

import "embed"

// FS holds the built-in <name>.yml formula files
//
//go:embed *.yml
var FS embed.FS
