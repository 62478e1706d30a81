// Package build contains values defined at build time via -ldflags.
package build

import "runtime"

const AppName = "dbtcloud-importer"

// Defined on build time:

var GitCommit = "-"
var BuildVersion = "dev"
var BuildDate = "-"

// UserAgent sent with each API request.
func UserAgent() string {
	return AppName + "/" + BuildVersion
}

// Version for --version flag
func Version() string {
	return "Version:    " + BuildVersion + "\n" +
		"Git commit: " + GitCommit + "\n" +
		"Build date: " + BuildDate + "\n" +
		"Go version: " + runtime.Version() + "\n" +
		"Os/Arch:    " + runtime.GOOS + "/" + runtime.GOARCH + "\n"
}
