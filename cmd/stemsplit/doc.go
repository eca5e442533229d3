// Command stemsplit separates songs into drums, bass, other and vocals stems
// using demucs.
//
// Subcommands:
//
//	split     split one file or a directory of files
//	watch     split files as they land in a directory
//	serve     local HTTP control surface with a websocket status stream
//	doctor    check external tools, directories and integrations
//	history   recent jobs from the optional sqlite history
//	models    list separation models
//	config    init, validate or show the configuration
//	test-notify  send an ntfy test message
package main
