// Package testsupport holds helpers shared by package tests: temp-dir
// configs, WAV fixtures and a fake separator.
package testsupport
