// Package testsupport holds fakes shared by tests across packages: a
// scriptable Oracle and a config builder rooted in a test temp directory.
package testsupport
