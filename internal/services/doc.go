// Package services defines the error taxonomy shared by pipeline stages and
// external-service adapters. Stage code tags failures with one of the sentinel
// markers so the job runner can decide between retrying and failing fast, and
// so the published error strings stay uniform.
package services
