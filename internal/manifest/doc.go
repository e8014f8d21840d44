// Package manifest builds service descriptors for the two deployment
// targets.
//
// In dev mode the services come from a compose project, either a compose
// file supplied by the operator (LoadCompose) or the resolved stack
// configuration (FromConfig, RenderCompose). In prod mode they come from a
// fixed table of the stack's components (ProductionTable) whose on-disk
// locations follow Conventions.
package manifest
