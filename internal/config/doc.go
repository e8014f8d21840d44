// Package config loads the stack configuration file.
//
// A configuration is a YAML document in one of two shapes. The single
// shape declares services at the top level and has one implicit
// environment named "default":
//
//	project: strata
//	services:
//	  db:
//	    image: postgres:${PG_VERSION}
//	    ports: ["5432:5432"]
//
// The multi-environment shape declares named environments instead. An
// environment may extend another one; services are merged field by field,
// with environment maps merged key by key and every other declared field
// replacing the inherited value:
//
//	default_environment: dev
//	environments:
//	  base:
//	    services:
//	      db: {image: postgres:16}
//	  dev:
//	    extends: base
//
// Every string in the document is interpolated with ${NAME} tokens taken
// from a dotenv file (".env" next to the configuration unless another one
// is named) overridden by the process environment. Unknown tokens are kept
// verbatim.
//
// Parse is pure and performs no I/O. LoadFile reads the files, resolves the
// requested environment and validates the result.
package config
