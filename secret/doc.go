// Package secret resolves credentials referenced from configuration values.
//
// A value of the form
//
//	secretref:<provider>:<ref>
//
// is replaced with what the named provider returns for ref. References may
// also appear inline, e.g. "postgres://app:secretref:file:db_password@db/x".
// Before provider lookup every value goes through ExpandEnvStrict.
//
// Two providers ship with the package and are registered in DefaultRegistry:
//
//   - file: reads a mounted secret file, e.g. secretref:file:db_password
//   - env:  reads an environment variable, e.g. secretref:env:REDIS_AUTH
package secret
