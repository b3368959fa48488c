// Package config reads the environment-driven agent settings: master
// URL, port-bind IP, registry policy, log level, and file paths. It
// populates a plain struct straight from os.Getenv rather than a
// config library; there is nothing here a dependency would buy over
// os.Getenv plus a handful of parsers.
package config
