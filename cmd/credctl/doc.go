// Package main provides credctl, a command-line tool for managing the
// credentials used by the credential download strategy when the server runs
// with CREDENTIALS_BACKEND=sqlite.
//
// # Usage
//
//	credctl list
//	credctl add <class> [file|-]
//	credctl revoke <id>
//
// add stores a credential under a class (the credential strategy uses
// "cookies"). The payload is read from the named file, from stdin when the
// argument is "-" or stdin is not a terminal, or from a prompt that does not
// echo. Credential ids are derived from the payload, so adding the same
// payload twice reports the existing id.
//
// revoke retires a credential permanently. The server also revokes
// credentials it finds rejected during downloads.
//
// # Environment
//
//   - DATA_DIR: directory holding credentials.db (default: /data/db)
//
// The server reads the store once at startup.
package main
