// Package discovery finds the compose files to combine.
//
// Every file with the configured name (docker-compose.yml by default) in a
// subdirectory of the root is a source. The directory's path relative to
// the root becomes the source's token, which namespaces everything taken
// from that file:
//
//	root/
//	├── docker-compose.yml      ignored (this is where output goes)
//	├── api/docker-compose.yml  token "api"
//	└── backend/
//	    └── db/docker-compose.yml  token "backend_db"
//
// Tokens are assumed unique. Two directories that flatten to the same token
// (e.g. "a_b" and "a/b") are caught later as a name collision.
package discovery
