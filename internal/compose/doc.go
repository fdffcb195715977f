// Package compose loads Docker Compose files, rewrites them for their
// place under a common root, and merges them into one document.
//
// Documents are kept as gopkg.in/yaml.v3 node trees rather than decoded
// into maps. Nodes keep mapping keys in source order, so the combined file
// lists services, volumes, and networks in the order their directories
// were visited, and unknown fields survive untouched.
//
// The transform for one file with directory token "api" is:
//
//   - services: "web" → "api_web", and every short-syntax bind mount whose
//     source starts with "./" is moved under "./api/"
//   - volumes:  "data" → "api_data", with "./" paths in the spec, in
//     driver_opts.device, and in source moved the same way
//   - networks: "backend" → "api_backend", values untouched
//
// Named volume references inside services are not renamed.
package compose
