// Package imageassets provides a reusable library for attaching validated
// image assets to arbitrary host entities, with pluggable repository and blob
// storage backends.
//
// It exposes a single Service interface that orchestrates asset type
// management, per-file content validation (format, dimensions, aspect ratio,
// size), attachment set reconciliation (missing-required and duplicate-active
// checks), and a two-stage soft-delete lifecycle with recovery.
// Implementations of repositories (e.g., memory, Postgres) and blob stores
// (e.g., memory, filesystem, S3) are provided under subpackages.
//
// # Host References
//
// Assets attach to hosts through a tagged reference of host kind plus entity
// ID. Host kinds are plain strings that a deployment registers with the
// service; the library never inspects host entities themselves. A HostRef
// with a zero ID refers to the host kind as a whole (class-level), which is
// how RequiredFor distinguishes "what a video always needs" from "what this
// video is still missing".
package imageassets
