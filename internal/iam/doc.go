// Package iam is the Aegis identity core: users, groups, roles, versioned
// authorization policies, long-lived access keys, and the attachment edges
// between them.
//
// The package is a pure library surface. It provides:
//
//   - Policy versioning: append-only version histories with a single mutable
//     default-version pointer per policy
//   - Credential lifecycle: access key creation, one-way disable, expiry,
//     rotation, and a per-holder key ceiling
//   - Attachment graph: insertion-ordered, uniqueness-enforced edge sets
//     between principals and policies, and between groups and users
//   - Principal registries: id-keyed entity stores enforcing id and username
//     uniqueness
//
// No operation here performs I/O, blocks, or suspends; every failure is
// synchronous and carries a stable Kind (see errors.go). Each registry
// guards its entity map and uniqueness index with a single mutex so that it
// can sit directly behind a concurrent transport layer. Persistence and
// transport live outside this package and talk to it through snapshots:
// every returned collection is a copy, and each registry can be rehydrated
// from stored snapshots via Import.
//
// Policy evaluation (deciding whether an action is permitted) is
// deliberately absent: this core stores and versions policies, it does not
// interpret them. Request authentication is likewise out of scope; the
// credential lifecycle tracks validity over time but never inspects a
// request.
package iam
