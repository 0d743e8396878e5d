// Package manager owns the lifecycle of the single embedding model a process
// serves. It is structured into small files by concern:
//
//   - manager.go: core Manager type and constructor.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: State, Handle and Info.
//   - errors.go: error kinds (validation, model load, embedding) and helpers.
//   - ensure.go: EnsureLoaded and the load sequence.
//   - release.go: Release and memory reclamation.
//   - admission.go: one in-flight request with a bounded queue.
//   - memory.go: resident memory sampling against the ceiling.
//   - metrics.go: Prometheus collectors.
//   - events.go, eventpub_memory.go: lifecycle events.
//
// A Manager holds at most one Handle. The handle is either absent or fully
// loaded; a failed load closes whatever it acquired. A handle older than the
// configured timeout is released before the next load starts, so stale and
// fresh models never coexist.
package manager
