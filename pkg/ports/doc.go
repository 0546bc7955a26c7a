/*
Package ports defines the driven ports (interfaces) of the plumber planner.

These interfaces decouple the planner from the version-control system it
inspects and from the backend that keeps the checkpoint document.

# Key Interfaces

  - CheckpointStore: reads and writes the whole checkpoint document.
  - ChangeSource: answers branch, history and diff questions (git in practice).
  - Conditional: one configured trigger of a pipe.
*/
package ports
