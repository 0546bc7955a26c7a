/*
Package domain contains the core data model of the plumber planner.

The types here are shared by the condition, executor, pipe and planner
packages and carry no I/O of their own.

# Key Entities

  - Document: the checkpoint document, pipe id -> condition id -> opaque value.
  - StepResult: the captured outcome of one shell invocation.
  - PipeRecord / AnalysisRecord: report rows handed to the presentation layer.
  - LifecycleHooks: observer callbacks fired while a run progresses.
*/
package domain
