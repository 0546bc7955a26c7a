/*
Package plumber is a change-driven automation planner: it runs shell steps
for the parts of a repository that changed since the last successful run.

# Concept

A configuration file declares pipes. Each pipe has conditions that look at
the git history since a recorded checkpoint, an optional boolean expression
combining them, and actions to run when they trigger. Hooks run before and
after every pipe and around the whole run. After a run the planner decides
whether the updated checkpoint is persisted, according to the checkpoint unit
(`single` or `pipe`) and the outcome.

	global:
	  checkpointing:
	    unit: pipe
	    type: localgit
	pipes:
	  - id: api
	    conditions:
	      - id: code
	        diff:
	          - path: services/api/
	          - glob: "libs/**.go"
	    actions:
	      steps:
	        - make -C services/api deploy

# Usage

	eng, err := plumber.New(ctx, "plumber.yml", plumber.WithLogger(logger))
	if err != nil {
		log.Fatal(err)
	}
	defer eng.Close()

	records, err := eng.Execute(ctx, true)

Analyze reports which pipes would run without running them, and
InitCheckpoint records the current revision of every pipe as the baseline.

Checkpoints can be kept in a local file, a committed file, a Kubernetes
ConfigMap, Redis, an S3 bucket or PostgreSQL; see package checkpoint.
*/
package plumber
