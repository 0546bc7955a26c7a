/*
Package condition builds the triggers of a pipe.

Conditions are selected by their `type` tag through a Registry. The only
built-in type is "localdiff", which fires when paths tracked by its diff
rules changed in version control since the revision recorded in the pipe's
checkpoint:

	conditions:
	  - id: backend
	    type: localdiff
	    branch: {active: main}
	    expression: api and not docs
	    diff:
	      - {id: api, path: "services/api/"}
	      - {id: docs, glob: "**/*.md"}
	      - {id: version, path: "VERSION", content: "[0-9]+\\."}

Path patterns are regular expressions anchored at the start of the path.
A content pattern further requires that a line matching it was added to
the file since the checkpoint.
*/
package condition
