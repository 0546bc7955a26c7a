/*
Package config loads plumber configuration files.

Files may be YAML (.yml, .yaml) or JSON with comments (.json, .jsonc).
String scalars may reference environment variables as ${env.NAME}; a
reference to an unset variable is kept verbatim.

	global:
	  checkpointing:
	    unit: pipe            # or single (default)
	    type: localgit        # localfile (default), kubeconfig, redis, s3, postgres
	    config:
	      path: .plumber.checkpoint.yml
	  prehook:
	    - steps: ["echo starting"]
	  posthook:
	    - steps: ["./notify.sh ${env.SLACK_CHANNEL}"]
	      condition: failure
	pipes:
	  - id: api
	    conditions:
	      - id: src
	        type: localdiff
	        diff: [{path: "services/api/"}]
	    actions:
	      steps: ["make -C services/api deploy"]
	      timeout: 600
*/
package config
