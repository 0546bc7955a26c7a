/*
Package executor runs configured shell steps.

An Executor owns an ordered list of shell snippets. In sequential mode each
snippet runs in its own `sh -c` process and the first non-zero exit stops the
sequence. In batch mode the snippets are joined into one script and run once.

Every invocation is recorded before a failure is returned, so the captured
output of the failing step is always available through Results. A step that
outlives its timeout is killed together with its process group and recorded
with exit code 130.
*/
package executor
