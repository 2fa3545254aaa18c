// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

/*

The daemon emits or proxies the following sources of logging:

1. Internal logs: the daemon's own application logs (logrus) into stderr
2. Function stream-based logs: each child's stdout and stderr, captured as timestamped chunks on its invocation
3. Platform logs: START, END and REPORT lines the daemon prints for every invocation

It has the following log sinks:

1. Stderr: internal logs, level and format set at startup
2. Stdout: platform lines
3. Tail log: function output chunks echoed to stdout when --echo-output is set, discarded otherwise

*/
package logging
