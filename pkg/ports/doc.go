/*
Package ports defines the driven ports (interfaces) of the docdrill
orchestrator.

These interfaces decouple the execution core from the host environment: the
orchestrator emits execution requests, and adapters implement how a program
is actually run or a URL actually probed.

# Key Interfaces

  - Executor: runs accumulated source text in a given language and reports
    exit status, output and cleanup obligations.
  - URLChecker: issues a HEAD-equivalent request and reports the status code.
*/
package ports
