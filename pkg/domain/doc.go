/*
Package domain defines the core value types of the docdrill pipeline.

The types fall into three families:

  - Parse tree: DirectiveNode, the typed block tree produced by pkg/markup.
  - Procedure model: Procedure, Step, Action, VariantSlot and the fully
    resolved ProcedureInstance produced by pkg/model and pkg/variants.
  - Results: ActionResult, StepResult, InstanceResult and RunResult, the
    structured tree emitted by the orchestrator for external reporters.

Parse trees and procedure models are immutable value trees: they are built
once per file and discarded after instance generation. ProcedureInstances and
their results are the only objects mutated over time, and they are owned
exclusively by the orchestrator for the duration of one run.
*/
package domain
