/*
Package docdrill validates that step-by-step procedures embedded in
semi-structured technical documents are still executable as written, without
a parallel hand-written test suite.

It parses a lightweight directive markup dialect, resolves transclusions
(including recursive extract-file inheritance), recovers the logical
Procedure → Step → Action structure, expands documented alternative paths
(tab sets, composable-tutorial selections) into concrete runnable variants,
resolves placeholders against layered configuration sources, and drives
per-action execution through pluggable interpreters.

# Concept

A document is compiled, never interpreted ad hoc: the pipeline builds an
immutable procedure model, enumerates its variant dimensions explicitly, and
materializes one ProcedureInstance per element of their Cartesian product.
Instances execute strictly sequentially with deterministic ordering, so runs
over shared external resources (a local database, a filesystem) are
reproducible.

# Usage

	eng, err := docdrill.New("./docs/source")
	if err != nil {
		log.Fatal(err)
	}

	result, err := eng.Run(context.Background(), []string{"./docs/source/tutorial.txt"})
	if err != nil {
		log.Fatal(err)
	}
	for _, inst := range result.Instances {
		log.Println(inst.Procedure, inst.Keys, inst.Status)
	}

The engine emits a structured result tree; rendering it is the caller's
concern. The cmd/docdrill CLI is one such caller.
*/
package docdrill
