package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// Plan prints the expanded instance set per procedure with the dimension
// keys chosen for each, so writers can see exactly which variants will run.
func Plan(opts RunOptions) error {
	eng, err := newEngine(opts, Logger(opts.Debug))
	if err != nil {
		return err
	}
	files, err := selectFiles(eng, opts)
	if err != nil {
		return err
	}

	instances, failures, err := eng.Plan(files)
	if err != nil {
		return err
	}

	for _, f := range failures {
		fmt.Fprintf(os.Stdout, "unbuildable: %s:%d %s: %s\n", f.File, f.Line, f.Procedure, f.Reason)
	}
	for _, inst := range instances {
		title := inst.Procedure.Title
		if title == "" {
			title = inst.Procedure.File
		}
		actions := 0
		for _, s := range inst.Steps {
			actions += len(s.Actions())
		}
		fmt.Fprintf(os.Stdout, "%s%s: %d step(s), %d action(s)\n",
			title, planKeys(inst.Keys), len(inst.Steps), actions)
	}
	fmt.Fprintf(os.Stdout, "%d instance(s) total\n", len(instances))
	return nil
}

func planKeys(keys map[string]string) string {
	if len(keys) == 0 {
		return ""
	}
	parts := make([]string, 0, len(keys))
	for dim, key := range keys {
		parts = append(parts, dim+"="+key)
	}
	sort.Strings(parts)
	return " [" + strings.Join(parts, " ") + "]"
}
