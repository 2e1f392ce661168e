package cli

import (
	"fmt"
	"os"
)

// Validate parses and builds the sources without executing anything,
// printing every parse error and unbuildable procedure. It returns an error
// when any problem was found.
func Validate(opts RunOptions) error {
	eng, err := newEngine(opts, Logger(opts.Debug))
	if err != nil {
		return err
	}
	files, err := selectFiles(eng, opts)
	if err != nil {
		return err
	}

	reports, err := eng.Validate(files)
	if err != nil {
		return err
	}

	problems := 0
	procedures := 0
	for _, r := range reports {
		procedures += len(r.Procedures)
		for _, pe := range r.ParseErrors {
			fmt.Fprintf(os.Stdout, "parse error: %s\n", pe.Error())
			problems++
		}
		for _, f := range r.Failures {
			fmt.Fprintf(os.Stdout, "unbuildable: %s:%d %s: %s\n", f.File, f.Line, f.Procedure, f.Reason)
			problems++
		}
	}

	fmt.Fprintf(os.Stdout, "%d file(s), %d procedure(s), %d problem(s)\n", len(reports), procedures, problems)
	if problems > 0 {
		return fmt.Errorf("%d problem(s) found", problems)
	}
	return nil
}
