package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/mattn/go-isatty"

	"vgmdb/internal/fixture"
)

// renderProblems writes a validation report, as a table when the
// destination is a terminal and as plain grouped text otherwise so the
// output stays paste-friendly in scripts and CI logs.
func renderProblems(w io.Writer, problems fixture.ProblemList) {
	if len(problems) == 0 {
		return
	}
	if !isTerminal(w) {
		fmt.Fprintln(w, problems.Report())
		return
	}

	rows := make([][]string, 0, len(problems))
	for _, p := range problems {
		rows = append(rows, []string{
			p.Model,
			strconv.FormatInt(p.PK, 10),
			p.Field,
			p.Kind.String(),
			p.Message,
		})
	}
	table := renderTable(
		[]string{"Model", "PK", "Field", "Kind", "Problem"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
	)
	fmt.Fprintln(w, table)
}

func writeErrorFile(path string, problems fixture.ProblemList) error {
	report := problems.Report()
	if err := os.WriteFile(path, []byte(report+"\n"), 0o644); err != nil {
		return fmt.Errorf("write error report %q: %w", path, err)
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
