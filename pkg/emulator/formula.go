package emulator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gspreadsheet/pkg/cell"

	"github.com/expr-lang/expr"
)

var refPattern = regexp.MustCompile(`\$?[A-Za-z]{1,3}\$?[0-9]+`)

type evaluated struct {
	display string
	numeric string
}

type evaluator struct {
	sheet    *sheet
	done     map[cell.Pos]evaluated
	visiting map[cell.Pos]bool
}

// recompute refreshes the display and numeric value of every cell.
// Formulas are arithmetic expressions over A1 references.
func (sh *sheet) recompute() {
	ev := &evaluator{
		sheet:    sh,
		done:     make(map[cell.Pos]evaluated),
		visiting: make(map[cell.Pos]bool),
	}
	for p := range sh.cells {
		ev.value(p)
	}
}

func (ev *evaluator) value(p cell.Pos) evaluated {
	if r, ok := ev.done[p]; ok {
		return r
	}
	c, ok := ev.sheet.cells[p]
	if !ok {
		return evaluated{}
	}
	if ev.visiting[p] {
		return evaluated{display: "#REF!"}
	}
	ev.visiting[p] = true
	var r evaluated
	if src, isFormula := strings.CutPrefix(c.input, "="); isFormula {
		r = ev.formula(src)
	} else {
		r = literal(c.input)
	}
	delete(ev.visiting, p)
	ev.done[p] = r
	c.display = r.display
	c.numeric = r.numeric
	return r
}

func literal(input string) evaluated {
	if f, err := strconv.ParseFloat(strings.TrimSpace(input), 64); err == nil {
		return evaluated{display: input, numeric: formatNumber(f)}
	}
	return evaluated{display: input}
}

func (ev *evaluator) formula(src string) evaluated {
	env := make(map[string]interface{})
	code := refPattern.ReplaceAllStringFunc(src, func(ref string) string {
		p, err := cell.Decode(strings.ReplaceAll(ref, "$", ""))
		if err != nil {
			return ref
		}
		name := fmt.Sprintf("R%dC%d", p.Row, p.Col)
		if _, seen := env[name]; !seen {
			// Empty and non-numeric cells count as zero.
			f, _ := strconv.ParseFloat(ev.value(p).numeric, 64)
			env[name] = f
		}
		return name
	})

	out, err := expr.Eval(code, env)
	if err != nil {
		return evaluated{display: "#ERROR!"}
	}
	switch v := out.(type) {
	case int:
		s := formatNumber(float64(v))
		return evaluated{display: s, numeric: s}
	case float64:
		s := formatNumber(v)
		return evaluated{display: s, numeric: s}
	case bool:
		return evaluated{display: strings.ToUpper(strconv.FormatBool(v))}
	default:
		return evaluated{display: fmt.Sprint(v)}
	}
}
