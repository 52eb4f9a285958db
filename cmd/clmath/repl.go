package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/comroid-git/clmath/pkg/render"
	"github.com/comroid-git/clmath/pkg/runtime"
)

const historyFile = "history"

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive session",
	Long: `Starts an interactive session. Input is either a statement
(expression, "name = expression", "@name" or an equation after "@name")
or one of the commands listed by "help".`,
	Args: cobra.NoArgs,
}

func init() {
	rootCmd.AddCommand(replCmd)
	replCmd.RunE = withSession(runRepl)
	rootCmd.RunE = replCmd.RunE
}

// replCommand is a command word understood inside the interactive session.
type replCommand struct {
	usage string
	help  string
	run   func(r *repl, args []string) error
}

var replCommands map[string]replCommand

func init() {
	replCommands = map[string]replCommand{
		"help":    {"help [topic]", "show this list or a reference topic", (*repl).help},
		"exit":    {"exit", "leave the session", nil},
		"quit":    {"quit", "leave the session", nil},
		"list":    {"list vars|mem|consts|funcs|stack|stash|units [catalog]", "list session state", (*repl).list},
		"set":     {"set <name> <expression>", "store a constant", wrap(constSet, 2, true)},
		"unset":   {"unset <name>", "remove a constant", wrap(constUnset, 1, false)},
		"mode":    {"mode [deg|rad|grad]", "show or set the angle mode", wrap(setMode, 0, false)},
		"enable":  {"enable <catalog>", "enable a catalog for this session", (*repl).enable},
		"disable": {"disable <catalog>", "disable a catalog for this session", (*repl).disable},
		"save":    {"save <name> <expression> [var=expression...]", "save a function", wrap(funcSave, 2, false)},
		"load":    {"load <name>", "enter a function's scope and evaluate it when nothing is missing", (*repl).load},
		"eval":    {"eval", "evaluate the loaded function", (*repl).eval},
		"drop":    {"drop", "leave the loaded function's scope", (*repl).drop},
		"stash":   {"stash", "put the loaded function aside with its variables", (*repl).stash},
		"restore": {"restore", "bring back the most recently stashed function", (*repl).restore},
		"rename":  {"rename <name> <new-name>", "rename a function", wrap(funcRename, 2, false)},
		"delete":  {"delete <name>", "delete a function", wrap(funcDelete, 1, false)},
		"clear":   {"clear [vars|mem|stack|stash|all]", "clear session state", (*repl).clear},
		"solve":   {"solve <for> <as> <expression>", "rearrange an expression", (*repl).solve},
		"render":  {"render <expression>", "render in the configured output mode", wrap(renderExpr, 1, true)},
		"latex":   {"latex <expression>", "render as LaTeX", (*repl).latex},
		"missing": {"missing <expression>", "list unresolved variables", wrap(missingVars, 1, true)},
	}
}

// wrap adapts a command helper for the session. With joinRest, arguments beyond min are
// joined into the last one so expressions may contain spaces.
func wrap(fn func(context.Context, *session, io.Writer, []string) error, min int, joinRest bool) func(*repl, []string) error {
	return func(r *repl, args []string) error {
		if len(args) < min {
			return fmt.Errorf("expected at least %d argument(s)", min)
		}
		if joinRest && min > 0 && len(args) > min {
			args = append(slices.Clone(args[:min-1]), strings.Join(args[min-1:], " "))
		}
		return fn(r.ctx, r.s, r.out, args)
	}
}

type repl struct {
	ctx context.Context
	s   *session
	out io.Writer
	ln  *liner.State
}

func runRepl(s *session, cmd *cobra.Command, _ []string) error {
	r := &repl{ctx: cmd.Context(), s: s, out: cmd.OutOrStdout()}

	r.ln = liner.NewLiner()
	defer r.ln.Close()
	r.ln.SetCtrlCAborts(true)
	r.ln.SetCompleter(r.complete)

	histPath := filepath.Join(filepath.Dir(s.cfg.Path()), historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = r.ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if err := os.MkdirAll(filepath.Dir(histPath), 0o755); err != nil {
			return
		}
		if f, err := os.Create(histPath); err == nil {
			_, _ = r.ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	fmt.Fprintln(r.out, styled(titleStyle, "clmath")+" "+styled(mutedStyle, "type help for commands, exit to leave"))
	for {
		line, err := r.ln.Prompt(r.prompt())
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(r.out)
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.ln.AppendHistory(line)

		quit, err := r.handle(line)
		if err != nil {
			printError(err)
		}
		if quit {
			return nil
		}
	}
}

func (r *repl) prompt() string {
	p := "[" + r.s.rt.AngleMode().String() + "]"
	if f := r.s.rt.Frame(); f != nil {
		p += " " + f.Name()
	}
	if t := r.s.rt.Target(); t != "" {
		p += " @" + t
	}
	return p + "> "
}

// handle runs one line. Lines starting with a command word are commands unless the word
// is being declared as a variable.
func (r *repl) handle(line string) (bool, error) {
	fields := strings.Fields(line)
	if c, ok := replCommands[fields[0]]; ok && !strings.HasPrefix(strings.TrimSpace(line[len(fields[0]):]), "=") {
		if c.run == nil {
			return true, nil
		}
		return false, c.run(r, fields[1:])
	}
	res, err := r.s.rt.Exec(r.ctx, line)
	if err != nil {
		return false, err
	}
	printResult(r.out, res, r.s)
	autoEval(r.out, res, r.s)
	return false, nil
}

func (r *repl) help(args []string) error {
	if len(args) > 0 {
		return showGuide(r.out, args[:1], false)
	}
	names := make([]string, 0, len(replCommands))
	for name := range replCommands {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		c := replCommands[name]
		fmt.Fprintf(r.out, "  %-48s %s\n", c.usage, styled(mutedStyle, c.help))
	}
	return nil
}

func (r *repl) list(args []string) error {
	what := "vars"
	if len(args) > 0 {
		what = args[0]
	}
	ctx := r.s.rt.Context()
	switch what {
	case "vars":
		for _, name := range ctx.Names() {
			expr, _ := ctx.Get(name)
			fmt.Fprintf(r.out, "%s = %s\n", styled(nameStyle, name), render.Render(expr, render.Plain))
		}
	case "mem":
		for i := 0; i < ctx.MemLen(); i++ {
			q, _ := ctx.Mem(i)
			fmt.Fprintf(r.out, "mem[%d] = %s\n", i, styled(resultStyle, q.String()))
		}
	case "consts":
		return constList(r.ctx, r.s, r.out, nil)
	case "funcs":
		return funcList(r.ctx, r.s, r.out, nil)
	case "stack":
		r.listFrames(r.s.rt.Frames(), "no function is loaded")
	case "stash":
		r.listFrames(r.s.rt.Stashed(), "nothing is stashed")
	case "units":
		return unitsList(r.ctx, r.s, r.out, args[1:])
	default:
		return fmt.Errorf("unknown list category %q", what)
	}
	return nil
}

func (r *repl) enable(args []string) error {
	for _, name := range args {
		if err := r.s.rt.EnableCatalog(name); err != nil {
			return err
		}
	}
	return nil
}

func (r *repl) disable(args []string) error {
	for _, name := range args {
		if !r.s.rt.DisableCatalog(name) {
			return fmt.Errorf("catalog %s is not enabled", name)
		}
	}
	return nil
}

func (r *repl) listFrames(frames []*runtime.Frame, empty string) {
	if len(frames) == 0 {
		fmt.Fprintln(r.out, styled(mutedStyle, empty))
		return
	}
	for i, f := range frames {
		fmt.Fprintf(r.out, "%d: %s = %s\n", i, styled(nameStyle, f.Name()), render.Render(f.Function.Body, render.Plain))
	}
}

func (r *repl) load(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: load <name>")
	}
	if err := funcShow(r.ctx, r.s, r.out, args); err != nil {
		return err
	}
	f, err := r.s.rt.LoadFunction(args[0])
	if err != nil {
		return err
	}
	if len(r.s.rt.Evaluator().MissingVariables(f.Function.Body, f.Context)) > 0 {
		return nil
	}
	return r.eval(nil)
}

func (r *repl) eval(_ []string) error {
	q, err := r.s.rt.EvaluateFrame(r.ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, styled(resultStyle, q.String()))
	return nil
}

func (r *repl) drop(_ []string) error {
	_, err := r.s.rt.Drop()
	return err
}

func (r *repl) stash(_ []string) error {
	f, err := r.s.rt.Stash()
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "stashed %s\n", styled(nameStyle, f.Name()))
	return nil
}

func (r *repl) restore(_ []string) error {
	f, err := r.s.rt.Restore()
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "restored %s\n", styled(nameStyle, f.Name()))
	return nil
}

func (r *repl) clear(args []string) error {
	what := "all"
	if len(args) > 0 {
		what = args[0]
	}
	switch what {
	case "vars":
		r.s.rt.ClearVars()
	case "mem":
		r.s.rt.ClearMem()
	case "stack":
		r.s.rt.ClearStack()
	case "stash":
		r.s.rt.ClearStash()
	case "all":
		r.s.rt.ClearAll()
	default:
		return fmt.Errorf("unknown clear category %q", what)
	}
	return nil
}

func (r *repl) solve(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: solve <for> <as> <expression>")
	}
	target, as := args[0], args[1]
	solved, err := r.s.rt.SolveSource(strings.Join(args[2:], " "), target, as)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "%s = %s\n", styled(nameStyle, target), styled(resultStyle, render.Render(solved, r.s.outputMode())))
	return nil
}

func (r *repl) latex(args []string) error {
	out, err := r.s.rt.Render(strings.Join(args, " "), render.LaTeX)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, out)
	return nil
}

// complete offers command words and variable names for the last word of line.
func (r *repl) complete(line string) []string {
	start := strings.LastIndexAny(line, " +-*/^(){}[];=,") + 1
	prefix, word := line[:start], line[start:]
	if word == "" {
		return nil
	}
	var candidates []string
	if start == 0 {
		for name := range replCommands {
			candidates = append(candidates, name)
		}
	}
	candidates = append(candidates, r.s.rt.Context().Names()...)
	candidates = append(candidates, r.s.rt.Constants().Names()...)

	var out []string
	for _, c := range candidates {
		if strings.HasPrefix(c, word) {
			out = append(out, prefix+c)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
