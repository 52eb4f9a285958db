package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/comroid-git/clmath/pkg/diagnostics"
	"github.com/comroid-git/clmath/pkg/evaluator"
	"github.com/comroid-git/clmath/pkg/render"
)

var funcCmd = &cobra.Command{
	Use:   "func",
	Short: "Manage saved functions",
	Long: `Saved functions are callable as $name{var=value; ...}. Default values
fill in variables the caller leaves out.

Examples:
  clmath func save ohm "U/I" --var I=16[A]
  clmath eval '$ohm{U=230[V]}'`,
}

var funcVars []string

var funcSaveCmd = &cobra.Command{
	Use:   "save <name> <expression> [var=expression...]",
	Short: "Save or replace a function",
	Args:  cobra.MinimumNArgs(2),
	RunE:  adapt(funcSave),
}

var funcListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved functions",
	Args:  cobra.NoArgs,
	RunE:  adapt(funcList),
}

var funcShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a function, its defaults and its missing variables",
	Args:  cobra.ExactArgs(1),
	RunE:  adapt(funcShow),
}

var funcDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a function",
	Args:  cobra.ExactArgs(1),
	RunE:  adapt(funcDelete),
}

var funcRenameCmd = &cobra.Command{
	Use:   "rename <name> <new-name>",
	Short: "Rename a function",
	Args:  cobra.ExactArgs(2),
	RunE:  adapt(funcRename),
}

var constCmd = &cobra.Command{
	Use:   "const",
	Short: "Manage constants",
}

var constSetCmd = &cobra.Command{
	Use:   "set <name> <expression>",
	Short: "Evaluate an expression and store it as a constant",
	Args:  cobra.ExactArgs(2),
	RunE:  adapt(constSet),
}

var constUnsetCmd = &cobra.Command{
	Use:   "unset <name>",
	Short: "Remove a constant",
	Args:  cobra.ExactArgs(1),
	RunE:  adapt(constUnset),
}

var constListCmd = &cobra.Command{
	Use:   "list",
	Short: "List constants",
	Args:  cobra.NoArgs,
	RunE:  adapt(constList),
}

func init() {
	rootCmd.AddCommand(funcCmd, constCmd)
	funcCmd.AddCommand(funcSaveCmd, funcListCmd, funcShowCmd, funcRenameCmd, funcDeleteCmd)
	constCmd.AddCommand(constSetCmd, constUnsetCmd, constListCmd)

	funcSaveCmd.Flags().StringArrayVar(&funcVars, "var", nil, "default value as name=expression (repeatable)")
}

func parseAssignments(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, &evaluator.RuntimeError{Code: diagnostics.EMalformed, Message: fmt.Sprintf("expected name=expression, got %q", p)}
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return out, nil
}

func funcSave(ctx context.Context, s *session, w io.Writer, args []string) error {
	defaults, err := parseAssignments(append(slices.Clone(funcVars), args[2:]...))
	if err != nil {
		return err
	}
	fn, err := s.store.SaveFunction(ctx, args[0], args[1], defaults)
	if err != nil {
		return err
	}
	s.logger.Debug("function saved", "name", fn.Name, "id", fn.ID)
	fmt.Fprintf(w, "saved %s\n", styled(nameStyle, fn.Name))
	return nil
}

func funcList(ctx context.Context, s *session, w io.Writer, _ []string) error {
	fns, err := s.store.ListFunctions(ctx)
	if err != nil {
		return err
	}
	if jsonOutput {
		b, _ := json.Marshal(fns)
		fmt.Fprintln(w, string(b))
		return nil
	}
	if len(fns) == 0 {
		fmt.Fprintln(w, styled(mutedStyle, "no saved functions"))
		return nil
	}
	for _, fn := range fns {
		fmt.Fprintf(w, "%s = %s\n", styled(nameStyle, fn.Name), fn.Source)
	}
	return nil
}

func funcShow(ctx context.Context, s *session, w io.Writer, args []string) error {
	fn, err := s.store.GetFunction(ctx, args[0])
	if err != nil {
		return err
	}
	if fn == nil {
		return &evaluator.RuntimeError{Code: diagnostics.EUnresolved, Message: fmt.Sprintf("function %s not found", args[0])}
	}
	if jsonOutput {
		b, _ := json.Marshal(fn)
		fmt.Fprintln(w, string(b))
		return nil
	}

	body, err := s.rt.Render(fn.Source, s.outputMode())
	if err != nil {
		return err
	}
	lines := []string{styled(nameStyle, fn.Name) + " = " + body}
	for _, name := range fn.SortedDefaults() {
		lines = append(lines, fmt.Sprintf("  %s = %s", name, fn.Defaults[name]))
	}

	// Missing variables of a call with no arguments: the body's free variables that
	// neither a default nor the session supplies.
	missing, err := s.rt.Missing("$" + fn.Name + "{}")
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		lines = append(lines, styled(mutedStyle, "missing: "+strings.Join(missing, ", ")))
	}
	fmt.Fprintln(w, styled(boxStyle, strings.Join(lines, "\n")))
	return nil
}

func funcDelete(ctx context.Context, s *session, w io.Writer, args []string) error {
	deleted, err := s.store.DeleteFunction(ctx, args[0])
	if err != nil {
		return err
	}
	if !deleted {
		return &evaluator.RuntimeError{Code: diagnostics.EUnresolved, Message: fmt.Sprintf("function %s not found", args[0])}
	}
	fmt.Fprintf(w, "deleted %s\n", args[0])
	return nil
}

func funcRename(ctx context.Context, s *session, w io.Writer, args []string) error {
	renamed, err := s.store.RenameFunction(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if !renamed {
		return &evaluator.RuntimeError{Code: diagnostics.EUnresolved, Message: fmt.Sprintf("function %s not found", args[0])}
	}
	s.logger.Debug("function renamed", "from", args[0], "to", args[1])
	fmt.Fprintf(w, "renamed %s to %s\n", args[0], styled(nameStyle, args[1]))
	return nil
}

func constSet(ctx context.Context, s *session, w io.Writer, args []string) error {
	q, err := s.rt.Evaluate(ctx, args[1])
	if err != nil {
		return err
	}
	if !q.Unit.IsDimensionless() {
		return &evaluator.RuntimeError{Code: diagnostics.EDimension, Message: "constants must be dimensionless, got " + q.String()}
	}
	if err := s.store.SetConstant(ctx, args[0], q.Base()); err != nil {
		return err
	}
	if err := s.rt.Constants().Set(args[0], q.Base()); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s = %s\n", styled(nameStyle, args[0]), styled(resultStyle, render.Number(q.Base())))
	return nil
}

func constUnset(ctx context.Context, s *session, w io.Writer, args []string) error {
	if evaluator.IsBuiltin(args[0]) {
		return &evaluator.RuntimeError{Code: diagnostics.EUnsupported, Message: "constant " + args[0] + " is built in"}
	}
	deleted, err := s.store.DeleteConstant(ctx, args[0])
	if err != nil {
		return err
	}
	if !deleted {
		return &evaluator.RuntimeError{Code: diagnostics.EUnresolved, Message: fmt.Sprintf("constant %s not found", args[0])}
	}
	s.rt.Constants().Unset(args[0])
	fmt.Fprintf(w, "removed %s\n", args[0])
	return nil
}

type constInfo struct {
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Builtin bool    `json:"builtin"`
}

func constList(ctx context.Context, s *session, w io.Writer, _ []string) error {
	table := s.rt.Constants()
	var infos []constInfo
	for _, name := range table.Names() {
		v, _ := table.Get(name)
		infos = append(infos, constInfo{Name: name, Value: v, Builtin: evaluator.IsBuiltin(name)})
	}
	if jsonOutput {
		b, _ := json.Marshal(infos)
		fmt.Fprintln(w, string(b))
		return nil
	}
	for _, c := range infos {
		line := fmt.Sprintf("%s = %s", styled(nameStyle, c.Name), render.Number(c.Value))
		if c.Builtin {
			line += " " + styled(mutedStyle, "(built in)")
		}
		fmt.Fprintln(w, line)
	}
	return nil
}
