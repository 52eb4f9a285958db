package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/comroid-git/clmath/pkg/runtime"
)

var evalCmd = &cobra.Command{
	Use:   "eval [statement...]",
	Short: "Evaluate expressions",
	Long: `Evaluates each argument as one statement in a shared session, so later
statements see earlier declarations. With no arguments or "-", statements
are read from stdin, one per line.

Examples:
  clmath eval "4^2"
  clmath eval "U = 230[V]" "I = 16[A]" "U*I"
  echo "frac(1)(2)" | clmath eval`,
	RunE: withSession(runEval),
}

var solveFor, solveAs string

var solveCmd = &cobra.Command{
	Use:   "solve <equation>",
	Short: "Rearrange an equation for one variable",
	Long: `Solves "f(x) = y" or "y = f(x)" for the variable given with --for.
A bare expression needs --as to name the variable it equals.

Examples:
  clmath solve "x^2 = y" --for x
  clmath solve "frac(XL)(2*pi*f)" --for f --as L`,
	Args: cobra.ExactArgs(1),
	RunE: withSession(runSolve),
}

var renderCmd = &cobra.Command{
	Use:   "render <expression>",
	Short: "Render an expression as text or LaTeX",
	Args:  cobra.ExactArgs(1),
	RunE:  adapt(renderExpr),
}

var missingCmd = &cobra.Command{
	Use:   "missing <expression>",
	Short: "List variables an expression needs but the session cannot resolve",
	Args:  cobra.ExactArgs(1),
	RunE:  adapt(missingVars),
}

func init() {
	rootCmd.AddCommand(evalCmd, solveCmd, renderCmd, missingCmd)

	solveCmd.Flags().StringVar(&solveFor, "for", "", "variable to solve for")
	solveCmd.Flags().StringVar(&solveAs, "as", "", "variable the expression equals, for bare expressions")
	_ = solveCmd.MarkFlagRequired("for")
}

func runEval(s *session, cmd *cobra.Command, args []string) error {
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		return evalLines(s, cmd, os.Stdin)
	}
	for _, src := range args {
		if err := execAndPrint(s, cmd, src); err != nil {
			return err
		}
	}
	return nil
}

func evalLines(s *session, cmd *cobra.Command, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := execAndPrint(s, cmd, line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func execAndPrint(s *session, cmd *cobra.Command, src string) error {
	w := cmd.OutOrStdout()
	res, err := s.rt.Exec(cmd.Context(), src)
	if err != nil {
		return err
	}
	printResult(w, res, s)
	autoEval(w, res, s)
	return nil
}

// autoEval evaluates a solution right away when every variable it needs is known.
func autoEval(w io.Writer, res *runtime.Result, s *session) {
	if !s.cfg.Engine.AutoEval || res.Kind != runtime.KindSolution {
		return
	}
	ev, ctx := s.rt.Evaluator(), s.rt.Context()
	if len(ev.MissingVariables(res.Expr, ctx)) > 0 {
		return
	}
	q, err := ev.Evaluate(res.Expr, ctx)
	if err != nil {
		s.logger.Debug("auto evaluation failed", "name", res.Name, "error", err)
		return
	}
	printResult(w, &runtime.Result{Kind: runtime.KindDeclaration, Name: res.Name, Value: q}, s)
}

type jsonResult struct {
	Kind  string `json:"kind"`
	Name  string `json:"name,omitempty"`
	Value string `json:"value,omitempty"`
	Expr  string `json:"expr,omitempty"`
}

func printResult(w io.Writer, res *runtime.Result, s *session) {
	mode := s.outputMode()
	if jsonOutput {
		out := jsonResult{Kind: string(res.Kind), Name: res.Name}
		switch res.Kind {
		case runtime.KindValue, runtime.KindDeclaration:
			out.Value = res.Value.String()
		case runtime.KindSolution:
			out.Expr = res.Format(mode)
		}
		b, _ := json.Marshal(out)
		fmt.Fprintln(w, string(b))
		return
	}
	switch res.Kind {
	case runtime.KindTarget:
		fmt.Fprintln(w, styled(mutedStyle, "solving for "+res.Name))
	case runtime.KindDeclaration, runtime.KindSolution:
		fmt.Fprintln(w, styled(nameStyle, res.Name)+" = "+styled(resultStyle, strings.TrimPrefix(res.Format(mode), res.Name+" = ")))
	default:
		fmt.Fprintln(w, styled(resultStyle, res.Format(mode)))
	}
}

func runSolve(s *session, cmd *cobra.Command, args []string) error {
	solved, err := s.rt.SolveSource(args[0], solveFor, solveAs)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	res := &runtime.Result{Kind: runtime.KindSolution, Name: solveFor, Expr: solved}
	printResult(w, res, s)
	autoEval(w, res, s)
	return nil
}

func renderExpr(ctx context.Context, s *session, w io.Writer, args []string) error {
	out, err := s.rt.Render(args[0], s.outputMode())
	if err != nil {
		return err
	}
	fmt.Fprintln(w, out)
	return nil
}

func missingVars(ctx context.Context, s *session, w io.Writer, args []string) error {
	missing, err := s.rt.Missing(args[0])
	if err != nil {
		return err
	}
	if jsonOutput {
		if missing == nil {
			missing = []string{}
		}
		b, _ := json.Marshal(missing)
		fmt.Fprintln(w, string(b))
		return nil
	}
	for _, name := range missing {
		fmt.Fprintln(w, name)
	}
	return nil
}
