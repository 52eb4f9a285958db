package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/comroid-git/clmath/pkg/evaluator"
	"github.com/comroid-git/clmath/pkg/help"
	"github.com/comroid-git/clmath/pkg/parser"
)

var guideIndex bool

var guideCmd = &cobra.Command{
	Use:   "guide [topic]",
	Short: "Show the built-in reference",
	Long: `Without a topic the quick reference is printed. Topics may be abbreviated.
With --index the list of unary functions is printed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showGuide(cmd.OutOrStdout(), args, guideIndex)
	},
}

func init() {
	rootCmd.AddCommand(guideCmd)
	guideCmd.Flags().BoolVar(&guideIndex, "index", false, "list the unary functions")
}

func showGuide(w io.Writer, args []string, index bool) error {
	if index {
		names := make(map[string]bool)
		for name, kind := range parser.FunctionNames() {
			names[name] = evaluator.Implemented(kind)
		}
		fmt.Fprint(w, help.FunctionIndex(names))
		return nil
	}
	if len(args) == 0 {
		fmt.Fprint(w, help.QUICKREF)
		return nil
	}
	_, content, err := help.MatchTopic(args[0])
	if err != nil {
		return fmt.Errorf("%w\navailable topics: %s", err, strings.Join(help.TopicList, ", "))
	}
	fmt.Fprint(w, content)
	return nil
}
