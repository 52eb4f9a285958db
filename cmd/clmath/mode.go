package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/comroid-git/clmath/pkg/evaluator"
)

var modeCmd = &cobra.Command{
	Use:   "mode [deg|rad|grad]",
	Short: "Show or set the angle mode",
	Long: `Without an argument the current angle mode is printed. With one the mode
is stored in the config file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: adapt(setMode),
}

func init() {
	rootCmd.AddCommand(modeCmd)
}

func setMode(ctx context.Context, s *session, w io.Writer, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(w, s.rt.AngleMode())
		return nil
	}
	mode, err := evaluator.ParseAngleMode(args[0])
	if err != nil {
		return err
	}
	s.rt.SetAngleMode(mode)
	s.cfg.Engine.AngleMode = mode.String()
	if err := s.cfg.Save(""); err != nil {
		return err
	}
	fmt.Fprintf(w, "angle mode set to %s\n", styled(resultStyle, mode.String()))
	return nil
}
