package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var unitsCmd = &cobra.Command{
	Use:   "units",
	Short: "Manage unit catalogs",
	Long: `Lists, defines and toggles unit catalogs. Catalogs are loaded from the
embedded defaults and from the configured units directory.

Examples:
  clmath units list
  clmath units list electric
  clmath units define time d "day" --rel "d*24=h"
  clmath units enable time`,
}

var unitsListCmd = &cobra.Command{
	Use:   "list [catalog]",
	Short: "List catalogs or the units of one catalog",
	Args:  cobra.MaximumNArgs(1),
	RunE:  adapt(unitsList),
}

var unitRelations []string

var unitsDefineCmd = &cobra.Command{
	Use:   "define <catalog> <symbol> [name]",
	Short: "Define a unit and save its catalog",
	Args:  cobra.RangeArgs(2, 3),
	RunE:  adapt(unitsDefine),
}

var unitsRelationCmd = &cobra.Command{
	Use:   "relation <catalog> <relation>",
	Short: `Add a relation such as "Wh/h=W" to a catalog`,
	Args:  cobra.ExactArgs(2),
	RunE:  adapt(unitsRelation),
}

var unitsExportCmd = &cobra.Command{
	Use:   "export <catalog>",
	Short: "Print a catalog as a YAML bundle",
	Args:  cobra.ExactArgs(1),
	RunE:  adapt(unitsExport),
}

var unitsEnableCmd = &cobra.Command{
	Use:   "enable <catalog>",
	Short: "Enable a catalog in the config",
	Args:  cobra.ExactArgs(1),
	RunE:  withSession(runUnitsToggle(true)),
}

var unitsDisableCmd = &cobra.Command{
	Use:   "disable <catalog>",
	Short: "Disable a catalog in the config",
	Args:  cobra.ExactArgs(1),
	RunE:  withSession(runUnitsToggle(false)),
}

func init() {
	rootCmd.AddCommand(unitsCmd)
	unitsCmd.AddCommand(unitsListCmd, unitsDefineCmd, unitsRelationCmd, unitsExportCmd, unitsEnableCmd, unitsDisableCmd)

	unitsDefineCmd.Flags().StringArrayVar(&unitRelations, "rel", nil, `relation for the new unit, e.g. "d*24=h" (repeatable)`)
}

type catalogInfo struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Units   int    `json:"units"`
}

func unitsList(ctx context.Context, s *session, w io.Writer, args []string) error {
	reg := s.rt.Registry()
	enabled := s.rt.Context().Catalogs()

	if len(args) == 0 {
		var infos []catalogInfo
		for _, name := range reg.Catalogs() {
			c, _ := reg.Catalog(name)
			infos = append(infos, catalogInfo{Name: name, Enabled: slices.Contains(enabled, name), Units: len(c.Units())})
		}
		if jsonOutput {
			b, _ := json.Marshal(infos)
			fmt.Fprintln(w, string(b))
			return nil
		}
		for _, info := range infos {
			state := styled(mutedStyle, "disabled")
			if info.Enabled {
				state = styled(resultStyle, "enabled")
			}
			fmt.Fprintf(w, "%-12s %3d units  %s\n", info.Name, info.Units, state)
		}
		return nil
	}

	bundle, err := reg.ExportBundle(args[0])
	if err != nil {
		return err
	}
	if jsonOutput {
		b, _ := json.Marshal(bundle)
		fmt.Fprintln(w, string(b))
		return nil
	}
	var lines []string
	for _, u := range bundle.Units {
		line := styled(nameStyle, u.Symbol) + "  " + u.Name
		if len(u.Relations) > 0 {
			line += "\n  " + styled(mutedStyle, strings.Join(u.Relations, "  "))
		}
		lines = append(lines, line)
	}
	fmt.Fprintln(w, styled(titleStyle, bundle.Name))
	fmt.Fprintln(w, styled(boxStyle, strings.Join(lines, "\n")))
	return nil
}

func unitsDefine(ctx context.Context, s *session, w io.Writer, args []string) error {
	catalog, symbol := args[0], args[1]
	name := symbol
	if len(args) == 3 {
		name = args[2]
	}
	if err := s.rt.Registry().DefineUnit(catalog, symbol, name, unitRelations...); err != nil {
		return err
	}
	if err := s.saveCatalog(catalog); err != nil {
		return err
	}
	fmt.Fprintf(w, "defined %s in %s\n", styled(nameStyle, symbol), catalog)
	return nil
}

func unitsRelation(ctx context.Context, s *session, w io.Writer, args []string) error {
	if err := s.rt.Registry().DefineRelation(args[0], args[1]); err != nil {
		return err
	}
	if err := s.saveCatalog(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(w, "added %s to %s\n", styled(nameStyle, args[1]), args[0])
	return nil
}

func unitsExport(ctx context.Context, s *session, w io.Writer, args []string) error {
	bundle, err := s.rt.Registry().ExportBundle(args[0])
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("encode catalog %s: %w", args[0], err)
	}
	_, err = w.Write(data)
	return err
}

func runUnitsToggle(enable bool) func(*session, *cobra.Command, []string) error {
	return func(s *session, cmd *cobra.Command, args []string) error {
		name := args[0]
		if enable {
			if err := s.rt.EnableCatalog(name); err != nil {
				return err
			}
		}
		list := slices.DeleteFunc(slices.Clone(s.cfg.Units.Enabled), func(n string) bool { return n == name })
		if enable {
			list = append(list, name)
		}
		s.cfg.Units.Enabled = list
		if err := s.cfg.Save(""); err != nil {
			return err
		}
		verb := "disabled"
		if enable {
			verb = "enabled"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, name)
		return nil
	}
}
