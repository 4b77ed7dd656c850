package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var teamsCmd = &cobra.Command{
	Use:   "teams",
	Short: "List the execution teams and their capacity profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		table := a.router.Table()
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TEAM\tCAPABILITIES\tAVG RESPONSE\tMAX CONCURRENT\tIN FLIGHT")
		for _, name := range table.TeamNames() {
			team := table.Team(name)
			fmt.Fprintf(w, "%s\t%s\t%ds\t%d\t%d\n",
				team.Name,
				strings.Join(team.Capabilities, ","),
				team.AvgResponseSeconds,
				team.MaxConcurrent,
				a.router.Load(team.Name),
			)
		}
		return w.Flush()
	},
}
