package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"holiday/holiday"
	"holiday/style"
)

var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information and the managed domains",
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := holiday.Default()
		if err != nil {
			return err
		}

		fmt.Println(style.Banner.Render("☀️  HOLIDAY"))
		fmt.Printf("  %s %s\n", style.Key.Render("Version"), style.Val.Render(Version))
		for _, d := range table.Domains() {
			svc, _ := table.ServiceFor(d)
			fmt.Printf("  %s %s %s\n", style.Key.Render("Domain"), style.Val.Render(d), style.DimText.Render(fmt.Sprintf("→ %s @ %d", svc, table.PriorityFor(d))))
		}
		fmt.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
