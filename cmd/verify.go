package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"holiday/orchestrator"
	"holiday/style"
)

var verifyCmd = &cobra.Command{
	Use:     "verify",
	Short:   "Show placeholder objects, routing targets and service counts without changing anything",
	Aliases: []string{"status"},
	Args:    cobra.NoArgs,
	RunE:    runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer e.close()

	v, err := e.orch.Verify(cmd.Context())
	if err != nil {
		return err
	}
	printVerification(v)
	return nil
}

func printVerification(v *orchestrator.Verification) {
	fmt.Println(style.Banner.Render("☀️  HOLIDAY VERIFY"))
	fmt.Printf("  %s %s %s\n\n", style.Key.Render("Bucket"), style.Val.Render("s3://"+v.Bucket), style.Check(v.BucketOK))

	header := fmt.Sprintf("  %-28s %-16s %-9s %-7s %s", "DOMAIN", "SERVICE", "PRIORITY", "PAGE", "TARGET")
	fmt.Println(style.TableHeader.Render(header))
	for _, d := range v.Domains {
		fmt.Printf("  %s %s %s %s %s\n",
			style.Bold.Render(padRight(d.Domain, 28)),
			padRight(d.Service, 16),
			padRight(strconv.Itoa(d.Priority), 9),
			padRight(style.Check(d.ObjectExists), 7),
			style.TargetBadge(d.Target))
	}
	fmt.Println()

	header = fmt.Sprintf("  %-20s %-20s %-8s %-8s %s", "SERVICE", "CLUSTER", "DESIRED", "RUNNING", "PENDING")
	fmt.Println(style.TableHeader.Render(header))
	for _, s := range v.Services {
		if !s.Exists {
			fmt.Printf("  %s %s %s\n", style.Bold.Render(padRight(s.Service, 20)), padRight(s.Cluster, 20), style.DimText.Render("not deployed"))
			continue
		}
		fmt.Printf("  %s %s %-8d %-8d %d\n", style.Bold.Render(padRight(s.Service, 20)), padRight(s.Cluster, 20), s.Desired, s.Counts.Running, s.Pending)
	}
	fmt.Println()

	fmt.Printf("  %s %s\n\n", style.Key.Render("Fleet"), style.FleetBadge(v.Fleet))
}

func padRight(s string, n int) string {
	if w := lipgloss.Width(s); w < n {
		return s + strings.Repeat(" ", n-w)
	}
	return s
}
