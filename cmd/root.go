package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"holiday/style"
)

var (
	region string
	bucket string
)

var rootCmd = &cobra.Command{
	Use:   "holiday",
	Short: "Park the fleet for a break and bring it back",
	Long: `holiday flips the Sagebrush fleet between vacation and work mode.

Vacation mode uploads a placeholder page for every active domain, points each
domain's listener rule at the bucket and scales every managed service to zero.
Work mode scales the services back up and hands traffic back to them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), style.ErrorBox.Render("✗ "+err.Error()))
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&region, "region", "", "cloud region (overrides HOLIDAY_REGION)")
	rootCmd.PersistentFlags().StringVar(&bucket, "bucket", "", "placeholder bucket (overrides HOLIDAY_BUCKET)")
}
