package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "specloom",
	Short: "AI-led interviews distilled into product specifications",
	Long: `Specloom interviews respondents about a theme, extracts structured
facts from the conversation, and distills them through hypotheses and
requirements into a full product specification. Campaigns collect many
respondents on one theme and aggregate their answers.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".specloom.yml", "config file path")
}
