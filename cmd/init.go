package cmd

import (
	"github.com/spf13/cobra"

	"github.com/specloom/specloom/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize specloom configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to choose a provider and model and generates a .specloom.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
