package cmd

import (
	"github.com/spf13/cobra"
)

var modulesCmd = &cobra.Command{
	Use:     "modules",
	Aliases: []string{"mod"},
	Short:   "List and manage registered modules",
}

var modulesListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List every registered module and its enabled state",
	RunE:    runModulesList,
}

var modulesEnableCmd = &cobra.Command{
	Use:   "enable <module-key>",
	Short: "Enable a module",
	Args:  cobra.ExactArgs(1),
	RunE:  runModulesEnable,
}

var modulesDisableCmd = &cobra.Command{
	Use:   "disable <module-key>",
	Short: "Disable a module",
	Args:  cobra.ExactArgs(1),
	RunE:  runModulesDisable,
}

func init() {
	modulesCmd.AddCommand(modulesListCmd, modulesEnableCmd, modulesDisableCmd)
	rootCmd.AddCommand(modulesCmd)
}

func runModulesList(cmd *cobra.Command, args []string) error {
	_, formatter, client, err := initializeClient()
	if err != nil {
		return err
	}

	mods, err := client.ListModules()
	if err != nil {
		formatter.PrintError(err)
		return err
	}
	return formatter.PrintModules(mods)
}

func runModulesEnable(cmd *cobra.Command, args []string) error {
	config, formatter, client, err := initializeClient()
	if err != nil {
		return err
	}

	if err := client.SetModuleEnabled(args[0], true); err != nil {
		formatter.PrintError(err)
		return err
	}
	if !config.Quiet {
		formatter.PrintSuccess("module " + args[0] + " enabled")
	}
	return nil
}

func runModulesDisable(cmd *cobra.Command, args []string) error {
	config, formatter, client, err := initializeClient()
	if err != nil {
		return err
	}

	if err := client.SetModuleEnabled(args[0], false); err != nil {
		formatter.PrintError(err)
		return err
	}
	if !config.Quiet {
		formatter.PrintSuccess("module " + args[0] + " disabled")
	}
	return nil
}
