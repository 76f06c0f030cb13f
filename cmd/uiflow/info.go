package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gotrs-io/uiflow/internal/profile"
	"github.com/gotrs-io/uiflow/internal/version"
	"github.com/gotrs-io/uiflow/internal/workflow"
)

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "List the scenario battery for the selected profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		p, err := c.Profile()
		if err != nil {
			return &exitError{code: exitFatal, err: err}
		}

		fmt.Printf("%s scenarios against %s\n\n", p.AppName, c.BaseURL(p))
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tPRECONDITION\tDESCRIPTION")
		for _, sc := range workflow.Battery(p) {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", sc.ID(), sc.Name, sc.Precondition, sc.Description)
		}
		return w.Flush()
	},
}

var profilesCmd = &cobra.Command{
	Use:   "profiles [name]",
	Short: "List built-in profiles or print one as a profile file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			p, err := profile.Lookup(args[0])
			if err != nil {
				return &exitError{code: exitFatal, err: err}
			}
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(p)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "NAME\tAPP\tNOUN\tDEFAULT URL\tHEALTH")
		for _, name := range profile.Names() {
			p, err := profile.Lookup(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.Name, p.AppName, p.Noun, p.DefaultURL, p.HealthPath)
		}
		return w.Flush()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		full, _ := cmd.Flags().GetBool("full")
		if full {
			fmt.Println(version.Full())
			return
		}
		fmt.Println(version.String())
	},
}

func init() {
	versionCmd.Flags().Bool("full", false, "include build date and Go version")
}
