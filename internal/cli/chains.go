package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// ChainsOptions holds flags for the chains command.
type ChainsOptions struct {
	*RootOptions
	ChainsFile string
}

type chainView struct {
	Name            string   `json:"name"`
	Aliases         []string `json:"aliases,omitempty"`
	Pallets         int      `json:"pallets"`
	Accounts        int      `json:"accounts"`
	StakingAccounts int      `json:"staking_accounts"`
}

// NewChainsCommand creates the chains command.
func NewChainsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ChainsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "chains",
		Short:         "List known chains",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChains(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.ChainsFile, "chains", "", "CUE file replacing the built-in chain tables")

	return cmd
}

func runChains(cmd *cobra.Command, opts *ChainsOptions) error {
	out := opts.formatter(cmd)

	registry, err := loadRegistry(opts.ChainsFile)
	if err != nil {
		return out.Fail(ExitCommandError, CodeConfig, "failed to load chain tables", err)
	}

	var views []chainView
	for _, c := range registry.Chains() {
		views = append(views, chainView{
			Name:            c.Name,
			Aliases:         c.Aliases,
			Pallets:         len(c.Pallets),
			Accounts:        len(c.Accounts),
			StakingAccounts: len(c.StakingAccounts),
		})
	}

	if out.Format == "json" {
		return out.Success(views)
	}

	tw := tabwriter.NewWriter(out.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CHAIN\tALIASES\tPALLETS\tACCOUNTS\tSTAKING")
	for _, v := range views {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", v.Name, strings.Join(v.Aliases, ", "), v.Pallets, v.Accounts, v.StakingAccounts)
	}
	return tw.Flush()
}
