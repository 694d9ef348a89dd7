package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/parity/internal/endpoint"
)

type endpointView struct {
	Name     string   `json:"name"`
	Aliases  []string `json:"aliases,omitempty"`
	Category string   `json:"category"`
	Ranged   bool     `json:"ranged"`
}

// NewEndpointsCommand creates the endpoints command.
func NewEndpointsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "endpoints",
		Short:         "List endpoints by category",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)

			if out.Format == "json" {
				var views []endpointView
				for _, ep := range endpoint.All() {
					views = append(views, endpointView{
						Name:     ep.Name,
						Aliases:  ep.Aliases,
						Category: ep.Category.String(),
						Ranged:   ep.Ranged(),
					})
				}
				return out.Success(views)
			}

			for _, c := range endpoint.Categories() {
				fmt.Fprintf(out.Writer, "%s:\n", strings.ToUpper(c.String()))
				for _, ep := range endpoint.ByCategory(c) {
					fmt.Fprintf(out.Writer, "  %-30s %s\n", ep.Name, strings.Join(ep.Aliases, ", "))
				}
			}
			return nil
		},
	}
}
