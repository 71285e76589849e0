package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/approvals/internal/api"
)

var contractCmd = &cobra.Command{
	Use:   "contract",
	Short: "Print the OpenAPI contract this client speaks",
	Long: `Print the embedded OpenAPI document describing the endpoints and
payloads the client sends and accepts.

With --paths only the operations are listed.`,
	Args: cobra.NoArgs,
	RunE: runContract,
}

func init() {
	contractCmd.Flags().Bool("paths", false, "list operations instead of printing the document")
	rootCmd.AddCommand(contractCmd)
}

func runContract(cmd *cobra.Command, _ []string) error {
	paths, _ := cmd.Flags().GetBool("paths")
	if !paths {
		_, err := cmd.OutOrStdout().Write(api.ContractYAML())
		return err
	}

	doc, err := api.Contract(cmd.Context())
	if err != nil {
		return err
	}

	var lines []string
	for path, item := range doc.Paths.Map() {
		for method, op := range item.Operations() {
			lines = append(lines, fmt.Sprintf("%-6s %-40s %s", method, path, op.OperationID))
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		fmt.Fprintln(cmd.OutOrStdout(), l)
	}
	return nil
}
