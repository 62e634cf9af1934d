// Package cli — envs.go implements the "pdf2txt envs" command, which
// lists the conda environments the resolved installation knows about.
// It is mainly a smoke test for conda discovery: if envs works, install
// will find the same conda.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/pdf2txt/internal/conda"
	"github.com/mmr-tortoise/pdf2txt/internal/model"
)

// NewEnvsCommand creates the "envs" cobra command.
func NewEnvsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "envs",
		Short: "List conda environments",
		Long: `Locate the conda installation the way install does (conventional paths,
then PATH) and list the environments it manages.`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvs(cmd.Context())
		},
	}
}

// runEnvs is the main logic function for the envs command.
func runEnvs(ctx context.Context) error {
	tool, err := conda.Locate(nil)
	if err != nil {
		return err
	}
	VerboseLog("Using conda at %s (integration %s)", tool.Exe, tool.Mode)

	envs, err := tool.ListEnvs(ctx)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to list environments", err)
	}

	if IsJSONOutput() {
		out := map[string]interface{}{
			"conda": tool.Exe,
			"envs":  envs,
		}
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("conda: %s\n\n", tool.Exe)
	if len(envs) == 0 {
		fmt.Println("No environments found.")
		return nil
	}
	for _, dir := range envs {
		fmt.Printf("  %-20s %s\n", filepath.Base(dir), dir)
	}
	return nil
}
