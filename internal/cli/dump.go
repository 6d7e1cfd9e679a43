package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/pastas/internal/canon"
	"github.com/roach88/pastas/internal/store"
)

// DumpOptions holds flags for the dump command.
type DumpOptions struct {
	*RootOptions
	Output string
}

// DumpOutput is the JSON payload of the dump command.
type DumpOutput struct {
	Hash  string          `json:"hash"`
	Model json.RawMessage `json:"model"`
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DumpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dump <model-file>",
		Short: "Print the canonical model dump and its content hash",
		Long: `Build a model and print its dump as canonical JSON (RFC 8785) together
with the content hash under which a database stores it. File metadata
(creation and modification times) does not enter the hash.

Example:
  pastas dump well.yaml -o well.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the dump to a file instead of stdout")

	return cmd
}

func runDump(opts *DumpOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loaded, err := LoadModel(path)
	if err != nil {
		return failLoad(formatter, err)
	}

	d := loaded.Model.Dump()
	data, err := canon.Marshal(d)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to encode model", err)
	}
	hash, err := store.ModelHash(d)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to hash model", err)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, data, 0644); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to write dump", err)
		}
		formatter.VerboseLog("Wrote %d bytes to %s", len(data), opts.Output)
		if formatter.Format == "json" {
			return formatter.Success(map[string]string{"hash": hash, "output": opts.Output})
		}
		fmt.Fprintln(formatter.Writer, hash)
		return nil
	}

	if formatter.Format == "json" {
		return formatter.Success(DumpOutput{Hash: hash, Model: data})
	}
	fmt.Fprintln(formatter.Writer, hash)
	fmt.Fprintln(formatter.Writer, string(data))
	return nil
}
