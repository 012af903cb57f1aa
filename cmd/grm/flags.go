package grm

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skaphos/grm/internal/cliio"
)

const (
	formatUsage    = "output format: table, json, yaml"
	noHeadersUsage = "when using table format, do not print headers"
)

func addFormatFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "o", "table", formatUsage)
}

func addNoHeadersFlag(cmd *cobra.Command) {
	cmd.Flags().Bool("no-headers", false, noHeadersUsage)
}

func outputFormat(cmd *cobra.Command) (cliio.Format, error) {
	raw, _ := cmd.Flags().GetString("format")
	return cliio.ParseFormat(raw)
}

// logOutputWriteFailure records non-fatal output write/flush failures.
// CLI consumers frequently pipe to tools that close early (for example `head`),
// so we log and continue instead of treating these as command failures.
func logOutputWriteFailure(context string, err error) {
	if err == nil {
		return
	}
	logger.Debug("ignored output write failure", zap.String("context", context), zap.Error(err))
}
