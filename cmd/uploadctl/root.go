// Command uploadctl drives the uploadkit library from the command line:
// the "upload" subcommand performs session creation, chunked upload,
// resumption, and verification for one local file, and the "resume"
// subcommand does the same against an existing session ID.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd.
var (
	flagConfigPath string
	flagEndpoint   string
	flagChunkSize  string
	flagAlgorithm  string
	flagMaxRetries int
	flagBandwidth  string
	flagSessionDB  string
	flagJSON       bool
	flagQuiet      bool
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "uploadctl",
		Short:   "Resumable, chunked, verified file upload client",
		Version: version,
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "path to uploadctl.toml (defaults unused options)")
	cmd.PersistentFlags().StringVar(&flagEndpoint, "endpoint", "", "upload session endpoint")
	cmd.PersistentFlags().StringVar(&flagChunkSize, "chunk-size", "", "chunk size, e.g. 5MiB (overrides config)")
	cmd.PersistentFlags().StringVar(&flagAlgorithm, "checksum-algorithm", "", "sha-256, sha-384, or sha-512")
	cmd.PersistentFlags().IntVar(&flagMaxRetries, "max-retries", 0, "per-chunk retry budget (0 = use config default)")
	cmd.PersistentFlags().StringVar(&flagBandwidth, "bandwidth-limit", "", "bytes/sec cap, e.g. 10MiB (0 = unlimited)")
	cmd.PersistentFlags().StringVar(&flagSessionDB, "session-db", "", "path to the local session cache database")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit one JSON line per progress event instead of a live line")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress progress output")

	cmd.AddCommand(newUploadCmd())
	cmd.AddCommand(newResumeCmd())

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
