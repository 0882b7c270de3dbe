// Command resurrectctl registers recipients with a resurrector host and
// triggers dispatches from the command line.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/grand-thief-cash/resurrector/client"
	"github.com/grand-thief-cash/resurrector/internal/application/components/http_client"
)

var version = "0.1.0"

type globalOpts struct {
	host    string
	timeout time.Duration
}

func main() {
	opts := &globalOpts{}
	rootCmd := &cobra.Command{
		Use:     "resurrectctl",
		Short:   "Resurrector host client",
		Version: version,
	}
	rootCmd.PersistentFlags().StringVar(&opts.host, "host", "http://127.0.0.1:8080", "resurrector host base URL")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout")

	rootCmd.AddCommand(registerCmd(opts), dispatchCmd(opts), listCmd(opts))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (o *globalOpts) client() *client.Client {
	return client.New(o.host, &http_client.HTTPClientConfig{Timeout: o.timeout})
}
