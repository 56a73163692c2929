package cmd

import (
	"github.com/WeWriteApp/pagechain/internal/server"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd())
}

func serveCmd() *cobra.Command {
	var httpPort string

	command := &cobra.Command{
		Use:     "serve",
		Short:   "start the http server",
		Example: "pagechain serve -p 4030",
		Run: func(cmd *cobra.Command, args []string) {
			server.NewServer(httpPort).Start()
		},
	}

	command.Flags().StringVarP(&httpPort, "port", "p", "4030", "http port")

	return command
}
