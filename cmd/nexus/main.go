package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "nexus [session]",
		Short: "A channel-based terminal manager",
		Long:  "Nexus runs many named background processes (\"channels\"), each in its own pseudo-terminal, behind a single unified prompt.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session := "default"
			if len(args) == 1 {
				session = args[0]
			}
			code, err := attach(session)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
			os.Exit(code)
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("nexus version %s\n", version)
		},
	}

	var debugAddr string
	serveCmd := &cobra.Command{
		Use:    "serve [session]",
		Short:  "Run the session daemon in the foreground",
		Hidden: true,
		Args:   cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session := "default"
			if len(args) == 1 {
				session = args[0]
			}
			return serve(session, debugAddr)
		},
	}
	serveCmd.Flags().StringVar(&debugAddr, "debug-addr", "", "bind the loopback debug inspector to this address (e.g. 127.0.0.1:7777)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}
