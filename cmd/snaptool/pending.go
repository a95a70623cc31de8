package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hugof38/pysnaptest"
)

var listCmd = &cobra.Command{
	Use:   "list [dir]",
	Short: "List pending snapshots under a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runList,
}

var acceptCmd = &cobra.Command{
	Use:   "accept [dir]",
	Short: "Accept pending snapshots as the new reference",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAccept,
}

var rejectCmd = &cobra.Command{
	Use:   "reject [dir]",
	Short: "Discard pending snapshots, keeping the stored reference",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runReject,
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(acceptCmd)
	rootCmd.AddCommand(rejectCmd)
}

func targetDir(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

func runList(cmd *cobra.Command, args []string) error {
	pending, err := pysnaptest.ListPending(targetDir(args))
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no pending snapshots")
		return nil
	}
	for _, p := range pending {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}

func runAccept(cmd *cobra.Command, args []string) error {
	pending, err := pysnaptest.ListPending(targetDir(args))
	if err != nil {
		return err
	}
	for _, p := range pending {
		if err := pysnaptest.AcceptPending(p); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "accepted %s\n", p)
	}
	return nil
}

func runReject(cmd *cobra.Command, args []string) error {
	pending, err := pysnaptest.ListPending(targetDir(args))
	if err != nil {
		return err
	}
	for _, p := range pending {
		if err := pysnaptest.RejectPending(p); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "rejected %s\n", p)
	}
	return nil
}
