package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/grand-thief-cash/resurrector/bundle"
	"github.com/grand-thief-cash/resurrector/client"
	"github.com/grand-thief-cash/resurrector/model"
	"github.com/grand-thief-cash/resurrector/wire"
)

func registerCmd(opts *globalOpts) *cobra.Command {
	var (
		kind    string
		action  string
		payload string
		events  []string
		async   bool
	)
	cmd := &cobra.Command{
		Use:   "register <namespace/name>",
		Short: "Register a recipient for resurrection",
		Long: `Register a recipient to be woken when any of the --on events is dispatched.
Without --on the recipient is woken by every event.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := model.ParseIdentity(args[0])
			if err != nil {
				return err
			}
			ek, err := model.ParseEndpointKind(kind)
			if err != nil {
				return err
			}
			req := client.NewRequest(id, ek, client.WithAction(action), client.NotifyOn(events...))
			if payload != "" {
				var p bundle.Bundle
				if err := json.Unmarshal([]byte(payload), &p); err != nil {
					return fmt.Errorf("--payload: %w", err)
				}
				req.Payload = p
			}
			cli := opts.client()
			if async {
				if err := cli.RequestResurrection(cmd.Context(), req); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "submitted %s\n", id)
				return nil
			}
			if err := cli.Register(cmd.Context(), req); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(model.EndpointService), "endpoint kind: Service|Activity")
	cmd.Flags().StringVar(&action, "action", wire.ActionResurrect, "activation action")
	cmd.Flags().StringVar(&payload, "payload", "", `payload bundle as JSON, e.g. {"n":{"kind":"int32","value":1}}`)
	cmd.Flags().StringSliceVar(&events, "on", nil, "event names (repeatable)")
	cmd.Flags().BoolVar(&async, "async", false, "submit as a fire-and-forget message")
	return cmd
}

func dispatchCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "dispatch <event>...",
		Short: "Wake every recipient registered for the events",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := opts.client().Dispatch(cmd.Context(), args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "dispatch %s: %d recipient(s)\n", res.ID, len(res.Matched))
			for _, id := range res.Matched {
				fmt.Fprintf(out, "  %s\n", id)
			}
			return nil
		},
	}
}

func listCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registrations known to the host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := opts.client().List(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "IDENTITY\tKIND\tACTION\tNOTIFY ON")
			for _, r := range list {
				on := "*"
				if !r.IsWildcard() {
					on = fmt.Sprint(r.EventKeys())
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Identity, r.EndpointKind, r.ActivationAction, on)
			}
			return w.Flush()
		},
	}
}
