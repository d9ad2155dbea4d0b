package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"sgr/internal/auth/token"
	"sgr/internal/risk"
	"sgr/internal/screens"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sgrctl",
		Short:         "Operator tooling for the SGR risk register",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newScoreCmd(), newTokenCmd(), newScreensCmd())
	return root
}

func newScoreCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "score <probabilidade> <impacto>",
		Short: "Compute criticality and severity for a probability/impact pair",
		Example: `  sgrctl score ALTO "MUITO ALTO"
  sgrctl score MÉDIO BAIXO --json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, ok := risk.ComputeLabels(args[0], args[1])
			if !ok {
				return fmt.Errorf("entrada incompleta: níveis válidos são %s", levelList())
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(score)
			}
			fmt.Fprintf(out, "criticidade: %d\nseveridade:  %s\n", score.Criticality, score.Severity)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the score as JSON")
	return cmd
}

func levelList() string {
	labels := make([]string, 0, len(risk.Levels()))
	for _, l := range risk.Levels() {
		labels = append(labels, l.String())
	}
	return strings.Join(labels, ", ")
}

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Access token utilities",
	}

	var at string
	inspect := &cobra.Command{
		Use:   "inspect <token>",
		Short: "Decode a token's claims without verifying its signature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
				now = t
			}
			claims, ok := token.Decode(args[0])
			if !ok {
				return fmt.Errorf("token could not be decoded")
			}
			printClaims(cmd.OutOrStdout(), claims, now)
			return nil
		},
	}
	inspect.Flags().StringVar(&at, "at", "", "evaluate expiry at this RFC3339 time instead of now")
	cmd.AddCommand(inspect)
	return cmd
}

func printClaims(w io.Writer, c *token.Claims, now time.Time) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintf(tw, "user\t%s\n", c.UserName)
	fmt.Fprintf(tw, "client\t%s\n", c.ClientID)
	fmt.Fprintf(tw, "authorities\t%s\n", strings.Join(c.Authorities, ", "))
	fmt.Fprintf(tw, "scope\t%s\n", strings.Join(c.Scope, " "))
	fmt.Fprintf(tw, "expires\t%s\n", time.Unix(c.ExpiresAtEpochSeconds(), 0).UTC().Format(time.RFC3339))
	fmt.Fprintf(tw, "authenticated\t%t\n", c.ValidAt(now))
}

func newScreensCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "screens",
		Short: "Screen registry utilities",
	}

	var file string
	validate := &cobra.Command{
		Use:   "validate",
		Short: "Load a screen registry and list what it protects",
		Long:  "Validates the registry file, or the built-in registry when --file is omitted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := screens.LoadFile(file)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tPATH\tADMIN\tCAPABILITIES")
			for _, s := range registry.Screens() {
				fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", s.Name, s.Path, s.Admin, strings.Join(s.Authorities(), "|"))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d screens OK\n", len(registry.Screens()))
			return nil
		},
	}
	validate.Flags().StringVarP(&file, "file", "f", "", "registry YAML file")
	cmd.AddCommand(validate)
	return cmd
}
