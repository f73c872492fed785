package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mehul-tandon/WipeOut/internal/models"
	"github.com/mehul-tandon/WipeOut/internal/providers"
	"github.com/mehul-tandon/WipeOut/internal/services/certifier"
)

var certificateCmd = &cobra.Command{
	Use:   "certificate",
	Short: "Issue and verify certificates offline",
	Long:  `Commands for issuing and verifying certificates directly against the configured store and signing provider, without the HTTP server.`,
}

var issueCmd = &cobra.Command{
	Use:   "issue [wipe-report.json]",
	Short: "Issue a certificate from a wipe report file",
	Long:  `Validate a wipe report JSON file produced by the wiping tool and issue a signed certificate for it.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read wipe report: %w", err)
		}

		var record models.WipeRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return fmt.Errorf("failed to parse wipe report: %w", err)
		}

		svc, err := buildService()
		if err != nil {
			return err
		}

		if errs := svc.Validate(record); len(errs) > 0 {
			for _, e := range errs {
				fmt.Fprintf(cmd.ErrOrStderr(), "invalid: %s\n", e)
			}
			return fmt.Errorf("wipe report failed validation with %d error(s)", len(errs))
		}

		cert, err := svc.Issue(context.Background(), certifier.IssueParams{
			Record:      record,
			ToolVersion: "wipeout-cli/" + Version,
		})
		if err != nil {
			return fmt.Errorf("failed to issue certificate: %w", err)
		}

		out, err := json.MarshalIndent(cert, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to render certificate: %w", err)
		}
		cmd.Println(string(out))
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify [certificate-id]",
	Short: "Verify a stored certificate",
	Long:  `Load a certificate by id, recompute its digest and check its signature against the configured signing provider.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildService()
		if err != nil {
			return err
		}

		result, err := svc.Verify(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("could not determine validity: %w", err)
		}

		if result.Valid {
			cmd.Printf("certificate %s is VALID\n", args[0])
			return nil
		}
		cmd.Printf("certificate %s is INVALID: %s\n", args[0], result.Reason)
		// An invalid certificate is a verdict, not a command failure.
		return nil
	},
}

// buildService wires the pipelines the same way serve does, minus fx.
func buildService() (*certifier.Service, error) {
	st, err := providers.ProvideStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	signerResult, err := providers.ProvideSigner(providers.SignerParams{Config: cfg})
	if err != nil {
		return nil, err
	}
	return certifier.New(certifier.ServiceParams{
		Store:  st,
		Signer: signerResult.Signer,
		Config: cfg,
	}), nil
}

func init() {
	certificateCmd.AddCommand(issueCmd)
	certificateCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(certificateCmd)
}
