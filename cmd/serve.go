package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/mehul-tandon/WipeOut/internal/config"
	"github.com/mehul-tandon/WipeOut/internal/handlers"
	"github.com/mehul-tandon/WipeOut/internal/providers"
	"github.com/mehul-tandon/WipeOut/internal/server"
	"github.com/mehul-tandon/WipeOut/internal/services/certifier"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the certificate HTTP server with configured endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := fx.New(
			fx.Provide(
				// Configuration
				provideConfig,

				// Signing provider and store
				providers.ProvideSigner,
				providers.ProvideStore,

				// Service
				certifier.New,

				// Handlers and Server
				handlers.NewHandlers,
				server.NewServer,
			),
			fx.Invoke(server.Start),
		)

		app.Run()
		return nil
	},
}

// provideConfig hands the config loaded by the root command to the fx
// graph. Rebuilding it from viper here would lose --config file
// settings, which only the root viper instance has read.
func provideConfig() *config.Config {
	return cfg
}

func init() {
	// Server flags
	serveCmd.Flags().String("host", "0.0.0.0", "Server host")
	serveCmd.Flags().Int("port", 8080, "Server port")

	// Issuer flags
	serveCmd.Flags().String("issuer-org", "", "Organization name placed in issued certificates")
	serveCmd.Flags().String("public-base-url", "", "Externally reachable base URL used in verification links")

	// Store flags
	serveCmd.Flags().String("store-backend", "file", "Certificate store backend (file, dynamo)")
	serveCmd.Flags().String("store-path", "", "Certificate directory for the file backend")
	serveCmd.Flags().String("store-region", "", "AWS region for DynamoDB")
	serveCmd.Flags().String("store-certificate-table", "", "DynamoDB table name for certificates")
	serveCmd.Flags().String("store-endpoint", "", "DynamoDB endpoint (for local testing)")

	// Signing flags
	serveCmd.Flags().String("signing-aws-region", "", "AWS region for KMS signing")
	serveCmd.Flags().String("signing-aws-key-id", "", "AWS KMS key id or ARN")
	serveCmd.Flags().String("signing-gcp-key-name", "", "Cloud KMS crypto key version resource name")
	serveCmd.Flags().String("signing-azure-vault-url", "", "Azure Key Vault URL")
	serveCmd.Flags().String("signing-azure-key-name", "", "Azure Key Vault key name")
	serveCmd.Flags().String("signing-local-key-dir", "", "Directory for the local fallback key pair")

	// Bind flags to viper
	cobra.CheckErr(v.BindPFlag("server.host", serveCmd.Flags().Lookup("host")))
	cobra.CheckErr(v.BindPFlag("server.port", serveCmd.Flags().Lookup("port")))

	cobra.CheckErr(v.BindPFlag("issuer.organization", serveCmd.Flags().Lookup("issuer-org")))
	cobra.CheckErr(v.BindPFlag("issuer.public_base_url", serveCmd.Flags().Lookup("public-base-url")))

	cobra.CheckErr(v.BindPFlag("store.backend", serveCmd.Flags().Lookup("store-backend")))
	cobra.CheckErr(v.BindPFlag("store.path", serveCmd.Flags().Lookup("store-path")))
	cobra.CheckErr(v.BindPFlag("store.region", serveCmd.Flags().Lookup("store-region")))
	cobra.CheckErr(v.BindPFlag("store.certificate_table_name", serveCmd.Flags().Lookup("store-certificate-table")))
	cobra.CheckErr(v.BindPFlag("store.endpoint", serveCmd.Flags().Lookup("store-endpoint")))

	cobra.CheckErr(v.BindPFlag("signing.aws_region", serveCmd.Flags().Lookup("signing-aws-region")))
	cobra.CheckErr(v.BindPFlag("signing.aws_key_id", serveCmd.Flags().Lookup("signing-aws-key-id")))
	cobra.CheckErr(v.BindPFlag("signing.gcp_key_name", serveCmd.Flags().Lookup("signing-gcp-key-name")))
	cobra.CheckErr(v.BindPFlag("signing.azure_vault_url", serveCmd.Flags().Lookup("signing-azure-vault-url")))
	cobra.CheckErr(v.BindPFlag("signing.azure_key_name", serveCmd.Flags().Lookup("signing-azure-key-name")))
	cobra.CheckErr(v.BindPFlag("signing.local_key_dir", serveCmd.Flags().Lookup("signing-local-key-dir")))

	rootCmd.AddCommand(serveCmd)
}
