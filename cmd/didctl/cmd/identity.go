package cmd

import (
	"github.com/spf13/cobra"

	"github.com/pilacorp/go-did-sdk/builder"
	"github.com/pilacorp/go-did-sdk/crypto"
	"github.com/pilacorp/go-did-sdk/did"
	"github.com/pilacorp/go-did-sdk/didkey"
	"github.com/pilacorp/go-did-sdk/keymaterial"
)

type generatedKey struct {
	ID         string                `json:"id"`
	Type       string                `json:"type"`
	Controller string                `json:"controller"`
	Algorithm  crypto.Algorithm      `json:"algorithm,omitempty"`
	Encodings  keymaterial.Encodings `json:"encodings"`
}

type generated struct {
	DID      string         `json:"did"`
	Document *did.Document  `json:"didDocument"`
	Keys     []generatedKey `json:"keys"`
}

func newGenerateCmd(opts *globalOptions) *cobra.Command {
	var (
		identifier  string
		algorithm   string
		keyEncoding string
	)

	cmd := &cobra.Command{
		Use:       "generate <key|web-jwk|web-cryptoLD|web-gaiaX>",
		Short:     "Generate a new identity",
		Example:   "  didctl generate key --algorithm ES256K\n  didctl generate web-jwk --did https://example.com/users/alice",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"key", "web-jwk", "web-cryptoLD", "web-gaiaX"},
		RunE: func(cmd *cobra.Command, args []string) error {
			method, err := builder.ParseMethod(args[0])
			if err != nil {
				return err
			}

			enc, err := didkey.ParseEncoding(keyEncoding)
			if err != nil {
				return err
			}

			svc, err := opts.newService(cmd)
			if err != nil {
				return err
			}

			res, err := svc.GenerateIdentity(cmd.Context(), method, builder.Params{
				Identifier:  identifier,
				Algorithm:   crypto.Algorithm(algorithm),
				KeyEncoding: enc,
			})
			if err != nil {
				return err
			}

			out := generated{DID: res.DID, Document: res.Document}
			for _, k := range res.Keys {
				out.Keys = append(out.Keys, generatedKey{
					ID:         k.ID,
					Type:       k.Type,
					Controller: k.Controller,
					Algorithm:  k.Material.Algorithm,
					Encodings:  k.Material.Encodings,
				})
			}

			return opts.print(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&identifier, "did", "", "did:web identifier or https URL (did:web methods)")
	cmd.Flags().StringVar(&algorithm, "algorithm", "", "Signing algorithm: EdDSA, ES256, ES256K (default EdDSA)")
	cmd.Flags().StringVar(&keyEncoding, "key-encoding", "", "did:key encoding: jwk_jcs-pub, multikey (default jwk_jcs-pub)")

	return cmd
}

func newResolveCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <did>",
		Short: "Resolve a DID into its document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.newService(cmd)
			if err != nil {
				return err
			}

			res, err := svc.ResolveIdentity(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return opts.print(cmd.OutOrStdout(), res)
		},
	}
}
