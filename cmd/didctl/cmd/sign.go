package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pilacorp/go-did-sdk/crypto"
)

// ErrNotVerified is returned by verify when no authentication key accepts
// the signature.
var ErrNotVerified = errors.New("signature not verified")

var (
	okFmt   = color.New(color.FgGreen, color.Bold)
	failFmt = color.New(color.FgRed, color.Bold)
)

type messageFlags struct {
	message     string
	messageFile string
}

func (f *messageFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.message, "message", "m", "", "Message to sign or verify")
	cmd.Flags().StringVar(&f.messageFile, "message-file", "", "Read the message from a file (- for stdin)")
	cmd.MarkFlagsMutuallyExclusive("message", "message-file")
}

// read returns the message from the flags, or from stdin when neither is set.
func (f *messageFlags) read(cmd *cobra.Command) ([]byte, error) {
	switch {
	case f.message != "":
		return []byte(f.message), nil
	case f.messageFile != "" && f.messageFile != "-":
		data, err := os.ReadFile(f.messageFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read message: %w", err)
		}
		return data, nil
	default:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read message: %w", err)
		}
		return data, nil
	}
}

func newSignCmd(opts *globalOptions) *cobra.Command {
	var (
		keyFile   string
		algorithm string
		msg       messageFlags
	)

	cmd := &cobra.Command{
		Use:     "sign",
		Short:   "Sign a message with a PKCS#8 PEM private key",
		Example: "  didctl sign --key private.pem --message hello",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := os.ReadFile(keyFile)
			if err != nil {
				return fmt.Errorf("failed to read private key: %w", err)
			}

			message, err := msg.read(cmd)
			if err != nil {
				return err
			}

			svc, err := opts.newService(cmd)
			if err != nil {
				return err
			}

			signature, err := svc.Sign(cmd.Context(), message, string(key), crypto.Algorithm(algorithm))
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), signature)
			return err
		},
	}

	cmd.Flags().StringVarP(&keyFile, "key", "k", "", "Path to the PEM private key")
	cmd.Flags().StringVar(&algorithm, "algorithm", "", "Signing algorithm (default: the key's algorithm)")
	_ = cmd.MarkFlagRequired("key")
	msg.register(cmd)

	return cmd
}

func newVerifyCmd(opts *globalOptions) *cobra.Command {
	var (
		signature string
		algorithm string
		msg       messageFlags
	)

	cmd := &cobra.Command{
		Use:     "verify <did>",
		Short:   "Verify a signature against the authentication keys of a DID",
		Example: "  didctl verify did:key:z6Mk... --signature eyJhbGciOi... --message hello",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message, err := msg.read(cmd)
			if err != nil {
				return err
			}

			svc, err := opts.newService(cmd)
			if err != nil {
				return err
			}

			res, err := svc.Verify(cmd.Context(), args[0], message, strings.TrimSpace(signature), crypto.Algorithm(algorithm))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !res.Verified {
				failFmt.Fprintln(out, "NOT VERIFIED")
				return ErrNotVerified
			}

			okFmt.Fprint(out, "VERIFIED")
			fmt.Fprintf(out, " by %s\n", res.MatchedKeyID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&signature, "signature", "s", "", "Compact JWS")
	cmd.Flags().StringVar(&algorithm, "algorithm", "", "Expected algorithm (default: taken from the JWS header)")
	_ = cmd.MarkFlagRequired("signature")
	msg.register(cmd)

	return cmd
}
