package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"olm/olm"
)

func utilityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "utility",
		Short: "Stateless hashing and signature helpers",
	}
	cmd.AddCommand(sha256Cmd(), ed25519VerifyCmd())
	return cmd
}

func sha256Cmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sha256 <text>",
		Short: "Print base64(SHA-256(text))",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(olm.Utility{}.Sha256([]byte(args[0])))
			return nil
		},
	}
}

func ed25519VerifyCmd() *cobra.Command {
	var pub, sig string
	cmd := &cobra.Command{
		Use:   "ed25519-verify <message>",
		Short: "Verify a base64 Ed25519 signature over message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := (olm.Utility{}).Ed25519Verify(pub, []byte(args[0]), sig); err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	}
	cmd.Flags().StringVar(&pub, "pub", "", "base64 Ed25519 public key")
	cmd.Flags().StringVar(&sig, "sig", "", "base64 Ed25519 signature")
	cmd.MarkFlagRequired("pub")
	cmd.MarkFlagRequired("sig")
	return cmd
}
