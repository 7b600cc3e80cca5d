package commands

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"olm/olm"
)

func accountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Create and inspect an account",
	}
	cmd.AddCommand(accountCreateCmd())
	return cmd
}

func accountCreateCmd() *cobra.Command {
	var otkCount int
	var pickleKeyB64 string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Generate a fresh identity, one-time keys, and a fallback key",
		RunE: func(cmd *cobra.Command, args []string) error {
			acct, err := olm.NewAccount(rand.Reader)
			if err != nil {
				return err
			}
			log.WithField("identity_keys", acct.IdentityKeys()).Info("generated account")

			if otkCount > 0 {
				if err := acct.GenerateOneTimeKeys(otkCount, rand.Reader); err != nil {
					return err
				}
				log.WithField("count", otkCount).Info("generated one-time keys")
			}
			if err := acct.GenerateFallbackKey(rand.Reader); err != nil {
				return err
			}

			fmt.Println("identity_keys:", acct.IdentityKeys())
			if otkCount > 0 {
				fmt.Println("one_time_keys:", acct.OneTimeKeys())
			}
			fmt.Println("fallback_key:", acct.FallbackKey())

			pickleKey, err := resolvePickleKey(pickleKeyB64)
			if err != nil {
				return err
			}
			blob, err := acct.Pickle(pickleKey)
			if err != nil {
				return err
			}
			fmt.Println("pickle_key:", base64.StdEncoding.EncodeToString(pickleKey))
			fmt.Println("pickle:", blob)
			return nil
		},
	}
	cmd.Flags().IntVar(&otkCount, "otk-count", 5, "number of one-time keys to generate")
	cmd.Flags().StringVar(&pickleKeyB64, "key", "", "base64 pickle key (random if omitted)")
	return cmd
}

func resolvePickleKey(b64 string) ([]byte, error) {
	if b64 == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
		return key, nil
	}
	return base64.StdEncoding.DecodeString(b64)
}
