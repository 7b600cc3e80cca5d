package commands

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"olm/olm"
)

// identityBundle and otkBundle mirror the JSON shapes Account.IdentityKeys
// and Account.OneTimeKeys publish, the way a real client would decode a
// peer's published bundle off a server rather than reaching into the
// peer's own process.
type identityBundle struct {
	Curve25519 string `json:"curve25519"`
}

type otkBundle struct {
	Curve25519 map[string]string `json:"curve25519"`
}

func decodeCurve25519Key(b64 string) ([32]byte, error) {
	var out [32]byte
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return out, err
	}
	copy(out[:], raw)
	return out, nil
}

func peerIdentityKey(acct *olm.Account) ([32]byte, error) {
	var bundle identityBundle
	if err := json.Unmarshal([]byte(acct.IdentityKeys()), &bundle); err != nil {
		return [32]byte{}, err
	}
	return decodeCurve25519Key(bundle.Curve25519)
}

// peerOneTimeKey returns one published one-time key's public value and id.
func peerOneTimeKey(acct *olm.Account) (id string, pub [32]byte, err error) {
	var bundle otkBundle
	if err = json.Unmarshal([]byte(acct.OneTimeKeys()), &bundle); err != nil {
		return "", pub, err
	}
	for keyID, b64 := range bundle.Curve25519 {
		pub, err = decodeCurve25519Key(b64)
		return keyID, pub, err
	}
	return "", pub, fmt.Errorf("no published one-time keys")
}

func demoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted end-to-end scenario in-process",
	}
	cmd.AddCommand(demoTwoPartyCmd(), demoGroupCmd(), demoSASCmd())
	return cmd
}

func demoTwoPartyCmd() *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "two-party",
		Short: "Alice and Bob exchange one message each over a fresh Olm session",
		RunE: func(cmd *cobra.Command, args []string) error {
			alice, err := olm.NewAccount(rand.Reader)
			if err != nil {
				return err
			}
			bob, err := olm.NewAccount(rand.Reader)
			if err != nil {
				return err
			}
			if err := bob.GenerateOneTimeKeys(1, rand.Reader); err != nil {
				return err
			}
			log.Info("alice and bob both generated identities; bob published one one-time key")

			otkID, bobOTKPub, err := peerOneTimeKey(bob)
			if err != nil {
				return err
			}
			log.WithField("key_id", otkID).Info("bob's one-time key")

			bobIdentityPub, err := peerIdentityKey(bob)
			if err != nil {
				return err
			}

			sessionA, err := olm.CreateOutbound(alice, bobIdentityPub, bobOTKPub, rand.Reader)
			if err != nil {
				return err
			}
			log.WithField("session_id", sessionA.SessionID()).Info("alice created outbound session")

			msgType, ciphertext, err := sessionA.Encrypt([]byte(message), rand.Reader)
			if err != nil {
				return err
			}
			fmt.Println("alice -> bob:", ciphertext)

			sessionB, err := olm.CreateInbound(bob, ciphertext)
			if err != nil {
				return err
			}
			if err := bob.RemoveOneTimeKeys(sessionB); err != nil {
				return err
			}
			log.WithField("session_id", sessionB.SessionID()).Info("bob created inbound session and consumed the one-time key")

			plaintext, err := sessionB.Decrypt(msgType, ciphertext, rand.Reader)
			if err != nil {
				return err
			}
			fmt.Println("bob received:", string(plaintext))

			reply := "got it"
			_, replyCiphertext, err := sessionB.Encrypt([]byte(reply), rand.Reader)
			if err != nil {
				return err
			}
			fmt.Println("bob -> alice:", replyCiphertext)

			replyPlaintext, err := sessionA.Decrypt(1, replyCiphertext, rand.Reader)
			if err != nil {
				return err
			}
			fmt.Println("alice received:", string(replyPlaintext))
			return nil
		},
	}
	cmd.Flags().StringVar(&message, "message", "hello from olmctl", "plaintext alice sends first")
	return cmd
}

func demoGroupCmd() *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Share a Megolm session and decrypt one message from it",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := olm.NewOutboundGroupSession(rand.Reader)
			if err != nil {
				return err
			}
			log.WithField("session_id", out.SessionID()).Info("created outbound group session")

			sessionKey := out.SessionKey()
			ciphertext, err := out.Encrypt([]byte(message))
			if err != nil {
				return err
			}
			fmt.Println("ciphertext:", ciphertext)

			in, err := olm.NewInboundGroupSession(sessionKey)
			if err != nil {
				return err
			}
			plaintext, index, err := in.Decrypt(ciphertext)
			if err != nil {
				return err
			}
			fmt.Printf("decrypted at index %d: %s\n", index, plaintext)
			return nil
		},
	}
	cmd.Flags().StringVar(&message, "message", "hello group", "plaintext to encrypt")
	return cmd
}

func demoSASCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sas",
		Short: "Run a short-authentication-string exchange between two parties",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := olm.NewSAS(rand.Reader)
			if err != nil {
				return err
			}
			b, err := olm.NewSAS(rand.Reader)
			if err != nil {
				return err
			}
			if err := a.SetTheirKey(b.GetPubkey()); err != nil {
				return err
			}
			if err := b.SetTheirKey(a.GetPubkey()); err != nil {
				return err
			}
			const info = "MATRIX_KEY_VERIFICATION_SAS"
			bytesA, err := a.GenerateBytes(info, 5)
			if err != nil {
				return err
			}
			bytesB, err := b.GenerateBytes(info, 5)
			if err != nil {
				return err
			}
			fmt.Printf("alice bytes: %x\n", bytesA)
			fmt.Printf("bob bytes:   %x\n", bytesB)
			return nil
		},
	}
	return cmd
}
