package cmd

import (
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/infinity/internal/api"
	"github.com/Mohsinsiddi/infinity/internal/ui"
	"github.com/Mohsinsiddi/infinity/internal/wallet"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

var (
	signWallet string
	signTx     string

	verifySig     string
	verifyAddress string
	verifyTx      string
)

var signCmd = &cobra.Command{
	Use:   "sign [message]",
	Short: "Sign a message with EIP-191 (personal_sign)",
	Long: `Sign a plaintext message with personal_sign.

By default the connected wallet signs, after approval in the wallet. With
--wallet a local signing wallet signs directly from the keychain. --tx signs
the ownership proof for an investment transaction instead of a message.

Examples:
  infinity sign "hello world"
  infinity sign --tx 0xabc...
  infinity sign "login nonce: 12345" --wallet alice`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		message, err := signingMessage(args, signTx)
		if err != nil {
			return err
		}

		var signer, sigHex string
		if signWallet != "" {
			mgr := newWalletManager()
			w, err := loadSigningWallet(mgr, signWallet)
			if err != nil {
				return err
			}
			sig, err := wallet.SignMessage(w, mgr.Keystore(), []byte(message))
			if err != nil {
				return fmt.Errorf("signing failed: %w", err)
			}
			signer, sigHex = w.Address, hexutil.Encode(sig)
		} else {
			conn, release := openConnector(ctx, newRegistry())
			defer release()
			s, p, err := requireSession(ctx, conn)
			if err != nil {
				return err
			}
			sigHex, err = wallet.PersonalSign(ctx, p, message, s.Account)
			if err != nil {
				return fmt.Errorf("signing failed: %w", err)
			}
			signer = s.Account
		}

		fmt.Println(ui.KeyValueBlock("Message Signed", [][2]string{
			{"Signer", ui.Addr(signer)},
			{"Message", message},
			{"Signature", sigHex},
		}))
		fmt.Println(ui.Hint(fmt.Sprintf("Verify: infinity verify %q --sig %s --address %s", message, sigHex, signer)))
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify [message]",
	Short: "Verify an EIP-191 signed message",
	Long: `Recover the signer of a personal_sign signature and, when --address is
given, compare it with the expected signer.

Examples:
  infinity verify "hello world" --sig 0x... --address 0x...
  infinity verify --tx 0xabc... --sig 0x...`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message, err := signingMessage(args, verifyTx)
		if err != nil {
			return err
		}
		if verifySig == "" {
			return fmt.Errorf("--sig is required")
		}
		sig, err := hexutil.Decode(verifySig)
		if err != nil {
			return fmt.Errorf("invalid signature hex: %w", err)
		}
		recovered, err := wallet.VerifyMessage([]byte(message), sig)
		if err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}

		pairs := [][2]string{
			{"Message", message},
			{"Recovered Signer", ui.Addr(recovered.Hex())},
		}
		if verifyAddress != "" {
			if strings.EqualFold(recovered.Hex(), verifyAddress) {
				pairs = append(pairs, [2]string{"Match", ui.Success("signer matches")})
			} else {
				pairs = append(pairs,
					[2]string{"Expected", ui.Addr(verifyAddress)},
					[2]string{"Match", ui.Err("signer does not match the expected address")},
				)
			}
		}
		fmt.Println(ui.KeyValueBlock("Signature Verification", pairs))
		return nil
	},
}

func init() {
	signCmd.Flags().StringVar(&signWallet, "wallet", "", "sign with a local signing wallet instead of the connected one")
	signCmd.Flags().StringVar(&signTx, "tx", "", "sign the ownership proof for this investment transaction")

	verifyCmd.Flags().StringVar(&verifySig, "sig", "", "hex signature to verify (required)")
	verifyCmd.Flags().StringVar(&verifyAddress, "address", "", "expected signer address")
	verifyCmd.Flags().StringVar(&verifyTx, "tx", "", "verify the ownership proof for this investment transaction")
}

// signingMessage is either the positional message or the ownership proof
// text for txHash. Exactly one must be given.
func signingMessage(args []string, txHash string) (string, error) {
	switch {
	case txHash != "" && len(args) > 0:
		return "", fmt.Errorf("pass either a message or --tx, not both")
	case txHash != "":
		if _, err := hexutil.Decode(txHash); err != nil || len(txHash) != 66 {
			return "", fmt.Errorf("invalid transaction hash %q", txHash)
		}
		return api.OwnershipMessage(txHash), nil
	case len(args) == 1:
		return args[0], nil
	}
	return "", fmt.Errorf("nothing to sign; pass a message or --tx <hash>")
}
