package wallet

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// TxParams is a priced EIP-1559 transaction as the keystore provider builds
// it from an eth_sendTransaction request. A nil To deploys a contract.
type TxParams struct {
	ChainID int64
	Nonce   uint64
	Gas     uint64
	TipCap  *big.Int
	FeeCap  *big.Int
	To      *common.Address
	Value   *big.Int
	Data    []byte
}

// Signer signs EVM transactions with a keystore wallet's key.
type Signer struct {
	wallet *Wallet
	ks     KeystoreBackend
}

// NewSigner creates a signer for the given wallet.
func NewSigner(w *Wallet, ks KeystoreBackend) *Signer {
	return &Signer{wallet: w, ks: ks}
}

// Sign builds a dynamic-fee transaction from p, signs it and returns the raw
// encoding together with the transaction hash the node should report back.
func (s *Signer) Sign(p TxParams) ([]byte, common.Hash, error) {
	if p.TipCap == nil || p.FeeCap == nil {
		return nil, common.Hash{}, fmt.Errorf("transaction fees not set")
	}
	value := p.Value
	if value == nil {
		value = new(big.Int)
	}
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(p.ChainID),
		Nonce:     p.Nonce,
		GasTipCap: p.TipCap,
		GasFeeCap: p.FeeCap,
		Gas:       p.Gas,
		To:        p.To,
		Value:     value,
		Data:      p.Data,
	})
	signed, err := s.sign(tx, big.NewInt(p.ChainID))
	if err != nil {
		return nil, common.Hash{}, err
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("marshaling signed tx: %w", err)
	}
	return raw, signed.Hash(), nil
}

// SignTx signs an already built transaction and returns the raw bytes.
func (s *Signer) SignTx(tx *types.Transaction, chainID *big.Int) ([]byte, error) {
	signed, err := s.sign(tx, chainID)
	if err != nil {
		return nil, err
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshaling signed tx: %w", err)
	}
	return raw, nil
}

func (s *Signer) sign(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	key, err := loadKey(s.wallet, s.ks)
	if err != nil {
		return nil, err
	}
	signed, err := types.SignTx(tx, types.NewLondonSigner(chainID), key)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}
	return signed, nil
}

// Address returns the wallet's address.
func (s *Signer) Address() string {
	return s.wallet.Address
}
