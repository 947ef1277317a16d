package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/Mohsinsiddi/infinity/internal/chain"
	"github.com/Mohsinsiddi/infinity/internal/invest"
	"github.com/Mohsinsiddi/infinity/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ChainReader is the read side of the chain the contract lives on.
type ChainReader interface {
	ContractCaller
	GetBalance(ctx context.Context, address string) (*chain.Balance, error)
	GetCode(ctx context.Context, address string) (string, error)
	WaitForReceipt(ctx context.Context, hash string, interval time.Duration) (*chain.TxReceipt, error)
}

// Config configures a Client.
type Config struct {
	Address        string
	ChainID        int64
	Reader         ChainReader
	GasLimit       uint64        // 0 lets the wallet estimate
	PollInterval   time.Duration // receipt polling
	ConfirmTimeout time.Duration
	Logger         zerolog.Logger
}

// Client mints and administers the receipt contract. Reads go straight to
// the chain; writes go through the connected wallet provider.
type Client struct {
	address common.Address
	chainID int64
	reader  ChainReader
	caller  *Caller
	gas     uint64
	poll    time.Duration
	timeout time.Duration
	now     func() time.Time
	log     zerolog.Logger
}

// MintResult describes a mined mint.
type MintResult struct {
	TxHash      string
	TokenID     *big.Int
	BlockNumber uint64
	GasUsed     uint64
	StartTime   time.Time
	Maturity    time.Time
}

// WithdrawResult describes a mined withdrawal.
type WithdrawResult struct {
	TxHash string
	Amount *big.Int
}

// NewClient creates a contract client.
func NewClient(cfg Config) (*Client, error) {
	if !common.IsHexAddress(cfg.Address) {
		return nil, fmt.Errorf("invalid contract address %q", cfg.Address)
	}
	timeout := cfg.ConfirmTimeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	return &Client{
		address: common.HexToAddress(cfg.Address),
		chainID: cfg.ChainID,
		reader:  cfg.Reader,
		caller:  NewCaller(cfg.Reader, sbtEntries),
		gas:     cfg.GasLimit,
		poll:    cfg.PollInterval,
		timeout: timeout,
		now:     time.Now,
		log:     cfg.Logger.With().Str("component", "contract").Logger(),
	}, nil
}

// Address returns the checksummed contract address.
func (c *Client) Address() string { return c.address.Hex() }

// ToWei converts a native-currency amount to wei. Amounts finer than one
// wei are rejected.
func ToWei(amount decimal.Decimal) (*big.Int, error) {
	wei := amount.Shift(18)
	if !wei.IsInteger() || wei.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	return wei.BigInt(), nil
}

// Mint sends a value-carrying mint for the sealed bundle through p, waits for
// one confirmation and returns the minted token id. A failed mint leaves the
// bundle untouched. Only a *TxError that is Resendable may be retried with
// another Mint; one matching ErrNotMined comes with the pending result, which
// goes to AwaitMint.
func (c *Client) Mint(ctx context.Context, p wallet.Provider, s wallet.Session, amount decimal.Decimal, b *invest.Bundle) (*MintResult, error) {
	if !b.Complete() {
		return nil, &TxError{Op: "mint", Err: invest.ErrBundleNotReady}
	}
	if err := c.checkChain(s); err != nil {
		return nil, &TxError{Op: "mint", Err: err}
	}
	wei, err := ToWei(amount)
	if err != nil {
		return nil, &TxError{Op: "mint", Err: err}
	}

	start := c.now().UTC()
	maturity, err := b.Terms.Maturity(start)
	if err != nil {
		return nil, &TxError{Op: "mint", Err: err}
	}
	bps := b.Terms.TargetAPY.Shift(2).Round(0).BigInt()
	data, err := sbtABI.Pack("mint", b.StorageLocator, common.HexToHash(b.DocumentHash), big.NewInt(maturity.Unix()), bps)
	if err != nil {
		return nil, &TxError{Op: "mint", Err: fmt.Errorf("encoding mint: %w", err)}
	}

	hash, err := c.submit(ctx, p, "mint", s.Account, wei, data)
	if err != nil {
		return nil, err
	}
	return c.AwaitMint(ctx, &MintResult{TxHash: hash, StartTime: start, Maturity: maturity}, s.Account)
}

// AwaitMint waits for a submitted mint to be mined and reads the token id
// minted to investor. When the receipt does not arrive in time it returns
// the same pending result together with an error matching ErrNotMined, so
// the caller can keep waiting on the hash instead of sending again.
func (c *Client) AwaitMint(ctx context.Context, pending *MintResult, investor string) (*MintResult, error) {
	receipt, err := c.wait(ctx, "mint", pending.TxHash)
	if err != nil {
		if errors.Is(err, ErrNotMined) {
			return pending, err
		}
		return nil, err
	}

	tokenID, err := c.mintedToken(receipt, investor)
	if err != nil {
		return nil, &TxError{Op: "mint", TxHash: pending.TxHash, Err: err}
	}
	c.log.Info().Str("tx", pending.TxHash).Str("token_id", tokenID.String()).Str("investor", investor).Msg("receipt token minted")
	res := *pending
	res.TokenID = tokenID
	res.BlockNumber = receipt.BlockNumber
	res.GasUsed = receipt.GasUsed
	return &res, nil
}

// CheckDeployed returns ErrNotDeployed when the configured address holds no
// bytecode on this chain, which is what a wrong network or a typo looks like.
func (c *Client) CheckDeployed(ctx context.Context) error {
	code, err := c.reader.GetCode(ctx, c.address.Hex())
	if err != nil {
		return fmt.Errorf("reading code at %s: %w", c.address.Hex(), err)
	}
	if code == "" || code == "0x" {
		return fmt.Errorf("%s: %w", c.address.Hex(), ErrNotDeployed)
	}
	return nil
}

// ReadOwner returns the contract owner.
func (c *Client) ReadOwner(ctx context.Context) (string, error) {
	out, err := c.caller.Call(ctx, c.address.Hex(), "owner")
	if err != nil {
		return "", err
	}
	return common.HexToAddress(out[0]).Hex(), nil
}

// TokenBalance returns how many receipt tokens holder owns.
func (c *Client) TokenBalance(ctx context.Context, holder string) (*big.Int, error) {
	out, err := c.caller.Call(ctx, c.address.Hex(), "balanceOf", holder)
	if err != nil {
		return nil, err
	}
	n, _ := new(big.Int).SetString(out[0], 10)
	return n, nil
}

// Balance returns the native balance held by the contract.
func (c *Client) Balance(ctx context.Context) (*chain.Balance, error) {
	return c.reader.GetBalance(ctx, c.address.Hex())
}

// Withdraw sends the contract balance to the owner. It refuses locally,
// without contacting the wallet, unless s.Account is the owner and the
// balance is non-zero.
func (c *Client) Withdraw(ctx context.Context, p wallet.Provider, s wallet.Session) (*WithdrawResult, error) {
	if err := c.checkChain(s); err != nil {
		return nil, &TxError{Op: "withdraw", Err: err}
	}
	owner, err := c.ReadOwner(ctx)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(owner, s.Account) {
		return nil, &TxError{Op: "withdraw", Err: fmt.Errorf("%w (owner %s)", ErrNotOwner, owner)}
	}
	bal, err := c.Balance(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading contract balance: %w", err)
	}
	if bal.Wei.Sign() == 0 {
		return nil, &TxError{Op: "withdraw", Err: ErrNothingToWithdraw}
	}

	data, err := sbtABI.Pack("withdraw")
	if err != nil {
		return nil, err
	}
	hash, _, err := c.send(ctx, p, "withdraw", s.Account, nil, data)
	if err != nil {
		return nil, err
	}
	c.log.Info().Str("tx", hash).Str("amount", bal.ETH).Msg("contract balance withdrawn")
	return &WithdrawResult{TxHash: hash, Amount: bal.Wei}, nil
}

func (c *Client) submit(ctx context.Context, p wallet.Provider, op, from string, value *big.Int, data []byte) (string, error) {
	req := wallet.TxRequest{
		From: from,
		To:   c.address.Hex(),
		Data: hexutil.Encode(data),
	}
	if value != nil {
		req.Value = hexutil.EncodeBig(value)
	}
	if c.gas > 0 {
		req.Gas = hexutil.EncodeUint64(c.gas)
	}

	hash, err := wallet.SendTransaction(ctx, p, req)
	if err != nil {
		return "", &TxError{Op: op, Err: err}
	}
	c.log.Debug().Str("op", op).Str("tx", hash).Msg("transaction submitted")
	return hash, nil
}

// wait polls for the receipt of hash. A mined, reverted receipt yields
// chain.ErrReverted; no receipt within the confirm timeout yields ErrNotMined.
func (c *Client) wait(ctx context.Context, op, hash string) (*chain.TxReceipt, error) {
	wctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	receipt, err := c.reader.WaitForReceipt(wctx, hash, c.poll)
	if err != nil {
		if receipt == nil {
			err = fmt.Errorf("%w: %w", ErrNotMined, err)
		}
		return nil, &TxError{Op: op, TxHash: hash, Err: err}
	}
	return receipt, nil
}

func (c *Client) send(ctx context.Context, p wallet.Provider, op, from string, value *big.Int, data []byte) (string, *chain.TxReceipt, error) {
	hash, err := c.submit(ctx, p, op, from, value, data)
	if err != nil {
		return "", nil, err
	}
	receipt, err := c.wait(ctx, op, hash)
	if err != nil {
		return hash, nil, err
	}
	return hash, receipt, nil
}

// mintedToken finds Transfer(0x0 → investor, tokenId) emitted by the contract.
func (c *Client) mintedToken(r *chain.TxReceipt, investor string) (*big.Int, error) {
	transfer := sbtABI.Events["Transfer"].ID
	to := common.HexToAddress(investor)
	for _, l := range r.Logs {
		if !strings.EqualFold(l.Address, c.address.Hex()) || len(l.Topics) != 4 {
			continue
		}
		if common.HexToHash(l.Topics[0]) != transfer {
			continue
		}
		if common.HexToAddress(l.Topics[1]) != (common.Address{}) || common.HexToAddress(l.Topics[2]) != to {
			continue
		}
		return common.HexToHash(l.Topics[3]).Big(), nil
	}
	return nil, ErrNoTokenID
}

func (c *Client) checkChain(s wallet.Session) error {
	if c.chainID == 0 || s.ChainID == "" {
		return nil
	}
	id, err := chain.ParseChainID(s.ChainID)
	if err != nil {
		return err
	}
	if id != c.chainID {
		return fmt.Errorf("%w: contract is on chain %d, wallet on %d", ErrWrongChain, c.chainID, id)
	}
	return nil
}
