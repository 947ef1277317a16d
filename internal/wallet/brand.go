package wallet

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// WalletID identifies a supported wallet brand.
type WalletID string

const (
	MetaMask      WalletID = "metamask"
	TrustWallet   WalletID = "trustwallet"
	Coinbase      WalletID = "coinbase"
	WalletConnect WalletID = "walletconnect"
)

// BrandInfo is the public description of a wallet brand.
type BrandInfo struct {
	ID   WalletID `json:"id"`
	Name string   `json:"name"`
	Icon string   `json:"icon"`
}

var brands = []BrandInfo{
	{ID: MetaMask, Name: "MetaMask", Icon: "/images/wallets/metamask.svg"},
	{ID: TrustWallet, Name: "Trust Wallet", Icon: "/images/wallets/trustwallet.svg"},
	{ID: Coinbase, Name: "Coinbase Wallet", Icon: "/images/wallets/coinbase.svg"},
	{ID: WalletConnect, Name: "WalletConnect", Icon: "/images/wallets/walletconnect.svg"},
}

// SupportedWallets lists every brand in display order.
func SupportedWallets() []BrandInfo {
	out := make([]BrandInfo, len(brands))
	copy(out, brands)
	return out
}

// ParseWalletID validates a brand identifier.
func ParseWalletID(s string) (WalletID, error) {
	id := WalletID(strings.ToLower(strings.TrimSpace(s)))
	for _, b := range brands {
		if b.ID == id {
			return id, nil
		}
	}
	return "", fmt.Errorf("unsupported wallet %q", s)
}

// Name returns the display name for the brand.
func (id WalletID) Name() string {
	for _, b := range brands {
		if b.ID == id {
			return b.Name
		}
	}
	return string(id)
}

// Flags are the brand markers a provider advertises, mirroring isMetaMask,
// isTrust, isCoinbaseWallet and isWalletConnect on injected objects.
type Flags struct {
	IsMetaMask       bool
	IsTrust          bool
	IsCoinbaseWallet bool
	IsWalletConnect  bool
}

// FlagsFor returns the flags a provider of the given brand advertises. Trust
// Wallet also sets isMetaMask for dApp compatibility.
func FlagsFor(id WalletID) Flags {
	switch id {
	case MetaMask:
		return Flags{IsMetaMask: true}
	case TrustWallet:
		return Flags{IsMetaMask: true, IsTrust: true}
	case Coinbase:
		return Flags{IsCoinbaseWallet: true}
	case WalletConnect:
		return Flags{IsWalletConnect: true}
	}
	return Flags{}
}

// Matches reports whether a provider with these flags belongs to brand id.
func (f Flags) Matches(id WalletID) bool {
	switch id {
	case MetaMask:
		return f.IsMetaMask && !f.IsTrust && !f.IsCoinbaseWallet
	case TrustWallet:
		return f.IsTrust
	case Coinbase:
		return f.IsCoinbaseWallet
	case WalletConnect:
		return f.IsWalletConnect
	}
	return false
}

// --- mobile deep links ---

var mobileUA = regexp.MustCompile(`(?i)Android|webOS|iPhone|iPad|iPod|BlackBerry|IEMobile|Opera Mini`)

// IsMobileUserAgent reports whether ua looks like a phone or tablet browser.
func IsMobileUserAgent(ua string) bool {
	return mobileUA.MatchString(ua)
}

// DeepLink builds the URL that opens dappURL inside the brand's mobile app.
func DeepLink(id WalletID, dappURL string) string {
	host := strings.TrimPrefix(strings.TrimPrefix(dappURL, "https://"), "http://")
	switch id {
	case MetaMask:
		return "https://metamask.app.link/dapp/" + host
	case TrustWallet:
		return "https://link.trustwallet.com/open_url?coin_id=60&url=" + url.QueryEscape(dappURL)
	case Coinbase:
		return "https://go.cb-w.com/dapp?cb_url=" + url.QueryEscape(dappURL)
	case WalletConnect:
		return "https://explorer.walletconnect.com/?type=wallet"
	}
	return dappURL
}

// DeepLinkError tells the caller to open URL instead of connecting in place.
type DeepLinkError struct {
	Wallet WalletID
	URL    string
}

func (e *DeepLinkError) Error() string {
	return fmt.Sprintf("open %s to continue: %s", e.Wallet.Name(), e.URL)
}
