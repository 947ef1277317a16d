package wallet

// Injected is the aggregate of providers visible to the application, the
// equivalent of window.ethereum with its providers array. A nil *Injected
// means no wallet is installed at all.
type Injected struct {
	Providers []Provider
}

// Detection reports whether one brand appears installed.
type Detection struct {
	Wallet    BrandInfo
	Installed bool
}

// DetectProviders reports, per supported brand, whether a matching provider
// is present. WalletConnect is QR/deep-link based and always available.
func DetectProviders(inj *Injected) []Detection {
	out := make([]Detection, 0, len(brands))
	for _, b := range SupportedWallets() {
		_, found := Resolve(inj, b.ID)
		out = append(out, Detection{
			Wallet:    b,
			Installed: found || b.ID == WalletConnect,
		})
	}
	return out
}

// Resolve picks the provider for brand id. It is called once at connect
// time; the returned value is used for the lifetime of the session.
func Resolve(inj *Injected, id WalletID) (Provider, bool) {
	if inj == nil {
		return nil, false
	}
	for _, p := range inj.Providers {
		if p.Flags().Matches(id) {
			return p, true
		}
	}
	return nil, false
}
