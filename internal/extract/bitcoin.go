package extract

import (
	"bytes"
	"regexp"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/bech32"
)

var (
	legacyAddr = regexp.MustCompile(`\b[13][1-9A-HJ-NP-Za-km-z]{25,34}\b`)
	segwitAddr = regexp.MustCompile(`(?i)\bbc1[02-9ac-hj-np-z]{11,71}\b`)
)

// Mainnet version bytes.
const (
	p2pkhVersion = 0x00
	p2shVersion  = 0x05
)

// CountBitcoinAddresses returns the number of distinct, checksum-valid
// mainnet addresses embedded in data.
func CountBitcoinAddresses(data []byte) int {
	seen := map[string]struct{}{}

	for _, m := range legacyAddr.FindAll(data, -1) {
		if validBase58Check(string(m)) {
			seen[string(m)] = struct{}{}
		}
	}
	for _, m := range segwitAddr.FindAll(data, -1) {
		lower := bytes.ToLower(m)
		// Mixed case is invalid bech32.
		if !bytes.Equal(m, lower) && !bytes.Equal(m, bytes.ToUpper(m)) {
			continue
		}
		if validSegwit(string(lower)) {
			seen[string(lower)] = struct{}{}
		}
	}
	return len(seen)
}

// validBase58Check accepts P2PKH and P2SH addresses.
func validBase58Check(s string) bool {
	payload, version, err := base58.CheckDecode(s)
	if err != nil || len(payload) != 20 {
		return false
	}
	return version == p2pkhVersion || version == p2shVersion
}

// validSegwit checks a lowercase "bc1..." string against BIP173/BIP350:
// witness version 0 must use bech32, later versions bech32m.
func validSegwit(s string) bool {
	hrp, data, version, err := bech32.DecodeGeneric(s)
	if err != nil || hrp != "bc" || len(data) == 0 {
		return false
	}
	if data[0] == 0 {
		return version == bech32.Version0
	}
	return version == bech32.VersionM
}
