package crypto

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/heliowallet/wallet-sdk/types"
	bip39 "github.com/tyler-smith/go-bip39"
)

const (
	Mainnet = "mainnet"
	Testnet = "testnet"
	Regtest = "regtest"

	bip44Purpose = 44

	mainAccountIndex = 0
	authAccountIndex = 1
)

// NetworkParams maps a network name to its chain parameters. All key
// derivation and identity computation goes through this mapping so derivation
// always agrees with the network active at the time of the call.
func NetworkParams(network string) (*chaincfg.Params, error) {
	switch network {
	case Mainnet, "":
		return &chaincfg.MainNetParams, nil
	case Testnet:
		return &chaincfg.TestNet3Params, nil
	case Regtest:
		return &chaincfg.RegressionNetParams, nil
	default:
		return nil, fmt.Errorf("unknown network: %s", network)
	}
}

// GenerateMnemonic returns a fresh 24-word seed phrase.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", fmt.Errorf("failed to generate entropy: %s", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("failed to generate seed phrase: %s", err)
	}
	return mnemonic, nil
}

type SeedArgs struct {
	Seed       string
	Passphrase string
	Password   string
	Pin        string
	Network    string
}

func (a SeedArgs) validate() error {
	if !bip39.IsMnemonicValid(a.Seed) {
		return fmt.Errorf("invalid seed phrase")
	}
	if len(a.Password) == 0 {
		return fmt.Errorf("missing password")
	}
	if len(a.Pin) == 0 {
		return fmt.Errorf("missing pin")
	}
	return nil
}

// NewAccessDataFromSeed derives fresh access data from a seed phrase: the
// words are protected by the password, the derived account keys by the pin.
func NewAccessDataFromSeed(
	cypher Cypher, args SeedArgs,
) (*types.AccessData, error) {
	if err := args.validate(); err != nil {
		return nil, err
	}

	params, err := NetworkParams(args.Network)
	if err != nil {
		return nil, err
	}

	seed := bip39.NewSeed(args.Seed, args.Passphrase)

	master, err := hdkeychain.NewMaster(seed, params)
	if err != nil {
		return nil, fmt.Errorf("failed to derive master key: %s", err)
	}

	mainAccount, err := deriveAccount(master, params, mainAccountIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to derive main account key: %s", err)
	}
	authAccount, err := deriveAccount(master, params, authAccountIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to derive auth account key: %s", err)
	}

	xpub, err := mainAccount.Neuter()
	if err != nil {
		return nil, fmt.Errorf("failed to derive extended public key: %s", err)
	}

	words, err := cypher.EncryptData(args.Seed, args.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt seed phrase: %s", err)
	}
	mainKey, err := cypher.EncryptData(mainAccount.String(), args.Pin)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt main key: %s", err)
	}
	authKey, err := cypher.EncryptData(authAccount.String(), args.Pin)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt auth key: %s", err)
	}

	return &types.AccessData{
		WalletType: types.WalletTypeP2PKH,
		Xpubkey:    xpub.String(),
		Words:      words,
		MainKey:    mainKey,
		AuthKey:    authKey,
	}, nil
}

// NewAccessDataFromXPub builds hardware-mode access data: the extended public
// key only, no local secret key material.
func NewAccessDataFromXPub(xpub string) (*types.AccessData, error) {
	key, err := hdkeychain.NewKeyFromString(xpub)
	if err != nil {
		return nil, fmt.Errorf("invalid extended public key: %s", err)
	}
	if key.IsPrivate() {
		return nil, fmt.Errorf("expected an extended public key, got a private one")
	}

	return &types.AccessData{
		WalletType:  types.WalletTypeP2PKH,
		WalletFlags: types.WalletFlagHardware,
		Xpubkey:     xpub,
	}, nil
}

// WalletID derives the deterministic wallet identifier from an extended
// public key. All per-wallet persisted data is namespaced by it.
func WalletID(xpub string) (string, error) {
	pubKey, err := XPubToPubKey(xpub)
	if err != nil {
		return "", err
	}
	return chainhash.DoubleHashH(pubKey.SerializeCompressed()).String(), nil
}

// XPubToPubKey extracts the EC public key of an extended public key.
func XPubToPubKey(xpub string) (*btcec.PublicKey, error) {
	key, err := hdkeychain.NewKeyFromString(xpub)
	if err != nil {
		return nil, fmt.Errorf("invalid extended public key: %s", err)
	}
	return key.ECPubKey()
}

// deriveAccount walks the bip44 path m/44'/coin'/account'.
func deriveAccount(
	master *hdkeychain.ExtendedKey, params *chaincfg.Params, account uint32,
) (*hdkeychain.ExtendedKey, error) {
	purpose, err := master.Derive(hdkeychain.HardenedKeyStart + bip44Purpose)
	if err != nil {
		return nil, err
	}
	coin, err := purpose.Derive(hdkeychain.HardenedKeyStart + params.HDCoinType)
	if err != nil {
		return nil, err
	}
	return coin.Derive(hdkeychain.HardenedKeyStart + account)
}
