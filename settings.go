package walletsdk

import (
	"github.com/heliowallet/wallet-sdk/crypto"
)

const (
	lockKey             = "settings:lock"
	closedKey           = "settings:closed"
	startedKey          = "settings:started"
	hardwareKey         = "settings:hardware"
	networkKey          = "settings:network"
	serverURLKey        = "settings:server"
	wsServerURLKey      = "settings:wsServer"
	backupKey           = "settings:backup"
	tokenSignaturesKey  = "settings:tokenSignatures"
	ledgerAppVersionKey = "settings:ledgerAppVersion"
)

// DefaultNetwork is the network assumed before SetNetwork is ever called.
const DefaultNetwork = crypto.Mainnet

// IsLocked defaults to true: a fresh or reset storage fails locked.
func (s *Storage) IsLocked() (bool, error) {
	return s.getBool(lockKey, true)
}

func (s *Storage) SetLocked(locked bool) error {
	return s.setJSON(lockKey, locked)
}

func (s *Storage) IsClosed() (bool, error) {
	return s.getBool(closedKey, false)
}

func (s *Storage) SetClosed(closed bool) error {
	return s.setJSON(closedKey, closed)
}

func (s *Storage) WasStarted() (bool, error) {
	return s.getBool(startedKey, false)
}

func (s *Storage) MarkStarted() error {
	return s.setJSON(startedKey, true)
}

func (s *Storage) IsHardware() (bool, error) {
	return s.getBool(hardwareKey, false)
}

func (s *Storage) SetHardware(hardware bool) error {
	return s.setJSON(hardwareKey, hardware)
}

func (s *Storage) GetNetwork() (string, error) {
	return s.getString(networkKey, DefaultNetwork)
}

// SetNetwork records the active network. Key derivation and identity
// computation read it at call time, so access data created after this call is
// scoped to the new network.
func (s *Storage) SetNetwork(network string) error {
	if _, err := crypto.NetworkParams(network); err != nil {
		return err
	}
	return s.setJSON(networkKey, network)
}

func (s *Storage) GetServerURL() (string, error) {
	return s.getString(serverURLKey, "")
}

func (s *Storage) SetServerURL(url string) error {
	return s.setJSON(serverURLKey, url)
}

func (s *Storage) GetWsServerURL() (string, error) {
	return s.getString(wsServerURLKey, "")
}

func (s *Storage) SetWsServerURL(url string) error {
	return s.setJSON(wsServerURLKey, url)
}

func (s *Storage) IsBackupDone() (bool, error) {
	return s.getBool(backupKey, false)
}

func (s *Storage) SetBackupDone(done bool) error {
	return s.setJSON(backupKey, done)
}

func (s *Storage) GetTokenSignatures() (map[string]string, error) {
	signatures := map[string]string{}
	if _, err := s.getJSON(tokenSignaturesKey, &signatures); err != nil {
		return nil, err
	}
	return signatures, nil
}

func (s *Storage) SetTokenSignature(uid, signature string) error {
	signatures, err := s.GetTokenSignatures()
	if err != nil {
		return err
	}
	signatures[uid] = signature
	return s.setJSON(tokenSignaturesKey, signatures)
}

func (s *Storage) GetLedgerAppVersion() (string, error) {
	return s.getString(ledgerAppVersionKey, "")
}

func (s *Storage) SetLedgerAppVersion(version string) error {
	return s.setJSON(ledgerAppVersionKey, version)
}

func (s *Storage) getBool(key string, defaultValue bool) (bool, error) {
	value := defaultValue
	ok, err := s.getJSON(key, &value)
	if err != nil {
		return false, err
	}
	if !ok {
		return defaultValue, nil
	}
	return value, nil
}

func (s *Storage) getString(key, defaultValue string) (string, error) {
	value := defaultValue
	ok, err := s.getJSON(key, &value)
	if err != nil {
		return "", err
	}
	if !ok {
		return defaultValue, nil
	}
	return value, nil
}
