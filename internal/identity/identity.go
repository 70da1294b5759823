// Package identity строит идентичность автора виджета из конфигурации.
package identity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pribylovaa/go-feed-comments/internal/config"
	"github.com/pribylovaa/go-feed-comments/internal/models"
)

var (
	// ErrInvalidAddress — адрес не является 20-байтным hex-адресом.
	ErrInvalidAddress = errors.New("invalid address")
	// ErrInvalidKey — приватный ключ не разбирается как secp256k1.
	ErrInvalidKey = errors.New("invalid private key")
)

// FromConfig возвращает идентичность автора.
// Адрес либо задан явно (приводится к EIP-55), либо выводится из приватного ключа,
// либо отсутствует. Пустое имя допустимо: его можно передать с каждым комментарием.
func FromConfig(cfg config.IdentityConfig) (models.Identity, error) {
	id := models.Identity{DisplayName: strings.TrimSpace(cfg.DisplayName)}

	switch {
	case cfg.Address != "":
		addr, err := ParseAddress(cfg.Address)
		if err != nil {
			return models.Identity{}, err
		}
		id.Address = addr
	case cfg.PrivateKey != "":
		addr, err := AddressFromKey(cfg.PrivateKey)
		if err != nil {
			return models.Identity{}, err
		}
		id.Address = addr
	}

	return id, nil
}

// ParseAddress проверяет адрес и возвращает его в EIP-55 (checksum) виде.
func ParseAddress(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return "", fmt.Errorf("identity: %w: %q", ErrInvalidAddress, s)
	}

	return common.HexToAddress(s).Hex(), nil
}

// AddressFromKey выводит адрес подписанта из hex-ключа secp256k1 (с 0x или без).
func AddressFromKey(hexKey string) (string, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return "", fmt.Errorf("identity: %w: %w", ErrInvalidKey, err)
	}

	return crypto.PubkeyToAddress(key.PublicKey).Hex(), nil
}
