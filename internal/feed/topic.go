package feed

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Topic — 32-байтный идентификатор фида.
type Topic [32]byte

// MakeTopic вычисляет топик фида как keccak256 от идентификатора ресурса.
func MakeTopic(identifier string) Topic {
	return Topic(crypto.Keccak256Hash([]byte(identifier)))
}

// ParseTopic разбирает hex-представление топика (с префиксом 0x или без).
func ParseTopic(s string) (Topic, error) {
	s = strings.TrimSpace(s)
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(raw) != 64 {
		return Topic{}, fmt.Errorf("feed: topic %q: want 32 bytes hex", s)
	}

	b, err := hexutil.Decode("0x" + raw)
	if err != nil {
		return Topic{}, fmt.Errorf("feed: topic %q: %w", s, err)
	}

	return Topic(common.BytesToHash(b)), nil
}

// Hex возвращает 0x-префиксную hex-строку.
func (t Topic) Hex() string {
	return common.Hash(t).Hex()
}

func (t Topic) String() string {
	return t.Hex()
}
