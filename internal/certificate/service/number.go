package service

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

const suffixAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

var entropy io.Reader = rand.Reader

// certificateNumber renders CERT-YYMMDD-<id base36>-<2 random chars>.
func certificateNumber(id snowflake.ID, at time.Time) (string, error) {
	suffix, err := randomSuffix(2)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CERT-%s-%s-%s", at.UTC().Format("060102"), strings.ToUpper(id.Base36()), suffix), nil
}

func randomSuffix(n int) (string, error) {
	var b strings.Builder
	limit := big.NewInt(int64(len(suffixAlphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(entropy, limit)
		if err != nil {
			return "", fmt.Errorf("read certificate suffix: %w", err)
		}
		b.WriteByte(suffixAlphabet[idx.Int64()])
	}
	return b.String(), nil
}
