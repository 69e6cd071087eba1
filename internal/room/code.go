package room

import (
	"math/rand"
	"strings"
	"unicode/utf8"

	apperrors "github.com/ThakurMayank5/Telestrations-Server/internal/errors"
)

// CodeAlphabet leaves out I, O, 0 and 1.
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func randomCode() string {
	var b strings.Builder
	for i := 0; i < CodeLength; i++ {
		b.WriteByte(CodeAlphabet[rand.Intn(len(CodeAlphabet))])
	}
	return b.String()
}

// NormalizeCode upper-cases a user supplied code and checks its length.
func NormalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if utf8.RuneCountInString(code) != CodeLength {
		return "", apperrors.New(apperrors.ErrInvalidCode)
	}
	return code, nil
}
