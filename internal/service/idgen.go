package service

import (
	"context"
	"crypto/rand"
	"fmt"
)

const (
	idDigits   = "0123456789"
	idAlphanum = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// maxIDAttempts bounds the generate-then-verify loop. The code space is
	// large enough that hitting the bound means the store is misbehaving.
	maxIDAttempts = 10
)

type existsFunc func(ctx context.Context, id string) (bool, error)

// generateUniqueID draws candidates until one is free in the store.
func generateUniqueID(ctx context.Context, build func() string, exists existsFunc) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := build()
		taken, err := exists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("verify id uniqueness: %w", err)
		}
		if !taken {
			return id, nil
		}
	}
	return "", fmt.Errorf("exhausted %d id candidates", maxIDAttempts)
}

func newSchoolID() string {
	return "SCH-" + randomString(idDigits, 4)
}

func newTeacherID() string {
	return "TCH-" + randomString(idDigits, 4)
}

func newSubAdminID(schoolID string) string {
	return schoolID + "-A" + randomString(idDigits, 4)
}

func newStudentGeneratedID() string {
	return randomString(idAlphanum, 8)
}

func newExamCode() string {
	return randomString(idAlphanum, 6)
}

func randomString(alphabet string, n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf)
}
