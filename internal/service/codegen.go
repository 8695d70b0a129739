package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"shortlink-be/internal/entities"
	"shortlink-be/internal/repository"
)

const (
	DefaultCodeLength = 6
	// MaxCodeLength matches the width of links.code
	MaxCodeLength = 32
)

// GenerateCode returns a random lowercase hex code of the given length
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		length = DefaultCodeLength
	}
	buf := make([]byte, (length+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(buf)[:length], nil
}

// CodeAllocator assigns a unique code to a link and inserts it. The store's
// unique constraint decides races; a duplicate on insert is retried like a
// duplicate found by the existence check.
type CodeAllocator struct {
	links       repository.LinkRepository
	length      int
	maxAttempts int
	generate    func(int) (string, error)
}

// NewCodeAllocator creates an allocator. A non-positive length selects
// DefaultCodeLength and lengths above MaxCodeLength are clamped.
func NewCodeAllocator(links repository.LinkRepository, length, maxAttempts int) *CodeAllocator {
	if length <= 0 {
		length = DefaultCodeLength
	}
	length = min(length, MaxCodeLength)
	if maxAttempts <= 0 {
		maxAttempts = 16
	}
	return &CodeAllocator{
		links:       links,
		length:      length,
		maxAttempts: maxAttempts,
		generate:    GenerateCode,
	}
}

var errCodeTaken = errors.New("code taken")

// Insert generates codes until the link is stored under an unused one.
// It gives up with ErrGenerationExhausted after maxAttempts collisions.
func (a *CodeAllocator) Insert(ctx context.Context, link *entities.Link) error {
	backoff := retry.WithMaxRetries(uint64(a.maxAttempts-1), retry.NewConstant(time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		code, err := a.generate(a.length)
		if err != nil {
			return err
		}

		exists, err := a.links.ExistsByCode(ctx, code)
		if err != nil {
			return fmt.Errorf("failed to check code availability: %w", err)
		}
		if exists {
			return retry.RetryableError(errCodeTaken)
		}

		link.Code = code
		if err := a.links.Create(ctx, link); err != nil {
			if errors.Is(err, repository.ErrDuplicateCode) {
				link.Code = ""
				return retry.RetryableError(errCodeTaken)
			}
			return fmt.Errorf("failed to create link: %w", err)
		}
		return nil
	})
	if errors.Is(err, errCodeTaken) {
		return fmt.Errorf("%w after %d attempts", ErrGenerationExhausted, a.maxAttempts)
	}
	return err
}
