package shortcode

import (
	"context"
	"errors"
	"fmt"

	"shortlink-backend/pkg/random"
)

const (
	DefaultLength      = 8
	DefaultMaxAttempts = 32
)

// ErrGenerationExhausted is returned when no free code was found within the attempt budget.
var ErrGenerationExhausted = errors.New("short code generation exhausted")

// ClaimFunc tries to take code. taken=true means the code is already used
// and the next sample should be tried.
type ClaimFunc func(ctx context.Context, code string) (taken bool, err error)

// Generator produces random alphanumeric short codes.
type Generator struct {
	length      int
	maxAttempts int
	alphabet    string
}

// NewGenerator creates a generator. Non-positive arguments fall back to defaults.
func NewGenerator(length, maxAttempts int) *Generator {
	if length <= 0 {
		length = DefaultLength
	}
	if length < MinLength {
		length = MinLength
	}
	if length > MaxLength {
		length = MaxLength
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Generator{
		length:      length,
		maxAttempts: maxAttempts,
		alphabet:    random.Alphanumeric,
	}
}

// Length returns the configured code length.
func (g *Generator) Length() int {
	return g.length
}

// MaxAttempts returns the attempt budget of Unique.
func (g *Generator) MaxAttempts() int {
	return g.maxAttempts
}

// Generate samples one code. The result is never a reserved path.
func (g *Generator) Generate() (string, error) {
	for {
		code, err := random.NewRandomStringFrom(g.alphabet, g.length)
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		if !IsReserved(code) {
			return code, nil
		}
	}
}

// Unique samples codes and hands each to claim until one is taken successfully.
// Every sample counts against the single attempt budget, whether claim rejected it
// on an existence check or on a uniqueness violation at insert.
func (g *Generator) Unique(ctx context.Context, claim ClaimFunc) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		code, err := g.Generate()
		if err != nil {
			return "", err
		}

		taken, err := claim(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to claim code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}

	return "", ErrGenerationExhausted
}
