package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"shortlink-backend/internal/config"
	"shortlink-backend/internal/domain"
	"shortlink-backend/internal/repository"
	"shortlink-backend/internal/repository/memory"
	"shortlink-backend/internal/shortcode"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func ptr[T any](v T) *T { return &v }

func testShortenerConfig() *config.URLShortener {
	return &config.URLShortener{
		BaseURL:               "https://sho.rt",
		CodeLength:            8,
		MaxGenerationAttempts: 32,
	}
}

func newMemShortener(t *testing.T) (*URLShortenerService, *memory.MemStorage) {
	t.Helper()
	storage := memory.New()
	return NewURLShortener(storage, testShortenerConfig(), zap.NewNop()), storage
}

func TestShorten_GeneratesCode(t *testing.T) {
	svc, storage := newMemShortener(t)
	ctx := context.Background()

	res, err := svc.Shorten(ctx, CreateLinkInput{
		URL:     "  https://example.com/a  ",
		Title:   ptr("Example"),
		OwnerID: ptr("user-1"),
	})
	require.NoError(t, err)
	assert.True(t, res.Created)

	code := res.Link.ShortCode
	assert.Len(t, code, 8)
	assert.True(t, shortcode.HasValidShape(code))
	assert.False(t, shortcode.IsReserved(code))
	assert.Equal(t, "https://example.com/a", res.Link.OriginalURL)
	assert.True(t, res.Link.IsOwnedBy("user-1"))

	stored, err := storage.FindActiveByShortCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, "Example", *stored.Title)
	assert.Equal(t, "https://sho.rt/"+code, svc.ShortURL(code))
}

func TestShorten_DeduplicatesByURL(t *testing.T) {
	svc, _ := newMemShortener(t)
	ctx := context.Background()

	first, err := svc.Shorten(ctx, CreateLinkInput{URL: "https://example.com/a"})
	require.NoError(t, err)
	require.True(t, first.Created)

	// другой владелец получает ту же ссылку
	second, err := svc.Shorten(ctx, CreateLinkInput{URL: "https://example.com/a", OwnerID: ptr("user-2")})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Link.ShortCode, second.Link.ShortCode)
	assert.True(t, second.Link.IsAnonymous())
}

func TestShorten_CustomCodeBypassesDedup(t *testing.T) {
	svc, _ := newMemShortener(t)
	ctx := context.Background()

	generated, err := svc.Shorten(ctx, CreateLinkInput{URL: "https://example.com/b"})
	require.NoError(t, err)

	custom, err := svc.Shorten(ctx, CreateLinkInput{URL: "https://example.com/b", Custom: "short1"})
	require.NoError(t, err)
	assert.True(t, custom.Created)
	assert.Equal(t, "short1", custom.Link.ShortCode)
	assert.NotEqual(t, generated.Link.ShortCode, custom.Link.ShortCode)
}

func TestShorten_CustomCodeTaken(t *testing.T) {
	svc, storage := newMemShortener(t)
	ctx := context.Background()

	_, err := svc.Shorten(ctx, CreateLinkInput{URL: "https://example.com/b", Custom: "short1"})
	require.NoError(t, err)

	_, err = svc.Shorten(ctx, CreateLinkInput{URL: "https://example.com/c", Custom: "short1"})
	assert.ErrorIs(t, err, ErrCustomCodeTaken)

	// отказ ничего не записывает и не трогает существующую ссылку
	_, err = storage.FindByOriginalURL(ctx, "https://example.com/c")
	assert.ErrorIs(t, err, repository.ErrLinkNotFound)

	kept, err := storage.FindByShortCode(ctx, "short1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/b", kept.OriginalURL)
}

func TestShorten_Validation(t *testing.T) {
	svc, _ := newMemShortener(t)

	tests := []struct {
		name  string
		input CreateLinkInput
		want  map[string]string
	}{
		{name: "missing url", input: CreateLinkInput{}, want: map[string]string{"url": MsgURLRequired}},
		{name: "not a url", input: CreateLinkInput{URL: "not a url"}, want: map[string]string{"url": MsgURLInvalid}},
		{name: "dotless host", input: CreateLinkInput{URL: "https://foo/bar"}, want: map[string]string{"url": MsgURLInvalid}},
		{name: "ftp scheme", input: CreateLinkInput{URL: "ftp://example.com/file"}, want: map[string]string{"url": MsgURLInvalid}},
		{name: "too long", input: CreateLinkInput{URL: "https://example.com/" + strings.Repeat("a", 2048)}, want: map[string]string{"url": MsgURLTooLong}},
		{name: "own host", input: CreateLinkInput{URL: "https://SHO.RT/abc12345"}, want: map[string]string{"url": MsgURLSelf}},
		{name: "custom too short", input: CreateLinkInput{URL: "https://example.com", Custom: "abc"}, want: map[string]string{"custom": MsgCustomLength}},
		{name: "custom too long", input: CreateLinkInput{URL: "https://example.com", Custom: strings.Repeat("a", 21)}, want: map[string]string{"custom": MsgCustomLength}},
		{name: "custom bad characters", input: CreateLinkInput{URL: "https://example.com", Custom: "bad code!"}, want: map[string]string{"custom": MsgCustomCharacters}},
		{name: "custom reserved", input: CreateLinkInput{URL: "https://example.com", Custom: "Dashboard"}, want: map[string]string{"custom": MsgCustomReserved}},
		{name: "title too long", input: CreateLinkInput{URL: "https://example.com", Title: ptr(strings.Repeat("t", 256))}, want: map[string]string{"title": MsgTitleTooLong}},
		{
			name:  "several fields",
			input: CreateLinkInput{URL: "nope", Custom: "a b"},
			want:  map[string]string{"url": MsgURLInvalid, "custom": MsgCustomLength},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Shorten(context.Background(), tt.input)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.want, verr.Fields)
		})
	}
}

func TestShorten_AcceptsIPHosts(t *testing.T) {
	svc, _ := newMemShortener(t)

	for _, raw := range []string{"http://192.168.0.10:8080/admin", "https://[2001:db8::1]/x"} {
		res, err := svc.Shorten(context.Background(), CreateLinkInput{URL: raw})
		require.NoError(t, err, raw)
		assert.Equal(t, raw, res.Link.OriginalURL)
	}
}

func TestShorten_AcceptsRandomURLs(t *testing.T) {
	svc, _ := newMemShortener(t)
	ctx := context.Background()

	codes := map[string]bool{}
	for i := 0; i < 50; i++ {
		res, err := svc.Shorten(ctx, CreateLinkInput{URL: gofakeit.URL() + "/" + gofakeit.UUID()})
		require.NoError(t, err)
		assert.False(t, codes[res.Link.ShortCode], "duplicate code %s", res.Link.ShortCode)
		codes[res.Link.ShortCode] = true
	}
}

func TestShorten_RetriesOnConcurrentInsert(t *testing.T) {
	storage := new(MockStorage)
	storage.On("FindByOriginalURL", mock.Anything, "https://example.com").Return(nil, repository.ErrLinkNotFound)
	storage.On("ShortCodeExists", mock.Anything, mock.AnythingOfType("string")).Return(false, nil)
	storage.On("Insert", mock.Anything, mock.AnythingOfType("*domain.Link")).Return(repository.ErrShortCodeExists).Once()
	storage.On("Insert", mock.Anything, mock.AnythingOfType("*domain.Link")).Return(nil).Once()

	svc := NewURLShortener(storage, testShortenerConfig(), zap.NewNop())
	res, err := svc.Shorten(context.Background(), CreateLinkInput{URL: "https://example.com"})
	require.NoError(t, err)
	assert.True(t, res.Created)

	storage.AssertExpectations(t)
	storage.AssertNumberOfCalls(t, "Insert", 2)
}

func TestShorten_GenerationExhausted(t *testing.T) {
	storage := new(MockStorage)
	storage.On("FindByOriginalURL", mock.Anything, mock.Anything).Return(nil, repository.ErrLinkNotFound)
	storage.On("ShortCodeExists", mock.Anything, mock.Anything).Return(true, nil)

	cfg := testShortenerConfig()
	cfg.MaxGenerationAttempts = 4
	svc := NewURLShortener(storage, cfg, zap.NewNop())

	_, err := svc.Shorten(context.Background(), CreateLinkInput{URL: "https://example.com"})
	assert.ErrorIs(t, err, ErrGenerationExhausted)
	storage.AssertNumberOfCalls(t, "ShortCodeExists", 4)
	storage.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestShorten_InsertCollisionsShareBudget(t *testing.T) {
	storage := new(MockStorage)
	storage.On("FindByOriginalURL", mock.Anything, mock.Anything).Return(nil, repository.ErrLinkNotFound)
	storage.On("ShortCodeExists", mock.Anything, mock.Anything).Return(false, nil)
	storage.On("Insert", mock.Anything, mock.Anything).Return(repository.ErrShortCodeExists)

	cfg := testShortenerConfig()
	cfg.MaxGenerationAttempts = 5
	svc := NewURLShortener(storage, cfg, zap.NewNop())

	_, err := svc.Shorten(context.Background(), CreateLinkInput{URL: "https://example.com"})
	assert.ErrorIs(t, err, ErrGenerationExhausted)
	storage.AssertNumberOfCalls(t, "ShortCodeExists", 5)
	storage.AssertNumberOfCalls(t, "Insert", 5)
}

func TestShorten_MixedCollisionsShareBudget(t *testing.T) {
	storage := new(MockStorage)
	storage.On("FindByOriginalURL", mock.Anything, mock.Anything).Return(nil, repository.ErrLinkNotFound)
	storage.On("ShortCodeExists", mock.Anything, mock.Anything).Return(true, nil).Twice()
	storage.On("ShortCodeExists", mock.Anything, mock.Anything).Return(false, nil)
	storage.On("Insert", mock.Anything, mock.Anything).Return(repository.ErrShortCodeExists)

	cfg := testShortenerConfig()
	cfg.MaxGenerationAttempts = 6
	svc := NewURLShortener(storage, cfg, zap.NewNop())

	_, err := svc.Shorten(context.Background(), CreateLinkInput{URL: "https://example.com"})
	assert.ErrorIs(t, err, ErrGenerationExhausted)
	storage.AssertNumberOfCalls(t, "ShortCodeExists", 6)
	storage.AssertNumberOfCalls(t, "Insert", 4)
}

func TestShorten_CustomInsertRace(t *testing.T) {
	storage := new(MockStorage)
	storage.On("ShortCodeExists", mock.Anything, "short1").Return(false, nil)
	storage.On("Insert", mock.Anything, mock.MatchedBy(func(l *domain.Link) bool { return l.ShortCode == "short1" })).
		Return(repository.ErrShortCodeExists)

	svc := NewURLShortener(storage, testShortenerConfig(), zap.NewNop())
	_, err := svc.Shorten(context.Background(), CreateLinkInput{URL: "https://example.com", Custom: "short1"})
	assert.ErrorIs(t, err, ErrCustomCodeTaken)
	storage.AssertNotCalled(t, "FindByOriginalURL", mock.Anything, mock.Anything)
}

func TestShorten_StoreErrors(t *testing.T) {
	dbErr := errors.New("connection refused")

	storage := new(MockStorage)
	storage.On("FindByOriginalURL", mock.Anything, mock.Anything).Return(nil, dbErr)
	svc := NewURLShortener(storage, testShortenerConfig(), zap.NewNop())

	_, err := svc.Shorten(context.Background(), CreateLinkInput{URL: "https://example.com"})
	assert.ErrorIs(t, err, dbErr)
	var verr *ValidationError
	assert.False(t, errors.As(err, &verr))

	storage = new(MockStorage)
	storage.On("FindByOriginalURL", mock.Anything, mock.Anything).Return(nil, repository.ErrLinkNotFound)
	storage.On("ShortCodeExists", mock.Anything, mock.Anything).Return(false, nil)
	storage.On("Insert", mock.Anything, mock.Anything).Return(dbErr)
	svc = NewURLShortener(storage, testShortenerConfig(), zap.NewNop())

	_, err = svc.Shorten(context.Background(), CreateLinkInput{URL: "https://example.com"})
	assert.ErrorIs(t, err, dbErr)
	storage.AssertNumberOfCalls(t, "Insert", 1)
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"custom": MsgCustomTaken}}
	assert.Equal(t, "validation failed: custom: Custom URL is already taken", err.Error())
}
