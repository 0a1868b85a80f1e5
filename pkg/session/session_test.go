package session

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_StateIsMonotonic(t *testing.T) {
	s := newSession("s1", "", Local{Engine: EngineChromium, Mode: ModeHeadless}, &fakeDriver{}, time.Now())
	assert.Equal(t, StateUninitialized, s.State())

	assert.ErrorIs(t, s.advance(StateClosed), ErrStateRegression, "cannot skip Active")
	require.NoError(t, s.advance(StateActive))
	assert.ErrorIs(t, s.advance(StateUninitialized), ErrStateRegression)
	assert.ErrorIs(t, s.advance(StateActive), ErrStateRegression)
	require.NoError(t, s.advance(StateClosed))
	assert.ErrorIs(t, s.advance(StateActive), ErrStateRegression)
	assert.Equal(t, StateClosed, s.State())
}

func TestSession_OperationsRequireActive(t *testing.T) {
	s := newSession("s1", "", Local{Engine: EngineChromium, Mode: ModeHeadless}, &fakeDriver{}, time.Now())

	assert.ErrorIs(t, s.Navigate("https://example.com"), ErrNotInitialized)

	require.NoError(t, s.advance(StateActive))
	require.NoError(t, s.Navigate("https://example.com"))
	assert.Equal(t, "https://example.com", s.URL())

	s.release()
	assert.ErrorIs(t, s.Click("#go"), ErrSessionClosed)
	_, err := s.Screenshot()
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.Equal(t, "", s.URL())
}

func TestSession_PageText(t *testing.T) {
	drv := &fakeDriver{content: `<html><head><title>Shop</title><script>var x = 1;</script></head>
<body><h1>Cart</h1><p>Total:   <b>42</b></p><style>p{}</style></body></html>`}
	s := newSession("s1", "", Local{Engine: EngineChromium, Mode: ModeHeadless}, drv, time.Now())
	require.NoError(t, s.advance(StateActive))

	text, err := s.PageText()
	require.NoError(t, err)
	assert.Equal(t, "Cart\nTotal: 42", text)
}

func TestExtractText_Truncates(t *testing.T) {
	text, err := extractText("<p>abcdefghij</p>", 4)
	require.NoError(t, err)
	assert.Contains(t, text, "abcd")
	assert.Contains(t, text, "[Content truncated: 4 of 10 characters shown]")
}

func TestExtractText_TruncatesOnRuneBoundary(t *testing.T) {
	text, err := extractText("<p>añb</p>", 2)
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(text), "truncated text must stay valid UTF-8: %q", text)
	assert.True(t, strings.HasPrefix(text, "a\n\n"), text)
	assert.Contains(t, text, "[Content truncated: 1 of 4 characters shown]")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "active", StateActive.String())
	assert.Equal(t, "state(9)", State(9).String())
}
