package rdbc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxsql/internal/reactive"
)

type stubFactory struct {
	url  string
	opts Options
}

func (f *stubFactory) Create() reactive.Publisher[Connection] {
	return reactive.PublisherFunc[Connection](func(s reactive.Subscriber[Connection]) {})
}

type typedCol struct{}

func (typedCol) Name() string             { return "c" }
func (typedCol) TypeName() string         { return "BIGINT" }
func (typedCol) Precision() (int, bool)   { return 0, false }
func (typedCol) Scale() (int, bool)       { return 0, false }
func (typedCol) Nullability() Nullability { return NullabilityUnknown }

type untypedCol struct{}

func (untypedCol) Name() string             { return "c" }
func (untypedCol) Precision() (int, bool)   { return 0, false }
func (untypedCol) Scale() (int, bool)       { return 0, false }
func (untypedCol) Nullability() Nullability { return NullabilityUnknown }

func TestFactoryResolution(t *testing.T) {
	Register("stub", func(url string, opts Options) (ConnectionFactory, error) {
		return &stubFactory{url: url, opts: opts}, nil
	}, typedCol{})

	f, err := Factory("stub://localhost:1234/db", Options{User: "u", Password: "p"})
	require.NoError(t, err)

	sf, ok := f.(*stubFactory)
	require.True(t, ok)
	assert.Equal(t, "stub://localhost:1234/db", sf.url)
	assert.Equal(t, "u", sf.opts.User)
}

func TestFactoryUnknownScheme(t *testing.T) {
	_, err := Factory("nosuch://host/db", Options{})
	assert.Error(t, err)
}

func TestFactoryMalformedURL(t *testing.T) {
	_, err := Factory("not-a-url", Options{})
	assert.Error(t, err)
}

func TestCapabilityProbeDowngrades(t *testing.T) {
	// Registering a typed driver keeps the capability up.
	Register("typed", func(url string, opts Options) (ConnectionFactory, error) {
		return &stubFactory{}, nil
	}, typedCol{})
	assert.True(t, NativeTypeInfo())

	// A driver without native type descriptors downgrades the process-wide
	// flag; it never recovers within the process.
	Register("untyped", func(url string, opts Options) (ConnectionFactory, error) {
		return &stubFactory{}, nil
	}, untypedCol{})
	assert.False(t, NativeTypeInfo())
}
