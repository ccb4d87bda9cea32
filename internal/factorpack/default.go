package factorpack

import (
	_ "embed"
	"sync"

	"github.com/rshade/co2e-engine/internal/factors"
)

//go:embed data/default_pack.yaml
var defaultPackYAML []byte

var (
	defaultPack     *Pack
	defaultPackErr  error
	defaultPackOnce sync.Once
)

// Default returns the embedded default pack, decoding it on first use.
// The returned Pack is shared; callers must not modify it.
func Default() (*Pack, error) {
	defaultPackOnce.Do(func() {
		defaultPack, defaultPackErr = DecodeYAML(defaultPackYAML)
	})
	return defaultPack, defaultPackErr
}

// NewDefaultRegistry returns a registry loaded with the default pack.
func NewDefaultRegistry(opts ...factors.Option) (*factors.Registry, error) {
	pack, err := Default()
	if err != nil {
		return nil, err
	}
	reg := factors.NewRegistry(opts...)
	if _, err := Install(reg, pack); err != nil {
		return nil, err
	}
	return reg, nil
}
