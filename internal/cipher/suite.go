package cipher

import (
	"fmt"

	"datalocker/internal/locker"
)

// Suite holds all known cipher engines keyed by algorithm name, with one
// marked as the default for new encryptions. Every engine stays registered
// regardless of configuration so files sealed under a previous default can
// still be opened.
type Suite struct {
	def     locker.Cipher
	engines map[string]locker.Cipher
}

var _ locker.CipherSuite = (*Suite)(nil)

// NewSuite creates a Suite with def as the default engine.
// def is registered alongside the others.
func NewSuite(def locker.Cipher, others ...locker.Cipher) *Suite {
	engines := map[string]locker.Cipher{def.Algorithm(): def}
	for _, c := range others {
		engines[c.Algorithm()] = c
	}
	return &Suite{def: def, engines: engines}
}

func (s *Suite) Default() locker.Cipher {
	return s.def
}

func (s *Suite) Get(algorithm string) (locker.Cipher, error) {
	c, ok := s.engines[algorithm]
	if !ok {
		return nil, fmt.Errorf("no cipher registered for algorithm %q", algorithm)
	}
	return c, nil
}
