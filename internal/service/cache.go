package service

import (
	"encoding/binary"
	"math"
	"slices"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/agbru/dftcalc/internal/dft"
)

// Option configures an ExtractionService.
type Option func(*ExtractionService)

// WithResultCache keeps the outputs of the last size requests so that a
// repeated request is answered without running a backend. A size <= 0
// leaves caching disabled.
func WithResultCache(size int) Option {
	return func(s *ExtractionService) {
		if size <= 0 {
			return
		}
		cache, err := lru.New[uint64, cacheEntry](size)
		if err != nil {
			return
		}
		s.cache = cache
	}
}

// cacheEntry keeps the full request next to its output; a digest match
// alone is not trusted.
type cacheEntry struct {
	backend      dft.BackendID
	forceZeroW   bool
	sources      []dft.Source
	visibilities []dft.Visibility
	output       []dft.Complex
}

func (e cacheEntry) matches(id dft.BackendID, forceZeroW bool, sources []dft.Source, visibilities []dft.Visibility) bool {
	return e.backend == id && e.forceZeroW == forceZeroW &&
		slices.Equal(e.sources, sources) && slices.Equal(e.visibilities, visibilities)
}

// requestDigest hashes the backend, the w flag and the bit patterns of
// every input value.
func requestDigest(id dft.BackendID, forceZeroW bool, sources []dft.Source, visibilities []dft.Visibility) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(string(id))
	var buf [8]byte
	if forceZeroW {
		buf[0] = 1
	}
	_, _ = d.Write(buf[:1])
	writeFloat := func(f float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		_, _ = d.Write(buf[:])
	}
	binary.LittleEndian.PutUint64(buf[:], uint64(len(sources)))
	_, _ = d.Write(buf[:])
	for _, src := range sources {
		writeFloat(src.L)
		writeFloat(src.M)
		writeFloat(src.Intensity)
	}
	for _, vis := range visibilities {
		writeFloat(vis.U)
		writeFloat(vis.V)
		writeFloat(vis.W)
	}
	return d.Sum64()
}

func (s *ExtractionService) cached(key uint64, id dft.BackendID, forceZeroW bool, req Request) ([]dft.Complex, bool) {
	if s.cache == nil {
		return nil, false
	}
	entry, ok := s.cache.Get(key)
	if !ok || !entry.matches(id, forceZeroW, req.Sources, req.Visibilities) {
		return nil, false
	}
	return slices.Clone(entry.output), true
}

func (s *ExtractionService) store(key uint64, id dft.BackendID, forceZeroW bool, req Request, output []dft.Complex) {
	if s.cache == nil {
		return
	}
	s.cache.Add(key, cacheEntry{
		backend:      id,
		forceZeroW:   forceZeroW,
		sources:      slices.Clone(req.Sources),
		visibilities: slices.Clone(req.Visibilities),
		output:       slices.Clone(output),
	})
}
