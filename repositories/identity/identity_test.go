package identity

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"ga4gh/loader/codec"
	"ga4gh/loader/models"
	st "ga4gh/loader/models/constants/storage-type"
	"ga4gh/loader/repositories/storage"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tiers = []string{"memory", "persistent", "hybrid"}

func openStorage(t *testing.T, tier, dir, name string, forceNew bool) storage.MapStorage[string, uint32] {
	t.Helper()
	s, err := storage.New[string, uint32](storage.Options{
		Type:                st.CastToStorageType(tier),
		Dir:                 dir,
		Name:                name,
		ForceNew:            forceNew,
		HybridCapacityBytes: 40,
	}, codec.String{}, codec.Uint32{})
	require.NoError(t, err)
	return s
}

func newStore(t *testing.T, tier string, opts Options[uint32]) *Store[string, uint32] {
	t.Helper()
	s, err := New(openStorage(t, tier, t.TempDir(), "ids", true), opts)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestDedupAndMonotonicIdentities(t *testing.T) {
	for _, tier := range tiers {
		t.Run(tier, func(t *testing.T) {
			s := newStore(t, tier, Options[uint32]{Initial: 10})

			rng := rand.New(rand.NewSource(7))
			distinct := map[string]bool{}
			var firstSeen []string
			for i := 0; i < 500; i++ {
				k := fmt.Sprintf("k%d", rng.Intn(120))
				if !distinct[k] {
					distinct[k] = true
					firstSeen = append(firstSeen, k)
				}
				_, err := s.Add(k)
				require.NoError(t, err)
			}

			assert.Equal(t, len(distinct), s.Len())
			assert.Equal(t, uint32(10+len(distinct)), s.Next())

			// identities follow first-insertion order
			var previous uint32
			for i, k := range firstSeen {
				id, err := s.GetIdentity(k)
				require.NoError(t, err)
				assert.Equal(t, uint32(10+i), id)
				if i > 0 {
					assert.Less(t, previous, id)
				}
				previous = id
			}

			reverse, err := s.ReverseIdentities()
			require.NoError(t, err)
			assert.Len(t, reverse, len(distinct))
			for id, k := range reverse {
				got, err := s.GetIdentity(k)
				require.NoError(t, err)
				assert.Equal(t, id, got)
			}
		})
	}
}

func TestAddIsIdempotent(t *testing.T) {
	s := newStore(t, "memory", Options[uint32]{})

	first, err := s.Add("TP53")
	require.NoError(t, err)
	again, err := s.Add("TP53")
	require.NoError(t, err)

	assert.Equal(t, first, again)
	assert.Equal(t, uint32(1), s.Next())
}

func TestIdentityExhaustion(t *testing.T) {
	for _, tier := range tiers {
		t.Run(tier, func(t *testing.T) {
			s := newStore(t, tier, Options[uint32]{Initial: 0, Limit: 2})

			a, err := s.Add("a")
			require.NoError(t, err)
			b, err := s.Add("b")
			require.NoError(t, err)
			assert.Equal(t, uint32(0), a)
			assert.Equal(t, uint32(1), b)

			_, err = s.Add("c")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrIdentityExhausted))

			has, err := s.Contains("c")
			require.NoError(t, err)
			assert.False(t, has)

			// known keys still resolve once the range is spent
			got, err := s.Add("a")
			require.NoError(t, err)
			assert.Equal(t, uint32(0), got)
		})
	}
}

func TestFullRangeDefaultLimit(t *testing.T) {
	s := newStore(t, "memory", Options[uint32]{Initial: ^uint32(0) - 2})
	for _, want := range []uint32{^uint32(0) - 2, ^uint32(0) - 1} {
		id, err := s.Add(fmt.Sprint(want))
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}
	// the maximum value is the exclusive bound, never an identity
	_, err := s.Add("overflow")
	assert.True(t, errors.Is(err, ErrIdentityExhausted))
	assert.Equal(t, ^uint32(0), s.Next())
}

func TestUnknownKey(t *testing.T) {
	s := newStore(t, "memory", Options[uint32]{})
	_, err := s.GetIdentity("never-added")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownKey))
}

func TestPurgeResetsCounter(t *testing.T) {
	for _, tier := range tiers {
		t.Run(tier, func(t *testing.T) {
			s := newStore(t, tier, Options[uint32]{Initial: 5})
			for _, k := range []string{"x", "y", "z"} {
				_, err := s.Add(k)
				require.NoError(t, err)
			}

			s.Purge()

			has, err := s.Contains("y")
			require.NoError(t, err)
			assert.False(t, has)
			assert.Equal(t, 0, s.Len())

			id, err := s.Add("y")
			require.NoError(t, err)
			assert.Equal(t, uint32(5), id)
		})
	}
}

func TestReproducibleAfterPurge(t *testing.T) {
	s := newStore(t, "hybrid", Options[uint32]{})
	keys := []string{"chr1", "chr2", "chr1", "chrX", "chr2", "chrY"}

	run := func() map[string]uint32 {
		out := map[string]uint32{}
		for _, k := range keys {
			id, err := s.Add(k)
			require.NoError(t, err)
			out[k] = id
		}
		return out
	}

	first := run()
	s.Purge()
	assert.Equal(t, first, run())
}

func TestResume(t *testing.T) {
	for _, tier := range []string{"persistent", "hybrid"} {
		t.Run(tier, func(t *testing.T) {
			dir := t.TempDir()

			s, err := New(openStorage(t, tier, dir, "ids", true), Options[uint32]{Initial: 100})
			require.NoError(t, err)
			for i := 0; i < 25; i++ {
				_, err := s.Add(fmt.Sprint(i))
				require.NoError(t, err)
			}
			s.Close()

			resumed, err := New(openStorage(t, tier, dir, "ids", false), Options[uint32]{Initial: 100})
			require.NoError(t, err)
			defer resumed.Close()

			assert.Equal(t, uint32(125), resumed.Next())
			id, err := resumed.GetIdentity("7")
			require.NoError(t, err)
			assert.Equal(t, uint32(107), id)

			id, err = resumed.Add("new")
			require.NoError(t, err)
			assert.Equal(t, uint32(125), id)
		})
	}
}

func TestResumeAfterCrashRederivesCounter(t *testing.T) {
	for _, tier := range []string{"persistent", "hybrid"} {
		t.Run(tier, func(t *testing.T) {
			dir := t.TempDir()

			raw := openStorage(t, tier, dir, "ids", true)
			s, err := New(raw, Options[uint32]{})
			require.NoError(t, err)
			for i := 0; i < 10; i++ {
				_, err := s.Add(fmt.Sprint(i))
				require.NoError(t, err)
			}
			require.NoError(t, s.Checkpoint())
			for i := 10; i < 15; i++ {
				_, err := s.Add(fmt.Sprint(i))
				require.NoError(t, err)
			}
			// released without the final checkpoint, as a killed run leaves it
			require.NoError(t, raw.Close())

			recovered, err := New(openStorage(t, tier, dir, "ids", false), Options[uint32]{})
			require.NoError(t, err)
			defer recovered.Close()

			assert.Equal(t, uint32(15), recovered.Next())
			id, err := recovered.GetIdentity("14")
			require.NoError(t, err)
			assert.Equal(t, uint32(14), id)
		})
	}
}

func TestCounterOutOfRange(t *testing.T) {
	raw := openStorage(t, "memory", t.TempDir(), "ids", true)
	require.NoError(t, raw.Put("a", 5))
	require.NoError(t, raw.SetCounter(3))

	_, err := New(raw, Options[uint32]{Initial: 4})
	assert.True(t, errors.Is(err, ErrCounterOutOfRange))

	require.NoError(t, raw.SetCounter(20))
	_, err = New(raw, Options[uint32]{Initial: 4, Limit: 10})
	assert.True(t, errors.Is(err, ErrCounterOutOfRange))
}

func TestStaleCounterIsRederived(t *testing.T) {
	raw := openStorage(t, "memory", t.TempDir(), "ids", true)
	require.NoError(t, raw.Put("a", 0))
	require.NoError(t, raw.Put("b", 1))
	require.NoError(t, raw.Put("c", 2))
	// checkpointed after "a", then crashed
	require.NoError(t, raw.SetCounter(1))

	s, err := New(raw, Options[uint32]{})
	require.NoError(t, err)
	assert.Equal(t, uint32(3), s.Next())

	id, err := s.Add("d")
	require.NoError(t, err)
	assert.Equal(t, uint32(3), id)
}

func TestCallSetStore(t *testing.T) {
	for _, tier := range tiers {
		t.Run(tier, func(t *testing.T) {
			dir := t.TempDir()
			opts := storage.Options{Type: st.CastToStorageType(tier), Dir: dir, ForceNew: true, HybridCapacityBytes: 1 << 10}

			opts.Name = "call-sets"
			ids, err := storage.New[models.CallSetKey, uint32](opts, codec.CallSetKeyCodec{}, codec.Uint32{})
			require.NoError(t, err)
			opts.Name = "call-set-memberships"
			memberships, err := storage.New[uint32, *roaring.Bitmap](opts, codec.Uint32{}, codec.BitmapCodec{})
			require.NoError(t, err)

			s, err := NewCallSetStore(ids, memberships, Options[uint32]{})
			require.NoError(t, err)
			defer s.Close()

			tumor := models.CallSet{Name: "SA1", BioSampleId: "DO1"}
			other := models.CallSet{Name: "SA2", BioSampleId: "DO1"}

			id, err := s.Add(tumor, 3)
			require.NoError(t, err)
			assert.Equal(t, uint32(0), id)

			id, err = s.Add(tumor, 1)
			require.NoError(t, err)
			assert.Equal(t, uint32(0), id)

			id, err = s.Add(tumor, 3)
			require.NoError(t, err)
			assert.Equal(t, uint32(0), id)

			id, err = s.Add(other, 1)
			require.NoError(t, err)
			assert.Equal(t, uint32(1), id)

			got, err := s.GetIdentity(tumor.Key())
			require.NoError(t, err)
			assert.Equal(t, uint32(0), got)

			reverse, err := s.ReverseIdentities()
			require.NoError(t, err)
			assert.Equal(t, map[uint32]models.CallSet{
				0: {Name: "SA1", BioSampleId: "DO1", VariantSetIds: []uint32{1, 3}},
				1: {Name: "SA2", BioSampleId: "DO1", VariantSetIds: []uint32{1}},
			}, reverse)

			s.Purge()
			has, err := s.Contains(tumor.Key())
			require.NoError(t, err)
			assert.False(t, has)
			vs, err := s.VariantSetIds(0)
			require.NoError(t, err)
			assert.Empty(t, vs)
		})
	}
}
