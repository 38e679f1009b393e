package identity

import (
	"ga4gh/loader/models"
	"ga4gh/loader/repositories/storage"

	"github.com/RoaringBitmap/roaring/v2"
)

// VariantSetStore allocates variant-set identities.
type VariantSetStore = Store[models.VariantSet, uint32]

// CallSetStore allocates call-set identities and tracks, per call set, the
// variant sets it has been observed in.
type CallSetStore struct {
	identities  *Store[models.CallSetKey, uint32]
	memberships storage.MapStorage[uint32, *roaring.Bitmap]
}

func NewCallSetStore(ids storage.MapStorage[models.CallSetKey, uint32], memberships storage.MapStorage[uint32, *roaring.Bitmap], opts Options[uint32]) (*CallSetStore, error) {
	identities, err := New(ids, opts)
	if err != nil {
		return nil, err
	}
	return &CallSetStore{
		identities:  identities,
		memberships: memberships,
	}, nil
}

func (c *CallSetStore) Name() string { return c.identities.Name() }

// Add returns the identity of callSet, allocating one if needed, and
// records its participation in variantSetId as well as in any variant
// sets already listed on callSet.
func (c *CallSetStore) Add(callSet models.CallSet, variantSetId uint32) (uint32, error) {
	id, err := c.identities.Add(callSet.Key())
	if err != nil {
		return 0, err
	}

	bm, ok, err := c.memberships.Get(id)
	if err != nil {
		return 0, err
	}
	if !ok {
		bm = roaring.New()
	}

	changed := bm.CheckedAdd(variantSetId)
	for _, vs := range callSet.VariantSetIds {
		if bm.CheckedAdd(vs) {
			changed = true
		}
	}
	if changed || !ok {
		if err := c.memberships.Put(id, bm); err != nil {
			return 0, err
		}
	}
	return id, nil
}

func (c *CallSetStore) Contains(key models.CallSetKey) (bool, error) {
	return c.identities.Contains(key)
}

func (c *CallSetStore) GetIdentity(key models.CallSetKey) (uint32, error) {
	return c.identities.GetIdentity(key)
}

// VariantSetIds lists, in ascending order, the variant sets the call set
// with identity id has been observed in.
func (c *CallSetStore) VariantSetIds(id uint32) ([]uint32, error) {
	bm, ok, err := c.memberships.Get(id)
	if err != nil || !ok {
		return nil, err
	}
	return bm.ToArray(), nil
}

// ReverseIdentities maps every call-set identity to its call set, with the
// variant-set memberships filled in.
func (c *CallSetStore) ReverseIdentities() (map[uint32]models.CallSet, error) {
	keys, err := c.identities.ReverseIdentities()
	if err != nil {
		return nil, err
	}
	out := make(map[uint32]models.CallSet, len(keys))
	for id, key := range keys {
		variantSetIds, err := c.VariantSetIds(id)
		if err != nil {
			return nil, err
		}
		out[id] = models.CallSet{
			Name:          key.Name,
			BioSampleId:   key.BioSampleId,
			VariantSetIds: variantSetIds,
		}
	}
	return out, nil
}

func (c *CallSetStore) Len() int { return c.identities.Len() }

func (c *CallSetStore) Checkpoint() error {
	if err := c.memberships.Sync(); err != nil {
		return err
	}
	return c.identities.Checkpoint()
}

func (c *CallSetStore) Close() {
	c.identities.Close()
	storage.CloseQuietly(c.memberships)
}

func (c *CallSetStore) Purge() {
	c.identities.Purge()
	storage.PurgeQuietly(c.memberships)
}
