package codec

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// BitmapCodec encodes a set of 32-bit identities in roaring format:
// version | roaring bytes
type BitmapCodec struct{}

func (BitmapCodec) Name() string { return "bitmap" }

func (BitmapCodec) Encode(bm *roaring.Bitmap) ([]byte, error) {
	if bm == nil {
		bm = roaring.New()
	}
	body, err := bm.ToBytes()
	if err != nil {
		return nil, err
	}
	return append([]byte{FormatVersion}, body...), nil
}

func (c BitmapCodec) Decode(data []byte) (*roaring.Bitmap, error) {
	if len(data) < 1 {
		return nil, &Error{Codec: c.Name(), Offset: 0, Reason: "missing header"}
	}
	if data[0] != FormatVersion {
		return nil, &Error{Codec: c.Name(), Offset: 0, Reason: "unsupported format version"}
	}
	bm := roaring.New()
	if err := bm.UnmarshalBinary(data[1:]); err != nil {
		return nil, &Error{Codec: c.Name(), Offset: 1, Reason: err.Error()}
	}
	return bm, nil
}
