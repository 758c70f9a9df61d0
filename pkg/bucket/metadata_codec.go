package bucket

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/objectvault/objectvault/pkg/vaulterrs"
	"github.com/objectvault/objectvault/pkg/vaultid"
)

func marshalMetadata(meta vaultid.ObjectMetadata) ([]byte, error) {
	b, err := cbor.Marshal(meta)
	if err != nil {
		return nil, vaulterrs.Serialization.Wrap(err)
	}
	return b, nil
}

func unmarshalMetadata(raw []byte) (vaultid.ObjectMetadata, error) {
	var meta vaultid.ObjectMetadata
	if err := cbor.Unmarshal(raw, &meta); err != nil {
		return vaultid.ObjectMetadata{}, vaulterrs.Serialization.Wrap(err)
	}
	return meta, nil
}
