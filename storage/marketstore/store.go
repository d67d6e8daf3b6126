// Package marketstore persists marketplace records on a storage.Database.
// Records are JSON-encoded under typed key prefixes; id sequences are stored
// as fixed-width big-endian counters. The store satisfies the market
// engine's state interface.
package marketstore

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"tokenmart/native/market"
	"tokenmart/storage"
)

const (
	listingPrefix         = "market/listing/"
	offerPrefix           = "market/offer/"
	collectionOfferPrefix = "market/coffer/"
	bundlePrefix          = "market/bundle/"
	indexPrefix           = "market/index/"

	offerSeqKey           = "market/seq/offer"
	collectionOfferSeqKey = "market/seq/coffer"
	bundleSeqKey          = "market/seq/bundle"
)

// Store is a market engine state backend over a key-value database.
type Store struct {
	db storage.Database
}

// New creates a store on the given database.
func New(db storage.Database) *Store {
	return &Store{db: db}
}

func idKey(prefix string, id uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return []byte(prefix + hex.EncodeToString(buf[:]))
}

func assetKeyKey(prefix string, key [32]byte) []byte {
	return []byte(prefix + hex.EncodeToString(key[:]))
}

func (s *Store) putJSON(key []byte, v interface{}) error {
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marketstore: encode %s: %w", key, err)
	}
	return s.db.Put(key, encoded)
}

func (s *Store) getJSON(key []byte, v interface{}) (bool, error) {
	raw, err := s.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("marketstore: decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) nextID(key string) (uint64, error) {
	var next uint64 = 1
	raw, err := s.db.Get([]byte(key))
	if err == nil {
		if len(raw) != 8 {
			return 0, fmt.Errorf("marketstore: corrupt sequence %s", key)
		}
		next = binary.BigEndian.Uint64(raw) + 1
	} else if !errors.Is(err, storage.ErrNotFound) {
		return 0, err
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], next)
	if err := s.db.Put([]byte(key), buf[:]); err != nil {
		return 0, err
	}
	return next, nil
}

// ListingPut stores a listing under its asset key.
func (s *Store) ListingPut(l *market.Listing) error {
	sanitized, err := market.SanitizeListing(l)
	if err != nil {
		return err
	}
	return s.putJSON(assetKeyKey(listingPrefix, market.AssetKey(sanitized.Asset, sanitized.TokenID)), sanitized)
}

// ListingGet loads the listing stored under an asset key.
func (s *Store) ListingGet(key [32]byte) (*market.Listing, bool) {
	listing := new(market.Listing)
	ok, err := s.getJSON(assetKeyKey(listingPrefix, key), listing)
	if err != nil || !ok {
		return nil, false
	}
	return listing, true
}

// OfferPut stores an offer by id.
func (s *Store) OfferPut(o *market.Offer) error {
	sanitized, err := market.SanitizeOffer(o)
	if err != nil {
		return err
	}
	return s.putJSON(idKey(offerPrefix, sanitized.ID), sanitized)
}

// OfferGet loads an offer by id.
func (s *Store) OfferGet(id uint64) (*market.Offer, bool) {
	offer := new(market.Offer)
	ok, err := s.getJSON(idKey(offerPrefix, id), offer)
	if err != nil || !ok {
		return nil, false
	}
	return offer, true
}

// NextOfferID allocates the next offer id.
func (s *Store) NextOfferID() (uint64, error) { return s.nextID(offerSeqKey) }

// CollectionOfferPut stores a collection offer by id.
func (s *Store) CollectionOfferPut(o *market.CollectionOffer) error {
	sanitized, err := market.SanitizeCollectionOffer(o)
	if err != nil {
		return err
	}
	return s.putJSON(idKey(collectionOfferPrefix, sanitized.ID), sanitized)
}

// CollectionOfferGet loads a collection offer by id.
func (s *Store) CollectionOfferGet(id uint64) (*market.CollectionOffer, bool) {
	offer := new(market.CollectionOffer)
	ok, err := s.getJSON(idKey(collectionOfferPrefix, id), offer)
	if err != nil || !ok {
		return nil, false
	}
	return offer, true
}

// NextCollectionOfferID allocates the next collection offer id.
func (s *Store) NextCollectionOfferID() (uint64, error) { return s.nextID(collectionOfferSeqKey) }

// BundlePut stores a bundle listing by id.
func (s *Store) BundlePut(b *market.BundleListing) error {
	sanitized, err := market.SanitizeBundle(b)
	if err != nil {
		return err
	}
	return s.putJSON(idKey(bundlePrefix, sanitized.ID), sanitized)
}

// BundleGet loads a bundle listing by id.
func (s *Store) BundleGet(id uint64) (*market.BundleListing, bool) {
	bundle := new(market.BundleListing)
	ok, err := s.getJSON(idKey(bundlePrefix, id), bundle)
	if err != nil || !ok {
		return nil, false
	}
	return bundle, true
}

// NextBundleID allocates the next bundle id.
func (s *Store) NextBundleID() (uint64, error) { return s.nextID(bundleSeqKey) }

// BundleIDs enumerates every stored bundle id in ascending order. The hex
// encoded big-endian id keys sort numerically, so no re-sort is needed.
func (s *Store) BundleIDs() ([]uint64, error) {
	keys, err := s.db.KeysWithPrefix([]byte(bundlePrefix))
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(keys))
	for _, key := range keys {
		raw, err := hex.DecodeString(string(key[len(bundlePrefix):]))
		if err != nil || len(raw) != 8 {
			return nil, fmt.Errorf("marketstore: corrupt bundle key %q", key)
		}
		ids = append(ids, binary.BigEndian.Uint64(raw))
	}
	return ids, nil
}

// OfferIndexGet loads the pending-offer index entry for an asset key. An
// empty entry is deleted on put, so absence means no pending offers.
func (s *Store) OfferIndexGet(key [32]byte) (*market.OfferIndexEntry, bool) {
	entry := market.NewOfferIndexEntry()
	ok, err := s.getJSON(assetKeyKey(indexPrefix, key), entry)
	if err != nil || !ok {
		return nil, false
	}
	return entry.Clone(), true
}

// OfferIndexPut stores the pending-offer index entry for an asset key,
// removing the record entirely once the entry is empty.
func (s *Store) OfferIndexPut(key [32]byte, entry *market.OfferIndexEntry) error {
	dbKey := assetKeyKey(indexPrefix, key)
	if entry == nil || entry.Len() == 0 {
		return s.db.Delete(dbKey)
	}
	return s.putJSON(dbKey, entry)
}
