package nft

// Kind identifies the token standard a collection follows.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindSingle collections hold one unit per token id (ERC721 style).
	KindSingle
	// KindMulti collections hold editions per token id (ERC1155 style).
	KindMulti
)

// Valid reports whether the kind names a supported standard.
func (k Kind) Valid() bool {
	return k == KindSingle || k == KindMulti
}

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindMulti:
		return "multi"
	default:
		return "unknown"
	}
}

// Collection is a deployed asset contract.
type Collection struct {
	Address         [20]byte
	Owner           [20]byte
	Kind            Kind
	Name            string
	Symbol          string
	URI             string
	NextTokenID     uint64
	RoyaltyReceiver [20]byte
	RoyaltyFee      uint64
	Minters         [][20]byte
}

// Clone returns a deep copy of the collection.
func (c *Collection) Clone() *Collection {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Minters = append([][20]byte(nil), c.Minters...)
	return &clone
}

// IsMinter reports whether addr may mint into the collection.
func (c *Collection) IsMinter(addr [20]byte) bool {
	if c == nil {
		return false
	}
	if c.Owner == addr {
		return true
	}
	for _, m := range c.Minters {
		if m == addr {
			return true
		}
	}
	return false
}

// Token is the metadata of one token id within a collection.
type Token struct {
	ID              uint64
	URI             string
	Supply          uint64
	Owner           [20]byte
	HasRoyalty      bool
	RoyaltyReceiver [20]byte
	RoyaltyFee      uint64
}
